// -- cmd/soundtest.go --
package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prenotabot/internal/alert"
	"prenotabot/internal/observability"
)

var soundTestDuration time.Duration

// soundTestCmd lets the operator verify the alert is audible on this host
// before trusting it with a real handover.
var soundTestCmd = &cobra.Command{
	Use:   "soundtest",
	Short: "Play the operator alert for a few seconds to verify it is audible.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		logger.Info("Playing alert test", zap.Duration("duration", soundTestDuration))

		speaker := alert.NewSpeaker(logger)
		speaker.Sound(cmd.Context(), soundTestDuration)

		logger.Info("Alert test complete")
		return nil
	},
}

func init() {
	soundTestCmd.Flags().DurationVar(&soundTestDuration, "duration", 6*time.Second, "how long to sound the test alert")
	rootCmd.AddCommand(soundTestCmd)
}
