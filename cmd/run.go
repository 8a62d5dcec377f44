// -- cmd/run.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"prenotabot/internal/alert"
	"prenotabot/internal/bot"
	"prenotabot/internal/browser"
	"prenotabot/internal/config"
	"prenotabot/internal/observability"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the appointment watch loop.",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runWatch wires the browser, the watch loop components and the alert sink,
// then runs until the calendar is reached or the operator stops us.
func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		// Invalid configuration is fatal at startup only; nothing in the
		// loop re-validates.
		return err
	}
	logger := observability.GetLogger()

	manager, err := browser.NewManager(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("browser startup failed: %w", err)
	}
	defer manager.Shutdown()

	drv, err := manager.NewDriver(cfg.Network.SettleWait)
	if err != nil {
		return fmt.Errorf("session startup failed: %w", err)
	}
	defer drv.Close()

	observer := bot.NewObserver(drv, logger)
	session := bot.NewSessionManager(drv, observer, cfg, logger)
	navigator := bot.NewNavigator(drv, observer, cfg, logger)
	filler := bot.NewFormFiller(drv, cfg, logger)
	speaker := alert.NewSpeaker(logger)

	orch, err := bot.NewOrchestrator(cfg, observer, session, navigator, filler, speaker, logger)
	if err != nil {
		return err
	}

	if err := orch.Run(ctx); err != nil {
		if bot.ClassifyFault(err) == bot.FaultTargetClosed {
			// The operator closed the browser: a voluntary shutdown, not an
			// operational fault.
			logger.Info("Browser closed; exiting.")
			return nil
		}
		return err
	}

	// Terminal success. Keep the authenticated browser session alive for
	// the human to finish the booking by hand.
	logger.Info("Handover complete. Keeping browser open; press Ctrl+C to quit.")
	<-ctx.Done()
	return nil
}
