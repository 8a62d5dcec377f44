// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"prenotabot/internal/config"
	"prenotabot/internal/observability"
)

var (
	cfgFile     string
	browserFlag string
)

// rootCmd represents the base command. Invoking the binary with no
// subcommand starts the watch loop, matching the original single-purpose
// tool; `run` exists as an explicit alias.
var rootCmd = &cobra.Command{
	Use:     "prenotabot",
	Short:   "Watches the Prenotami portal for an appointment slot and hands over to a human when one opens.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return err
		}

		// Only the logger section is needed this early; the full config is
		// validated by the commands that actually drive a browser.
		var logCfg config.LoggerConfig
		if err := viper.UnmarshalKey("logger", &logCfg); err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "prenotabot"})
			return fmt.Errorf("failed to unmarshal logger config: %w", err)
		}
		observability.InitializeLogger(logCfg)

		observability.GetLogger().Info("Starting prenotabot", zap.String("version", Version))
		return nil
	},
	RunE: runWatch,
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !isCleanShutdown(err) {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	observability.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&browserFlag, "browser", "b", "", "browser type: chrome, chromium or edge (overrides config)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PRENOTABOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; env and flags may carry
		// everything. An explicitly named file must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// The -b flag wins over both file and environment.
	if browserFlag != "" {
		v.Set("browser.type", browserFlag)
	}
	return nil
}

// isCleanShutdown reports whether err is a graceful stop (Ctrl+C mid-run)
// rather than a failure, for logging and exit-code purposes.
func isCleanShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
