package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "guardpost",
	Short: "Real-time ingestion coordinator for remote sensing devices",
	Long: `guardpost - coordinator for panic-button sensing devices.

Devices stream PCM audio and sensor telemetry over a WebSocket; the
coordinator relays frames between every connected endpoint, records
session artifacts (WAV audio, CSV telemetry), pipes audio through a
speech recognition engine and raises keyword alerts on an external
notification channel.

Examples:
  # Run the coordinator with the default config file
  guardpost serve

  # Run with an explicit config and verbose logging
  guardpost -v --config /etc/guardpost.yaml serve

  # List recorded sessions
  guardpost sessions`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "guardpost.yaml", "path to the YAML config file")
}
