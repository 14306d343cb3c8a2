package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Doaky/pi-alarm-block/internal/service/server"
	"github.com/Doaky/pi-alarm-block/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// dataDir overrides where alarms and settings are persisted.
	dataDir string

	// rootCmd represents the base command for running the alarm service.
	rootCmd = &cobra.Command{
		Use:   "alarm-block [listen-address]",
		Short: "Run the alarm block service.",
		Long: `Starts the alarm block service: recurring alarms with schedule gating,
white noise playback with alarm ducking, the web API and the WebSocket feed.

The service listens on the configured address; pass a listen address as an
argument to override it (e.g. :9000, 0.0.0.0:8000). Without a --config file
it runs with built-in defaults under the user's home directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				DataDir:       dataDir,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-block CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "override the data directory")
}
