package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/proximity-alarm/internal/config"
	"github.com/oshokin/proximity-alarm/internal/service/server"
	"github.com/oshokin/proximity-alarm/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// allowMultiple disables the single-instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the server.
	rootCmd = &cobra.Command{
		Use:   "proximity-server [listen-address]",
		Short: "Run the proximity alarm controller.",
		Long: `Connects to the MQTT broker, ingests distance readings and device presence,
and sends a notification when an object comes too close while the alarm is enabled.
Breach notifications are rate-limited by a single global cooldown.

The gRPC query API listens on the port of server_addr from the configuration file,
or on the address given as argument (e.g., :9090, 0.0.0.0:50051).
Secrets can be supplied through PROXIMITY_* environment variables or a .env file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				AllowMultiple: allowMultiple,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the proximity-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the check for another running server")
}
