package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	api "github.com/oshokin/proximity-alarm/internal/api/grpc/alarm"
	"github.com/oshokin/proximity-alarm/internal/config"
	"github.com/oshokin/proximity-alarm/internal/service/client"
	"github.com/oshokin/proximity-alarm/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// serverAddress overrides server_addr from the configuration file.
	serverAddress string
	// readingsLimit is the number of readings to list.
	readingsLimit uint32
	// eventsLimit is the number of alarm events to list.
	eventsLimit uint32

	// rootCmd represents the base command of the query client.
	rootCmd = &cobra.Command{
		Use:   "proximity-ctl",
		Short: "Query and control a running proximity-server.",
		Long: `Talks to the proximity-server gRPC query API.

Shows the alarm state and device presence, toggles the alarm,
and lists recent distance readings and alarm events.`,
		SilenceUsage: true,
	}
)

// Execute runs the proximity-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// actionCommand builds a subcommand running action against the server.
func actionCommand(use, short string, action func() client.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Out:           cmd.OutOrStdout(),
			}

			return client.Run(ctx, options, action())
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "server address, overrides server_addr")

	readingsCmd := actionCommand("readings", "List the newest distance readings.", func() client.Action {
		return client.ShowReadings(readingsLimit)
	})
	readingsCmd.Flags().Uint32VarP(&readingsLimit, "limit", "n", api.DefaultReadingsLimit, "number of readings")

	eventsCmd := actionCommand("events", "List the newest alarm events.", func() client.Action {
		return client.ShowEvents(eventsLimit)
	})
	eventsCmd.Flags().Uint32VarP(&eventsLimit, "limit", "n", api.DefaultEventsLimit, "number of events")

	rootCmd.AddCommand(
		actionCommand("state", "Show the alarm state and device presence.", func() client.Action {
			return client.ShowState
		}),
		actionCommand("toggle", "Turn the alarm on or off.", func() client.Action {
			return client.Toggle
		}),
		actionCommand("presence", "Show the device presence.", func() client.Action {
			return client.ShowPresence
		}),
		readingsCmd,
		eventsCmd,
	)
}
