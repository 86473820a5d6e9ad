package client

import (
	"context"
	"fmt"
	"io"
	"time"

	api "github.com/oshokin/proximity-alarm/internal/api/grpc/alarm"
	"github.com/oshokin/proximity-alarm/internal/config"
	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/service/common"
)

// Options configures how proximity-ctl reaches the server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Out receives the report.
	Out io.Writer
}

// API is the query surface the subcommands use.
type API interface {
	GetAlarmState(ctx context.Context) (api.AlarmStatus, error)
	ToggleAlarm(ctx context.Context) (bool, error)
	GetDevicePresence(ctx context.Context) (domain.Presence, error)
	ListReadings(ctx context.Context, limit uint32) (api.ReadingsWindow, error)
	ListAlarmEvents(ctx context.Context, limit uint32) ([]domain.Event, error)
}

// Action is one subcommand body.
type Action func(ctx context.Context, client API, out io.Writer) error

// Run connects to the server and performs action.
func Run(ctx context.Context, opts *Options, action Action) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "proximity-ctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err = logger.Configure(cfg.LogLevel); err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Connected to proximity server", "server_address", serverAddress)

	return action(ctx, client, opts.Out)
}

// ShowState prints the enabled bit and the device presence.
func ShowState(ctx context.Context, client API, out io.Writer) error {
	state, err := client.GetAlarmState(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "alarm: %s\ndevice: %s\n", domain.OnOff(state.Enabled, false), state.DevicePresence)

	return err
}

// Toggle flips the alarm. It warns first when the device is not online,
// since the device will not see the change until it reconnects and asks.
func Toggle(ctx context.Context, client API, out io.Writer) error {
	presence, err := client.GetDevicePresence(ctx)
	if err != nil {
		return err
	}

	if presence.State != domain.PresenceOnline {
		logger.WarnKV(ctx, "Device is not online, toggling anyway", "device_presence", presence.State)
	}

	enabled, err := client.ToggleAlarm(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "alarm: %s\n", domain.OnOff(enabled, false))

	return err
}

// ShowPresence prints the device presence record.
func ShowPresence(ctx context.Context, client API, out io.Writer) error {
	presence, err := client.GetDevicePresence(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "device: %s (updated %s)\n", presence.State, formatTime(presence.UpdatedAt))

	return err
}

// ShowReadings returns an action printing up to limit readings, newest first.
func ShowReadings(limit uint32) Action {
	return func(ctx context.Context, client API, out io.Writer) error {
		window, err := client.ListReadings(ctx, limit)
		if err != nil {
			return err
		}

		latest := "none"
		if window.Latest != nil {
			latest = fmt.Sprintf("%.1f cm", *window.Latest)
		}

		if _, err = fmt.Fprintf(out, "latest: %s\n", latest); err != nil {
			return err
		}

		for _, r := range window.Readings {
			_, err = fmt.Fprintf(out, "%s  %7.1f cm  %s\n", formatTime(r.ObservedAt), r.ValueCM, r.Zone())
			if err != nil {
				return err
			}
		}

		return nil
	}
}

// ShowEvents returns an action printing up to limit alarm events, newest first.
func ShowEvents(limit uint32) Action {
	return func(ctx context.Context, client API, out io.Writer) error {
		events, err := client.ListAlarmEvents(ctx, limit)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			_, err = fmt.Fprintln(out, "no alarm events")

			return err
		}

		for _, e := range events {
			_, err = fmt.Fprintf(out, "%s  %-9s  %s\n", formatTime(e.OccurredAt), e.Kind, e.Detail)
			if err != nil {
				return err
			}
		}

		return nil
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return t.Local().Format(time.DateTime)
}
