package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"
	"google.golang.org/grpc"

	api "github.com/oshokin/proximity-alarm/internal/api/grpc/alarm"
	"github.com/oshokin/proximity-alarm/internal/config"
	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/metrics"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
	"github.com/oshokin/proximity-alarm/internal/transport/broker"
)

// Options controls the proximity-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
}

const (
	// metricsReadHeaderTimeout bounds slow metrics scrapers.
	metricsReadHeaderTimeout = 5 * time.Second
	// shutdownTimeout bounds the metrics server shutdown.
	shutdownTimeout = 5 * time.Second
)

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the message loop, the gRPC query API and the metrics endpoint,
// and blocks until ctx is canceled or the gRPC server stops.
//
//nolint:funlen // Startup and shutdown ordering reads best in one place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "proximity-server")

	// Load configuration first to get server settings.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.Configure(cfg.LogLevel); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	if !opts.AllowMultiple {
		if err = checkSingleInstance(); err != nil {
			return err
		}
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(cfg.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo, err := store.Open(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close storage", "error", closeErr)
		}
	}()

	m := metrics.New()

	client := broker.NewClient(ctx, broker.ClientConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		QoS:      cfg.MQTT.QoS,
		Topics: []string{
			cfg.MQTT.Topics.Distance,
			cfg.MQTT.Topics.Presence,
			cfg.MQTT.Topics.StateRequest,
		},
		Buffer:  cfg.MQTT.InboundBuffer,
		Timeout: cfg.Timeout,
	})

	app, err := newComponents(ctx, cfg, repo, client, newSender(&cfg.Notify), m)
	if err != nil {
		return fmt.Errorf("initialise services: %w", err)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	var wg sync.WaitGroup

	app.dispatcher.Start(ctx)

	wg.Go(func() {
		app.router.Run(ctx, client.Inbound())
	})

	wg.Go(func() {
		if connectErr := client.Connect(ctx); connectErr != nil {
			logger.ErrorKV(ctx, "Broker connection not established", "error", connectErr)
		}
	})

	metricsServer := startMetricsServer(ctx, cfg.MetricsAddress, m)

	// Create and configure gRPC server with the query API.
	grpcServer := grpc.NewServer()
	api.RegisterAlarmServiceServer(grpcServer, api.NewServer(app.service))

	logger.InfoKV(ctx, "Proximity server listening",
		"listen_address", listenAddress,
		"broker", cfg.MQTT.Broker,
		"storage", cfg.Storage.Driver)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done

	wg.Wait()
	client.Close()
	app.dispatcher.Wait()
	stopMetricsServer(ctx, metricsServer)

	logger.Info(ctx, "Proximity server stopped")

	return nil
}

// checkSingleInstance refuses to start next to another server process.
func checkSingleInstance() error {
	executable, err := currentExecutable()
	if err != nil {
		return err
	}

	return ensureSingleInstance(ps.Processes, procExecutablePath(), executable, os.Getpid())
}

// startMetricsServer serves /metrics on address. An empty address disables it.
func startMetricsServer(ctx context.Context, address string, m *metrics.Metrics) *http.Server {
	if address == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		logger.InfoKV(ctx, "Metrics endpoint listening", "address", address)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorKV(ctx, "Metrics endpoint failed", "error", err)
		}
	}()

	return srv
}

func stopMetricsServer(ctx context.Context, srv *http.Server) {
	if srv == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorKV(ctx, "Metrics endpoint shutdown failed", "error", err)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return ":" + port, nil
}
