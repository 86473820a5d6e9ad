package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/proximity-alarm/internal/config"
	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/metrics"
	"github.com/oshokin/proximity-alarm/internal/notify"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
	"github.com/oshokin/proximity-alarm/internal/service/alarm"
	"github.com/oshokin/proximity-alarm/internal/service/ingest"
	"github.com/oshokin/proximity-alarm/internal/service/presence"
	"github.com/oshokin/proximity-alarm/internal/transport/broker"
)

// components are the wired message-side services of one server.
type components struct {
	dispatcher *notify.Dispatcher
	controller *alarm.Controller
	tracker    *presence.Tracker
	router     *broker.Router
	service    *service
}

// newComponents wires the services around repo and publisher and loads the persisted presence.
func newComponents(
	ctx context.Context,
	cfg *config.Config,
	repo store.Repository,
	publisher alarm.Publisher,
	sender notify.Sender,
	m *metrics.Metrics,
) (*components, error) {
	dispatcher := notify.NewDispatcher(
		sender,
		cfg.Notify.Workers,
		cfg.Notify.QueueSize,
		cfg.Notify.Timeout,
		notify.WithMetrics(m),
	)

	controller := alarm.NewController(alarm.Settings{
		TriggerDistanceCM: cfg.Alarm.TriggerDistanceCM,
		Cooldown:          cfg.Alarm.Cooldown,
		StateTopic:        cfg.MQTT.Topics.State,
	}, repo, dispatcher, publisher, alarm.WithMetrics(m))

	tracker := presence.NewTracker(repo, dispatcher, cfg.Notify.DeviceName, presence.WithMetrics(m))
	if err := tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("restore presence: %w", err)
	}

	ingester := ingest.New(repo, controller, cfg.Alarm.MaxDistanceM, ingest.WithMetrics(m))
	statePublisher := alarm.NewStatePublisher(controller, publisher, cfg.MQTT.Topics.State, m)

	router := broker.NewRouter(m)
	router.Handle(cfg.MQTT.Topics.Distance, func(ctx context.Context, payload string) error {
		_, err := ingester.Ingest(ctx, payload)
		if errors.Is(err, domain.ErrOutOfRangeReading) {
			return nil
		}

		return err
	})
	router.Handle(cfg.MQTT.Topics.Presence, func(ctx context.Context, payload string) error {
		_, err := tracker.UpdatePresence(ctx, payload)

		return err
	})
	router.Handle(cfg.MQTT.Topics.StateRequest, func(ctx context.Context, _ string) error {
		statePublisher.HandleStateRequest(ctx)

		return nil
	})

	return &components{
		dispatcher: dispatcher,
		controller: controller,
		tracker:    tracker,
		router:     router,
		service:    newService(controller, tracker, repo, repo),
	}, nil
}

// newSender picks the Pushover adapter when credentials are configured.
func newSender(cfg *config.Notify) notify.Sender {
	if !cfg.PushoverEnabled() {
		return notify.LogSender{}
	}

	return notify.NewPushoverSender(cfg.Pushover.Endpoint, cfg.Pushover.Token, cfg.Pushover.User, cfg.Timeout)
}
