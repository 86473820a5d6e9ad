package server

import (
	"context"
	"fmt"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
	"github.com/oshokin/proximity-alarm/internal/service/alarm"
	"github.com/oshokin/proximity-alarm/internal/service/presence"
)

// service answers the query API from the live controller, tracker and store.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// controller owns the enabled bit.
	controller *alarm.Controller
	// tracker owns the presence record.
	tracker *presence.Tracker
	// readings is the reading history.
	readings store.ReadingStore
	// events is the alarm audit log.
	events store.EventStore
}

// newService creates the query facade.
func newService(
	controller *alarm.Controller,
	tracker *presence.Tracker,
	readings store.ReadingStore,
	events store.EventStore,
) *service {
	return &service{
		controller: controller,
		tracker:    tracker,
		readings:   readings,
		events:     events,
	}
}

// AlarmEnabled reports the enabled bit.
func (s *service) AlarmEnabled() bool {
	return s.controller.CurrentState().Enabled
}

// ToggleAlarm flips the enabled bit on behalf of an operator.
func (s *service) ToggleAlarm(ctx context.Context) bool {
	enabled := s.controller.Toggle(ctx)

	presenceState := s.tracker.Current().State
	if presenceState != domain.PresenceOnline {
		logger.WarnKV(ctx, "Alarm toggled while device is not online", "device_presence", presenceState)
	}

	return enabled
}

// DevicePresence returns the cached presence record.
func (s *service) DevicePresence() domain.Presence {
	return s.tracker.Current()
}

// LatestReadings returns at most limit readings, newest first.
func (s *service) LatestReadings(ctx context.Context, limit int) ([]domain.Reading, error) {
	readings, err := s.readings.LatestReadings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: latest readings: %w", domain.ErrPersistence, err)
	}

	return readings, nil
}

// RecentEvents returns at most limit alarm events, newest first.
func (s *service) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	events, err := s.events.RecentEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent events: %w", domain.ErrPersistence, err)
	}

	return events, nil
}
