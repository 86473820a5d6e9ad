// Package presence tracks whether the sensor device is connected.
//
// The device reports "online" when it connects and its broker last will
// reports "offline". There is no heartbeat: a device that vanishes without
// its last will firing stays "online".
package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/metrics"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
)

// Notifier accepts a notification for best-effort delivery.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Tracker keeps the singleton presence record.
type Tracker struct {
	// presence stores the record.
	presence store.PresenceStore
	// notifier announces every accepted update.
	notifier Notifier
	// deviceName prefixes the notification text.
	deviceName string
	// metrics counts store failures, may be nil.
	metrics *metrics.Metrics
	// now returns the reception time.
	now func() time.Time

	// mu guards current.
	mu sync.RWMutex
	// current is the cached record.
	current domain.Presence
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMetrics records store failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a tracker in the unknown state.
func NewTracker(presence store.PresenceStore, notifier Notifier, deviceName string, opts ...Option) *Tracker {
	t := &Tracker{
		presence:   presence,
		notifier:   notifier,
		deviceName: deviceName,
		now:        time.Now,
		current:    domain.UnknownPresence(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Load restores the persisted record. A missing record keeps the unknown state.
func (t *Tracker) Load(ctx context.Context) error {
	if t.presence == nil {
		return nil
	}

	presence, err := t.presence.LoadPresence(ctx)
	switch {
	case err == nil:
		t.mu.Lock()
		t.current = presence
		t.mu.Unlock()

		logger.InfoKV(ctx, "Device presence restored", "state", presence.State, "updated_at", presence.UpdatedAt)
	case errors.Is(err, store.ErrNotFound):
		// Keep the unknown state.
	default:
		return fmt.Errorf("load presence: %w", err)
	}

	return nil
}

// UpdatePresence records an "online" or "offline" report and notifies about it,
// even when it repeats the previous state.
func (t *Tracker) UpdatePresence(ctx context.Context, payload string) (domain.PresenceDecision, error) {
	state, err := domain.ParsePresenceState(payload)
	if err != nil {
		return domain.PresenceNoChange, err
	}

	next := domain.Presence{State: state, UpdatedAt: t.now()}

	t.mu.Lock()
	previous := t.current
	t.current = next
	t.mu.Unlock()

	if t.presence != nil {
		if err = t.presence.SavePresence(ctx, next); err != nil {
			t.metrics.StoreError("save_presence")
			logger.ErrorKV(ctx, "Failed to store device presence",
				"state", state,
				"error", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
		}
	}

	t.notifier.Notify(ctx, t.message(state))

	decision := domain.PresenceNoChange
	if previous.State != state {
		decision = domain.PresenceTransitioned
	}

	logger.InfoKV(ctx, "Device presence updated", "state", state, "decision", decision)

	return decision, nil
}

// Current returns the cached record.
func (t *Tracker) Current() domain.Presence {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.current
}

func (t *Tracker) message(state domain.PresenceState) string {
	if state == domain.PresenceOnline {
		return t.deviceName + " came online"
	}

	return t.deviceName + " went offline"
}
