package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/metrics"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
)

// triggeredMessageFormat is the text handed to the notifier on a breach.
const triggeredMessageFormat = "Alarm triggered! Object too close: %.1f cm"

// Notifier accepts a notification for best-effort delivery. It must not block.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Publisher sends a payload to a broker topic.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// State is a snapshot of the controller state.
type State struct {
	// Enabled reports whether breaches may raise notifications.
	Enabled bool
	// LastNotifiedAt is the time of the last breach notification, zero if none.
	LastNotifiedAt time.Time
}

// Settings holds the controller tunables.
type Settings struct {
	// TriggerDistanceCM is the breach threshold, exclusive.
	TriggerDistanceCM float64
	// Cooldown is the minimum gap between two breach notifications.
	Cooldown time.Duration
	// StateTopic receives "on" or "off" after every toggle.
	StateTopic string
}

// Controller decides when a breach warrants a notification and owns the enabled bit.
type Controller struct {
	// settings holds the thresholds and the state topic.
	settings Settings
	// events stores the audit log.
	events store.EventStore
	// notifier receives breach notifications.
	notifier Notifier
	// publisher announces the enabled bit.
	publisher Publisher
	// metrics counts decisions and failures, may be nil.
	metrics *metrics.Metrics
	// now returns the current time.
	now func() time.Time

	// mu guards the fields below and serializes toggles against evaluations.
	mu sync.Mutex
	// enabled is the alarm-enabled bit.
	enabled bool
	// lastNotifiedAt is zero until the first breach notification.
	lastNotifiedAt time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records decisions, store and publish failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController creates an enabled controller with a cold cooldown.
func NewController(
	settings Settings,
	events store.EventStore,
	notifier Notifier,
	publisher Publisher,
	opts ...Option,
) *Controller {
	c := &Controller{
		settings:  settings,
		events:    events,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
		enabled:   true,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.metrics.AlarmEnabled(c.enabled)

	return c
}

// Evaluate applies the breach, enabled and cooldown rules to a reading.
func (c *Controller) Evaluate(ctx context.Context, reading domain.Reading) domain.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if !reading.IsBreach(c.settings.TriggerDistanceCM) || !c.enabled || c.isHot(now) {
		c.metrics.Decision(domain.DecisionNone.String())

		return domain.DecisionNone
	}

	c.notifier.Notify(ctx, fmt.Sprintf(triggeredMessageFormat, reading.ValueCM))
	c.appendEvent(ctx, domain.TriggeredEvent(reading.ValueCM, now))
	c.lastNotifiedAt = now

	c.metrics.Decision(domain.DecisionFired.String())
	logger.InfoKV(ctx, "Alarm fired", "distance_cm", reading.ValueCM)

	return domain.DecisionFired
}

// Toggle flips the enabled bit, announces it and records it. It returns the new value.
// Publish and store failures are logged and counted only.
func (c *Controller) Toggle(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = !c.enabled
	now := c.now()

	c.appendEvent(ctx, domain.ToggledEvent(c.enabled, now))
	c.publish(ctx, c.enabled)
	c.metrics.AlarmEnabled(c.enabled)

	logger.InfoKV(ctx, "Alarm toggled", "enabled", c.enabled)

	return c.enabled
}

// CurrentState returns a snapshot of the controller state.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Enabled:        c.enabled,
		LastNotifiedAt: c.lastNotifiedAt,
	}
}

// isHot reports whether the cooldown window is still open at now.
func (c *Controller) isHot(now time.Time) bool {
	if c.lastNotifiedAt.IsZero() {
		return false
	}

	return now.Sub(c.lastNotifiedAt) <= c.settings.Cooldown
}

func (c *Controller) appendEvent(ctx context.Context, event domain.Event) {
	if c.events == nil {
		return
	}

	if err := c.events.AppendEvent(ctx, event); err != nil {
		c.metrics.StoreError("append_event")
		logger.ErrorKV(ctx, "Failed to record alarm event",
			"kind", event.Kind,
			"error", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
	}
}

func (c *Controller) publish(ctx context.Context, enabled bool) {
	if c.publisher == nil {
		return
	}

	if err := c.publisher.Publish(ctx, c.settings.StateTopic, domain.OnOff(enabled, false)); err != nil {
		c.metrics.PublishError()
		logger.ErrorKV(ctx, "Failed to publish alarm state", "topic", c.settings.StateTopic, "error", err)
	}
}
