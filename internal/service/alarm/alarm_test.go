package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
)

const stateTopic = "device/alarm"

// fakeNotifier records notifications synchronously.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.messages...)
}

type published struct {
	topic   string
	payload string
}

// fakePublisher records publishes and can be told to fail.
type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, topic, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.msgs = append(p.msgs, published{topic: topic, payload: payload})

	return nil
}

// failingEvents rejects every append.
type failingEvents struct{}

func (failingEvents) AppendEvent(context.Context, domain.Event) error { return errors.New("disk full") }

func (failingEvents) RecentEvents(context.Context, int) ([]domain.Event, error) { return nil, nil }

func newTestController(events store.EventStore, opts ...Option) (*Controller, *fakeNotifier, *fakePublisher) {
	notifier := new(fakeNotifier)
	publisher := new(fakePublisher)

	c := NewController(Settings{
		TriggerDistanceCM: domain.TooCloseBelowCM,
		Cooldown:          60 * time.Second,
		StateTopic:        stateTopic,
	}, events, notifier, publisher, opts...)

	return c, notifier, publisher
}

// TestController_FiresOnceWithinCooldown covers a burst of breaches inside one window.
func TestController_FiresOnceWithinCooldown(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		events := store.NewMemoryRepository(0)
		c, notifier, _ := newTestController(events)

		require.Equal(t, domain.DecisionFired, c.Evaluate(ctx, domain.NewReading(0.15, time.Now())))

		time.Sleep(10 * time.Second)
		require.Equal(t, domain.DecisionNone, c.Evaluate(ctx, domain.NewReading(0.10, time.Now())))

		time.Sleep(20 * time.Second)
		require.Equal(t, domain.DecisionNone, c.Evaluate(ctx, domain.NewReading(0.05, time.Now())))

		require.Equal(t, []string{"Alarm triggered! Object too close: 15.0 cm"}, notifier.sent())

		recorded, err := events.RecentEvents(ctx, 50)
		require.NoError(t, err)
		require.Len(t, recorded, 1)
		require.Equal(t, domain.EventTriggered, recorded[0].Kind)
		require.Equal(t, "Object too close: 15.0 cm", recorded[0].Detail)
	})
}

// TestController_CooldownBoundary checks the window is strictly greater than the cooldown.
func TestController_CooldownBoundary(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		c, notifier, _ := newTestController(nil)

		first := time.Now()
		require.Equal(t, domain.DecisionFired, c.Evaluate(ctx, domain.NewReading(0.1, first)))
		require.True(t, first.Equal(c.CurrentState().LastNotifiedAt))

		time.Sleep(60 * time.Second)
		require.Equal(t, domain.DecisionNone, c.Evaluate(ctx, domain.NewReading(0.1, time.Now())))

		time.Sleep(time.Second)
		require.Equal(t, domain.DecisionFired, c.Evaluate(ctx, domain.NewReading(0.1, time.Now())))
		require.Len(t, notifier.sent(), 2)
	})
}

// TestController_SafeAndBoundaryReadings ensures only readings below the threshold breach.
func TestController_SafeAndBoundaryReadings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, notifier, _ := newTestController(nil)

	require.Equal(t, domain.DecisionNone, c.Evaluate(ctx, domain.Reading{ValueCM: 20}))
	require.Equal(t, domain.DecisionNone, c.Evaluate(ctx, domain.Reading{ValueCM: 150}))
	require.Empty(t, notifier.sent())
	require.True(t, c.CurrentState().LastNotifiedAt.IsZero())
}

// TestController_DisabledSkipsBreach verifies a disabled alarm never fires nor touches the cooldown.
func TestController_DisabledSkipsBreach(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := store.NewMemoryRepository(0)
	c, notifier, publisher := newTestController(events)

	require.False(t, c.Toggle(ctx))
	require.Equal(t, domain.DecisionNone, c.Evaluate(ctx, domain.Reading{ValueCM: 10}))
	require.Empty(t, notifier.sent())
	require.True(t, c.CurrentState().LastNotifiedAt.IsZero())

	require.Equal(t, []published{{topic: stateTopic, payload: "off"}}, publisher.msgs)

	recorded, err := events.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	require.Equal(t, domain.EventToggled, recorded[0].Kind)
	require.Equal(t, "Alarm turned OFF", recorded[0].Detail)
}

// TestController_ToggleTwice restores the bit, publishes both values and keeps the cooldown.
func TestController_ToggleTwice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := store.NewMemoryRepository(0)
	c, _, publisher := newTestController(events)

	require.Equal(t, domain.DecisionFired, c.Evaluate(ctx, domain.Reading{ValueCM: 5}))
	before := c.CurrentState()

	require.False(t, c.Toggle(ctx))
	require.True(t, c.Toggle(ctx))

	after := c.CurrentState()
	require.Equal(t, before, after)
	require.Equal(t, []published{
		{topic: stateTopic, payload: "off"},
		{topic: stateTopic, payload: "on"},
	}, publisher.msgs)

	recorded, err := events.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Len(t, recorded, 3)
	require.Equal(t, "Alarm turned ON", recorded[0].Detail)
	require.Equal(t, "Alarm turned OFF", recorded[1].Detail)
	require.Equal(t, domain.EventTriggered, recorded[2].Kind)
}

// TestController_FailuresNeverSurface ensures toggle and evaluate survive broken collaborators.
func TestController_FailuresNeverSurface(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, notifier, publisher := newTestController(failingEvents{})
	publisher.err = errors.New("not connected")

	require.False(t, c.Toggle(ctx))
	require.False(t, c.CurrentState().Enabled)
	require.True(t, c.Toggle(ctx))

	require.Equal(t, domain.DecisionFired, c.Evaluate(ctx, domain.Reading{ValueCM: 1}))
	require.Len(t, notifier.sent(), 1)
	require.False(t, c.CurrentState().LastNotifiedAt.IsZero())
}

// TestController_ConcurrentToggles checks the bit parity after parallel toggles.
func TestController_ConcurrentToggles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := store.NewMemoryRepository(0)
	c, _, publisher := newTestController(events)

	var wg sync.WaitGroup

	for range 10 {
		wg.Go(func() {
			c.Toggle(ctx)
			c.Evaluate(ctx, domain.Reading{ValueCM: 50})
			_ = c.CurrentState()
		})
	}

	wg.Wait()

	require.True(t, c.CurrentState().Enabled)
	require.Len(t, publisher.msgs, 10)
	require.Equal(t, "on", publisher.msgs[9].payload)

	recorded, err := events.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Len(t, recorded, 10)
}

// TestStatePublisher_HandleStateRequest answers with the current bit and records nothing.
func TestStatePublisher_HandleStateRequest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := store.NewMemoryRepository(0)
	c, _, _ := newTestController(events)
	answers := new(fakePublisher)
	p := NewStatePublisher(c, answers, stateTopic, nil)

	p.HandleStateRequest(ctx)
	c.Toggle(ctx)
	p.HandleStateRequest(ctx)

	require.Equal(t, []published{
		{topic: stateTopic, payload: "on"},
		{topic: stateTopic, payload: "off"},
	}, answers.msgs)

	recorded, err := events.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Len(t, recorded, 1)

	answers.err = errors.New("broker down")

	require.NotPanics(t, func() { p.HandleStateRequest(ctx) })
	require.False(t, c.CurrentState().Enabled)
}
