package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
)

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, message string) {
	n.messages = append(n.messages, message)
}

type failingPresence struct{}

func (failingPresence) SavePresence(context.Context, domain.Presence) error {
	return errors.New("read-only database")
}

func (failingPresence) LoadPresence(context.Context) (domain.Presence, error) {
	return domain.Presence{}, errors.New("read-only database")
}

// TestTracker_RepeatedOnline notifies twice and keeps a single record.
func TestTracker_RepeatedOnline(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := store.NewMemoryRepository(0)
	notifier := new(fakeNotifier)
	tracker := NewTracker(repo, notifier, "Sensor device")

	require.Equal(t, domain.PresenceUnknown, tracker.Current().State)

	decision, err := tracker.UpdatePresence(ctx, "online")
	require.NoError(t, err)
	require.Equal(t, domain.PresenceTransitioned, decision)

	decision, err = tracker.UpdatePresence(ctx, "online")
	require.NoError(t, err)
	require.Equal(t, domain.PresenceNoChange, decision)

	require.Equal(t, []string{"Sensor device came online", "Sensor device came online"}, notifier.messages)

	stored, err := repo.LoadPresence(ctx)
	require.NoError(t, err)
	require.Equal(t, tracker.Current(), stored)

	events, err := repo.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Empty(t, events)
}

// TestTracker_Offline records the transition with the reception time.
func TestTracker_Offline(t *testing.T) {
	t.Parallel()

	at := time.Unix(1700000000, 0)
	notifier := new(fakeNotifier)
	tracker := NewTracker(store.NewMemoryRepository(0), notifier, "Pico", WithClock(func() time.Time { return at }))

	decision, err := tracker.UpdatePresence(context.Background(), "offline")
	require.NoError(t, err)
	require.Equal(t, domain.PresenceTransitioned, decision)
	require.Equal(t, domain.Presence{State: domain.PresenceOffline, UpdatedAt: at}, tracker.Current())
	require.Equal(t, []string{"Pico went offline"}, notifier.messages)
}

// TestTracker_UnknownValue leaves the state untouched.
func TestTracker_UnknownValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	notifier := new(fakeNotifier)
	tracker := NewTracker(store.NewMemoryRepository(0), notifier, "Sensor device")

	_, err := tracker.UpdatePresence(ctx, "online")
	require.NoError(t, err)

	for _, payload := range []string{"ONLINE", " online", "rebooting", ""} {
		_, err = tracker.UpdatePresence(ctx, payload)
		require.ErrorIs(t, err, domain.ErrUnknownPresenceValue)
	}

	require.Equal(t, domain.PresenceOnline, tracker.Current().State)
	require.Len(t, notifier.messages, 1)
}

// TestTracker_Load restores a persisted record and tolerates a missing one.
func TestTracker_Load(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := store.NewMemoryRepository(0)

	empty := NewTracker(repo, new(fakeNotifier), "d")
	require.NoError(t, empty.Load(ctx))
	require.Equal(t, domain.UnknownPresence(), empty.Current())

	saved := domain.Presence{State: domain.PresenceOffline, UpdatedAt: time.Unix(42, 0)}
	require.NoError(t, repo.SavePresence(ctx, saved))

	restored := NewTracker(repo, new(fakeNotifier), "d")
	require.NoError(t, restored.Load(ctx))
	require.Equal(t, saved, restored.Current())

	require.Error(t, NewTracker(failingPresence{}, new(fakeNotifier), "d").Load(ctx))
}

// TestTracker_StoreFailure still updates the cache and notifies.
func TestTracker_StoreFailure(t *testing.T) {
	t.Parallel()

	notifier := new(fakeNotifier)
	tracker := NewTracker(failingPresence{}, notifier, "Sensor device")

	_, err := tracker.UpdatePresence(context.Background(), "online")
	require.NoError(t, err)
	require.Equal(t, domain.PresenceOnline, tracker.Current().State)
	require.Len(t, notifier.messages, 1)
}
