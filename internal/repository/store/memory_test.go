package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// TestMemoryRepository_Readings verifies newest-first ordering, limits and retention.
func TestMemoryRepository_Readings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository(3)
	base := time.Unix(1000, 0)

	for i := range 5 {
		require.NoError(t, repo.AppendReading(ctx, domain.Reading{
			ValueCM:    float64(10 * (i + 1)),
			ObservedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := repo.LatestReadings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.InDelta(t, 50.0, got[0].ValueCM, 0)
	require.InDelta(t, 30.0, got[2].ValueCM, 0)

	got, err = repo.LatestReadings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.InDelta(t, 50.0, got[0].ValueCM, 0)
}

// TestMemoryRepository_Events verifies the audit log is returned newest first.
func TestMemoryRepository_Events(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository(0)

	require.NoError(t, repo.AppendEvent(ctx, domain.ToggledEvent(false, time.Unix(1, 0))))
	require.NoError(t, repo.AppendEvent(ctx, domain.ToggledEvent(true, time.Unix(2, 0))))

	events, err := repo.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Alarm turned ON", events[0].Detail)
	require.Equal(t, "Alarm turned OFF", events[1].Detail)
}

// TestMemoryRepository_EventRetention drops the oldest events past the limit.
func TestMemoryRepository_EventRetention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository(2)

	for i := range 4 {
		require.NoError(t, repo.AppendEvent(ctx, domain.ToggledEvent(i%2 == 0, time.Unix(int64(i), 0))))
	}

	events, err := repo.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.True(t, time.Unix(3, 0).Equal(events[0].OccurredAt))
	require.True(t, time.Unix(2, 0).Equal(events[1].OccurredAt))
}

// TestMemoryRepository_Presence checks the singleton overwrite semantics.
func TestMemoryRepository_Presence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMemoryRepository(0)

	p, err := repo.LoadPresence(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, domain.PresenceUnknown, p.State)

	require.NoError(t, repo.SavePresence(ctx, domain.Presence{State: domain.PresenceOnline, UpdatedAt: time.Unix(1, 0)}))
	require.NoError(t, repo.SavePresence(ctx, domain.Presence{State: domain.PresenceOffline, UpdatedAt: time.Unix(2, 0)}))

	p, err = repo.LoadPresence(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PresenceOffline, p.State)
	require.Equal(t, time.Unix(2, 0), p.UpdatedAt)
}
