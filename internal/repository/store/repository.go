package store

import (
	"context"
	"errors"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// ReadingStore persists distance readings.
type ReadingStore interface {
	AppendReading(ctx context.Context, reading domain.Reading) error
	// LatestReadings returns at most limit readings, newest first.
	LatestReadings(ctx context.Context, limit int) ([]domain.Reading, error)
}

// EventStore persists the alarm audit log.
type EventStore interface {
	AppendEvent(ctx context.Context, event domain.Event) error
	// RecentEvents returns at most limit events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
}

// PresenceStore persists the singleton presence record.
type PresenceStore interface {
	SavePresence(ctx context.Context, presence domain.Presence) error
	// LoadPresence returns ErrNotFound before the first SavePresence.
	LoadPresence(ctx context.Context) (domain.Presence, error)
}

// Repository is the full persistence surface used by the server.
type Repository interface {
	ReadingStore
	EventStore
	PresenceStore

	Close() error
}

// ErrNotFound is returned when the presence record does not exist yet.
var ErrNotFound = errors.New("record not found")
