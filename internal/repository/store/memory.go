package store

import (
	"context"
	"slices"
	"sync"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// MemoryRepository keeps every record in process memory.
// Readings and events beyond the retention limit are discarded oldest first.
type MemoryRepository struct {
	// readings are stored oldest first.
	readings []domain.Reading
	// events are stored oldest first.
	events []domain.Event
	// presence is nil until the first SavePresence.
	presence *domain.Presence
	// retention caps len(readings) and len(events), zero means unlimited.
	retention int
	// mu protects every field above.
	mu sync.RWMutex
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository(retention int) *MemoryRepository {
	return &MemoryRepository{
		retention: retention,
	}
}

// AppendReading stores a reading.
func (r *MemoryRepository) AppendReading(_ context.Context, reading domain.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.readings = append(r.readings, reading)

	if r.retention > 0 && len(r.readings) > r.retention {
		r.readings = slices.Clone(r.readings[len(r.readings)-r.retention:])
	}

	return nil
}

// LatestReadings returns at most limit readings, newest first.
func (r *MemoryRepository) LatestReadings(_ context.Context, limit int) ([]domain.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return newestFirst(r.readings, limit), nil
}

// AppendEvent stores an audit event.
func (r *MemoryRepository) AppendEvent(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	if r.retention > 0 && len(r.events) > r.retention {
		r.events = slices.Clone(r.events[len(r.events)-r.retention:])
	}

	return nil
}

// RecentEvents returns at most limit events, newest first.
func (r *MemoryRepository) RecentEvents(_ context.Context, limit int) ([]domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return newestFirst(r.events, limit), nil
}

// SavePresence overwrites the presence record.
func (r *MemoryRepository) SavePresence(_ context.Context, presence domain.Presence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.presence = &presence

	return nil
}

// LoadPresence returns the presence record or ErrNotFound.
func (r *MemoryRepository) LoadPresence(context.Context) (domain.Presence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.presence == nil {
		return domain.UnknownPresence(), ErrNotFound
	}

	return *r.presence, nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}

// newestFirst copies the last limit items of an oldest-first slice in reverse order.
func newestFirst[T any](items []T, limit int) []T {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	result := make([]T, 0, limit)
	for i := len(items) - 1; i >= len(items)-limit; i-- {
		result = append(result, items[i])
	}

	return result
}
