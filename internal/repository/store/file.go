package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/proximity-alarm/internal/config"
	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// FileRepository keeps records in memory and rewrites a JSON snapshot on
// every change, so a restart picks up where the last run stopped.
type FileRepository struct {
	*MemoryRepository

	// path is the filesystem location of the snapshot.
	path string
	// mu serializes snapshot writes.
	mu sync.Mutex
}

// snapshot is the on-disk layout.
type snapshot struct {
	Readings []snapshotReading `json:"readings"`
	Events   []snapshotEvent   `json:"events"`
	Presence *snapshotPresence `json:"presence,omitempty"`
}

type snapshotReading struct {
	ValueCM    float64   `json:"value_cm"`
	ObservedAt time.Time `json:"observed_at"`
}

type snapshotEvent struct {
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

type snapshotPresence struct {
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFileRepository opens the snapshot at path, starting empty if it does not exist.
func NewFileRepository(path string, retention int) (*FileRepository, error) {
	r := &FileRepository{
		MemoryRepository: NewMemoryRepository(retention),
		path:             filepath.Clean(path),
	}

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snap snapshot
	if err = json.Unmarshal(contents, &snap); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	r.restore(&snap)

	return r, nil
}

// AppendReading stores a reading and rewrites the snapshot.
func (r *FileRepository) AppendReading(ctx context.Context, reading domain.Reading) error {
	if err := r.MemoryRepository.AppendReading(ctx, reading); err != nil {
		return err
	}

	return r.flush()
}

// AppendEvent stores an event and rewrites the snapshot.
func (r *FileRepository) AppendEvent(ctx context.Context, event domain.Event) error {
	if err := r.MemoryRepository.AppendEvent(ctx, event); err != nil {
		return err
	}

	return r.flush()
}

// SavePresence overwrites the presence record and rewrites the snapshot.
func (r *FileRepository) SavePresence(ctx context.Context, presence domain.Presence) error {
	if err := r.MemoryRepository.SavePresence(ctx, presence); err != nil {
		return err
	}

	return r.flush()
}

// Close writes a final snapshot.
func (r *FileRepository) Close() error {
	return r.flush()
}

func (r *FileRepository) restore(snap *snapshot) {
	m := r.MemoryRepository

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, reading := range snap.Readings {
		m.readings = append(m.readings, domain.Reading{
			ValueCM:    reading.ValueCM,
			ObservedAt: reading.ObservedAt,
		})
	}

	if m.retention > 0 && len(m.readings) > m.retention {
		m.readings = m.readings[len(m.readings)-m.retention:]
	}

	for _, event := range snap.Events {
		m.events = append(m.events, domain.Event{
			Kind:       domain.EventKind(event.Kind),
			Detail:     event.Detail,
			OccurredAt: event.OccurredAt,
		})
	}

	if m.retention > 0 && len(m.events) > m.retention {
		m.events = m.events[len(m.events)-m.retention:]
	}

	if snap.Presence != nil {
		m.presence = &domain.Presence{
			State:     domain.PresenceState(snap.Presence.State),
			UpdatedAt: snap.Presence.UpdatedAt,
		}
	}
}

// flush writes the current records to a temporary file and renames it over the snapshot.
func (r *FileRepository) flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(r.capture())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func (r *FileRepository) capture() *snapshot {
	m := r.MemoryRepository

	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &snapshot{
		Readings: make([]snapshotReading, 0, len(m.readings)),
		Events:   make([]snapshotEvent, 0, len(m.events)),
	}

	for _, reading := range m.readings {
		snap.Readings = append(snap.Readings, snapshotReading{
			ValueCM:    reading.ValueCM,
			ObservedAt: reading.ObservedAt,
		})
	}

	for _, event := range m.events {
		snap.Events = append(snap.Events, snapshotEvent{
			Kind:       string(event.Kind),
			Detail:     event.Detail,
			OccurredAt: event.OccurredAt,
		})
	}

	if m.presence != nil {
		snap.Presence = &snapshotPresence{
			State:     string(m.presence.State),
			UpdatedAt: m.presence.UpdatedAt,
		}
	}

	return snap
}
