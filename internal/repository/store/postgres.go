package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

const (
	// postgresPingTimeout bounds the initial connectivity check.
	postgresPingTimeout = 5 * time.Second

	// presenceRowID is the primary key of the singleton presence row.
	presenceRowID = 1
)

// postgresSchema is applied on open; every statement is idempotent.
var postgresSchema = []string{ //nolint:gochecknoglobals // Static DDL.
	`CREATE TABLE IF NOT EXISTS distance_readings (
		id          BIGSERIAL PRIMARY KEY,
		value_cm    DOUBLE PRECISION NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS distance_readings_observed_at_idx
		ON distance_readings (observed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS alarm_events (
		id          BIGSERIAL PRIMARY KEY,
		kind        VARCHAR(20) NOT NULL,
		detail      VARCHAR(120) NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS device_presence (
		id         SMALLINT PRIMARY KEY CHECK (id = 1),
		state      VARCHAR(10) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// PostgresRepository stores records in PostgreSQL through the pgx driver.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository connects to dsn and creates missing tables.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &PostgresRepository{db: db}
	if err = r.initSchema(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) initSchema(ctx context.Context) error {
	for _, statement := range postgresSchema {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

// AppendReading inserts a reading.
func (r *PostgresRepository) AppendReading(ctx context.Context, reading domain.Reading) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO distance_readings (value_cm, observed_at) VALUES ($1, $2)`,
		reading.ValueCM, reading.ObservedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	return nil
}

// LatestReadings returns at most limit readings, newest first.
func (r *PostgresRepository) LatestReadings(ctx context.Context, limit int) ([]domain.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT value_cm, observed_at
		FROM distance_readings
		ORDER BY observed_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	readings := make([]domain.Reading, 0, limit)

	for rows.Next() {
		var reading domain.Reading
		if err = rows.Scan(&reading.ValueCM, &reading.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}

		readings = append(readings, reading)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}

	return readings, nil
}

// AppendEvent inserts an audit event.
func (r *PostgresRepository) AppendEvent(ctx context.Context, event domain.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alarm_events (kind, detail, occurred_at) VALUES ($1, $2, $3)`,
		string(event.Kind), event.Detail, event.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// RecentEvents returns at most limit events, newest first.
func (r *PostgresRepository) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, detail, occurred_at
		FROM alarm_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0, limit)

	for rows.Next() {
		var (
			event domain.Event
			kind  string
		)

		if err = rows.Scan(&kind, &event.Detail, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		event.Kind = domain.EventKind(kind)
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// SavePresence upserts the singleton presence row.
func (r *PostgresRepository) SavePresence(ctx context.Context, presence domain.Presence) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_presence (id, state, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`,
		presenceRowID, string(presence.State), presence.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}

	return nil
}

// LoadPresence reads the singleton presence row.
func (r *PostgresRepository) LoadPresence(ctx context.Context) (domain.Presence, error) {
	var (
		presence domain.Presence
		state    string
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM device_presence WHERE id = $1`, presenceRowID).
		Scan(&state, &presence.UpdatedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.UnknownPresence(), ErrNotFound
	case err != nil:
		return domain.UnknownPresence(), fmt.Errorf("query presence: %w", err)
	}

	presence.State = domain.PresenceState(state)

	return presence, nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	if r.db == nil {
		return nil
	}

	return r.db.Close()
}
