package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// clickHouseDialTimeout bounds connection establishment.
const clickHouseDialTimeout = 5 * time.Second

// clickHouseSchema is applied on open. The presence table keeps one logical
// row: ReplacingMergeTree collapses versions by id and FINAL reads the newest.
var clickHouseSchema = []string{ //nolint:gochecknoglobals // Static DDL.
	`CREATE TABLE IF NOT EXISTS distance_readings (
		observed_at DateTime64(3, 'UTC'),
		value_cm    Float64
	) ENGINE = MergeTree ORDER BY observed_at`,
	`CREATE TABLE IF NOT EXISTS alarm_events (
		occurred_at DateTime64(3, 'UTC'),
		kind        LowCardinality(String),
		detail      String
	) ENGINE = MergeTree ORDER BY occurred_at`,
	`CREATE TABLE IF NOT EXISTS device_presence (
		id         UInt8,
		state      LowCardinality(String),
		updated_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(updated_at) ORDER BY id`,
}

// ClickHouseRepository stores records in ClickHouse.
type ClickHouseRepository struct {
	conn driver.Conn
}

// NewClickHouseRepository connects using a clickhouse:// DSN and creates missing tables.
func NewClickHouseRepository(ctx context.Context, dsn string) (*ClickHouseRepository, error) {
	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	if options.DialTimeout == 0 {
		options.DialTimeout = clickHouseDialTimeout
	}

	options.Compression = &clickhouse.Compression{
		Method: clickhouse.CompressionLZ4,
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err = conn.Ping(ctx); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	for _, statement := range clickHouseSchema {
		if err = conn.Exec(ctx, statement); err != nil {
			_ = conn.Close()

			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &ClickHouseRepository{conn: conn}, nil
}

// AppendReading inserts a reading.
func (r *ClickHouseRepository) AppendReading(ctx context.Context, reading domain.Reading) error {
	err := r.conn.Exec(ctx,
		`INSERT INTO distance_readings (observed_at, value_cm) VALUES (?, ?)`,
		reading.ObservedAt.UTC(), reading.ValueCM)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	return nil
}

// LatestReadings returns at most limit readings, newest first.
func (r *ClickHouseRepository) LatestReadings(ctx context.Context, limit int) ([]domain.Reading, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT value_cm, observed_at
		FROM distance_readings
		ORDER BY observed_at DESC
		LIMIT ?`, limit)
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

	return readings, rows.Err()
}

// AppendEvent inserts an audit event.
func (r *ClickHouseRepository) AppendEvent(ctx context.Context, event domain.Event) error {
	err := r.conn.Exec(ctx,
		`INSERT INTO alarm_events (occurred_at, kind, detail) VALUES (?, ?, ?)`,
		event.OccurredAt.UTC(), string(event.Kind), event.Detail)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// RecentEvents returns at most limit events, newest first.
func (r *ClickHouseRepository) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT kind, detail, occurred_at
		FROM alarm_events
		ORDER BY occurred_at DESC
		LIMIT ?`, limit)
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

	return events, rows.Err()
}

// SavePresence writes a new version of the singleton presence row.
func (r *ClickHouseRepository) SavePresence(ctx context.Context, presence domain.Presence) error {
	err := r.conn.Exec(ctx,
		`INSERT INTO device_presence (id, state, updated_at) VALUES (?, ?, ?)`,
		uint8(presenceRowID), string(presence.State), presence.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert presence: %w", err)
	}

	return nil
}

// LoadPresence reads the newest version of the presence row.
func (r *ClickHouseRepository) LoadPresence(ctx context.Context) (domain.Presence, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT state, updated_at
		FROM device_presence FINAL
		WHERE id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, uint8(presenceRowID))
	if err != nil {
		return domain.UnknownPresence(), fmt.Errorf("query presence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return domain.UnknownPresence(), fmt.Errorf("query presence: %w", err)
		}

		return domain.UnknownPresence(), ErrNotFound
	}

	var (
		presence domain.Presence
		state    string
	)

	if err = rows.Scan(&state, &presence.UpdatedAt); err != nil {
		return domain.UnknownPresence(), fmt.Errorf("scan presence: %w", err)
	}

	presence.State = domain.PresenceState(state)

	return presence, nil
}

// Close closes the connection.
func (r *ClickHouseRepository) Close() error {
	return r.conn.Close()
}
