package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

func newMockPostgres(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return &PostgresRepository{db: db}, mock
}

// TestPostgresRepository_InitSchema verifies every DDL statement is executed.
func TestPostgresRepository_InitSchema(t *testing.T) {
	t.Parallel()

	repo, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS distance_readings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS distance_readings_observed_at_idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS alarm_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS device_presence").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.initSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepository_Readings covers insert and newest-first query.
func TestPostgresRepository_Readings(t *testing.T) {
	t.Parallel()

	repo, mock := newMockPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO distance_readings").
		WithArgs(15.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.AppendReading(ctx, domain.Reading{ValueCM: 15, ObservedAt: now}))

	rows := sqlmock.NewRows([]string{"value_cm", "observed_at"}).
		AddRow(42.0, now).
		AddRow(15.0, now.Add(-time.Second))
	mock.ExpectQuery("SELECT value_cm, observed_at FROM distance_readings").
		WithArgs(10).
		WillReturnRows(rows)

	readings, err := repo.LatestReadings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	require.InDelta(t, 42.0, readings[0].ValueCM, 0)

	mock.ExpectQuery("SELECT value_cm, observed_at FROM distance_readings").
		WithArgs(10).
		WillReturnError(sql.ErrConnDone)

	_, err = repo.LatestReadings(ctx, 10)
	require.ErrorIs(t, err, sql.ErrConnDone)

	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepository_Events covers the audit log.
func TestPostgresRepository_Events(t *testing.T) {
	t.Parallel()

	repo, mock := newMockPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO alarm_events").
		WithArgs("toggled", "Alarm turned OFF", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.AppendEvent(ctx, domain.ToggledEvent(false, now)))

	rows := sqlmock.NewRows([]string{"kind", "detail", "occurred_at"}).
		AddRow("triggered", "Object too close: 15.0 cm", now)
	mock.ExpectQuery("SELECT kind, detail, occurred_at FROM alarm_events").
		WithArgs(50).
		WillReturnRows(rows)

	events, err := repo.RecentEvents(ctx, 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventTriggered, events[0].Kind)

	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRepository_Presence covers upsert and the not-found case.
func TestPostgresRepository_Presence(t *testing.T) {
	t.Parallel()

	repo, mock := newMockPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT state, updated_at FROM device_presence").
		WithArgs(presenceRowID).
		WillReturnRows(sqlmock.NewRows([]string{"state", "updated_at"}))

	p, err := repo.LoadPresence(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, domain.PresenceUnknown, p.State)

	mock.ExpectExec("INSERT INTO device_presence").
		WithArgs(presenceRowID, "online", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SavePresence(ctx, domain.Presence{State: domain.PresenceOnline, UpdatedAt: now}))

	mock.ExpectQuery("SELECT state, updated_at FROM device_presence").
		WithArgs(presenceRowID).
		WillReturnRows(sqlmock.NewRows([]string{"state", "updated_at"}).AddRow("online", now))

	p, err = repo.LoadPresence(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PresenceOnline, p.State)
	require.True(t, now.Equal(p.UpdatedAt))

	mock.ExpectClose()
	require.NoError(t, repo.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
