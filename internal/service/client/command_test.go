package client

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	api "github.com/oshokin/proximity-alarm/internal/api/grpc/alarm"
	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// fakeAPI implements API with canned answers.
type fakeAPI struct {
	enabled   bool
	presence  domain.Presence
	window    api.ReadingsWindow
	events    []domain.Event
	err       error
	toggles   int
	lastLimit uint32
}

func (f *fakeAPI) GetAlarmState(context.Context) (api.AlarmStatus, error) {
	return api.AlarmStatus{Enabled: f.enabled, DevicePresence: f.presence.State}, f.err
}

func (f *fakeAPI) ToggleAlarm(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}

	f.toggles++
	f.enabled = !f.enabled

	return f.enabled, nil
}

func (f *fakeAPI) GetDevicePresence(context.Context) (domain.Presence, error) {
	return f.presence, f.err
}

func (f *fakeAPI) ListReadings(_ context.Context, limit uint32) (api.ReadingsWindow, error) {
	f.lastLimit = limit

	return f.window, f.err
}

func (f *fakeAPI) ListAlarmEvents(_ context.Context, limit uint32) ([]domain.Event, error) {
	f.lastLimit = limit

	return f.events, f.err
}

// TestShowState prints both values.
func TestShowState(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	fake := &fakeAPI{enabled: true, presence: domain.Presence{State: domain.PresenceOnline}}
	require.NoError(t, ShowState(context.Background(), fake, &out))
	require.Equal(t, "alarm: on\ndevice: online\n", out.String())
}

// TestToggle flips the alarm even when the device is offline.
func TestToggle(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	fake := &fakeAPI{enabled: true, presence: domain.Presence{State: domain.PresenceOffline}}
	require.NoError(t, Toggle(context.Background(), fake, &out))
	require.Equal(t, 1, fake.toggles)
	require.Equal(t, "alarm: off\n", out.String())

	fake.err = errors.New("unavailable")
	require.Error(t, Toggle(context.Background(), fake, &out))
}

// TestShowPresence renders a missing update time as never.
func TestShowPresence(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, ShowPresence(context.Background(), &fakeAPI{presence: domain.UnknownPresence()}, &out))
	require.Equal(t, "device: unknown (updated never)\n", out.String())
}

// TestShowReadings prints the latest value and one line per reading.
func TestShowReadings(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	latest := 15.0
	fake := &fakeAPI{window: api.ReadingsWindow{
		Latest: &latest,
		Readings: []domain.Reading{
			{ValueCM: 15, ObservedAt: time.Unix(200, 0)},
			{ValueCM: 150, ObservedAt: time.Unix(100, 0)},
		},
	}}

	require.NoError(t, ShowReadings(3)(context.Background(), fake, &out))
	require.Equal(t, uint32(3), fake.lastLimit)
	require.Contains(t, out.String(), "latest: 15.0 cm\n")
	require.Contains(t, out.String(), "too_close")
	require.Contains(t, out.String(), "safe")

	out.Reset()
	require.NoError(t, ShowReadings(0)(context.Background(), new(fakeAPI), &out))
	require.Equal(t, "latest: none\n", out.String())
}

// TestShowEvents prints events or a placeholder.
func TestShowEvents(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, ShowEvents(0)(context.Background(), new(fakeAPI), &out))
	require.Equal(t, "no alarm events\n", out.String())

	out.Reset()

	fake := &fakeAPI{events: []domain.Event{domain.TriggeredEvent(12.3, time.Unix(300, 0))}}
	require.NoError(t, ShowEvents(50)(context.Background(), fake, &out))
	require.Contains(t, out.String(), "triggered")
	require.Contains(t, out.String(), "Object too close: 12.3 cm")
}
