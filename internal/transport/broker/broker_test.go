package broker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewClient_GeneratesClientID checks an identifier is created when none is configured.
func TestNewClient_GeneratesClientID(t *testing.T) {
	t.Parallel()

	a := NewClient(context.Background(), ClientConfig{Broker: "tcp://127.0.0.1:1"})
	b := NewClient(context.Background(), ClientConfig{Broker: "tcp://127.0.0.1:1"})

	require.True(t, strings.HasPrefix(a.config.ClientID, clientIDPrefix))
	require.NotEqual(t, a.config.ClientID, b.config.ClientID)

	fixed := NewClient(context.Background(), ClientConfig{Broker: "tcp://127.0.0.1:1", ClientID: "dashboard"})
	require.Equal(t, "dashboard", fixed.config.ClientID)
}

// TestClient_PublishNotConnected surfaces the paho error to the caller.
func TestClient_PublishNotConnected(t *testing.T) {
	t.Parallel()

	c := NewClient(context.Background(), ClientConfig{Broker: "tcp://127.0.0.1:1", Timeout: time.Second})

	require.False(t, c.IsConnected())
	require.ErrorIs(t, c.Publish(context.Background(), "device/alarm", "on"), ErrNotConnected)
}

// TestClient_EnqueueDropsWhenFull verifies a saturated queue drops after the wait.
func TestClient_EnqueueDropsWhenFull(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := &Client{inbound: make(chan Message, 1), ctx: context.Background()}

		c.enqueue(Message{Topic: "motion/distance", Payload: "0.5"})
		c.enqueue(Message{Topic: "motion/distance", Payload: "0.6"})

		require.Len(t, c.inbound, 1)
		require.Equal(t, Message{Topic: "motion/distance", Payload: "0.5"}, <-c.Inbound())
	})
}

// TestRouter_DispatchesInOrder runs handlers serially in arrival order and ignores unknown topics.
func TestRouter_DispatchesInOrder(t *testing.T) {
	t.Parallel()

	var seen []string

	r := NewRouter(nil)
	r.Handle("motion/distance", func(_ context.Context, payload string) error {
		seen = append(seen, "distance:"+payload)

		return nil
	})
	r.Handle("device/status", func(_ context.Context, payload string) error {
		seen = append(seen, "status:"+payload)

		return errors.New("rejected")
	})

	messages := make(chan Message, 4)
	messages <- Message{Topic: "motion/distance", Payload: "0.1"}
	messages <- Message{Topic: "unknown", Payload: "x"}
	messages <- Message{Topic: "device/status", Payload: "bogus"}
	messages <- Message{Topic: "motion/distance", Payload: "0.2"}
	close(messages)

	r.Run(context.Background(), messages)

	require.Equal(t, []string{"distance:0.1", "status:bogus", "distance:0.2"}, seen)
}

// TestRouter_StopsOnCancel returns once the context is canceled.
func TestRouter_StopsOnCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		go func() {
			defer close(done)

			NewRouter(nil).Run(ctx, make(chan Message))
		}()

		cancel()
		synctest.Wait()

		select {
		case <-done:
		default:
			t.Fatal("router still running")
		}
	})
}
