//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/proximity-alarm/internal/api/grpc/alarm"
	"github.com/oshokin/proximity-alarm/internal/config"
	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// Client wraps the AlarmService query API with typed helpers.
type Client struct {
	// conn is the underlying gRPC connection, nil when the client was built over a caller's connection.
	conn *grpc.ClientConn
	// invoker performs the unary calls.
	invoker grpc.ClientConnInterface

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the alarm server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm server: %w", err)
	}

	client := NewClient(conn, opts...)
	client.conn = conn

	return client, nil
}

// NewClient builds a client over an existing connection. Close leaves it open.
func NewClient(invoker grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		invoker:     invoker,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetAlarmState retrieves the enabled bit and the device presence.
func (c *Client) GetAlarmState(ctx context.Context) (api.AlarmStatus, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, api.GetAlarmStateMethod, new(emptypb.Empty), out); err != nil {
		return api.AlarmStatus{}, fmt.Errorf("get alarm state: %w", err)
	}

	return api.DecodeAlarmState(out)
}

// ToggleAlarm flips the alarm and returns the new enabled bit.
func (c *Client) ToggleAlarm(ctx context.Context) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.invoke(ctx, api.ToggleAlarmMethod, new(emptypb.Empty), out); err != nil {
		return false, fmt.Errorf("toggle alarm: %w", err)
	}

	return out.GetValue(), nil
}

// GetDevicePresence retrieves the presence record.
func (c *Client) GetDevicePresence(ctx context.Context) (domain.Presence, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, api.GetDevicePresenceMethod, new(emptypb.Empty), out); err != nil {
		return domain.Presence{}, fmt.Errorf("get device presence: %w", err)
	}

	return api.DecodePresence(out)
}

// ListReadings retrieves up to limit readings, newest first. Zero asks for the server default.
func (c *Client) ListReadings(ctx context.Context, limit uint32) (api.ReadingsWindow, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, api.ListReadingsMethod, wrapperspb.UInt32(limit), out); err != nil {
		return api.ReadingsWindow{}, fmt.Errorf("list readings: %w", err)
	}

	return api.DecodeReadings(out)
}

// ListAlarmEvents retrieves up to limit alarm events, newest first. Zero asks for the server default.
func (c *Client) ListAlarmEvents(ctx context.Context, limit uint32) ([]domain.Event, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, api.ListAlarmEventsMethod, wrapperspb.UInt32(limit), out); err != nil {
		return nil, fmt.Errorf("list alarm events: %w", err)
	}

	return api.DecodeEvents(out)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return c.invoker.Invoke(callCtx, method, in, out)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
