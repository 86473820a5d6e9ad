package alarm

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/logger"
)

const (
	// DefaultReadingsLimit is the window returned when the request asks for zero readings.
	DefaultReadingsLimit = 10
	// DefaultEventsLimit is the number of events returned when the request asks for zero.
	DefaultEventsLimit = 50
	// MaxListLimit caps every list request.
	MaxListLimit = 1000
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	AlarmEnabled() bool
	ToggleAlarm(ctx context.Context) bool
	DevicePresence() domain.Presence
	LatestReadings(ctx context.Context, limit int) ([]domain.Reading, error)
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
}

// Server implements AlarmServiceServer.
type Server struct {
	// service provides the business logic for alarm operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetAlarmState returns the enabled bit and the device presence.
func (s *Server) GetAlarmState(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return EncodeAlarmState(s.service.AlarmEnabled(), s.service.DevicePresence().State), nil
}

// ToggleAlarm flips the enabled bit. It never fails.
func (s *Server) ToggleAlarm(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	return wrapperspb.Bool(s.service.ToggleAlarm(ctx)), nil
}

// GetDevicePresence returns the presence record.
func (s *Server) GetDevicePresence(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return EncodePresence(s.service.DevicePresence()), nil
}

// ListReadings returns the newest readings and the latest value.
func (s *Server) ListReadings(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	readings, err := s.service.LatestReadings(ctx, listLimit(req, DefaultReadingsLimit))
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list readings", "error", err)

		return nil, status.Error(codes.Internal, "unable to list readings")
	}

	return EncodeReadings(readings), nil
}

// ListAlarmEvents returns the newest alarm events.
func (s *Server) ListAlarmEvents(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.ListValue, error) {
	events, err := s.service.RecentEvents(ctx, listLimit(req, DefaultEventsLimit))
	if err != nil {
		logger.ErrorKV(ctx, "Failed to list alarm events", "error", err)

		return nil, status.Error(codes.Internal, "unable to list alarm events")
	}

	return EncodeEvents(events), nil
}

// listLimit applies the default for zero and caps at MaxListLimit.
func listLimit(req *wrapperspb.UInt32Value, fallback int) int {
	limit := int(req.GetValue())
	if limit == 0 {
		return fallback
	}

	return min(limit, MaxListLimit)
}
