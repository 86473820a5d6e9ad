package alarm

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "proximity.v1.AlarmService"

// Full method names, as used by grpc.ClientConnInterface.Invoke.
const (
	GetAlarmStateMethod     = "/" + ServiceName + "/GetAlarmState"
	ToggleAlarmMethod       = "/" + ServiceName + "/ToggleAlarm"
	GetDevicePresenceMethod = "/" + ServiceName + "/GetDevicePresence"
	ListReadingsMethod      = "/" + ServiceName + "/ListReadings"
	ListAlarmEventsMethod   = "/" + ServiceName + "/ListAlarmEvents"
)

// AlarmServiceServer is the server side of the query API.
type AlarmServiceServer interface {
	// GetAlarmState returns {enabled, device_presence}.
	GetAlarmState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// ToggleAlarm flips the enabled bit and returns the new value.
	ToggleAlarm(ctx context.Context, req *emptypb.Empty) (*wrapperspb.BoolValue, error)
	// GetDevicePresence returns {state, updated_at}.
	GetDevicePresence(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// ListReadings returns {latest, readings} for the requested window.
	ListReadings(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.Struct, error)
	// ListAlarmEvents returns the newest events first.
	ListAlarmEvents(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.ListValue, error)
}

// RegisterAlarmServiceServer attaches srv to a gRPC server.
func RegisterAlarmServiceServer(registrar grpc.ServiceRegistrar, srv AlarmServiceServer) {
	registrar.RegisterService(&AlarmServiceDesc, srv)
}

// AlarmServiceDesc describes the query API for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var AlarmServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAlarmState", Handler: getAlarmStateHandler},
		{MethodName: "ToggleAlarm", Handler: toggleAlarmHandler},
		{MethodName: "GetDevicePresence", Handler: getDevicePresenceHandler},
		{MethodName: "ListReadings", Handler: listReadingsHandler},
		{MethodName: "ListAlarmEvents", Handler: listAlarmEventsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proximity/v1/alarm.proto",
}

//nolint:revive // grpc.MethodHandler fixes the parameter order.
func getAlarmStateHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	api, _ := srv.(AlarmServiceServer)

	if interceptor == nil {
		return api.GetAlarmState(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetAlarmStateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*emptypb.Empty)

		return api.GetAlarmState(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:revive // grpc.MethodHandler fixes the parameter order.
func toggleAlarmHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	api, _ := srv.(AlarmServiceServer)

	if interceptor == nil {
		return api.ToggleAlarm(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ToggleAlarmMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*emptypb.Empty)

		return api.ToggleAlarm(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:revive // grpc.MethodHandler fixes the parameter order.
func getDevicePresenceHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	api, _ := srv.(AlarmServiceServer)

	if interceptor == nil {
		return api.GetDevicePresence(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetDevicePresenceMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*emptypb.Empty)

		return api.GetDevicePresence(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:revive // grpc.MethodHandler fixes the parameter order.
func listReadingsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}

	api, _ := srv.(AlarmServiceServer)

	if interceptor == nil {
		return api.ListReadings(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListReadingsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*wrapperspb.UInt32Value)

		return api.ListReadings(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:revive // grpc.MethodHandler fixes the parameter order.
func listAlarmEventsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}

	api, _ := srv.(AlarmServiceServer)

	if interceptor == nil {
		return api.ListAlarmEvents(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListAlarmEventsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*wrapperspb.UInt32Value)

		return api.ListAlarmEvents(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}
