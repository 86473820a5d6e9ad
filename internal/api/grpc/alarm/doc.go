// Package alarm implements the gRPC query API of the proximity alarm server.
//
// The service is described by a hand-written grpc.ServiceDesc over protobuf
// well-known types, so both sides share the codec helpers in this package:
// the server encodes domain values into structpb messages and the client
// decodes them back.
package alarm
