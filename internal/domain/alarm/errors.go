package alarm

import "errors"

var (
	// ErrMalformedPayload is returned when a distance payload is not a float.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrOutOfRangeReading marks a reading filtered out as sensor noise.
	ErrOutOfRangeReading = errors.New("reading out of range")
	// ErrUnknownPresenceValue is returned for presence payloads other than online/offline.
	ErrUnknownPresenceValue = errors.New("unknown presence value")
	// ErrSend wraps notification delivery failures.
	ErrSend = errors.New("send notification")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence failure")
)
