package alarm

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
)

// Response field names.
const (
	fieldEnabled        = "enabled"
	fieldDevicePresence = "device_presence"
	fieldState          = "state"
	fieldUpdatedAt      = "updated_at"
	fieldLatest         = "latest"
	fieldReadings       = "readings"
	fieldValueCM        = "value_cm"
	fieldObservedAt     = "observed_at"
	fieldZone           = "zone"
	fieldKind           = "kind"
	fieldDetail         = "detail"
	fieldOccurredAt     = "occurred_at"
)

// ErrMalformedResponse is returned when a response misses a required field.
var ErrMalformedResponse = errors.New("malformed response")

// AlarmStatus is the decoded GetAlarmState response.
type AlarmStatus struct {
	// Enabled is the alarm-enabled bit.
	Enabled bool
	// DevicePresence is the last reported device state.
	DevicePresence domain.PresenceState
}

// ReadingsWindow is the decoded ListReadings response.
type ReadingsWindow struct {
	// Latest is the newest value in centimeters, nil when there are no readings.
	Latest *float64
	// Readings are newest first.
	Readings []domain.Reading
}

// EncodeAlarmState builds the GetAlarmState response.
func EncodeAlarmState(enabled bool, presence domain.PresenceState) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldEnabled:        structpb.NewBoolValue(enabled),
		fieldDevicePresence: structpb.NewStringValue(string(presence)),
	}}
}

// DecodeAlarmState parses a GetAlarmState response.
func DecodeAlarmState(s *structpb.Struct) (AlarmStatus, error) {
	enabled, err := boolField(s, fieldEnabled)
	if err != nil {
		return AlarmStatus{}, err
	}

	presence, err := stringField(s, fieldDevicePresence)
	if err != nil {
		return AlarmStatus{}, err
	}

	return AlarmStatus{Enabled: enabled, DevicePresence: domain.PresenceState(presence)}, nil
}

// EncodePresence builds the GetDevicePresence response.
func EncodePresence(p domain.Presence) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldState:     structpb.NewStringValue(string(p.State)),
		fieldUpdatedAt: timeValue(p.UpdatedAt),
	}}
}

// DecodePresence parses a GetDevicePresence response.
func DecodePresence(s *structpb.Struct) (domain.Presence, error) {
	state, err := stringField(s, fieldState)
	if err != nil {
		return domain.Presence{}, err
	}

	updatedAt, err := timeField(s, fieldUpdatedAt)
	if err != nil {
		return domain.Presence{}, err
	}

	return domain.Presence{State: domain.PresenceState(state), UpdatedAt: updatedAt}, nil
}

// EncodeReadings builds the ListReadings response from newest-first readings.
func EncodeReadings(readings []domain.Reading) *structpb.Struct {
	latest := structpb.NewNullValue()
	if len(readings) > 0 {
		latest = structpb.NewNumberValue(readings[0].ValueCM)
	}

	items := make([]*structpb.Value, 0, len(readings))
	for _, r := range readings {
		items = append(items, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldValueCM:    structpb.NewNumberValue(r.ValueCM),
			fieldObservedAt: timeValue(r.ObservedAt),
			fieldZone:       structpb.NewStringValue(string(r.Zone())),
		}}))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldLatest:   latest,
		fieldReadings: structpb.NewListValue(&structpb.ListValue{Values: items}),
	}}
}

// DecodeReadings parses a ListReadings response.
func DecodeReadings(s *structpb.Struct) (ReadingsWindow, error) {
	var window ReadingsWindow

	latest, ok := s.GetFields()[fieldLatest]
	if !ok {
		return window, fmt.Errorf("%w: missing %q", ErrMalformedResponse, fieldLatest)
	}

	if v, isNumber := latest.GetKind().(*structpb.Value_NumberValue); isNumber {
		value := v.NumberValue
		window.Latest = &value
	}

	list, ok := s.GetFields()[fieldReadings]
	if !ok || list.GetListValue() == nil {
		return window, fmt.Errorf("%w: missing %q", ErrMalformedResponse, fieldReadings)
	}

	for _, item := range list.GetListValue().GetValues() {
		row := item.GetStructValue()

		value, err := numberField(row, fieldValueCM)
		if err != nil {
			return window, err
		}

		observedAt, err := timeField(row, fieldObservedAt)
		if err != nil {
			return window, err
		}

		window.Readings = append(window.Readings, domain.Reading{ValueCM: value, ObservedAt: observedAt})
	}

	return window, nil
}

// EncodeEvents builds the ListAlarmEvents response from newest-first events.
func EncodeEvents(events []domain.Event) *structpb.ListValue {
	items := make([]*structpb.Value, 0, len(events))
	for _, e := range events {
		items = append(items, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldKind:       structpb.NewStringValue(string(e.Kind)),
			fieldDetail:     structpb.NewStringValue(e.Detail),
			fieldOccurredAt: timeValue(e.OccurredAt),
		}}))
	}

	return &structpb.ListValue{Values: items}
}

// DecodeEvents parses a ListAlarmEvents response.
func DecodeEvents(list *structpb.ListValue) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(list.GetValues()))

	for _, item := range list.GetValues() {
		row := item.GetStructValue()

		kind, err := stringField(row, fieldKind)
		if err != nil {
			return nil, err
		}

		detail, err := stringField(row, fieldDetail)
		if err != nil {
			return nil, err
		}

		occurredAt, err := timeField(row, fieldOccurredAt)
		if err != nil {
			return nil, err
		}

		events = append(events, domain.Event{
			Kind:       domain.EventKind(kind),
			Detail:     detail,
			OccurredAt: occurredAt,
		})
	}

	return events, nil
}

// timeValue renders t as RFC 3339, or null for the zero time.
func timeValue(t time.Time) *structpb.Value {
	if t.IsZero() {
		return structpb.NewNullValue()
	}

	return structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano))
}

func field(s *structpb.Struct, name string) (*structpb.Value, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedResponse, name)
	}

	return v, nil
}

func boolField(s *structpb.Struct, name string) (bool, error) {
	v, err := field(s, name)
	if err != nil {
		return false, err
	}

	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %q is not a bool", ErrMalformedResponse, name)
	}

	return b.BoolValue, nil
}

func stringField(s *structpb.Struct, name string) (string, error) {
	v, err := field(s, name)
	if err != nil {
		return "", err
	}

	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", ErrMalformedResponse, name)
	}

	return str.StringValue, nil
}

func numberField(s *structpb.Struct, name string) (float64, error) {
	v, err := field(s, name)
	if err != nil {
		return 0, err
	}

	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedResponse, name)
	}

	return n.NumberValue, nil
}

// timeField accepts null as the zero time.
func timeField(s *structpb.Struct, name string) (time.Time, error) {
	v, err := field(s, name)
	if err != nil {
		return time.Time{}, err
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return time.Time{}, nil
	case *structpb.Value_StringValue:
		t, parseErr := time.Parse(time.RFC3339Nano, kind.StringValue)
		if parseErr != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %w", ErrMalformedResponse, name, parseErr)
		}

		return t, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q is not a timestamp", ErrMalformedResponse, name)
	}
}
