package alarm

import (
	"fmt"
	"time"
)

// PresenceState is the last reported connectivity of the device.
type PresenceState string

const (
	// PresenceUnknown is the state before any presence message.
	PresenceUnknown PresenceState = "unknown"
	// PresenceOnline means the device reported it is connected.
	PresenceOnline PresenceState = "online"
	// PresenceOffline means the device (or its last will) reported a disconnect.
	PresenceOffline PresenceState = "offline"
)

// ParsePresenceState accepts exactly "online" or "offline".
func ParsePresenceState(payload string) (PresenceState, error) {
	switch state := PresenceState(payload); state {
	case PresenceOnline, PresenceOffline:
		return state, nil
	default:
		return PresenceUnknown, fmt.Errorf("%w: %q", ErrUnknownPresenceValue, payload)
	}
}

// Presence is the singleton device connectivity record.
type Presence struct {
	// State is the reported connectivity.
	State PresenceState
	// UpdatedAt is when the last presence message arrived, zero if none did.
	UpdatedAt time.Time
}

// UnknownPresence is the value reported before the first presence message.
func UnknownPresence() Presence {
	return Presence{State: PresenceUnknown}
}

// PresenceDecision reports whether a presence update changed the state.
type PresenceDecision int

const (
	// PresenceNoChange means the new state equals the previous one.
	PresenceNoChange PresenceDecision = iota
	// PresenceTransitioned means the state differs from the previous one.
	PresenceTransitioned
)

// String implements fmt.Stringer.
func (d PresenceDecision) String() string {
	if d == PresenceTransitioned {
		return "transitioned"
	}

	return "no_change"
}
