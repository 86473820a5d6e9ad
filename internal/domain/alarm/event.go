package alarm

import (
	"fmt"
	"time"
)

// EventKind is the type of an alarm audit record.
type EventKind string

const (
	// EventTriggered records a breach notification that passed the cooldown.
	EventTriggered EventKind = "triggered"
	// EventToggled records an explicit enable/disable.
	EventToggled EventKind = "toggled"
)

// Event is an append-only alarm audit record.
type Event struct {
	// Kind tells what happened.
	Kind EventKind
	// Detail is the human-readable description.
	Detail string
	// OccurredAt is when the decision was taken.
	OccurredAt time.Time
}

// TriggeredEvent builds the audit record for a fired breach.
func TriggeredEvent(distanceCM float64, at time.Time) Event {
	return Event{
		Kind:       EventTriggered,
		Detail:     fmt.Sprintf("Object too close: %.1f cm", distanceCM),
		OccurredAt: at,
	}
}

// ToggledEvent builds the audit record for a toggle to the given state.
func ToggledEvent(enabled bool, at time.Time) Event {
	return Event{
		Kind:       EventToggled,
		Detail:     "Alarm turned " + OnOff(enabled, true),
		OccurredAt: at,
	}
}

// OnOff renders the enabled bit as the wire value "on"/"off",
// or "ON"/"OFF" when upper is set.
func OnOff(enabled, upper bool) string {
	switch {
	case enabled && upper:
		return "ON"
	case enabled:
		return "on"
	case upper:
		return "OFF"
	default:
		return "off"
	}
}

// Decision is the outcome of evaluating one reading.
type Decision int

const (
	// DecisionNone means the policy skipped the reading.
	DecisionNone Decision = iota
	// DecisionFired means a notification was dispatched.
	DecisionFired
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d == DecisionFired {
		return "fired"
	}

	return "none"
}
