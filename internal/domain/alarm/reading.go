package alarm

import "time"

const (
	// CentimetersPerMeter converts raw sensor meters into stored centimeters.
	CentimetersPerMeter = 100.0

	// TooCloseBelowCM is the distance under which a reading is a breach.
	TooCloseBelowCM = 20.0

	// MediumBelowCM is the upper bound of the medium distance zone.
	MediumBelowCM = 100.0
)

// Zone classifies a reading the way the dashboard colours it.
type Zone string

const (
	// ZoneTooClose is a breach: the object is closer than TooCloseBelowCM.
	ZoneTooClose Zone = "too_close"
	// ZoneMedium is below MediumBelowCM but not a breach.
	ZoneMedium Zone = "medium"
	// ZoneSafe is everything farther away.
	ZoneSafe Zone = "safe"
)

// Reading is a single accepted distance sample.
type Reading struct {
	// ValueCM is the distance in centimeters.
	ValueCM float64
	// Meters is the value the sensor sent. Zero for readings loaded back
	// from a store, which keep only ValueCM.
	Meters float64
	// ObservedAt is when the reading was received.
	ObservedAt time.Time
}

// NewReading builds a reading from a raw meter value.
func NewReading(meters float64, observedAt time.Time) Reading {
	return Reading{
		ValueCM:    meters * CentimetersPerMeter,
		Meters:     meters,
		ObservedAt: observedAt,
	}
}

// IsBreach reports whether the reading is closer than threshold centimeters.
// A sensor reading is compared in meters so the conversion cannot round a
// value just under the threshold up onto it.
func (r Reading) IsBreach(thresholdCM float64) bool {
	if r.Meters > 0 {
		return r.Meters < thresholdCM/CentimetersPerMeter
	}

	return r.ValueCM < thresholdCM
}

// Zone returns the dashboard zone of the reading.
func (r Reading) Zone() Zone {
	switch {
	case r.IsBreach(TooCloseBelowCM):
		return ZoneTooClose
	case r.ValueCM < MediumBelowCM:
		return ZoneMedium
	default:
		return ZoneSafe
	}
}
