package telemetry

import (
	"fmt"
	"math"
)

// Field selects which of the four temperatures goes into the frame.
type Field int

const (
	// ExternalFahrenheit is what deployed decoders expect.
	ExternalFahrenheit Field = iota
	ExternalCelsius
	OnboardCelsius
	OnboardFahrenheit
)

var fieldNames = map[Field]string{
	ExternalFahrenheit: "external_f",
	ExternalCelsius:    "external_c",
	OnboardCelsius:     "onboard_c",
	OnboardFahrenheit:  "onboard_f",
}

// ParseField maps a config value to a Field. Empty selects ExternalFahrenheit.
func ParseField(s string) (Field, error) {
	if s == "" {
		return ExternalFahrenheit, nil
	}
	for f, name := range fieldNames {
		if name == s {
			return f, nil
		}
	}
	return 0, configFault("unknown frame field %q", s)
}

// String implements fmt.Stringer.
func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Reading holds everything sampled and derived in one cycle.
// Values that could not be sampled are NaN.
type Reading struct {
	Raw       uint16 // onboard ADC reading
	OnboardC  float32
	OnboardF  float32
	ExternalC float32
	ExternalF float32
}

func emptyReading() Reading {
	nan := float32(math.NaN())
	return Reading{OnboardC: nan, OnboardF: nan, ExternalC: nan, ExternalF: nan}
}

// Value returns the temperature selected by f.
func (r Reading) Value(f Field) float32 {
	switch f {
	case ExternalCelsius:
		return r.ExternalC
	case OnboardCelsius:
		return r.OnboardC
	case OnboardFahrenheit:
		return r.OnboardF
	default:
		return r.ExternalF
	}
}
