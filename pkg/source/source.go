// Package source defines the two sample sources read once per cycle: a raw
// ADC channel and a thermocouple that reports already converted values.
//
// Both are synchronous and block for the duration of the hardware transaction.
package source

import (
	"errors"
	"fmt"
)

// Channel identifies an ADC input. On the RP2040 inputs 0..3 are GPIO 26..29
// and input 4 is the onboard temperature sensor.
type Channel uint8

const (
	// OnboardTemperature is the ADC input wired to the onboard sensor.
	OnboardTemperature Channel = 4
	// MaxChannel is the highest valid ADC input.
	MaxChannel Channel = 4

	// MaxRaw is the largest valid 12-bit reading.
	MaxRaw = 4095

	// Thermocouple limits in degrees Celsius (type K).
	MinThermocoupleCelsius = -200
	MaxThermocoupleCelsius = 1372
)

var (
	// ErrSensorFault is wrapped by every error returned from a sample source.
	ErrSensorFault = errors.New("sensor fault")
	// ErrTimeout is returned when a read does not complete in time.
	ErrTimeout = fmt.Errorf("%w: read timed out", ErrSensorFault)
	// ErrOpenCircuit is reported by thermocouple drivers when the probe is disconnected.
	ErrOpenCircuit = fmt.Errorf("%w: thermocouple open circuit", ErrSensorFault)
	// ErrOutOfRange is returned for readings outside the sensor's domain.
	ErrOutOfRange = fmt.Errorf("%w: reading out of range", ErrSensorFault)
)

// ADC reads one raw sample from a channel.
type ADC interface {
	ReadRaw(ch Channel) (uint16, error)
}

// Thermocouple reads the external sensor in both units.
type Thermocouple interface {
	ReadExternal() (celsius, fahrenheit float32, err error)
}

// Valid reports whether ch names an existing ADC input.
func (ch Channel) Valid() bool {
	return ch <= MaxChannel
}

// CheckRaw returns an ErrOutOfRange error for readings above MaxRaw.
func CheckRaw(raw uint16) error {
	if raw > MaxRaw {
		return fmt.Errorf("%w: raw %d (max %d)", ErrOutOfRange, raw, MaxRaw)
	}
	return nil
}

// Fault wraps err so that errors.Is(err, ErrSensorFault) holds.
func Fault(err error) error {
	if err == nil || errors.Is(err, ErrSensorFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSensorFault, err)
}
