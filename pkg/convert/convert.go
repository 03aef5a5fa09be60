// Package convert maps raw ADC readings to physical units.
//
// All arithmetic is done in float32, matching what the RP2040 firmware can
// afford and what is carried on the wire.
package convert

import "github.com/chewxy/math32"

const (
	// VRef is the ADC reference voltage in volts.
	VRef = 3.3
	// FullScale is the number of codes of the 12-bit ADC (0-4095).
	FullScale = 4096
	// MaxRaw is the largest raw reading the ADC can produce.
	MaxRaw = FullScale - 1
)

// Calibration is the linear model of the onboard temperature sensor:
//
//	T = ReferenceTemp - (V - ReferenceVoltage) / Slope + Offset
//
// The values are sensor-batch specific and can be overridden from config.
type Calibration struct {
	ReferenceTemp    float32 `yaml:"reference_temp" toml:"reference_temp"`       // degrees C at ReferenceVoltage
	ReferenceVoltage float32 `yaml:"reference_voltage" toml:"reference_voltage"` // V
	Slope            float32 `yaml:"slope" toml:"slope"`                         // V per degree C, positive
	Offset           float32 `yaml:"offset" toml:"offset"`                       // degrees C added after the linear model
}

// DefaultCalibration is taken from the RP2040 datasheet (section 4.9.5):
// the sensor reads 0.706 V at 27 degrees C and falls by 1.721 mV per degree.
// The -10 degrees offset was measured on the bench board against the
// thermocouple and is specific to that board.
var DefaultCalibration = Calibration{
	ReferenceTemp:    27,
	ReferenceVoltage: 0.706,
	Slope:            0.001721,
	Offset:           -10,
}

// RawToVoltage converts a 12-bit ADC reading to volts.
func RawToVoltage(raw uint16) float32 {
	return float32(raw) * VRef / FullScale
}

// Celsius applies the calibration model to a sensor voltage.
func (c Calibration) Celsius(voltage float32) float32 {
	return c.ReferenceTemp - (voltage-c.ReferenceVoltage)/c.Slope + c.Offset
}

// VoltageToOnboardCelsius converts an onboard sensor voltage using DefaultCalibration.
func VoltageToOnboardCelsius(voltage float32) float32 {
	return DefaultCalibration.Celsius(voltage)
}

// CelsiusToFahrenheit converts degrees Celsius to degrees Fahrenheit.
func CelsiusToFahrenheit(c float32) float32 {
	return c*9/5 + 32
}

// Valid reports whether v is a finite number within [min, max].
func Valid(v, min, max float32) bool {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return false
	}
	return v >= min && v <= max
}
