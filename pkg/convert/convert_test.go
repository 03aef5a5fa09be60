package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawToVoltage(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want float32
	}{
		{name: "zero", raw: 0, want: 0.0},
		{name: "half scale", raw: 2048, want: 1.65},
		{name: "quarter scale", raw: 1024, want: 0.825},
		{name: "max", raw: 4095, want: 3.2991943},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RawToVoltage(tt.raw)
			assert.InDelta(t, tt.want, got, 1e-5, "RawToVoltage(%d) = %f, want %f", tt.raw, got, tt.want)
		})
	}
}

func TestRawToVoltage_MonotonicAndBounded(t *testing.T) {
	prev := RawToVoltage(0)
	for r := 0; r <= MaxRaw; r++ {
		v := RawToVoltage(uint16(r))
		assert.GreaterOrEqual(t, v, prev, "raw %d", r)
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(VRef))
		prev = v
	}
}

func TestCalibration_Celsius(t *testing.T) {
	// At the reference voltage only the reference temperature and offset remain.
	assert.InDelta(t, 17.0, DefaultCalibration.Celsius(0.706), 1e-4)

	c := Calibration{ReferenceTemp: 25, ReferenceVoltage: 0.7, Slope: 0.002, Offset: 0}
	assert.InDelta(t, 20.0, c.Celsius(0.71), 1e-3)
	assert.InDelta(t, 30.0, c.Celsius(0.69), 1e-3)
}

func TestVoltageToOnboardCelsius_ZeroRaw(t *testing.T) {
	want := 27 - (0.0-0.706)/0.001721 + (-10.0)
	got := VoltageToOnboardCelsius(RawToVoltage(0))
	assert.InDelta(t, want, float64(got), 1e-3)
}

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		c, f float32
	}{
		{0, 32},
		{100, 212},
		{-40, -40},
		{37, 98.6},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.f, CelsiusToFahrenheit(tt.c), 1e-4)
	}
}

func TestOnboardConversion_Deterministic(t *testing.T) {
	for _, v := range []float32{0, 0.5, 0.706, 1.2345, 3.2991943} {
		first := CelsiusToFahrenheit(VoltageToOnboardCelsius(v))
		for i := 0; i < 100; i++ {
			got := CelsiusToFahrenheit(VoltageToOnboardCelsius(v))
			assert.Equal(t, math.Float32bits(first), math.Float32bits(got))
		}
	}
}

func TestValid(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	assert.True(t, Valid(25, -200, 1372))
	assert.True(t, Valid(-200, -200, 1372))
	assert.False(t, Valid(1400, -200, 1372))
	assert.False(t, Valid(nan, -200, 1372))
	assert.False(t, Valid(inf, -200, 1372))
	assert.False(t, Valid(-inf, -200, 1372))
}
