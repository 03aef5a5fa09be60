// Package sim provides simulated sample sources for running the telemetry
// loop on a host without a board.
package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/picotemp/pkg/config"
	"github.com/itohio/picotemp/pkg/convert"
	"github.com/itohio/picotemp/pkg/source"
)

// Simulator simulates the onboard sensor and a thermocouple warming up
// towards a target temperature.
type Simulator struct {
	cfg *config.SimulationConfig
	cal convert.Calibration

	mu          sync.Mutex
	adcReads    int
	tcReads     int
	temperature float64 // thermocouple temperature (C)
}

var (
	_ source.ADC          = (*Simulator)(nil)
	_ source.Thermocouple = (*Simulator)(nil)
)

// New creates a new simulator. The calibration is used to turn the simulated
// onboard temperature back into a raw ADC code.
func New(cfg *config.SimulationConfig, cal convert.Calibration) *Simulator {
	if cfg == nil {
		def := config.Default().Simulation
		cfg = &def
	}

	return &Simulator{
		cfg:         cfg,
		cal:         cal,
		temperature: cfg.StartC,
	}
}

// ReadRaw simulates one ADC conversion. Inputs other than the onboard sensor
// read as grounded.
func (s *Simulator) ReadRaw(ch source.Channel) (uint16, error) {
	if !ch.Valid() {
		return 0, fmt.Errorf("%w: no such ADC input %d", source.ErrSensorFault, ch)
	}
	s.latency()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.adcReads++

	if ch != source.OnboardTemperature {
		return 0, nil
	}

	onboard := s.cfg.AmbientC + s.noise(s.adcReads)
	return s.rawFor(onboard), nil
}

// ReadExternal simulates a thermocouple conversion.
func (s *Simulator) ReadExternal() (float32, float32, error) {
	s.latency()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tcReads++

	if s.cfg.FaultEvery > 0 && s.tcReads%s.cfg.FaultEvery == 0 {
		return 0, 0, source.ErrOpenCircuit
	}

	// Thermal lag: first order approach to the target
	s.temperature += s.cfg.Lag * (s.cfg.TargetC - s.temperature)

	c := float32(s.temperature + s.noise(s.tcReads))
	return c, convert.CelsiusToFahrenheit(c), nil
}

// rawFor inverts the calibration model and the ADC transfer function.
func (s *Simulator) rawFor(celsius float64) uint16 {
	cal := s.cal
	voltage := float64(cal.ReferenceVoltage) - (celsius-float64(cal.ReferenceTemp)-float64(cal.Offset))*float64(cal.Slope)

	raw := math.Round(voltage / convert.VRef * convert.FullScale)
	if raw < 0 {
		raw = 0
	} else if raw > convert.MaxRaw {
		raw = convert.MaxRaw
	}
	return uint16(raw)
}

// noise is deterministic so runs are reproducible.
func (s *Simulator) noise(n int) float64 {
	x := float64(n)
	return (math.Sin(x*0.7) + math.Cos(x*1.3)) * s.cfg.NoiseLevel * 0.5
}

func (s *Simulator) latency() {
	if s.cfg.Latency > 0 {
		time.Sleep(s.cfg.Latency)
	}
}
