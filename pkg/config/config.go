package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/itohio/picotemp/pkg/convert"
	"github.com/itohio/picotemp/pkg/frame"
	"github.com/itohio/picotemp/pkg/source"
	"github.com/itohio/picotemp/pkg/telemetry"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig        `yaml:"serial" toml:"serial"`
	Sampling    SamplingConfig      `yaml:"sampling" toml:"sampling"`
	Frame       FrameConfig         `yaml:"frame" toml:"frame"`
	Calibration convert.Calibration `yaml:"calibration" toml:"calibration"`
	Indicator   IndicatorConfig     `yaml:"indicator" toml:"indicator"`
	Simulation  SimulationConfig    `yaml:"simulation" toml:"simulation"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port" toml:"port"`
	BaudRate int    `yaml:"baud_rate" toml:"baud_rate"`
}

// SamplingConfig controls the pace and the sources of each cycle.
type SamplingConfig struct {
	IntervalMs int           `yaml:"sample_interval_ms" toml:"sample_interval_ms"` // PACE duration
	Channel    uint8         `yaml:"channel" toml:"channel"`                       // ADC input of the onboard sensor
	Timeout    time.Duration `yaml:"timeout" toml:"timeout"`                       // bound on a single sensor read
	Oversample int           `yaml:"oversample" toml:"oversample"`                 // raw reads averaged per sample (1 = off)
}

// FrameConfig selects the wire layout.
type FrameConfig struct {
	ByteOrder string `yaml:"byte_order" toml:"byte_order"` // "legacy" or "little"
	Field     string `yaml:"field" toml:"field"`           // external_f, external_c, onboard_c, onboard_f
}

// IndicatorConfig names the GPIO driving the health LED. Empty disables it.
type IndicatorConfig struct {
	Pin string `yaml:"pin" toml:"pin"`
}

// SimulationConfig contains simulated sensor configuration.
type SimulationConfig struct {
	AmbientC   float64       `yaml:"ambient_c" toml:"ambient_c"`     // onboard sensor temperature
	StartC     float64       `yaml:"start_c" toml:"start_c"`         // thermocouple temperature at start
	TargetC    float64       `yaml:"target_c" toml:"target_c"`       // thermocouple temperature it settles to
	Lag        float64       `yaml:"lag" toml:"lag"`                 // fraction of the remaining gap closed per read (0-1]
	NoiseLevel float64       `yaml:"noise_level" toml:"noise_level"` // peak noise in degrees C
	FaultEvery int           `yaml:"fault_every" toml:"fault_every"` // every Nth thermocouple read is an open circuit, 0 = never
	Latency    time.Duration `yaml:"latency" toml:"latency"`         // simulated conversion time per read
}

// Default returns a default configuration matching the legacy board.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Sampling: SamplingConfig{
			IntervalMs: int(telemetry.DefaultInterval / time.Millisecond),
			Channel:    uint8(source.OnboardTemperature),
			Timeout:    source.DefaultTimeout,
			Oversample: 1,
		},
		Frame: FrameConfig{
			ByteOrder: frame.Legacy.String(),
			Field:     telemetry.ExternalFahrenheit.String(),
		},
		Calibration: convert.DefaultCalibration,
		Simulation: SimulationConfig{
			AmbientC:   24.0,
			StartC:     21.0,
			TargetC:    180.0,
			Lag:        0.05,
			NoiseLevel: 0.25,
			FaultEvery: 0,
			Latency:    2 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML or TOML file (chosen by extension). If
// the file doesn't exist or fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(filename) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML or TOML file (chosen by extension).
func (c *Config) Save(filename string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(filename) {
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Interval returns the pacing interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Sampling.IntervalMs) * time.Millisecond
}

// Options validates the configuration and converts it to loop options.
// Every error wraps telemetry.ErrConfigFault.
func (c *Config) Options() (telemetry.Options, error) {
	opts := telemetry.DefaultOptions()

	if c.Serial.BaudRate <= 0 {
		return opts, fmt.Errorf("%w: invalid baud rate %d", telemetry.ErrConfigFault, c.Serial.BaudRate)
	}
	if c.Sampling.Oversample < 0 || c.Sampling.Oversample > source.MaxOversample {
		return opts, fmt.Errorf("%w: oversample count %d outside 0..%d", telemetry.ErrConfigFault, c.Sampling.Oversample, source.MaxOversample)
	}

	layout, err := frame.ParseLayout(c.Frame.ByteOrder)
	if err != nil {
		return opts, fmt.Errorf("%w: %w", telemetry.ErrConfigFault, err)
	}
	field, err := telemetry.ParseField(c.Frame.Field)
	if err != nil {
		return opts, err
	}

	opts.Channel = source.Channel(c.Sampling.Channel)
	opts.Interval = c.Interval()
	opts.Layout = layout
	opts.Field = field
	opts.Calibration = c.Calibration

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Sampling.IntervalMs == 0 {
		c.Sampling.IntervalMs = def.Sampling.IntervalMs
	}
	if c.Sampling.Timeout == 0 {
		c.Sampling.Timeout = def.Sampling.Timeout
	}
	if c.Sampling.Oversample == 0 {
		c.Sampling.Oversample = def.Sampling.Oversample
	}

	if c.Frame.ByteOrder == "" {
		c.Frame.ByteOrder = def.Frame.ByteOrder
	}
	if c.Frame.Field == "" {
		c.Frame.Field = def.Frame.Field
	}

	if c.Simulation.Lag == 0 {
		c.Simulation.Lag = def.Simulation.Lag
	}
}
