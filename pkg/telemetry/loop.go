// Package telemetry runs the sample, convert, encode, transmit and pace cycle.
//
// The loop is single threaded. All state that survives a cycle lives in State,
// which Step takes and returns, so a cycle can be exercised without hardware.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/itohio/picotemp/pkg/convert"
	"github.com/itohio/picotemp/pkg/frame"
	"github.com/itohio/picotemp/pkg/source"
)

const (
	// DefaultInterval matches the legacy board cadence: 100 ms settle plus
	// a 750 ms on / 750 ms off LED blink.
	DefaultInterval = 1600 * time.Millisecond
	// MinInterval keeps a 115200 baud link far from saturation.
	MinInterval = 10 * time.Millisecond
)

// Indicator is a liveness signal, normally an LED.
type Indicator interface {
	Set(on bool)
}

// IndicatorFunc adapts a function to Indicator.
type IndicatorFunc func(on bool)

// Set implements Indicator.
func (f IndicatorFunc) Set(on bool) { f(on) }

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures a Loop.
type Options struct {
	Channel     source.Channel
	Interval    time.Duration
	Field       Field
	Layout      frame.Layout
	Calibration convert.Calibration

	Indicator Indicator    // optional
	Sleep     Sleeper      // defaults to Sleep
	OnReport  func(Report) // optional, called after every cycle
}

// DefaultOptions returns the legacy board behaviour.
func DefaultOptions() Options {
	return Options{
		Channel:     source.OnboardTemperature,
		Interval:    DefaultInterval,
		Field:       ExternalFahrenheit,
		Layout:      frame.Legacy,
		Calibration: convert.DefaultCalibration,
	}
}

// Validate returns an ErrConfigFault error for unusable options.
func (o Options) Validate() error {
	if !o.Channel.Valid() {
		return configFault("invalid ADC channel %d (max %d)", o.Channel, source.MaxChannel)
	}
	if o.Interval < MinInterval {
		return configFault("sample interval %s is below %s", o.Interval, MinInterval)
	}
	if _, ok := fieldNames[o.Field]; !ok {
		return configFault("invalid frame field %d", int(o.Field))
	}
	if o.Layout != frame.Legacy && o.Layout != frame.LittleEndian {
		return configFault("invalid frame layout %d", int(o.Layout))
	}
	if o.Calibration.Slope <= 0 {
		return configFault("calibration slope must be positive, got %f", o.Calibration.Slope)
	}
	return nil
}

// State is carried from one cycle to the next.
type State struct {
	Counter   uint32 // sequence number of the next frame
	Indicator bool   // current indicator phase
}

// Report describes one completed cycle.
type Report struct {
	Counter uint32 // counter value the cycle started with
	Reading Reading
	Frame   frame.Frame // zero when sampling failed
	Sent    bool
	Err     error // *Fault when the frame was skipped
}

// Loop ties the sources, the encoder and the outputs together.
type Loop struct {
	opts    Options
	adc     source.ADC
	tc      source.Thermocouple
	tx      *Transmitter
	console *Console
}

// New validates opts and creates a Loop. out receives frames, debug receives
// the text stream and may be nil.
func New(opts Options, adc source.ADC, tc source.Thermocouple, out io.Writer, debug io.Writer) (*Loop, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if adc == nil || tc == nil {
		return nil, configFault("sample sources are required")
	}
	if out == nil {
		return nil, configFault("serial output is required")
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}

	return &Loop{
		opts:    opts,
		adc:     adc,
		tc:      tc,
		tx:      NewTransmitter(out),
		console: NewConsole(debug),
	}, nil
}

// Console returns the debug console used by the loop.
func (l *Loop) Console() *Console {
	return l.console
}

// Run executes cycles until ctx is done and returns the final state.
func (l *Loop) Run(ctx context.Context, st State) (State, error) {
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st, _ = l.Step(ctx, st)
	}
}

// Step executes one full cycle starting from st and returns the next state.
// The counter advances only when a frame was written.
func (l *Loop) Step(ctx context.Context, st State) (State, Report) {
	rep := Report{Counter: st.Counter}

	// SAMPLE + CONVERT
	reading, err := l.sample()
	rep.Reading = reading

	// ENCODE
	if err == nil {
		rep.Frame = l.opts.Layout.Encode(st.Counter, reading.Raw, reading.Value(l.opts.Field))
	}

	l.console.Values(st.Counter, reading)

	// TRANSMIT
	if err != nil {
		rep.Err = &Fault{Kind: SensorFault, Counter: st.Counter, Err: err}
	} else if err := l.tx.Send(&rep.Frame); err != nil {
		rep.Err = &Fault{Kind: TransmitFault, Counter: st.Counter, Err: err}
	} else {
		rep.Sent = true
	}
	if rep.Err != nil {
		l.console.Warn(st.Counter, rep.Err)
	}

	// PACE
	next := l.pace(ctx, st, rep.Sent)

	if l.opts.OnReport != nil {
		l.opts.OnReport(rep)
	}
	return next, rep
}

func (l *Loop) sample() (Reading, error) {
	r := emptyReading()

	var onboardErr, externalErr error

	raw, err := l.adc.ReadRaw(l.opts.Channel)
	if err == nil {
		err = source.CheckRaw(raw)
	}
	if err != nil {
		onboardErr = source.Fault(fmt.Errorf("onboard channel %d: %w", l.opts.Channel, err))
	} else {
		r.Raw = raw
		r.OnboardC = l.opts.Calibration.Celsius(convert.RawToVoltage(raw))
		r.OnboardF = convert.CelsiusToFahrenheit(r.OnboardC)
	}

	c, f, err := l.tc.ReadExternal()
	if err == nil && !convert.Valid(c, source.MinThermocoupleCelsius, source.MaxThermocoupleCelsius) {
		err = fmt.Errorf("%w: %f C", source.ErrOutOfRange, c)
	}
	if err == nil && !convert.Valid(f, convert.CelsiusToFahrenheit(source.MinThermocoupleCelsius), convert.CelsiusToFahrenheit(source.MaxThermocoupleCelsius)) {
		err = fmt.Errorf("%w: %f F", source.ErrOutOfRange, f)
	}
	if err != nil {
		externalErr = source.Fault(fmt.Errorf("thermocouple: %w", err))
	} else {
		r.ExternalC = c
		r.ExternalF = f
	}

	switch {
	case onboardErr != nil && externalErr != nil:
		return r, fmt.Errorf("%w; %w", onboardErr, externalErr)
	case onboardErr != nil:
		return r, onboardErr
	}
	return r, externalErr
}

func (l *Loop) pace(ctx context.Context, st State, sent bool) State {
	// A cancelled context only shortens the final pause.
	_ = l.opts.Sleep(ctx, l.opts.Interval)

	st.Indicator = !st.Indicator
	if l.opts.Indicator != nil {
		l.opts.Indicator.Set(st.Indicator)
	}
	if sent {
		st.Counter++
	}
	return st
}
