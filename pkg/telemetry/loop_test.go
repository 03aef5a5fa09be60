package telemetry

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/itohio/picotemp/pkg/convert"
	"github.com/itohio/picotemp/pkg/frame"
	"github.com/itohio/picotemp/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeADC struct {
	raw   uint16
	err   error
	calls []source.Channel
}

func (f *fakeADC) ReadRaw(ch source.Channel) (uint16, error) {
	f.calls = append(f.calls, ch)
	return f.raw, f.err
}

type fakeThermocouple struct {
	c, f float32
	err  error
}

func (f *fakeThermocouple) ReadExternal() (float32, float32, error) {
	return f.c, f.f, f.err
}

type fakeIndicator struct {
	states []bool
}

func (f *fakeIndicator) Set(on bool) {
	f.states = append(f.states, on)
}

type failWriter struct {
	n   int
	err error
}

func (w failWriter) Write(p []byte) (int, error) {
	return w.n, w.err
}

type fixture struct {
	adc       *fakeADC
	tc        *fakeThermocouple
	out       *bytes.Buffer
	debug     *bytes.Buffer
	indicator *fakeIndicator
	sleeps    []time.Duration
	reports   []Report
}

func newFixture() *fixture {
	return &fixture{
		adc:       &fakeADC{raw: 876},
		tc:        &fakeThermocouple{c: 37, f: 98.6},
		out:       &bytes.Buffer{},
		debug:     &bytes.Buffer{},
		indicator: &fakeIndicator{},
	}
}

func (fx *fixture) options() Options {
	opts := DefaultOptions()
	opts.Interval = 100 * time.Millisecond
	opts.Indicator = fx.indicator
	opts.Sleep = func(_ context.Context, d time.Duration) error {
		fx.sleeps = append(fx.sleeps, d)
		return nil
	}
	opts.OnReport = func(r Report) {
		fx.reports = append(fx.reports, r)
	}
	return opts
}

func (fx *fixture) loop(t *testing.T, opts Options) *Loop {
	l, err := New(opts, fx.adc, fx.tc, fx.out, fx.debug)
	require.NoError(t, err)
	return l
}

func TestStep_TransmitsFrame(t *testing.T) {
	fx := newFixture()
	l := fx.loop(t, fx.options())

	next, rep := l.Step(context.Background(), State{Counter: 1})

	require.NoError(t, rep.Err)
	assert.True(t, rep.Sent)
	assert.Equal(t, State{Counter: 2, Indicator: true}, next)
	assert.Equal(t, []source.Channel{source.OnboardTemperature}, fx.adc.calls)

	want := frame.Encode(1, 876, 98.6)
	assert.Equal(t, want.Bytes(), fx.out.Bytes())
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, fx.out.Bytes()[:4])

	bits := math.Float32bits(98.6)
	assert.Equal(t, []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}, fx.out.Bytes()[8:12])

	assert.Equal(t, []time.Duration{100 * time.Millisecond}, fx.sleeps)
	assert.Equal(t, []bool{true}, fx.indicator.states)
	require.Len(t, fx.reports, 1)
	assert.Equal(t, rep, fx.reports[0])
}

func TestStep_ConvertsOnboardReading(t *testing.T) {
	fx := newFixture()
	fx.adc.raw = 0
	l := fx.loop(t, fx.options())

	_, rep := l.Step(context.Background(), State{})
	require.NoError(t, rep.Err)

	wantC := 27 - (0.0-0.706)/0.001721 + (-10.0)
	assert.InDelta(t, wantC, float64(rep.Reading.OnboardC), 1e-3)
	assert.Equal(t, convert.CelsiusToFahrenheit(rep.Reading.OnboardC), rep.Reading.OnboardF)
	assert.Equal(t, float32(37), rep.Reading.ExternalC)
	assert.Equal(t, float32(98.6), rep.Reading.ExternalF)
	assert.Equal(t, []byte{0x00, 0x00}, rep.Frame[5:7])
}

func TestStep_FieldSelection(t *testing.T) {
	for _, field := range []Field{ExternalFahrenheit, ExternalCelsius, OnboardCelsius, OnboardFahrenheit} {
		t.Run(field.String(), func(t *testing.T) {
			fx := newFixture()
			opts := fx.options()
			opts.Field = field
			l := fx.loop(t, opts)

			_, rep := l.Step(context.Background(), State{})
			require.NoError(t, rep.Err)

			_, _, temp, err := frame.Legacy.Decode(fx.out.Bytes())
			require.NoError(t, err)
			assert.Equal(t, rep.Reading.Value(field), temp)
		})
	}
}

func TestStep_LittleEndianLayout(t *testing.T) {
	fx := newFixture()
	opts := fx.options()
	opts.Layout = frame.LittleEndian
	l := fx.loop(t, opts)

	_, rep := l.Step(context.Background(), State{Counter: 5})
	require.NoError(t, rep.Err)
	assert.Equal(t, []byte{byte(876 & 0xff), byte(876 >> 8)}, fx.out.Bytes()[5:7])
}

func TestStep_DebugLine(t *testing.T) {
	fx := newFixture()
	l := fx.loop(t, fx.options())

	l.Step(context.Background(), State{Counter: 42})

	line := fx.debug.String()
	assert.True(t, strings.HasPrefix(line, "42, "), line)
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Equal(t, 1, strings.Count(line, "\n"))
	assert.Contains(t, line, "37.000000, 98.599998")
}

func TestStep_SensorFaults(t *testing.T) {
	tests := []struct {
		name  string
		setup func(fx *fixture)
	}{
		{"adc error", func(fx *fixture) { fx.adc.err = errors.New("adc busy") }},
		{"adc timeout", func(fx *fixture) { fx.adc.err = source.ErrTimeout }},
		{"raw out of range", func(fx *fixture) { fx.adc.raw = 4096 }},
		{"thermocouple open circuit", func(fx *fixture) { fx.tc.err = source.ErrOpenCircuit }},
		{"thermocouple NaN", func(fx *fixture) { fx.tc.c = float32(math.NaN()) }},
		{"thermocouple too hot", func(fx *fixture) { fx.tc.c, fx.tc.f = 2000, 3632 }},
		{"fahrenheit infinite", func(fx *fixture) { fx.tc.f = float32(math.Inf(1)) }},
		{"both fail", func(fx *fixture) {
			fx.adc.err = errors.New("adc busy")
			fx.tc.err = source.ErrOpenCircuit
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			tt.setup(fx)
			l := fx.loop(t, fx.options())

			next, rep := l.Step(context.Background(), State{Counter: 7})

			require.Error(t, rep.Err)
			assert.True(t, errors.Is(rep.Err, ErrSensorFault))
			assert.False(t, errors.Is(rep.Err, ErrTransmitFault))
			var fault *Fault
			require.True(t, errors.As(rep.Err, &fault))
			assert.Equal(t, SensorFault, fault.Kind)
			assert.Equal(t, uint32(7), fault.Counter)

			assert.False(t, rep.Sent)
			assert.Empty(t, fx.out.Bytes(), "no frame on sensor fault")
			assert.Equal(t, uint32(7), next.Counter, "counter must not advance")

			// Debug output and pacing still happen.
			lines := strings.Split(strings.TrimSuffix(fx.debug.String(), "\n"), "\n")
			require.Len(t, lines, 2)
			assert.True(t, strings.HasPrefix(lines[0], "7, "))
			assert.True(t, strings.HasPrefix(lines[1], "WARN 7: "))
			assert.Len(t, fx.sleeps, 1)
			assert.True(t, next.Indicator)
		})
	}
}

func TestStep_SensorFaultKeepsOtherSource(t *testing.T) {
	fx := newFixture()
	fx.tc.err = source.ErrOpenCircuit
	l := fx.loop(t, fx.options())

	_, rep := l.Step(context.Background(), State{})

	assert.False(t, math.IsNaN(float64(rep.Reading.OnboardC)))
	assert.True(t, math.IsNaN(float64(rep.Reading.ExternalC)))
	assert.True(t, math.IsNaN(float64(rep.Reading.ExternalF)))
	assert.Contains(t, fx.debug.String(), "NaN")
}

func TestStep_TransmitFaults(t *testing.T) {
	tests := []struct {
		name string
		w    failWriter
	}{
		{"write error", failWriter{n: 0, err: errors.New("uart: tx fifo full")}},
		{"interrupted mid frame", failWriter{n: 6, err: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			l, err := New(fx.options(), fx.adc, fx.tc, tt.w, fx.debug)
			require.NoError(t, err)

			next, rep := l.Step(context.Background(), State{Counter: 3})

			assert.True(t, errors.Is(rep.Err, ErrTransmitFault))
			assert.False(t, errors.Is(rep.Err, ErrSensorFault))
			assert.False(t, rep.Sent)
			assert.Equal(t, uint32(3), next.Counter)
			assert.Equal(t, frame.Encode(3, 876, 98.6), rep.Frame)
			assert.Contains(t, fx.debug.String(), "WARN 3: ")
			assert.Len(t, fx.sleeps, 1)
		})
	}
}

func TestStep_DebugFailureDoesNotAbort(t *testing.T) {
	fx := newFixture()
	l, err := New(fx.options(), fx.adc, fx.tc, fx.out, failWriter{err: errors.New("console gone")})
	require.NoError(t, err)

	next, rep := l.Step(context.Background(), State{})

	require.NoError(t, rep.Err)
	assert.True(t, rep.Sent)
	assert.Equal(t, uint32(1), next.Counter)
	assert.Len(t, fx.out.Bytes(), frame.Size)
	assert.Equal(t, uint32(1), l.Console().Dropped())
}

func TestStep_CounterTracksSentFrames(t *testing.T) {
	fx := newFixture()
	l := fx.loop(t, fx.options())

	st := State{}
	// sent, sensor fault, sent, sensor fault, sent
	failures := []bool{false, true, false, true, false}
	for _, fail := range failures {
		if fail {
			fx.adc.err = source.ErrTimeout
		} else {
			fx.adc.err = nil
		}
		st, _ = l.Step(context.Background(), st)
	}

	assert.Equal(t, uint32(3), st.Counter)
	require.Equal(t, 3*frame.Size, fx.out.Len())

	// One frame per counter value, in order, none skipped.
	for i := 0; i < 3; i++ {
		counter, _, _, err := frame.Legacy.Decode(fx.out.Bytes()[i*frame.Size : (i+1)*frame.Size])
		require.NoError(t, err)
		assert.Equal(t, uint32(i), counter)
	}
	assert.Equal(t, []bool{true, false, true, false, true}, fx.indicator.states)
}

func TestStep_CounterWraps(t *testing.T) {
	fx := newFixture()
	l := fx.loop(t, fx.options())

	next, rep := l.Step(context.Background(), State{Counter: math.MaxUint32})
	require.NoError(t, rep.Err)
	assert.Equal(t, uint32(0), next.Counter)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, fx.out.Bytes()[:4])
}

func TestStep_NilIndicator(t *testing.T) {
	fx := newFixture()
	opts := fx.options()
	opts.Indicator = nil
	l := fx.loop(t, opts)

	next, rep := l.Step(context.Background(), State{Indicator: true})
	require.NoError(t, rep.Err)
	assert.False(t, next.Indicator)
}

func TestRun_StopsOnCancel(t *testing.T) {
	fx := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := fx.options()
	cycles := 0
	opts.Sleep = func(ctx context.Context, _ time.Duration) error {
		cycles++
		if cycles == 4 {
			cancel()
		}
		return ctx.Err()
	}
	l := fx.loop(t, opts)

	st, err := l.Run(ctx, State{Counter: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint32(14), st.Counter)
	assert.Equal(t, 4*frame.Size, fx.out.Len())
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start = time.Now()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *Options)
	}{
		{"invalid channel", func(o *Options) { o.Channel = 5 }},
		{"zero interval", func(o *Options) { o.Interval = 0 }},
		{"interval too short", func(o *Options) { o.Interval = time.Millisecond }},
		{"unknown field", func(o *Options) { o.Field = Field(42) }},
		{"unknown layout", func(o *Options) { o.Layout = frame.Layout(9) }},
		{"zero slope", func(o *Options) { o.Calibration.Slope = 0 }},
	}

	require.NoError(t, DefaultOptions().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			err := opts.Validate()
			assert.True(t, errors.Is(err, ErrConfigFault), "got %v", err)
		})
	}
}

func TestNew_ConfigFaults(t *testing.T) {
	fx := newFixture()

	_, err := New(fx.options(), nil, fx.tc, fx.out, nil)
	assert.ErrorIs(t, err, ErrConfigFault)

	_, err = New(fx.options(), fx.adc, nil, fx.out, nil)
	assert.ErrorIs(t, err, ErrConfigFault)

	_, err = New(fx.options(), fx.adc, fx.tc, nil, nil)
	assert.ErrorIs(t, err, ErrConfigFault)

	opts := fx.options()
	opts.Channel = 9
	_, err = New(opts, fx.adc, fx.tc, fx.out, nil)
	assert.ErrorIs(t, err, ErrConfigFault)
}

func TestParseField(t *testing.T) {
	for f, name := range fieldNames {
		got, err := ParseField(name)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	got, err := ParseField("")
	require.NoError(t, err)
	assert.Equal(t, ExternalFahrenheit, got)

	_, err = ParseField("kelvin")
	assert.ErrorIs(t, err, ErrConfigFault)
}

func TestFault_Error(t *testing.T) {
	f := &Fault{Kind: TransmitFault, Err: errors.New("uart gone")}
	assert.Equal(t, "transmit fault: uart gone", f.Error())
	assert.ErrorIs(t, f, ErrTransmitFault)

	f = &Fault{Kind: SensorFault, Err: source.ErrOpenCircuit}
	assert.Equal(t, source.ErrOpenCircuit.Error(), f.Error())
	assert.ErrorIs(t, f, source.ErrOpenCircuit)
	assert.ErrorIs(t, f, ErrSensorFault)
}
