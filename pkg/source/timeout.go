package source

import (
	"sync"
	"time"
)

// DefaultTimeout bounds a single hardware read.
const DefaultTimeout = 500 * time.Millisecond

type rawResult struct {
	raw uint16
	err error
}

type tempResult struct {
	c, f float32
	err  error
}

// TimeoutADC bounds every ReadRaw call. A call that times out keeps running in
// the background. Until it returns, further calls fail with ErrTimeout without
// touching the hardware, so at most one read is ever outstanding.
type TimeoutADC struct {
	adc     ADC
	timeout time.Duration
	mu      sync.Mutex
}

// TimeoutThermocouple bounds every ReadExternal call, see TimeoutADC.
type TimeoutThermocouple struct {
	tc      Thermocouple
	timeout time.Duration
	mu      sync.Mutex
}

var (
	_ ADC          = (*TimeoutADC)(nil)
	_ Thermocouple = (*TimeoutThermocouple)(nil)
)

// ADCWithTimeout wraps adc. A non-positive timeout uses DefaultTimeout.
func ADCWithTimeout(adc ADC, timeout time.Duration) *TimeoutADC {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TimeoutADC{adc: adc, timeout: timeout}
}

// ThermocoupleWithTimeout wraps tc. A non-positive timeout uses DefaultTimeout.
func ThermocoupleWithTimeout(tc Thermocouple, timeout time.Duration) *TimeoutThermocouple {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TimeoutThermocouple{tc: tc, timeout: timeout}
}

// ReadRaw implements ADC.
func (t *TimeoutADC) ReadRaw(ch Channel) (uint16, error) {
	if !t.mu.TryLock() {
		return 0, ErrTimeout
	}
	done := make(chan rawResult, 1)
	go func() {
		defer t.mu.Unlock()
		raw, err := t.adc.ReadRaw(ch)
		done <- rawResult{raw, err}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.raw, r.err
	case <-timer.C:
		return 0, ErrTimeout
	}
}

// ReadExternal implements Thermocouple.
func (t *TimeoutThermocouple) ReadExternal() (float32, float32, error) {
	if !t.mu.TryLock() {
		return 0, 0, ErrTimeout
	}
	done := make(chan tempResult, 1)
	go func() {
		defer t.mu.Unlock()
		c, f, err := t.tc.ReadExternal()
		done <- tempResult{c, f, err}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.c, r.f, r.err
	case <-timer.C:
		return 0, 0, ErrTimeout
	}
}
