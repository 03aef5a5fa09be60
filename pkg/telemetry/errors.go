package telemetry

import (
	"errors"
	"fmt"

	"github.com/itohio/picotemp/pkg/source"
)

var (
	// ErrSensorFault marks a failed or out-of-range sample.
	ErrSensorFault = source.ErrSensorFault
	// ErrTransmitFault marks a failed or interrupted frame write.
	ErrTransmitFault = errors.New("transmit fault")
	// ErrConfigFault marks invalid startup configuration.
	ErrConfigFault = errors.New("config fault")
)

// FaultKind classifies a Fault.
type FaultKind int

const (
	// SensorFault skips the frame for one cycle.
	SensorFault FaultKind = iota + 1
	// TransmitFault means the frame was built but not fully written.
	TransmitFault
	// ConfigFault stops startup.
	ConfigFault
)

func (k FaultKind) sentinel() error {
	switch k {
	case SensorFault:
		return ErrSensorFault
	case TransmitFault:
		return ErrTransmitFault
	case ConfigFault:
		return ErrConfigFault
	}
	return nil
}

// String implements fmt.Stringer.
func (k FaultKind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// Fault is the error reported for a skipped frame.
type Fault struct {
	Kind    FaultKind
	Counter uint32 // counter value the skipped frame would have carried
	Err     error
}

// Error implements error.
func (f *Fault) Error() string {
	if s := f.Kind.sentinel(); s != nil && errors.Is(f.Err, s) {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (f *Fault) Unwrap() []error {
	if s := f.Kind.sentinel(); s != nil {
		return []error{s, f.Err}
	}
	return []error{f.Err}
}

func configFault(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigFault, fmt.Sprintf(format, args...))
}
