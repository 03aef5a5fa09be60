package telemetry

import (
	"fmt"
	"io"
	"sync"

	"github.com/itohio/picotemp/pkg/frame"
)

// Transmitter writes whole frames to the serial output. The lock is held for
// the full frame so that frames never interleave with other writers sharing it.
type Transmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTransmitter creates a Transmitter for w.
func NewTransmitter(w io.Writer) *Transmitter {
	return &Transmitter{w: w}
}

// Send writes f. Any error, including a short write, is a transmit fault.
func (t *Transmitter) Send(f *frame.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := f.WriteTo(t.w); err != nil {
		return fmt.Errorf("%w: %w", ErrTransmitFault, err)
	}
	return nil
}
