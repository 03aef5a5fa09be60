package telemetry

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Console renders the human readable debug stream. Write failures are counted
// and otherwise ignored.
type Console struct {
	w       io.Writer
	dropped atomic.Uint32
}

// NewConsole creates a Console writing to w. A nil w discards output.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w}
}

// Values writes one line: counter, onboard C, onboard F, external C, external F.
func (c *Console) Values(counter uint32, r Reading) {
	_, err := fmt.Fprintf(c.w, "%d, %f, %f, %f, %f\n", counter, r.OnboardC, r.OnboardF, r.ExternalC, r.ExternalF)
	c.check(err)
}

// Warn writes a warning line for a skipped frame.
func (c *Console) Warn(counter uint32, err error) {
	_, werr := fmt.Fprintf(c.w, "WARN %d: %v\n", counter, err)
	c.check(werr)
}

// Dropped returns the number of lines that failed to write.
func (c *Console) Dropped() uint32 {
	return c.dropped.Load()
}

func (c *Console) check(err error) {
	if err != nil {
		c.dropped.Add(1)
	}
}
