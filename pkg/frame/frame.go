// Package frame encodes one telemetry cycle into the fixed 13-byte wire record.
//
// Wire layout (Legacy):
//
//	counter  uint32  little-endian  4 bytes
//	'$'                             1 byte
//	raw      uint16  big-endian     2 bytes
//	'$'                             1 byte
//	temp     float32 IEEE-754 bits, little-endian 4 bytes
//	'\n'                            1 byte
//
// The LittleEndian layout is identical except that the raw field is also
// little-endian. It is not understood by decoders written for Legacy.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// Size is the length of every encoded frame.
	Size = 13

	// Delimiter separates fields.
	Delimiter byte = '$'
	// Terminator ends a frame.
	Terminator byte = '\n'

	counterOffset = 0
	rawOffset     = 5
	tempOffset    = 8
)

var (
	// ErrLength is returned when decoding a buffer that is not exactly Size bytes.
	ErrLength = errors.New("frame: invalid length")
	// ErrDelimiter is returned when a delimiter or the terminator is misplaced.
	ErrDelimiter = errors.New("frame: invalid delimiter")
)

// Layout selects the per-field byte order.
type Layout int

const (
	// Legacy keeps the mixed byte order understood by existing decoders.
	Legacy Layout = iota
	// LittleEndian encodes every field least-significant byte first.
	LittleEndian
)

// ParseLayout maps a config value ("legacy", "little") to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "legacy":
		return Legacy, nil
	case "little", "little_endian":
		return LittleEndian, nil
	}
	return Legacy, fmt.Errorf("unknown frame byte order %q", s)
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	if l == LittleEndian {
		return "little"
	}
	return "legacy"
}

func (l Layout) rawOrder() binary.ByteOrder {
	if l == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Frame is one encoded telemetry record.
type Frame [Size]byte

// FloatBits returns the IEEE-754 single precision bit pattern of f.
// NaN payloads are preserved.
func FloatBits(f float32) uint32 {
	return math.Float32bits(f)
}

// Encode builds a Legacy frame.
func Encode(counter uint32, raw uint16, temp float32) Frame {
	return Legacy.Encode(counter, raw, temp)
}

// Encode builds a frame using layout l.
func (l Layout) Encode(counter uint32, raw uint16, temp float32) Frame {
	var f Frame
	binary.LittleEndian.PutUint32(f[counterOffset:], counter)
	f[rawOffset-1] = Delimiter
	l.rawOrder().PutUint16(f[rawOffset:], raw)
	f[tempOffset-1] = Delimiter
	binary.LittleEndian.PutUint32(f[tempOffset:], FloatBits(temp))
	f[Size-1] = Terminator
	return f
}

// Decode is the inverse of Encode for layout l.
func (l Layout) Decode(b []byte) (counter uint32, raw uint16, temp float32, err error) {
	if len(b) != Size {
		return 0, 0, 0, fmt.Errorf("%w: %d bytes", ErrLength, len(b))
	}
	if b[rawOffset-1] != Delimiter || b[tempOffset-1] != Delimiter || b[Size-1] != Terminator {
		return 0, 0, 0, fmt.Errorf("%w: % x", ErrDelimiter, b)
	}
	counter = binary.LittleEndian.Uint32(b[counterOffset:])
	raw = l.rawOrder().Uint16(b[rawOffset:])
	temp = math.Float32frombits(binary.LittleEndian.Uint32(b[tempOffset:]))
	return counter, raw, temp, nil
}

// Bytes returns the frame as a slice.
func (f *Frame) Bytes() []byte {
	return f[:]
}

// WriteTo writes the whole frame with a single Write call.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f[:])
	if err == nil && n != Size {
		err = io.ErrShortWrite
	}
	return int64(n), err
}
