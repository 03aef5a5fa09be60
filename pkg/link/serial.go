// Package link connects the telemetry loop to host hardware: the serial port
// carrying frames and an optional GPIO health LED.
package link

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the UART speed of the legacy board.
	DefaultBaudRate = 115200
)

var (
	// ErrNotConnected is returned when writing to a closed port.
	ErrNotConnected = errors.New("serial port not connected")

	openPort  = serial.Open
	listPorts = enumerator.GetDetailedPortsList
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is the frame output on a host serial port.
type Serial struct {
	port     string
	baudRate int

	mu        sync.RWMutex
	conn      serial.Port
	connected bool
}

// New creates a new Serial for the specified port and baud rate.
func New(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := listPorts()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list serial ports")
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("%s (USB %s:%s %s)", d.Name, d.VID, d.PID, d.Product)
		}
		result = append(result, Port{
			Name:        d.Name,
			Description: desc,
		})
	}

	return result, nil
}

// Connect opens the serial port in 8N1 mode.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return errors.New("already connected")
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := openPort(s.port, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", s.port)
	}

	s.conn = port
	s.connected = true

	return nil
}

// Close closes the connection.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.WithField("port", s.port).WithError(err).Warn("error closing serial port")
		}
		s.conn = nil
	}

	s.connected = false

	return nil
}

// Write sends p to the port.
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return 0, ErrNotConnected
	}

	n, err := s.conn.Write(p)
	if err != nil {
		return n, errors.Wrapf(err, "failed to write to %s", s.port)
	}
	return n, nil
}

// IsConnected returns whether the port is currently open.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
