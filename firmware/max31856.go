//go:build tinygo

package main

import (
	"fmt"
	"machine"

	"github.com/itohio/picotemp/pkg/convert"
	"github.com/itohio/picotemp/pkg/source"
)

// MAX31856 registers
const (
	regCR0   = 0x00
	regCR1   = 0x01
	regMASK  = 0x02
	regLTCBH = 0x0C
	regSR    = 0x0F

	writeFlag = 0x80

	cr0AutoConvert = 0x80 // continuous conversion, one every ~100 ms
	cr0OpenCircuit = 0x10 // open-circuit detection enabled
	cr1TypeK       = 0x03 // type K, single sample averaging

	srOpen    = 0x01
	srOVUV    = 0x02
	srTCLow   = 0x04
	srTCHigh  = 0x08
	srTCRange = 0x40
	srCJRange = 0x80

	ltcResolution = 0.0078125 // 2^-7 degrees C per LSB
)

// max31856 reads a type K thermocouple. Fahrenheit is derived from Celsius.
type max31856 struct {
	bus *machine.SPI
	cs  machine.Pin
	buf [4]byte
}

var _ source.Thermocouple = (*max31856)(nil)

func newMAX31856(bus *machine.SPI, cs machine.Pin) (*max31856, error) {
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	m := &max31856{bus: bus, cs: cs}
	if err := m.write(regMASK, 0x00); err != nil {
		return nil, err
	}
	if err := m.write(regCR1, cr1TypeK); err != nil {
		return nil, err
	}
	if err := m.write(regCR0, cr0AutoConvert|cr0OpenCircuit); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *max31856) ReadExternal() (float32, float32, error) {
	if err := m.read(regSR, m.buf[:1]); err != nil {
		return 0, 0, source.Fault(err)
	}
	if err := checkFault(m.buf[0]); err != nil {
		return 0, 0, err
	}

	if err := m.read(regLTCBH, m.buf[:3]); err != nil {
		return 0, 0, source.Fault(err)
	}
	// 19-bit two's complement, left aligned in 24 bits
	raw := int32(uint32(m.buf[0])<<24|uint32(m.buf[1])<<16|uint32(m.buf[2])<<8) >> 13
	c := float32(raw) * ltcResolution

	return c, convert.CelsiusToFahrenheit(c), nil
}

func checkFault(sr byte) error {
	switch {
	case sr == 0:
		return nil
	case sr&srOpen != 0:
		return source.ErrOpenCircuit
	case sr&(srTCRange|srCJRange|srTCHigh|srTCLow) != 0:
		return fmt.Errorf("%w: status 0x%02x", source.ErrOutOfRange, sr)
	case sr&srOVUV != 0:
		return fmt.Errorf("%w: input over/under voltage", source.ErrSensorFault)
	}
	return fmt.Errorf("%w: status 0x%02x", source.ErrSensorFault, sr)
}

// read blocks while the SPI FIFO is stalled; nothing above it can preempt.
func (m *max31856) read(reg byte, dst []byte) error {
	m.cs.Low()
	defer m.cs.High()

	if err := m.bus.Tx([]byte{reg}, nil); err != nil {
		return err
	}
	return m.bus.Tx(nil, dst)
}

func (m *max31856) write(reg, value byte) error {
	m.cs.Low()
	defer m.cs.High()

	return m.bus.Tx([]byte{reg | writeFlag, value}, nil)
}
