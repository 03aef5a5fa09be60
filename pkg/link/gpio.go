package link

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIOIndicator drives a health LED on a host GPIO pin.
type GPIOIndicator struct {
	pin gpio.PinOut
}

// NewGPIOIndicator initializes the host drivers and claims the named pin
// (e.g. "GPIO17"), switching it off.
func NewGPIOIndicator(name string) (*GPIOIndicator, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize host")
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, errors.Errorf("unknown GPIO %q", name)
	}

	return newGPIOIndicator(pin)
}

func newGPIOIndicator(pin gpio.PinOut) (*GPIOIndicator, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s as output", pin)
	}
	return &GPIOIndicator{pin: pin}, nil
}

// Set drives the pin. Failures are logged: a missing LED never stops telemetry.
func (g *GPIOIndicator) Set(on bool) {
	if err := g.pin.Out(gpio.Level(on)); err != nil {
		log.WithField("pin", g.pin.String()).WithError(err).Warn("unable to set health indicator")
	}
}
