//go:build tinygo

//go:generate tinygo flash -target=pico

package main

import (
	"context"
	"machine"
	"time"

	"github.com/itohio/picotemp/pkg/source"
	"github.com/itohio/picotemp/pkg/telemetry"
)

// ledIndicator drives the onboard LED.
type ledIndicator machine.Pin

func (p ledIndicator) Set(on bool) {
	machine.Pin(p).Set(on)
}

func main() {
	// Debug stream on USB serial
	console := machine.Serial
	console.Configure(machine.UARTConfig{})

	// Configure UART for binary frames
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
		TX:       UART_TX_PIN,
		RX:       UART_RX_PIN,
	})

	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	adc := newADC()

	if err := spi.Configure(machine.SPIConfig{
		Frequency: MAX31856_SPI_HZ,
		SCK:       PIN_SPI_SCK,
		SDO:       PIN_SPI_SDO,
		SDI:       PIN_SPI_SDI,
		Mode:      1,
	}); err != nil {
		halt(err)
	}
	thermocouple, err := newMAX31856(spi, PIN_SPI_CS)
	if err != nil {
		halt(err)
	}

	timeout := SENSOR_TIMEOUT_MS * time.Millisecond

	opts := telemetry.DefaultOptions()
	opts.Channel = TEMP_ONBOARD_ADC_CHAN
	opts.Interval = SAMPLE_INTERVAL_MS * time.Millisecond
	opts.Indicator = ledIndicator(PIN_LED)

	loop, err := telemetry.New(
		opts,
		source.ADCWithTimeout(source.Oversample(adc, OVERSAMPLE), timeout),
		source.ThermocoupleWithTimeout(thermocouple, timeout),
		uart,
		console,
	)
	if err != nil {
		halt(err)
	}

	// Runs until reset
	loop.Run(context.Background(), telemetry.State{})
}

// halt reports a startup failure and blinks the LED quickly forever.
func halt(err error) {
	for {
		println("FATAL:", err.Error())
		for i := 0; i < 10; i++ {
			PIN_LED.Set(i%2 == 0)
			time.Sleep(100 * time.Millisecond)
		}
	}
}
