//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 1600 // 100 ms settle + 750 ms LED on + 750 ms LED off
	SENSOR_TIMEOUT_MS  = 500  // Upper bound on a single ADC or thermocouple read
	OVERSAMPLE         = 1    // Raw ADC reads averaged per sample (1 = off)

	// ADC configuration
	TEMP_ONBOARD_ADC_CHAN = 4 // ADC input 4 is the onboard temperature sensor (0..3 are GPIO 26..29)

	// Serial configuration
	// Frame is 13 bytes, one frame per 1.6 s. Must match the receiver.
	UART_BAUD_RATE = 115200

	// MAX31856 SPI clock. The part accepts up to 5 MHz.
	MAX31856_SPI_HZ = 1000000
)

var (
	// UART0 on GP0/GP1 carries binary frames
	uart        = machine.UART0
	UART_TX_PIN = machine.GP0
	UART_RX_PIN = machine.GP1

	// MAX31856 on SPI0
	spi         = machine.SPI0
	PIN_SPI_SCK = machine.GP18
	PIN_SPI_SDO = machine.GP19
	PIN_SPI_SDI = machine.GP16
	PIN_SPI_CS  = machine.GP17

	// Health indicator
	PIN_LED = machine.LED
)
