//go:build tinygo

package main

import (
	"device/rp"
	"errors"
	"time"

	"github.com/itohio/picotemp/pkg/source"
)

var errADCConversion = errors.New("adc conversion error")

// rpADC reads raw 12-bit results straight from the RP2040 ADC so that the
// onboard temperature sensor (input 4) can be sampled like any other input.
type rpADC struct{}

var _ source.ADC = rpADC{}

// newADC powers the ADC and enables the temperature sensor bias.
func newADC() rpADC {
	rp.ADC.CS.SetBits(rp.ADC_CS_EN | rp.ADC_CS_TS_EN)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
	return rpADC{}
}

func (rpADC) ReadRaw(ch source.Channel) (uint16, error) {
	rp.ADC.CS.ReplaceBits(uint32(ch)<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)

	// A conversion takes 96 ADC clocks (2 us at 48 MHz)
	deadline := time.Now().Add(time.Millisecond)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
		if time.Now().After(deadline) {
			return 0, source.ErrTimeout
		}
	}

	if rp.ADC.CS.HasBits(rp.ADC_CS_ERR) {
		return 0, source.Fault(errADCConversion)
	}
	return uint16(rp.ADC.RESULT.Get() & 0x0FFF), nil
}
