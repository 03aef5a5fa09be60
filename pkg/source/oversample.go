package source

// MaxOversample bounds the reads averaged per sample.
const MaxOversample = 1024

// Oversampler averages several consecutive reads of the same channel.
type Oversampler struct {
	adc ADC
	n   int
}

var _ ADC = (*Oversampler)(nil)

// Oversample returns an ADC averaging n reads per call. n <= 1 returns adc
// unchanged and n is capped at MaxOversample.
func Oversample(adc ADC, n int) ADC {
	if n <= 1 {
		return adc
	}
	if n > MaxOversample {
		n = MaxOversample
	}
	return &Oversampler{adc: adc, n: n}
}

// ReadRaw implements ADC. Any failed or out-of-range read fails the whole sample.
func (o *Oversampler) ReadRaw(ch Channel) (uint16, error) {
	var sum uint64
	for i := 0; i < o.n; i++ {
		raw, err := o.adc.ReadRaw(ch)
		if err != nil {
			return 0, err
		}
		if err := CheckRaw(raw); err != nil {
			return 0, err
		}
		sum += uint64(raw)
	}
	// Round to nearest
	return uint16((sum + uint64(o.n)/2) / uint64(o.n)), nil
}
