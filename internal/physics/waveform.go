package physics

import (
	"fmt"
	"math"
)

// Waveform describes the two transmitted waveforms: a CW tone and an FMCW
// ramp that alternates between two bandwidths on successive chirps.
type Waveform struct {
	CWCarrierHz    float64
	FMCWStartHz    float64
	BandwidthB1Hz  float64
	BandwidthB2Hz  float64
	ChirpDurationS float64
	SampleRateHz   float64
}

// sampleCountTolerance absorbs decimal representation error in
// chirp_duration × sample_rate.
const sampleCountTolerance = 1e-6

// Validate requires positive frequencies and timing, and an integral number
// of samples per chirp.
func (w Waveform) Validate() error {
	for name, v := range map[string]float64{
		"cw_center_frequency_hz":  w.CWCarrierHz,
		"fmcw_start_frequency_hz": w.FMCWStartHz,
		"chirp_duration_s":        w.ChirpDurationS,
		"adc_sample_rate_hz":      w.SampleRateHz,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be positive and finite, got %g", name, v)
		}
	}
	if w.BandwidthB1Hz < 0 || w.BandwidthB2Hz < 0 {
		return fmt.Errorf("fmcw bandwidths must be non-negative, got %g and %g", w.BandwidthB1Hz, w.BandwidthB2Hz)
	}
	product := w.ChirpDurationS * w.SampleRateHz
	if math.Abs(product-math.Round(product)) > sampleCountTolerance*math.Max(1, product) {
		return fmt.Errorf("chirp_duration_s × adc_sample_rate_hz must be an integer sample count, got %g", product)
	}
	return nil
}

// NumSamples is the number of ADC samples per chirp.
func (w Waveform) NumSamples() int {
	return int(math.Round(w.ChirpDurationS * w.SampleRateHz))
}

// SampleInterval is the ADC sample period.
func (w Waveform) SampleInterval() float64 {
	return 1 / w.SampleRateHz
}

// UsesB1 reports whether chirp uses bandwidth B1. Even chirps use B1, odd
// chirps use B2.
func UsesB1(chirp int) bool { return chirp%2 == 0 }

// SubChirp returns the bandwidth and effective carrier (ramp centre) for the
// FMCW sub-chirp active on chirp.
func (w Waveform) SubChirp(chirp int) (bandwidthHz, carrierHz float64) {
	bw := w.BandwidthB2Hz
	if UsesB1(chirp) {
		bw = w.BandwidthB1Hz
	}
	return bw, w.FMCWStartHz + bw/2
}
