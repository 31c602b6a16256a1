package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, freq, fs, amp float64) []complex128 {
	out := make([]complex128, n)
	for k := range out {
		out[k] = cmplx.Rect(amp, 2*math.Pi*freq*float64(k)/fs)
	}
	return out
}

func TestPeakFrequency(t *testing.T) {
	const (
		n  = 1000
		fs = 1e6
	)
	tests := []struct {
		name string
		freq float64
	}{
		{"positive", 50e3},
		{"negative", -120e3},
		{"dc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeakFrequency(tone(n, tt.freq, fs, 100), fs)
			assert.InDelta(t, tt.freq, got, fs/n)
		})
	}
	assert.True(t, math.IsNaN(PeakFrequency(nil, fs)))
}

func TestPowerSpectrumOrderedAndParseval(t *testing.T) {
	x := tone(64, 1e3, 64e3, 2)
	bins := PowerSpectrum(x, 64e3)
	require.Len(t, bins, 64)

	var total float64
	for k := 1; k < len(bins); k++ {
		assert.Less(t, bins[k-1].FrequencyHz, bins[k].FrequencyHz)
	}
	for _, b := range bins {
		total += b.Power
	}
	assert.InDelta(t, MeanPower(x)*64, total, 1e-6)
}

func TestComplexAndMeanPower(t *testing.T) {
	c := Complex([]int16{1, -2, 3}, []int16{4, 5})
	assert.Equal(t, []complex128{complex(1, 4), complex(-2, 5)}, c)
	assert.InDelta(t, (17.0+29.0)/2, MeanPower(c), 1e-12)
	assert.Equal(t, 0.0, MeanPower(nil))
}
