// Package dsp holds the small amount of signal processing used to inspect
// synthesized chirps: complex spectra and their dominant frequency.
package dsp

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Complex joins I and Q sample blocks into complex baseband samples. The
// shorter block bounds the length.
func Complex(i, q []int16) []complex128 {
	n := min(len(i), len(q))
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		out[k] = complex(float64(i[k]), float64(q[k]))
	}
	return out
}

// Bin is one spectral line.
type Bin struct {
	FrequencyHz float64
	Power       float64
}

// PowerSpectrum returns |X(f)|²/n for every FFT bin, ordered from the most
// negative to the most positive frequency.
func PowerSpectrum(samples []complex128, sampleRateHz float64) []Bin {
	n := len(samples)
	if n == 0 {
		return nil
	}
	fft := fourier.NewCmplxFFT(n)
	coeff := fft.Coefficients(nil, samples)

	bins := make([]Bin, n)
	for k, c := range coeff {
		a := cmplx.Abs(c)
		bins[k] = Bin{FrequencyHz: fft.Freq(k) * sampleRateHz, Power: a * a / float64(n)}
	}
	sort.Slice(bins, func(a, b int) bool { return bins[a].FrequencyHz < bins[b].FrequencyHz })
	return bins
}

// PeakFrequency returns the frequency of the strongest bin, or NaN for empty
// input.
func PeakFrequency(samples []complex128, sampleRateHz float64) float64 {
	bins := PowerSpectrum(samples, sampleRateHz)
	if len(bins) == 0 {
		return math.NaN()
	}
	best := 0
	for k, b := range bins {
		if b.Power > bins[best].Power {
			best = k
		}
	}
	return bins[best].FrequencyHz
}

// MeanPower is the average |x|² of the samples.
func MeanPower(samples []complex128) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += real(s)*real(s) + imag(s)*imag(s)
	}
	return sum / float64(len(samples))
}
