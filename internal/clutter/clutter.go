// Package clutter generates per-channel complex baseband clutter for one chirp.
//
// Providers are configured once and then only read, so the synthesizer calls
// Generate from several channel workers at once, each with its own rng.
// Clutter power is expressed relative to a calibration Reference supplied in
// the RadarContext; see ScaledPower.
package clutter

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/antenna"
	"github.com/banshee-data/iqsim/internal/platform"
	"github.com/banshee-data/iqsim/internal/units"
)

// Reference is a point scatterer of known received power used to calibrate
// clutter power.
type Reference struct {
	PowerW float64
	RangeM float64
	RCS    float64
	Gain   float64
}

// CalibrationReference returns the received power of a 1 m² scatterer on
// boresight at 1 km for the given transmitter and carrier.
func CalibrationReference(txPowerW, txGain, rxGain, carrierHz float64) Reference {
	const (
		rangeM = 1000.0
		rcs    = 1.0
		gain   = 1.0
	)
	return Reference{
		PowerW: ReceivedPower(txPowerW, txGain, rxGain, rcs, gain, units.Wavelength(carrierHz), rangeM),
		RangeM: rangeM,
		RCS:    rcs,
		Gain:   gain,
	}
}

// ReceivedPower is the monostatic radar range equation with a two-way pattern
// gain. It returns 0 at zero range.
func ReceivedPower(txPowerW, txGain, rxGain, rcs, patternGain, wavelength, rangeM float64) float64 {
	if rangeM <= 0 {
		return 0
	}
	r2 := rangeM * rangeM
	return txPowerW * txGain * rxGain * rcs * patternGain * patternGain * wavelength * wavelength /
		(units.FourPiCubed * r2 * r2)
}

// ScaledPower scales the reference power to a clutter return of the given RCS
// and range seen at unit pattern gain. Each ratio is taken as 1 when its
// reference value (or the clutter range) is zero.
func ScaledPower(ref Reference, clutterRCS, clutterRange float64) float64 {
	scaleRange := 1.0
	if ref.RangeM != 0 && clutterRange != 0 {
		scaleRange = math.Pow(ref.RangeM/clutterRange, 4)
	}
	scaleRCS := 1.0
	if ref.RCS != 0 {
		scaleRCS = clutterRCS / ref.RCS
	}
	scaleGain := 1.0
	if ref.Gain != 0 {
		scaleGain = 1 / (ref.Gain * ref.Gain)
	}
	return ref.PowerW * scaleRange * scaleRCS * scaleGain
}

// RadarContext is the read-only view of the radar a Provider sees for one
// channel of one chirp.
type RadarContext struct {
	Platform        platform.State
	Antenna         antenna.State
	Geometry        antenna.Geometry
	BoresightGlobal r3.Vec
	AntennaPosition r3.Vec

	CarrierHz        float64
	NoiseBandwidthHz float64
	ChirpDurationS   float64
	SampleRateHz     float64
	NumSamples       int
	Channel          int

	Reference Reference
}

// Provider generates clutter samples for one channel and chirp. The returned
// slice has ctx.NumSamples entries.
type Provider interface {
	Name() string
	Generate(ctx *RadarContext, rng *rand.Rand) []complex128
}

// gaussian fills n samples with independent zero-mean I and Q components of
// standard deviation std.
func gaussian(n int, std float64, rng *rand.Rand) []complex128 {
	out := make([]complex128, n)
	if std == 0 {
		return out
	}
	for i := range out {
		out[i] = complex(rng.NormFloat64()*std, rng.NormFloat64()*std)
	}
	return out
}
