// Package units provides the physical constants and unit conversions shared by
// the simulation packages. All internal quantities are SI (metres, seconds,
// radians, watts, hertz); degrees and decibels appear only at configuration
// boundaries.
package units

import "math"

// Physical constants
const (
	SpeedOfLight = 299792458.0  // m/s
	Boltzmann    = 1.380649e-23 // J/K
	Gravity      = 9.81         // m/s²
	GHz          = 1e9          // Hz per GHz
	FourPiCubed  = 64 * math.Pi * math.Pi * math.Pi
)

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// DBToLinear converts a power ratio in decibels to a linear ratio.
func DBToLinear(db float64) float64 { return math.Pow(10, db/10) }

// LinearToDB converts a linear power ratio to decibels.
// Non-positive ratios return -Inf.
func LinearToDB(ratio float64) float64 {
	if ratio <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(ratio)
}

// Wavelength returns c/f, or 0 for a non-positive frequency.
func Wavelength(freqHz float64) float64 {
	if freqHz <= 0 {
		return 0
	}
	return SpeedOfLight / freqHz
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
