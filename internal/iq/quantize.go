package iq

import "math"

// FullScaleSigma is the number of thermal-noise standard deviations mapped to
// ADC full scale.
const FullScaleSigma = 3.0

// Quantize maps x onto a signed 16-bit ADC whose full scale is fullScale,
// saturating at the int16 limits and truncating toward zero. A zero or
// invalid full scale yields 0. Full scale follows the thermal noise, so a
// noiseless configuration (noise figure 0) emits zeros for target and clutter
// too.
func Quantize(x, fullScale float64) int16 {
	if !(fullScale > 0) || math.IsNaN(x) {
		return 0
	}
	v := x / fullScale * math.MaxInt16
	if v >= math.MaxInt16 {
		return math.MaxInt16
	}
	if v <= math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
