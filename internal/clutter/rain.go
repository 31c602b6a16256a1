package clutter

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/units"
)

// Rain reflectivity constants.
const (
	WaterDielectricK2 = 0.93
	marshallPalmerA   = 200.0
	marshallPalmerB   = 1.6
)

// RainParams configures a uniform rain slab between CloudBaseM and CloudTopM.
type RainParams struct {
	RainRateMMPerH float64 `json:"rain_rate_mm_h"`
	CloudBaseM     float64 `json:"cloud_base_m"`
	CloudTopM      float64 `json:"cloud_top_m"`
	Wind           r3.Vec  `json:"wind_mps"`
	FallSpeedMPS   float64 `json:"fall_speed_mps"`
}

// DefaultRainParams returns moderate rain in a 15 m/s wind.
func DefaultRainParams() RainParams {
	return RainParams{
		RainRateMMPerH: 5,
		CloudBaseM:     500,
		CloudTopM:      3000,
		Wind:           r3.Vec{X: 15},
		FallSpeedMPS:   -6,
	}
}

// Validate checks the slab and rain rate.
func (p RainParams) Validate() error {
	if p.RainRateMMPerH < 0 {
		return fmt.Errorf("rain_rate_mm_h must be non-negative, got %g", p.RainRateMMPerH)
	}
	if p.CloudTopM <= p.CloudBaseM {
		return fmt.Errorf("cloud_top_m (%g) must be above cloud_base_m (%g)", p.CloudTopM, p.CloudBaseM)
	}
	return nil
}

// Rain models volume clutter from the part of the beam inside the rain slab,
// shifted by the mean Doppler of the drops relative to the platform.
type Rain struct {
	p RainParams
}

// NewRain validates p.
func NewRain(p RainParams) (*Rain, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Rain{p: p}, nil
}

func (r *Rain) Name() string { return "rain" }

// BeamIntersection returns the ranges along a ray from altitude h with world
// vertical component vy where it enters and leaves the slab [base, top].
// A miss returns (0, 0). Horizontal rays are treated as a miss.
func BeamIntersection(h, vy, base, top float64) (rMin, rMax float64) {
	switch {
	case vy > 0:
		if h >= top {
			return 0, 0
		}
		if h < base {
			rMin = (base - h) / vy
		}
		return rMin, (top - h) / vy
	case vy < 0:
		if h <= base {
			return 0, 0
		}
		if h > top {
			rMin = (h - top) / -vy
		}
		return rMin, (h - base) / -vy
	default:
		return 0, 0
	}
}

// Reflectivity returns the volume reflectivity η (m²/m³) for the rain rate
// at wavelength lambda.
func Reflectivity(rainRate, lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	z := marshallPalmerA * math.Pow(rainRate, marshallPalmerB)
	return math.Pow(math.Pi, 5) * WaterDielectricK2 * z / (math.Pow(lambda, 4) * 1e18)
}

// Generate returns Doppler-shifted Gaussian samples for the slab section in
// the beam, or zeros when the beam misses the slab.
func (r *Rain) Generate(ctx *RadarContext, rng *rand.Rand) []complex128 {
	n := ctx.NumSamples
	rMin, rMax := BeamIntersection(ctx.AntennaPosition.Y, ctx.BoresightGlobal.Y, r.p.CloudBaseM, r.p.CloudTopM)
	if rMin >= rMax {
		return make([]complex128, n)
	}

	bw := ctx.Geometry.BeamwidthRad
	solidAngle := math.Pi / 4 * bw * bw
	volume := solidAngle / 3 * (rMax*rMax*rMax - rMin*rMin*rMin)
	rcs := Reflectivity(r.p.RainRateMMPerH, units.Wavelength(ctx.CarrierHz)) * volume
	power := ScaledPower(ctx.Reference, rcs, (rMin+rMax)/2)

	drops := r3.Add(r.p.Wind, r3.Vec{Y: r.p.FallSpeedMPS})
	vRadial := r3.Dot(r3.Sub(drops, ctx.Platform.Velocity), ctx.BoresightGlobal)
	doppler := 2 * vRadial * ctx.CarrierHz / units.SpeedOfLight

	out := gaussian(n, math.Sqrt(power), rng)
	if doppler == 0 || ctx.SampleRateHz <= 0 {
		return out
	}
	dt := 1 / ctx.SampleRateHz
	for i := range out {
		out[i] *= cmplx.Rect(1, 2*math.Pi*doppler*float64(i)*dt)
	}
	return out
}
