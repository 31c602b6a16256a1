package clutter

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/iqsim/internal/units"
)

// EffectiveEarthRadius is the 4/3-earth radius used for grazing geometry.
const EffectiveEarthRadius = 8.5e6

// SeaParams configures sea-surface clutter.
type SeaParams struct {
	SeaState int `json:"sea_state"`
}

// DefaultSeaParams returns a moderate sea.
func DefaultSeaParams() SeaParams { return SeaParams{SeaState: 3} }

// Validate bounds the Douglas sea state.
func (p SeaParams) Validate() error {
	if p.SeaState < 0 || p.SeaState > 9 {
		return fmt.Errorf("sea_state must be in [0,9], got %d", p.SeaState)
	}
	return nil
}

// Sea models the surface patch illuminated by the beam as a Gaussian
// scatterer whose reflectivity depends on sea state, frequency and grazing
// angle.
type Sea struct {
	seaState int
}

// NewSea validates p.
func NewSea(p SeaParams) (*Sea, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Sea{seaState: p.SeaState}, nil
}

func (s *Sea) Name() string { return "sea" }

// GrazingAngle returns the grazing angle in radians for a beam with world
// vertical component boresightY from height h, or 0 when the beam does not
// reach the surface.
func GrazingAngle(h, boresightY float64) float64 {
	if h <= 0 {
		return 0
	}
	depression := math.Asin(units.Clamp(-boresightY, -1, 1))
	if depression <= 0 {
		return 0
	}
	slant := h / math.Sin(depression)
	sinGamma := h/slant - slant/(2*EffectiveEarthRadius)
	if sinGamma <= 0 {
		return 0
	}
	return math.Asin(sinGamma)
}

// SigmaNought returns the linear surface reflectivity.
func SigmaNought(grazing float64, seaState int, carrierHz float64) float64 {
	if grazing <= 0 || carrierHz <= 0 {
		return 0
	}
	db := -40 + 2.5*float64(seaState) +
		10*math.Log10(carrierHz/units.GHz/10) +
		10*math.Log10(math.Sin(grazing))
	return units.DBToLinear(db)
}

// PatchArea returns the illuminated area for a pencil beam of the given
// beamwidth from height h at the grazing angle.
func PatchArea(h, grazing, beamwidth float64) float64 {
	if grazing <= 0 || h <= 0 {
		return 0
	}
	sg := math.Sin(grazing)
	r := h / sg
	return r * r * beamwidth * beamwidth / sg
}

// Generate returns Gaussian samples at the scaled patch power, or zeros when
// the beam does not intersect the sea. Altitude is the platform's, so a ship
// at sea level sees no sea clutter.
func (s *Sea) Generate(ctx *RadarContext, rng *rand.Rand) []complex128 {
	h := ctx.Platform.Position.Y
	grazing := GrazingAngle(h, ctx.BoresightGlobal.Y)
	if grazing <= 0 {
		return make([]complex128, ctx.NumSamples)
	}

	slant := h / math.Sin(grazing)
	rcs := SigmaNought(grazing, s.seaState, ctx.CarrierHz) * PatchArea(h, grazing, ctx.Geometry.BeamwidthRad)
	power := ScaledPower(ctx.Reference, rcs, slant)
	return gaussian(ctx.NumSamples, math.Sqrt(power), rng)
}
