package clutter

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/units"
)

func TestBeamIntersection(t *testing.T) {
	tests := []struct {
		name       string
		h, vy      float64
		rMin, rMax float64
	}{
		{"below slab looking up", 100, 1, 400, 2900},
		{"inside slab looking up", 1000, 0.5, 0, 4000},
		{"above slab looking up", 3500, 1, 0, 0},
		{"above slab looking down", 4000, -1, 1000, 3500},
		{"inside slab looking down", 1000, -0.5, 0, 1000},
		{"below slab looking down", 100, -1, 0, 0},
		{"horizontal", 1000, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rMin, rMax := BeamIntersection(tt.h, tt.vy, 500, 3000)
			assert.InDelta(t, tt.rMin, rMin, 1e-9)
			assert.InDelta(t, tt.rMax, rMax, 1e-9)
		})
	}
}

func rainContext(height float64, boresight r3.Vec) *RadarContext {
	ctx := seaContext(height, boresight)
	ctx.Geometry.BeamwidthRad = units.DegToRad(10)
	return ctx
}

func TestRainGenerateMissIsZero(t *testing.T) {
	r, err := NewRain(DefaultRainParams())
	require.NoError(t, err)

	out := r.Generate(rainContext(10, r3.Vec{Y: -0.1, Z: 1}), rand.New(rand.NewPCG(1, 1)))
	require.Len(t, out, 4000)
	for _, v := range out {
		assert.Equal(t, complex(0, 0), v)
	}
}

func TestRainGenerateAppliesDoppler(t *testing.T) {
	p := DefaultRainParams()
	r, err := NewRain(p)
	require.NoError(t, err)

	ctx := rainContext(10, r3.Vec{X: 1, Y: 1})
	out := r.Generate(ctx, rand.New(rand.NewPCG(5, 6)))

	rMin, rMax := BeamIntersection(10, ctx.BoresightGlobal.Y, p.CloudBaseM, p.CloudTopM)
	bw := ctx.Geometry.BeamwidthRad
	volume := math.Pi / 4 * bw * bw / 3 * (math.Pow(rMax, 3) - math.Pow(rMin, 3))
	rcs := Reflectivity(p.RainRateMMPerH, units.Wavelength(ctx.CarrierHz)) * volume
	std := math.Sqrt(ScaledPower(ctx.Reference, rcs, (rMin+rMax)/2))
	base := gaussian(ctx.NumSamples, std, rand.New(rand.NewPCG(5, 6)))

	vr := r3.Dot(r3.Vec{X: 15, Y: -6}, ctx.BoresightGlobal)
	doppler := 2 * vr * ctx.CarrierHz / units.SpeedOfLight
	for _, i := range []int{0, 1, 17, 3999} {
		want := base[i] * cmplx.Rect(1, 2*math.Pi*doppler*float64(i)/ctx.SampleRateHz)
		assert.InDelta(t, real(want), real(out[i]), std*1e-9)
		assert.InDelta(t, imag(want), imag(out[i]), std*1e-9)
	}
}

func TestReflectivity(t *testing.T) {
	assert.Equal(t, 0.0, Reflectivity(0, 0.03))
	assert.Equal(t, 0.0, Reflectivity(5, 0))
	assert.Greater(t, Reflectivity(10, 0.03), Reflectivity(5, 0.03))
	assert.Greater(t, Reflectivity(5, 0.02), Reflectivity(5, 0.03))
}

func TestRainParamsValidate(t *testing.T) {
	p := DefaultRainParams()
	p.CloudTopM = p.CloudBaseM
	_, err := NewRain(p)
	assert.Error(t, err)

	p = DefaultRainParams()
	p.RainRateMMPerH = -1
	_, err = NewRain(p)
	assert.Error(t, err)
}
