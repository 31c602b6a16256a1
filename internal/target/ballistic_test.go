package target

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/geom"
	"github.com/banshee-data/iqsim/internal/units"
)

func TestNewBallisticInitialState(t *testing.T) {
	b, err := NewBallistic(DefaultBallisticParams())
	require.NoError(t, err)

	s := b.State()
	assert.True(t, s.Active)
	assert.Equal(t, r3.Vec{X: 5000, Y: 20, Z: 1000}, s.Position)
	assert.InDelta(t, 0, s.Velocity.X, 1e-9)
	assert.InDelta(t, 900*math.Sqrt2/2, s.Velocity.Y, 1e-9)
	assert.InDelta(t, 900*math.Sqrt2/2, s.Velocity.Z, 1e-9)

	nose := geom.Rotate(s.Orientation, geom.UnitX)
	assert.InDelta(t, 0, geom.AngleBetween(nose, s.Velocity), 1e-9, "nose follows velocity")
}

func TestNewBallisticRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BallisticParams)
	}{
		{"zero mass", func(p *BallisticParams) { p.MassKg = 0 }},
		{"negative mass", func(p *BallisticParams) { p.MassKg = -1 }},
		{"negative area", func(p *BallisticParams) { p.CrossSectionM2 = -0.1 }},
		{"empty rcs", func(p *BallisticParams) { p.RCSTable = nil }},
		{"unsorted rcs", func(p *BallisticParams) { p.RCSTable = RCSTable{{90, 1}, {0, 1}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultBallisticParams()
			tt.mutate(&p)
			_, err := NewBallistic(p)
			assert.Error(t, err)
		})
	}
}

func TestBallisticZeroDragRange(t *testing.T) {
	p := DefaultBallisticParams()
	p.InitialPosition = r3.Vec{}
	p.DragCoefficient = 0
	p.LaunchSpeed = 100
	b, err := NewBallistic(p)
	require.NoError(t, err)

	const dt = 0.001
	for i := 0; i < 100000 && b.Active(); i++ {
		b.Update(dt)
	}
	require.False(t, b.Active())

	s := b.State()
	downrange := math.Hypot(s.Position.X, s.Position.Z)
	want := p.LaunchSpeed * p.LaunchSpeed * math.Sin(2*units.DegToRad(45)) / units.Gravity
	assert.InEpsilon(t, want, downrange, 0.01)
}

func TestBallisticGoldenFlightTime(t *testing.T) {
	b, err := NewBallistic(DefaultBallisticParams())
	require.NoError(t, err)

	const dt = 0.04
	ticks := 0
	for b.Active() && ticks < 100000 {
		b.Update(dt)
		ticks++
	}

	assert.Equal(t, 2230, ticks)
	assert.InDelta(t, 89.2, float64(ticks)*dt, 1e-9)

	s := b.State()
	assert.LessOrEqual(t, s.Position.Y, 0.0)
	assert.InDelta(t, 29507.23, s.Position.Z-1000, 1.0)
}

func TestBallisticInactiveTransitionIsFinal(t *testing.T) {
	p := DefaultBallisticParams()
	p.InitialPosition = r3.Vec{Y: 1}
	p.LaunchSpeed = 0
	b, err := NewBallistic(p)
	require.NoError(t, err)

	transitions := 0
	wasActive := b.Active()
	for i := 0; i < 200; i++ {
		b.Update(0.04)
		if wasActive && !b.Active() {
			transitions++
		}
		wasActive = b.Active()
	}
	assert.Equal(t, 1, transitions)

	frozen := b.State()
	b.Update(1)
	assert.Equal(t, frozen, b.State(), "updates after impact are no-ops")
}

func TestBallisticHoldsOrientationWhenStationary(t *testing.T) {
	p := DefaultBallisticParams()
	p.LaunchSpeed = 0
	b, err := NewBallistic(p)
	require.NoError(t, err)
	assert.Equal(t, geom.Identity, b.State().Orientation)
}

func TestBallisticRCSAspect(t *testing.T) {
	b, err := NewBallistic(DefaultBallisticParams())
	require.NoError(t, err)

	assert.Equal(t, 0.01, b.RCS(r3.Vec{X: 1}))
	assert.Equal(t, 1.0, b.RCS(r3.Vec{Y: 3}))
	assert.Equal(t, 0.02, b.RCS(r3.Vec{X: -2}))
	assert.Equal(t, 0.01, b.RCS(r3.Vec{}), "zero aspect is nose-on")
}

func TestMicroDopplerPhaseNoiseBounded(t *testing.T) {
	b, err := NewBallistic(DefaultBallisticParams())
	require.NoError(t, err)

	const (
		n       = 4000
		ts      = 1e-6
		carrier = 10.5e9
	)
	rng := rand.New(rand.NewPCG(1, 2))
	phase := b.MicroDopplerPhaseNoise(n, ts, carrier, rng)
	require.Len(t, phase, n)

	radius := math.Sqrt(0.01887 / math.Pi)
	maxStep := 2 * math.Pi * (2 * 2 * math.Pi * radius * 50 * carrier / units.SpeedOfLight) * ts
	prev := 0.0
	for _, p := range phase {
		assert.LessOrEqual(t, math.Abs(p-prev), maxStep+1e-15)
		prev = p
	}

	again := b.MicroDopplerPhaseNoise(n, ts, carrier, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, phase, again, "same stream, same walk")
}

func TestMicroDopplerPhaseNoiseWithoutSpin(t *testing.T) {
	p := DefaultBallisticParams()
	p.SpinRateHz = 0
	b, err := NewBallistic(p)
	require.NoError(t, err)

	phase := b.MicroDopplerPhaseNoise(16, 1e-6, 10e9, rand.New(rand.NewPCG(1, 1)))
	assert.Equal(t, make([]float64, 16), phase)
}

func TestAirDensity(t *testing.T) {
	assert.Equal(t, SeaLevelAirDensity, AirDensity(0))
	assert.InDelta(t, SeaLevelAirDensity/math.E, AirDensity(AtmosphereScaleM), 1e-12)
}
