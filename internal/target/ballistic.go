package target

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/geom"
	"github.com/banshee-data/iqsim/internal/units"
)

// Atmosphere model constants.
const (
	SeaLevelAirDensity = 1.225  // kg/m³
	AtmosphereScaleM   = 8500.0 // m
)

// minOrientationSpeed2 is the squared speed below which the attitude is held.
const minOrientationSpeed2 = 1e-4

// BallisticParams configures a point-mass projectile under gravity and
// quadratic drag.
type BallisticParams struct {
	InitialPosition    r3.Vec   `json:"initial_position"`
	LaunchSpeed        float64  `json:"launch_speed_mps"`
	LaunchAzimuthDeg   float64  `json:"launch_azimuth_deg"`
	LaunchElevationDeg float64  `json:"launch_elevation_deg"`
	DragCoefficient    float64  `json:"drag_coefficient"`
	MassKg             float64  `json:"mass_kg"`
	CrossSectionM2     float64  `json:"cross_section_m2"`
	SpinRateHz         float64  `json:"spin_rate_hz"`
	RCSTable           RCSTable `json:"rcs_table"`
}

// DefaultBallisticParams returns a 155 mm-class shell fired at 45°.
func DefaultBallisticParams() BallisticParams {
	return BallisticParams{
		InitialPosition:    r3.Vec{X: 5000, Y: 20, Z: 1000},
		LaunchSpeed:        900,
		LaunchAzimuthDeg:   0,
		LaunchElevationDeg: 45,
		DragCoefficient:    0.25,
		MassKg:             45,
		CrossSectionM2:     0.01887,
		SpinRateHz:         50,
		RCSTable:           DefaultRCSTable(),
	}
}

// Validate checks the physical parameters.
func (p BallisticParams) Validate() error {
	if !(p.MassKg > 0) {
		return fmt.Errorf("mass_kg must be positive, got %g", p.MassKg)
	}
	if p.CrossSectionM2 < 0 {
		return fmt.Errorf("cross_section_m2 must be non-negative, got %g", p.CrossSectionM2)
	}
	if p.DragCoefficient < 0 {
		return fmt.Errorf("drag_coefficient must be non-negative, got %g", p.DragCoefficient)
	}
	if p.LaunchSpeed < 0 {
		return fmt.Errorf("launch_speed_mps must be non-negative, got %g", p.LaunchSpeed)
	}
	if p.SpinRateHz < 0 {
		return errors.New("spin_rate_hz must be non-negative")
	}
	if err := p.RCSTable.Validate(); err != nil {
		return err
	}
	return nil
}

// AirDensity returns the exponential-atmosphere density at altitude h metres.
func AirDensity(h float64) float64 {
	return SeaLevelAirDensity * math.Exp(-h/AtmosphereScaleM)
}

// Ballistic is the point-mass Trajectory. It is not safe for concurrent
// Update calls; RCS and MicroDopplerPhaseNoise only read immutable fields.
type Ballistic struct {
	dragCoefficient float64
	mass            float64
	area            float64
	maxMicroSpeed   float64
	rcs             RCSTable

	position    r3.Vec
	velocity    r3.Vec
	orientation quat.Number
	active      bool
}

// NewBallistic validates p and places the target at its launch state.
func NewBallistic(p BallisticParams) (*Ballistic, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	radius := math.Sqrt(p.CrossSectionM2 / math.Pi)

	b := &Ballistic{
		dragCoefficient: p.DragCoefficient,
		mass:            p.MassKg,
		area:            p.CrossSectionM2,
		maxMicroSpeed:   2 * math.Pi * radius * p.SpinRateHz,
		rcs:             append(RCSTable(nil), p.RCSTable...),
		position:        p.InitialPosition,
		velocity: geom.FromSpherical(p.LaunchSpeed,
			units.DegToRad(p.LaunchAzimuthDeg), units.DegToRad(p.LaunchElevationDeg)),
		orientation: geom.Identity,
		active:      true,
	}
	b.updateOrientation()
	return b, nil
}

// Update integrates one explicit Euler step: velocity first, then position
// with the new velocity.
func (b *Ballistic) Update(dt float64) {
	if !b.active {
		return
	}

	rho := AirDensity(b.position.Y)
	speed := r3.Norm(b.velocity)

	var drag r3.Vec
	if speed > 0 {
		magnitude := 0.5 * rho * speed * speed * b.dragCoefficient * b.area
		drag = r3.Scale(-magnitude/speed, b.velocity)
	}
	gravity := r3.Vec{Y: -units.Gravity * b.mass}
	accel := r3.Scale(1/b.mass, r3.Add(drag, gravity))

	b.velocity = r3.Add(b.velocity, r3.Scale(dt, accel))
	b.position = r3.Add(b.position, r3.Scale(dt, b.velocity))

	if b.position.Y <= 0 {
		b.active = false
	}
	b.updateOrientation()
}

func (b *Ballistic) updateOrientation() {
	if r3.Norm2(b.velocity) < minOrientationSpeed2 {
		return
	}
	b.orientation = geom.LookAlong(b.velocity)
}

// State returns the current kinematic state.
func (b *Ballistic) State() State {
	return State{
		Position:    b.position,
		Velocity:    b.velocity,
		Orientation: b.orientation,
		Active:      b.active,
	}
}

// Active reports whether the target is still airborne.
func (b *Ballistic) Active() bool { return b.active }

// RCS returns the table value at the angle between the body nose (+X) and the
// aspect vector. A zero aspect is treated as nose-on.
func (b *Ballistic) RCS(aspectLocal r3.Vec) float64 {
	angle := 0.0
	if r3.Norm2(aspectLocal) > 0 {
		angle = geom.AngleBetween(geom.UnitX, aspectLocal)
	}
	return b.rcs.Lookup(units.RadToDeg(angle))
}

// MicroDopplerPhaseNoise returns a bounded random walk of phase: each sample
// adds a uniform step in ±2π·f_max·sampleInterval where f_max is the Doppler of
// the spin tangential speed at carrierHz.
func (b *Ballistic) MicroDopplerPhaseNoise(n int, sampleInterval, carrierHz float64, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	maxDoppler := 2 * b.maxMicroSpeed * carrierHz / units.SpeedOfLight
	maxStep := 2 * math.Pi * maxDoppler * sampleInterval
	if maxStep == 0 {
		return out
	}

	phase := 0.0
	for s := range out {
		phase += (rng.Float64()*2 - 1) * maxStep
		out[s] = phase
	}
	return out
}
