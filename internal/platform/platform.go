// Package platform models the vessel carrying the radar: a constant-course
// ship with sinusoidal pitch and roll.
package platform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/geom"
	"github.com/banshee-data/iqsim/internal/units"
)

// State is the platform's kinematic state at one tick. Attitude maps
// platform-frame vectors into the world frame.
type State struct {
	Position r3.Vec
	Velocity r3.Vec
	Attitude quat.Number
}

// Platform is implemented by every carrier model.
type Platform interface {
	Update(dt float64)
	State() State
}

// ShipParams configures the ship model. Course direction is measured from +Z
// toward +X.
type ShipParams struct {
	InitialPosition    r3.Vec  `json:"initial_position"`
	CourseSpeed        float64 `json:"course_speed_mps"`
	CourseDirectionDeg float64 `json:"course_direction_deg"`
	PitchAmplitudeDeg  float64 `json:"pitch_amplitude_deg"`
	PitchPeriodS       float64 `json:"pitch_period_s"`
	RollAmplitudeDeg   float64 `json:"roll_amplitude_deg"`
	RollPeriodS        float64 `json:"roll_period_s"`
}

// DefaultShipParams returns a small combatant at 10 m/s in moderate swell.
func DefaultShipParams() ShipParams {
	return ShipParams{
		CourseSpeed:       10,
		PitchAmplitudeDeg: 3,
		PitchPeriodS:      2,
		RollAmplitudeDeg:  3,
		RollPeriodS:       3,
	}
}

// Validate rejects non-finite values.
func (p ShipParams) Validate() error {
	for name, v := range map[string]float64{
		"course_speed_mps":     p.CourseSpeed,
		"course_direction_deg": p.CourseDirectionDeg,
		"pitch_amplitude_deg":  p.PitchAmplitudeDeg,
		"pitch_period_s":       p.PitchPeriodS,
		"roll_amplitude_deg":   p.RollAmplitudeDeg,
		"roll_period_s":        p.RollPeriodS,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}
	return nil
}

// Ship is a constant-velocity platform whose attitude oscillates in pitch and
// roll around its course heading.
type Ship struct {
	position r3.Vec
	velocity r3.Vec
	attitude quat.Number
	elapsed  float64

	yaw        float64
	pitchAmp   float64
	pitchOmega float64
	rollAmp    float64
	rollOmega  float64
}

// NewShip builds a Ship at its initial position with a yaw-only attitude.
func NewShip(p ShipParams) (*Ship, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	course := units.DegToRad(p.CourseDirectionDeg)
	s := &Ship{
		position:   p.InitialPosition,
		velocity:   geom.FromSpherical(p.CourseSpeed, course, 0),
		yaw:        course,
		pitchAmp:   units.DegToRad(p.PitchAmplitudeDeg),
		pitchOmega: angularFrequency(p.PitchPeriodS),
		rollAmp:    units.DegToRad(p.RollAmplitudeDeg),
		rollOmega:  angularFrequency(p.RollPeriodS),
	}
	s.attitude = geom.FromYawPitchRoll(s.yaw, 0, 0)
	return s, nil
}

func angularFrequency(period float64) float64 {
	if period <= 0 {
		return 0
	}
	return 2 * math.Pi / period
}

// Update advances the ship by dt seconds.
func (s *Ship) Update(dt float64) {
	s.elapsed += dt
	s.position = r3.Add(s.position, r3.Scale(dt, s.velocity))

	pitch := s.pitchAmp * math.Sin(s.pitchOmega*s.elapsed)
	roll := s.rollAmp * math.Cos(s.rollOmega*s.elapsed)
	s.attitude = geom.FromYawPitchRoll(s.yaw, pitch, roll)
}

// State returns the current kinematic state.
func (s *Ship) State() State {
	return State{Position: s.position, Velocity: s.velocity, Attitude: s.attitude}
}
