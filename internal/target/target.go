// Package target models the object the radar observes: its kinematics over
// time, its aspect-dependent radar cross section, and the micro-Doppler phase
// modulation produced by its spin.
package target

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is the kinematic state of the target at one tick. The orientation maps
// body vectors to the world frame; body +X is the nose.
type State struct {
	Position    r3.Vec
	Velocity    r3.Vec
	Orientation quat.Number
	Active      bool
}

// Trajectory is implemented by every target model.
//
// Update advances the model by dt seconds and is a no-op once the target is
// inactive. RCS takes the radar-to-target aspect expressed in the target body
// frame. MicroDopplerPhaseNoise returns an n-sample accumulated phase sequence
// drawn from rng and must not mutate the model, so channels may call it
// concurrently with their own rng.
type Trajectory interface {
	Update(dt float64)
	State() State
	Active() bool
	RCS(aspectLocal r3.Vec) float64
	MicroDopplerPhaseNoise(n int, sampleInterval, carrierHz float64, rng *rand.Rand) []float64
}
