// Package antenna models the tracking antenna: a gimbal that points the
// boresight at the target from a mount on the moving platform, its one-way
// gain pattern, and the receive element layout.
package antenna

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/geom"
	"github.com/banshee-data/iqsim/internal/units"
)

// State is the antenna pointing at one tick.
type State struct {
	BoresightPlatform r3.Vec // unit vector, platform frame
	AngularRateGlobal r3.Vec // rad/s, world frame
}

// BoresightGlobal rotates the platform-frame boresight into the world frame.
func (s State) BoresightGlobal(platformAttitude quat.Number) r3.Vec {
	return geom.Rotate(platformAttitude, s.BoresightPlatform)
}

// Antenna is implemented by every antenna model.
type Antenna interface {
	Update(dt float64, platformAttitude quat.Number, targetPos, platformPos r3.Vec)
	State() State
	Gain(offBoresightRad float64) float64
	Geometry() Geometry
}

// Seeder is implemented by models that draw random numbers and accept the
// run seed.
type Seeder interface {
	Seed(seed uint64)
}

// GimbalParams configures the gimbal tracker.
type GimbalParams struct {
	MountOffset         r3.Vec   `json:"mount_offset"`
	BeamwidthDeg        float64  `json:"beamwidth_deg"`
	Elements            []r3.Vec `json:"elements"`
	CWChannels          []int    `json:"cw_channels"`
	FMCWChannels        []int    `json:"fmcw_channels"`
	UseSidelobe         bool     `json:"use_sidelobe"`
	ServoEnabled        bool     `json:"servo_enabled"`
	MaxSlewRateDegPerS  float64  `json:"max_slew_rate_deg_s"`
	TrackingNoiseStdDeg float64  `json:"tracking_noise_std_deg"`
}

// DefaultGimbalParams returns a 10° beam on a 2×4 element array.
func DefaultGimbalParams() GimbalParams {
	return GimbalParams{
		MountOffset:  r3.Vec{Y: 10},
		BeamwidthDeg: 10,
		Elements: []r3.Vec{
			{X: 0.925, Y: 0.225}, {X: 1.075, Y: 0.225},
			{X: 0.925, Y: 0.075}, {X: 1.075, Y: 0.075},
			{X: 0.925, Y: -0.075}, {X: 1.075, Y: -0.075},
			{X: 0.925, Y: -0.225}, {X: 1.075, Y: -0.225},
		},
		CWChannels:          []int{0, 1, 2, 3},
		FMCWChannels:        []int{4, 5, 6, 7},
		MaxSlewRateDegPerS:  60,
		TrackingNoiseStdDeg: 1.1,
	}
}

// Validate checks the numeric fields; layout is checked by NewGeometry.
func (p GimbalParams) Validate() error {
	if p.BeamwidthDeg < 0 || math.IsNaN(p.BeamwidthDeg) {
		return fmt.Errorf("beamwidth_deg must be non-negative, got %g", p.BeamwidthDeg)
	}
	if p.MaxSlewRateDegPerS < 0 {
		return fmt.Errorf("max_slew_rate_deg_s must be non-negative, got %g", p.MaxSlewRateDegPerS)
	}
	if p.TrackingNoiseStdDeg < 0 {
		return fmt.Errorf("tracking_noise_std_deg must be non-negative, got %g", p.TrackingNoiseStdDeg)
	}
	return nil
}

// Gimbal points the boresight at the target each tick. With the servo
// disabled pointing is exact and instantaneous; with it enabled the pointing
// slews at a bounded rate and carries Gaussian tracking jitter.
type Gimbal struct {
	geometry    Geometry
	k           float64
	useSidelobe bool

	servo     bool
	maxSlew   float64
	jitterStd float64
	rng       *rand.Rand

	boresight    r3.Vec
	angularRate  r3.Vec
	prevDir      r3.Vec
	pointing     r3.Vec
	havePointing bool
}

// NewGimbal validates p and returns a gimbal looking along platform +Z.
func NewGimbal(p GimbalParams) (*Gimbal, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	bw := units.DegToRad(p.BeamwidthDeg)
	g, err := NewGeometry(p.MountOffset, bw, p.Elements, p.CWChannels, p.FMCWChannels)
	if err != nil {
		return nil, err
	}

	gm := &Gimbal{
		geometry:    g,
		useSidelobe: p.UseSidelobe,
		servo:       p.ServoEnabled,
		maxSlew:     units.DegToRad(p.MaxSlewRateDegPerS),
		jitterStd:   units.DegToRad(p.TrackingNoiseStdDeg),
		rng:         rand.New(rand.NewPCG(0, 0)),
		boresight:   geom.UnitZ,
		prevDir:     geom.UnitZ,
	}
	if bw > 0 {
		gm.k = 4 * math.Ln2 / (bw * bw)
	}
	return gm, nil
}

// Seed reseeds the tracking jitter stream.
func (g *Gimbal) Seed(seed uint64) {
	g.rng = rand.New(rand.NewPCG(seed, 0x616e74656e6e61))
}

// Update re-points the antenna at targetPos from the mount on a platform at
// platformPos with the given attitude.
func (g *Gimbal) Update(dt float64, platformAttitude quat.Number, targetPos, platformPos r3.Vec) {
	mount := r3.Add(platformPos, geom.Rotate(platformAttitude, g.geometry.MountOffset))
	dir := geom.UnitOr(r3.Sub(targetPos, mount), g.prevDir)

	pointing := dir
	if g.servo {
		pointing = g.slew(dt, platformAttitude, dir)
	}
	g.boresight = geom.Rotate(geom.Inverse(platformAttitude), pointing)

	if dt > 0 {
		axis := r3.Cross(g.prevDir, dir)
		angle := geom.AngleBetween(g.prevDir, dir)
		if r3.Norm2(axis) > 0 {
			g.angularRate = r3.Scale(angle/dt, r3.Unit(axis))
		} else {
			g.angularRate = r3.Vec{}
		}
		g.prevDir = dir
	} else {
		g.angularRate = r3.Vec{}
	}
}

// slew turns the mechanical pointing toward want by at most maxSlew·dt and
// returns it with jitter applied. The jitter is not fed back into the servo.
func (g *Gimbal) slew(dt float64, att quat.Number, want r3.Vec) r3.Vec {
	if !g.havePointing {
		g.pointing = geom.Rotate(att, g.boresight)
		g.havePointing = true
	}

	step := g.maxSlew * dt
	angle := geom.AngleBetween(g.pointing, want)
	if g.maxSlew == 0 || angle <= step {
		g.pointing = want
	} else {
		axis := r3.Cross(g.pointing, want)
		if r3.Norm2(axis) < 1e-18 {
			axis = perpendicular(g.pointing)
		}
		g.pointing = geom.UnitOr(geom.Rotate(geom.AxisAngle(axis, step), g.pointing), want)
	}

	if g.jitterStd == 0 {
		return g.pointing
	}
	u1 := perpendicular(g.pointing)
	u2 := r3.Cross(g.pointing, u1)
	q := quat.Mul(geom.AxisAngle(u1, g.rng.NormFloat64()*g.jitterStd),
		geom.AxisAngle(u2, g.rng.NormFloat64()*g.jitterStd))
	return geom.UnitOr(geom.Rotate(q, g.pointing), g.pointing)
}

// perpendicular returns a unit vector orthogonal to v.
func perpendicular(v r3.Vec) r3.Vec {
	ref := geom.UnitY
	if math.Abs(r3.Dot(geom.UnitOr(v, geom.UnitZ), ref)) > 0.9 {
		ref = geom.UnitX
	}
	return r3.Unit(r3.Cross(v, ref))
}

// State returns the current pointing.
func (g *Gimbal) State() State {
	return State{BoresightPlatform: g.boresight, AngularRateGlobal: g.angularRate}
}

// Gain returns the one-way power gain at offBoresightRad. The default pattern
// is Gaussian and falls to 0.5 at half the beamwidth; the sidelobe pattern is
// |sin(kθ)/(kθ)|.
func (g *Gimbal) Gain(offBoresightRad float64) float64 {
	if g.useSidelobe {
		x := g.k * offBoresightRad
		if x == 0 {
			return 1
		}
		return math.Abs(math.Sin(x) / x)
	}
	if g.k == 0 {
		return 1
	}
	return math.Exp(-g.k * offBoresightRad * offBoresightRad)
}

// Geometry returns the array layout.
func (g *Gimbal) Geometry() Geometry { return g.geometry }
