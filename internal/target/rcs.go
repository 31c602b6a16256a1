package target

import (
	"errors"
	"fmt"
	"math"
)

// RCSPoint is one control point of an aspect-angle RCS table.
type RCSPoint struct {
	AngleDeg float64 `json:"angle_deg"`
	RCS      float64 `json:"rcs_m2"`
}

// RCSTable maps aspect angle (degrees off the nose) to RCS in m² by linear
// interpolation between control points and flat extrapolation outside them.
type RCSTable []RCSPoint

// DefaultRCSTable is a slender-body profile: small head-on, peaking broadside.
func DefaultRCSTable() RCSTable {
	return RCSTable{
		{0, 0.01},
		{30, 0.05},
		{60, 0.5},
		{90, 1.0},
		{120, 0.5},
		{150, 0.05},
		{180, 0.02},
	}
}

// Validate requires at least one point, strictly increasing angles and
// non-negative finite values.
func (t RCSTable) Validate() error {
	if len(t) == 0 {
		return errors.New("rcs table must have at least one entry")
	}
	for i, p := range t {
		if math.IsNaN(p.AngleDeg) || math.IsInf(p.AngleDeg, 0) {
			return fmt.Errorf("rcs table entry %d: angle must be finite", i)
		}
		if p.RCS < 0 || math.IsNaN(p.RCS) || math.IsInf(p.RCS, 0) {
			return fmt.Errorf("rcs table entry %d: rcs must be finite and non-negative, got %g", i, p.RCS)
		}
		if i > 0 && p.AngleDeg <= t[i-1].AngleDeg {
			return fmt.Errorf("rcs table angles must be strictly increasing: %g follows %g", p.AngleDeg, t[i-1].AngleDeg)
		}
	}
	return nil
}

// Lookup returns the interpolated RCS at angleDeg. An empty table returns 0.
func (t RCSTable) Lookup(angleDeg float64) float64 {
	if len(t) == 0 {
		return 0
	}
	if angleDeg <= t[0].AngleDeg {
		return t[0].RCS
	}
	last := len(t) - 1
	if angleDeg >= t[last].AngleDeg {
		return t[last].RCS
	}

	i := 0
	for i < last && t[i+1].AngleDeg < angleDeg {
		i++
	}
	lo, hi := t[i], t[i+1]
	if angleDeg == hi.AngleDeg {
		return hi.RCS
	}
	if hi.AngleDeg == lo.AngleDeg {
		return lo.RCS
	}
	frac := (angleDeg - lo.AngleDeg) / (hi.AngleDeg - lo.AngleDeg)
	return lo.RCS + frac*(hi.RCS-lo.RCS)
}
