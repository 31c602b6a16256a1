package antenna

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mode is the waveform a receive channel samples.
type Mode int

const (
	ModeCW Mode = iota + 1
	ModeFMCW
)

func (m Mode) String() string {
	switch m {
	case ModeCW:
		return "CW"
	case ModeFMCW:
		return "FMCW"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Geometry is the fixed layout of the array: where it is mounted on the
// platform, its beamwidth, and the element offsets (platform frame, metres)
// split into CW and FMCW channels. Channel i is element i.
type Geometry struct {
	MountOffset  r3.Vec
	BeamwidthRad float64
	Elements     []r3.Vec
	CWChannels   []int
	FMCWChannels []int

	modes []Mode
}

// NewGeometry validates that the CW and FMCW index sets partition the
// elements.
func NewGeometry(mount r3.Vec, beamwidthRad float64, elements []r3.Vec, cw, fmcw []int) (Geometry, error) {
	if len(elements) == 0 {
		return Geometry{}, errors.New("antenna needs at least one element")
	}
	if beamwidthRad < 0 {
		return Geometry{}, fmt.Errorf("beamwidth must be non-negative, got %g", beamwidthRad)
	}
	modes := make([]Mode, len(elements))
	assign := func(idx []int, m Mode) error {
		for _, i := range idx {
			if i < 0 || i >= len(elements) {
				return fmt.Errorf("channel %d out of range [0,%d)", i, len(elements))
			}
			if modes[i] != 0 {
				return fmt.Errorf("channel %d assigned to both %v and %v", i, modes[i], m)
			}
			modes[i] = m
		}
		return nil
	}
	if err := assign(cw, ModeCW); err != nil {
		return Geometry{}, err
	}
	if err := assign(fmcw, ModeFMCW); err != nil {
		return Geometry{}, err
	}
	for i, m := range modes {
		if m == 0 {
			return Geometry{}, fmt.Errorf("channel %d is neither CW nor FMCW", i)
		}
	}

	return Geometry{
		MountOffset:  mount,
		BeamwidthRad: beamwidthRad,
		Elements:     append([]r3.Vec(nil), elements...),
		CWChannels:   append([]int(nil), cw...),
		FMCWChannels: append([]int(nil), fmcw...),
		modes:        modes,
	}, nil
}

// NumChannels is the number of receive elements.
func (g Geometry) NumChannels() int { return len(g.Elements) }

// ChannelMode reports which waveform channel i samples.
func (g Geometry) ChannelMode(i int) Mode {
	if i < 0 || i >= len(g.modes) {
		return 0
	}
	return g.modes[i]
}
