// Package physics reduces the per-tick states of target, platform and antenna
// to the per-chirp quantities the synthesizer needs: range, radial velocity,
// Doppler and beat frequencies, RCS and pattern gain.
package physics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/antenna"
	"github.com/banshee-data/iqsim/internal/geom"
	"github.com/banshee-data/iqsim/internal/platform"
	"github.com/banshee-data/iqsim/internal/target"
	"github.com/banshee-data/iqsim/internal/units"
)

// Snapshot holds the derived radar quantities for one chirp. It is computed
// once and shared read-only by every channel.
type Snapshot struct {
	Chirp        int
	TargetActive bool

	Range          float64 // m, antenna to target
	RadialVelocity float64 // m/s, positive when opening
	LOS            r3.Vec  // unit, antenna to target, world frame
	RCS            float64 // m²
	Gain           float64 // one-way pattern gain

	DopplerCW   float64
	DopplerFMCW float64 // Doppler at the active sub-chirp carrier
	BeatB1      float64
	BeatB2      float64
	ActiveBeat  float64

	ActiveBandwidthHz float64
	CarrierHz         float64 // active FMCW carrier

	AntennaPosition r3.Vec
	BoresightGlobal r3.Vec
}

// Calculator computes Snapshots for a fixed waveform.
type Calculator struct {
	Waveform Waveform
}

// Compute derives the snapshot for chirp from the current provider states.
// When the target is inactive every target-derived field is zero, the LOS is
// +Z, and the active bandwidth and carrier are still filled in.
func (c Calculator) Compute(chirp int, tr target.Trajectory, pl platform.State, an antenna.Antenna) Snapshot {
	w := c.Waveform
	bw, carrier := w.SubChirp(chirp)
	ant := an.State()

	snap := Snapshot{
		Chirp:             chirp,
		LOS:               geom.UnitZ,
		ActiveBandwidthHz: bw,
		CarrierHz:         carrier,
		AntennaPosition:   r3.Add(pl.Position, geom.Rotate(pl.Attitude, an.Geometry().MountOffset)),
		BoresightGlobal:   ant.BoresightGlobal(pl.Attitude),
	}

	ts := tr.State()
	if !ts.Active {
		return snap
	}
	snap.TargetActive = true

	rel := r3.Sub(ts.Position, snap.AntennaPosition)
	snap.Range = r3.Norm(rel)
	snap.LOS = geom.UnitOr(rel, geom.UnitZ)
	snap.RadialVelocity = r3.Dot(r3.Sub(ts.Velocity, pl.Velocity), snap.LOS)

	aspect := geom.Rotate(geom.Inverse(ts.Orientation), r3.Scale(-1, rel))
	snap.RCS = tr.RCS(aspect)
	snap.Gain = an.Gain(geom.AngleBetween(snap.BoresightGlobal, snap.LOS))

	snap.DopplerCW = Doppler(snap.RadialVelocity, w.CWCarrierHz)

	fc1 := w.FMCWStartHz + w.BandwidthB1Hz/2
	fc2 := w.FMCWStartHz + w.BandwidthB2Hz/2
	snap.BeatB1 = RangeBeat(snap.Range, w.BandwidthB1Hz, w.ChirpDurationS) - Doppler(snap.RadialVelocity, fc1)
	snap.BeatB2 = RangeBeat(snap.Range, w.BandwidthB2Hz, w.ChirpDurationS) - Doppler(snap.RadialVelocity, fc2)

	snap.DopplerFMCW = Doppler(snap.RadialVelocity, carrier)
	if UsesB1(chirp) {
		snap.ActiveBeat = snap.BeatB1
	} else {
		snap.ActiveBeat = snap.BeatB2
	}
	return snap
}

// Doppler returns the two-way Doppler shift 2·v·f/c.
func Doppler(radialVelocity, carrierHz float64) float64 {
	return 2 * radialVelocity * carrierHz / units.SpeedOfLight
}

// RangeBeat returns the FMCW range term 2·R·B/(c·T).
func RangeBeat(rangeM, bandwidthHz, chirpDurationS float64) float64 {
	if chirpDurationS <= 0 {
		return 0
	}
	return 2 * rangeM * bandwidthHz / (units.SpeedOfLight * chirpDurationS)
}
