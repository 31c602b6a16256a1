// Package report renders plots of a recorded run's ground truth.
package report

import (
	"math"

	"github.com/banshee-data/iqsim/internal/db"
	"github.com/banshee-data/iqsim/internal/engine"
)

// TrackPoint is one tick of target motion.
type TrackPoint struct {
	TimeS     float64
	Downrange float64 // horizontal distance from the origin, m
	Altitude  float64 // m
	Active    bool
}

// ChirpPoint is the radar view of one chirp.
type ChirpPoint struct {
	Seq            int
	TimeS          float64
	RangeM         float64
	RadialVelocity float64
	DopplerCWHz    float64
	ActiveBeatHz   float64
	Active         bool
}

// Run is the data a report is drawn from.
type Run struct {
	Name   string
	Track  []TrackPoint
	Chirps []ChirpPoint
}

func downrange(x, z float64) float64 {
	return math.Hypot(x, z)
}

// FromRecorder collects a run held in memory.
func FromRecorder(name string, rec *engine.MemoryRecorder) Run {
	run := Run{Name: name}
	for _, t := range rec.Ticks {
		p := t.Target.Position
		run.Track = append(run.Track, TrackPoint{
			TimeS:     t.TimeS,
			Downrange: downrange(p.X, p.Z),
			Altitude:  p.Y,
			Active:    t.Target.Active,
		})
	}
	for _, c := range rec.Chirps {
		s := c.Snapshot
		run.Chirps = append(run.Chirps, ChirpPoint{
			Seq:            c.Sequence,
			TimeS:          c.TimeS,
			RangeM:         s.Range,
			RadialVelocity: s.RadialVelocity,
			DopplerCWHz:    s.DopplerCW,
			ActiveBeatHz:   s.ActiveBeat,
			Active:         s.TargetActive,
		})
	}
	return run
}

// FromDB loads a stored run.
func FromDB(store *db.DB, runID string) (Run, error) {
	ticks, err := store.Ticks(runID)
	if err != nil {
		return Run{}, err
	}
	chirps, err := store.Chirps(runID)
	if err != nil {
		return Run{}, err
	}

	run := Run{Name: runID}
	for _, t := range ticks {
		run.Track = append(run.Track, TrackPoint{
			TimeS:     t.TimeS,
			Downrange: downrange(t.Target.X, t.Target.Z),
			Altitude:  t.Target.Y,
			Active:    t.Active,
		})
	}
	for _, c := range chirps {
		run.Chirps = append(run.Chirps, ChirpPoint{
			Seq:            c.Seq,
			TimeS:          c.TimeS,
			RangeM:         c.RangeM,
			RadialVelocity: c.RadialVelocity,
			DopplerCWHz:    c.DopplerCWHz,
			ActiveBeatHz:   c.ActiveBeatHz,
			Active:         c.Active,
		})
	}
	return run, nil
}
