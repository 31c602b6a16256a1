package engine

import (
	"sync"

	"github.com/banshee-data/iqsim/internal/antenna"
	"github.com/banshee-data/iqsim/internal/physics"
	"github.com/banshee-data/iqsim/internal/platform"
	"github.com/banshee-data/iqsim/internal/target"
)

// TickRecord is the ground truth after one tick.
type TickRecord struct {
	Tick     int
	TimeS    float64
	Target   target.State
	Platform platform.State
	Antenna  antenna.State
}

// ChirpRecord is the radar physics of one synthesized chirp.
type ChirpRecord struct {
	Sequence int
	TimeS    float64
	Snapshot physics.Snapshot
}

// Recorder receives ground truth as the run progresses. Returning an error
// aborts the run.
type Recorder interface {
	RecordTick(TickRecord) error
	RecordChirp(ChirpRecord) error
}

// MemoryRecorder keeps every record in memory.
type MemoryRecorder struct {
	mu     sync.Mutex
	Ticks  []TickRecord
	Chirps []ChirpRecord
}

func (m *MemoryRecorder) RecordTick(r TickRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ticks = append(m.Ticks, r)
	return nil
}

func (m *MemoryRecorder) RecordChirp(r ChirpRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Chirps = append(m.Chirps, r)
	return nil
}
