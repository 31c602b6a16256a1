// Package sink persists synthesized chirps: one little-endian int16 file per
// channel and component, or a single parquet table.
package sink

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/iqsim/internal/fsutil"
	"github.com/banshee-data/iqsim/internal/header"
	"github.com/banshee-data/iqsim/internal/iq"
	"github.com/banshee-data/iqsim/internal/security"
	"github.com/banshee-data/iqsim/internal/timeutil"
)

// Chirp is everything persisted for one chirp.
type Chirp struct {
	Sequence uint32
	Blocks   []iq.Block
	// Headers holds the I and Q header for each block, or nil when headers
	// are disabled.
	Headers [][2][header.Size]byte
}

// Sink receives chirps in order. Close must be called on every path and
// flushes everything written.
type Sink interface {
	WriteChirp(c Chirp) error
	Dir() string
	Close() error
}

// Options are shared by every sink.
type Options struct {
	FS fsutil.FileSystem
	// Root is the output directory; the run directory is created beneath it.
	Root string
	// RunName names the run directory. Empty selects a timestamp.
	RunName  string
	Clock    timeutil.Clock
	Channels int
	// Metadata is the run configuration as JSON, stored alongside the samples.
	Metadata []byte
}

func (o *Options) defaults() {
	if o.FS == nil {
		o.FS = fsutil.OSFileSystem{}
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	if o.Root == "" {
		o.Root = "."
	}
}

// runDir creates the run directory and returns it with the start time.
func (o *Options) runDir() (string, time.Time, error) {
	start := o.Clock.Now()
	name := o.RunName
	if name == "" {
		name = start.Format(timeutil.RunDirLayout)
	}
	dir, err := security.RunDirectory(o.Root, name)
	if err != nil {
		return "", start, fmt.Errorf("run directory: %w", err)
	}
	if err := o.FS.MkdirAll(dir, 0o755); err != nil {
		return "", start, fmt.Errorf("create run directory: %w", err)
	}
	return dir, start, nil
}

func checkChirp(c Chirp, channels int) error {
	if len(c.Blocks) != channels {
		return fmt.Errorf("chirp %d has %d blocks, sink expects %d", c.Sequence, len(c.Blocks), channels)
	}
	if c.Headers != nil && len(c.Headers) != len(c.Blocks) {
		return fmt.Errorf("chirp %d has %d headers for %d blocks", c.Sequence, len(c.Headers), len(c.Blocks))
	}
	for _, b := range c.Blocks {
		if len(b.I) != len(b.Q) {
			return fmt.Errorf("chirp %d channel %d: I has %d samples, Q has %d", c.Sequence, b.Channel+1, len(b.I), len(b.Q))
		}
	}
	return nil
}

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("sink: closed")
