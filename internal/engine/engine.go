// Package engine drives a simulation run: it advances the providers on a
// fixed timestep, triggers chirp synthesis at chirp boundaries and hands the
// samples to a sink.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/iqsim/internal/antenna"
	"github.com/banshee-data/iqsim/internal/clutter"
	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/header"
	"github.com/banshee-data/iqsim/internal/iq"
	"github.com/banshee-data/iqsim/internal/monitoring"
	"github.com/banshee-data/iqsim/internal/physics"
	"github.com/banshee-data/iqsim/internal/platform"
	"github.com/banshee-data/iqsim/internal/sink"
	"github.com/banshee-data/iqsim/internal/target"
	"github.com/banshee-data/iqsim/internal/timeutil"
)

// chirpTolerance absorbs accumulated rounding in the time since the last
// chirp, relative to the chirp duration.
const chirpTolerance = 1e-9

// Settings are the scalar run parameters.
type Settings struct {
	TotalDurationS float64
	TimeStepS      float64
	MaxFlightS     float64
	SaveToFiles    bool
	EmitHeaders    bool
	Waveform       physics.Waveform
	Radar          iq.Radar
	Seed           uint64
	Workers        int
}

func (s Settings) validate() error {
	if !(s.TimeStepS > 0) || math.IsInf(s.TimeStepS, 0) {
		return fmt.Errorf("time_step_s must be positive, got %g", s.TimeStepS)
	}
	if !(s.TotalDurationS >= 0) || math.IsInf(s.TotalDurationS, 0) {
		return fmt.Errorf("total_duration_s must be non-negative, got %g", s.TotalDurationS)
	}
	if err := s.Waveform.Validate(); err != nil {
		return err
	}
	return s.Radar.Validate()
}

// Providers are the models a run is built from. Clutter and Header are
// optional.
type Providers struct {
	Trajectory target.Trajectory
	Platform   platform.Platform
	Antenna    antenna.Antenna
	Clutter    []clutter.Provider
	Header     header.Formatter
}

// SinkFactory opens the output for a run with the given channel count.
type SinkFactory func(channels int) (sink.Sink, error)

// ProgressFunc receives the elapsed and total simulated seconds after every
// tick.
type ProgressFunc func(elapsed, total float64)

// Option configures a Driver.
type Option func(*Driver)

// WithSink sets how the output is opened when saving is enabled.
func WithSink(f SinkFactory) Option { return func(d *Driver) { d.openSink = f } }

// WithRecorder attaches a ground-truth recorder.
func WithRecorder(r Recorder) Option { return func(d *Driver) { d.recorder = r } }

// WithProgress attaches a progress callback.
func WithProgress(f ProgressFunc) Option { return func(d *Driver) { d.progress = f } }

// WithClock sets the clock used for the header time base.
func WithClock(c timeutil.Clock) Option { return func(d *Driver) { d.clock = c } }

// Result summarizes a completed run.
type Result struct {
	Ticks    int
	Chirps   int
	ElapsedS float64
	// ImpactS is the simulated time at which the target went inactive, or
	// -1 if it stayed active for the whole run.
	ImpactS float64
	// Dir is the sink's run directory, empty when nothing was saved.
	Dir string
}

// Driver runs one simulation. It is not safe for concurrent use, and the
// providers it owns advance with every run, so a Driver runs only once.
type Driver struct {
	settings   Settings
	providers  Providers
	calculator physics.Calculator
	synth      *iq.Synthesizer

	openSink SinkFactory
	recorder Recorder
	progress ProgressFunc
	clock    timeutil.Clock

	used bool

	// Timeline state.
	tick       int
	sinceChirp float64
	chirps     int
	impactS    float64
}

// ErrAlreadyRun is returned when a Driver is started twice.
var ErrAlreadyRun = errors.New("engine: driver already ran")

// New checks the providers and settings and prepares the synthesizer. Every
// problem is reported as a config.ErrConfiguration before any output exists.
func New(s Settings, p Providers, opts ...Option) (*Driver, error) {
	switch {
	case p.Trajectory == nil:
		return nil, fmt.Errorf("%w: no trajectory provider", config.ErrConfiguration)
	case p.Platform == nil:
		return nil, fmt.Errorf("%w: no platform provider", config.ErrConfiguration)
	case p.Antenna == nil:
		return nil, fmt.Errorf("%w: no antenna provider", config.ErrConfiguration)
	case s.SaveToFiles && s.EmitHeaders && p.Header == nil:
		return nil, fmt.Errorf("%w: emit_headers is set but no header provider", config.ErrConfiguration)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	synth, err := iq.NewSynthesizer(iq.Config{
		Waveform:   s.Waveform,
		Radar:      s.Radar,
		Geometry:   p.Antenna.Geometry(),
		Trajectory: p.Trajectory,
		Clutter:    p.Clutter,
		Seed:       s.Seed,
		Workers:    s.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
	}

	seed(s.Seed, p)

	d := &Driver{
		settings:   s,
		providers:  p,
		calculator: physics.Calculator{Waveform: s.Waveform},
		synth:      synth,
		clock:      timeutil.RealClock{},
		impactS:    -1,
	}
	d.openSink = func(channels int) (sink.Sink, error) {
		return sink.NewBinarySink(sink.Options{Channels: channels, Clock: d.clock})
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// seed hands the run seed to every provider that draws random numbers. Each
// provider gets its own offset so their streams differ.
func seed(s uint64, p Providers) {
	all := []any{p.Trajectory, p.Platform, p.Antenna}
	for _, c := range p.Clutter {
		all = append(all, c)
	}
	for i, v := range all {
		if sd, ok := v.(antenna.Seeder); ok {
			sd.Seed(s ^ uint64(i+1)<<56)
		}
	}
}

// Synthesizer exposes the channel synthesizer, mainly for inspection tools.
func (d *Driver) Synthesizer() *iq.Synthesizer { return d.synth }

// NumTicks is the number of ticks Run executes: every t = n·dt with
// t ≤ total_duration_s.
func (d *Driver) NumTicks() int {
	return int(math.Floor(d.settings.TotalDurationS/d.settings.TimeStepS+1e-9)) + 1
}

// Run executes the whole timeline. The sink, when saving, is closed on every
// path; a write or recorder failure aborts the run.
func (d *Driver) Run() (res Result, err error) {
	if d.used {
		return Result{}, ErrAlreadyRun
	}
	d.used = true

	var out sink.Sink
	if d.settings.SaveToFiles {
		out, err = d.openSink(d.providers.Antenna.Geometry().NumChannels())
		if err != nil {
			return Result{}, fmt.Errorf("open output: %w", err)
		}
		res.Dir = out.Dir()
		defer func() {
			if cerr := out.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
	}
	headers := d.settings.SaveToFiles && d.settings.EmitHeaders
	if headers {
		d.providers.Header.Start(d.clock.Now(), d.settings.Waveform.ChirpDurationS)
	}

	total := d.settings.TotalDurationS
	ticks := d.NumTicks()
	monitoring.Logf("run: %d ticks of %gs, chirp every %gs, %d channels",
		ticks, d.settings.TimeStepS, d.settings.Waveform.ChirpDurationS, d.synth.Channels())

	for n := 0; n < ticks; n++ {
		if err := d.step(out, headers); err != nil {
			return res, err
		}
		if d.progress != nil {
			d.progress(d.elapsed(), total)
		}
	}

	res.Ticks = d.tick
	res.Chirps = d.chirps
	res.ElapsedS = d.elapsed()
	res.ImpactS = d.impactS
	monitoring.Logf("run: %d chirps synthesized over %.3fs", res.Chirps, res.ElapsedS)
	return res, nil
}

func (d *Driver) elapsed() float64 { return float64(d.tick) * d.settings.TimeStepS }

// advance moves every provider forward one tick and records it.
func (d *Driver) advance() error {
	dt := d.settings.TimeStepS
	p := d.providers
	wasActive := p.Trajectory.Active()

	p.Trajectory.Update(dt)
	p.Platform.Update(dt)
	pl := p.Platform.State()
	p.Antenna.Update(dt, pl.Attitude, p.Trajectory.State().Position, pl.Position)

	now := float64(d.tick+1) * dt
	if wasActive && !p.Trajectory.Active() {
		d.impactS = now
		monitoring.Logf("target inactive at t=%.3fs", d.impactS)
	}

	if d.recorder != nil {
		if err := d.recorder.RecordTick(TickRecord{
			Tick:     d.tick,
			TimeS:    now,
			Target:   p.Trajectory.State(),
			Platform: pl,
			Antenna:  p.Antenna.State(),
		}); err != nil {
			return fmt.Errorf("record tick %d: %w", d.tick, err)
		}
	}
	return nil
}

func (d *Driver) step(out sink.Sink, headers bool) error {
	if err := d.advance(); err != nil {
		return err
	}

	chirp := d.settings.Waveform.ChirpDurationS
	if d.sinceChirp >= chirp*(1-chirpTolerance) {
		if err := d.emitChirp(out, headers); err != nil {
			return err
		}
		d.sinceChirp -= chirp
		d.chirps++
	}

	d.tick++
	d.sinceChirp += d.settings.TimeStepS
	return nil
}

func (d *Driver) emitChirp(out sink.Sink, headers bool) error {
	p := d.providers
	pl := p.Platform.State()
	snap := d.calculator.Compute(d.chirps, p.Trajectory, pl, p.Antenna)

	blocks, err := d.synth.Synthesize(iq.ChirpInput{Snapshot: snap, Platform: pl, Antenna: p.Antenna.State()})
	if err != nil {
		return fmt.Errorf("chirp %d: %w", d.chirps, err)
	}
	monitoring.Debugf("chirp %d: active=%t range=%.1fm beat=%.1fHz", d.chirps, snap.TargetActive, snap.Range, snap.ActiveBeat)

	if d.recorder != nil {
		if err := d.recorder.RecordChirp(ChirpRecord{Sequence: d.chirps, TimeS: float64(d.tick+1) * d.settings.TimeStepS, Snapshot: snap}); err != nil {
			return fmt.Errorf("record chirp %d: %w", d.chirps, err)
		}
	}

	if out == nil {
		return nil
	}
	c := sink.Chirp{Sequence: uint32(d.chirps), Blocks: blocks}
	if headers {
		c.Headers = make([][2][header.Size]byte, len(blocks))
		for i, b := range blocks {
			f := header.Fields{Channel: b.Channel + 1, Mode: b.Mode, Sequence: c.Sequence}
			f.IQ = header.InPhase
			c.Headers[i][header.InPhase] = p.Header.Encode(f)
			f.IQ = header.Quadrature
			c.Headers[i][header.Quadrature] = p.Header.Encode(f)
		}
	}
	if err := out.WriteChirp(c); err != nil {
		return fmt.Errorf("write chirp %d: %w", d.chirps, err)
	}
	return nil
}

// ErrFlightTimeExceeded is returned by FlightTime when the target is still
// active after max_flight_s.
var ErrFlightTimeExceeded = errors.New("engine: target still active at max flight time")

// FlightTime advances the providers, without synthesizing chirps, until the
// target goes inactive and returns the elapsed simulated time.
func (d *Driver) FlightTime() (float64, error) {
	if d.used {
		return 0, ErrAlreadyRun
	}
	d.used = true

	limit := d.settings.MaxFlightS
	if !(limit > 0) {
		limit = 3600
	}
	maxTicks := int(math.Ceil(limit / d.settings.TimeStepS))
	for d.tick < maxTicks {
		if err := d.advance(); err != nil {
			return d.elapsed(), err
		}
		d.tick++
		if d.progress != nil {
			d.progress(d.elapsed(), limit)
		}
		if !d.providers.Trajectory.Active() {
			return d.elapsed(), nil
		}
	}
	return d.elapsed(), fmt.Errorf("%w (%gs)", ErrFlightTimeExceeded, limit)
}
