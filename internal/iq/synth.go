// Package iq synthesizes the quantized baseband I/Q samples of every receive
// channel for one chirp: target echo with array phase and micro-Doppler, the
// sum of the configured clutter, and thermal noise.
package iq

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/antenna"
	"github.com/banshee-data/iqsim/internal/clutter"
	"github.com/banshee-data/iqsim/internal/geom"
	"github.com/banshee-data/iqsim/internal/physics"
	"github.com/banshee-data/iqsim/internal/platform"
	"github.com/banshee-data/iqsim/internal/target"
	"github.com/banshee-data/iqsim/internal/units"
)

// Radar holds the transmitter and receiver constants.
type Radar struct {
	TxPowerW           float64
	TxGain             float64
	RxGain             float64
	NoiseFigure        float64
	SystemTempK        float64
	NoiseBandwidthCWHz float64
}

// Validate rejects negative or non-finite values.
func (r Radar) Validate() error {
	for name, v := range map[string]float64{
		"tx_power_w":            r.TxPowerW,
		"tx_gain_linear":        r.TxGain,
		"rx_gain_linear":        r.RxGain,
		"noise_figure_linear":   r.NoiseFigure,
		"system_temp_k":         r.SystemTempK,
		"cw_noise_bandwidth_hz": r.NoiseBandwidthCWHz,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite and non-negative, got %g", name, v)
		}
	}
	return nil
}

// NoiseStd is the per-component thermal noise standard deviation for a
// receiver bandwidth equal to the ADC sample rate.
func (r Radar) NoiseStd(sampleRateHz float64) float64 {
	return math.Sqrt(units.Boltzmann * r.SystemTempK * sampleRateHz * r.NoiseFigure)
}

// Block is one channel's quantized samples for one chirp.
type Block struct {
	Channel int
	Mode    antenna.Mode
	I       []int16
	Q       []int16
}

// Streams are the random sources owned by one channel. Noise also feeds the
// micro-Doppler walk; Clutter feeds every clutter provider.
type Streams struct {
	Noise   *rand.Rand
	Clutter *rand.Rand
}

// NewStreams derives independent per-channel streams from the run seed.
func NewStreams(seed uint64, channels int) []Streams {
	out := make([]Streams, channels)
	for ch := range out {
		out[ch] = Streams{
			Noise:   rand.New(rand.NewPCG(seed, uint64(2*ch))),
			Clutter: rand.New(rand.NewPCG(seed, uint64(2*ch+1))),
		}
	}
	return out
}

// ChirpInput is everything that varies per chirp.
type ChirpInput struct {
	Snapshot physics.Snapshot
	Platform platform.State
	Antenna  antenna.State
}

// Config wires a Synthesizer.
type Config struct {
	Waveform   physics.Waveform
	Radar      Radar
	Geometry   antenna.Geometry
	Trajectory target.Trajectory
	Clutter    []clutter.Provider
	Seed       uint64
	// Workers bounds concurrent channel synthesis; 0 means GOMAXPROCS.
	Workers int
}

// Synthesizer produces one Block per channel per chirp. Streams persist across
// chirps, so output is a deterministic function of the seed regardless of
// worker scheduling.
type Synthesizer struct {
	waveform   physics.Waveform
	radar      Radar
	geometry   antenna.Geometry
	trajectory target.Trajectory
	clutter    []clutter.Provider
	streams    []Streams
	workers    int
}

// NewSynthesizer validates cfg.
func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	if cfg.Trajectory == nil {
		return nil, errors.New("synthesizer needs a trajectory")
	}
	if cfg.Geometry.NumChannels() == 0 {
		return nil, errors.New("synthesizer needs at least one channel")
	}
	if err := cfg.Waveform.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Radar.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Synthesizer{
		waveform:   cfg.Waveform,
		radar:      cfg.Radar,
		geometry:   cfg.Geometry,
		trajectory: cfg.Trajectory,
		clutter:    cfg.Clutter,
		streams:    NewStreams(cfg.Seed, cfg.Geometry.NumChannels()),
		workers:    workers,
	}, nil
}

// Channels is the number of receive channels.
func (s *Synthesizer) Channels() int { return s.geometry.NumChannels() }

// FullScale is the ADC full-scale amplitude.
func (s *Synthesizer) FullScale() float64 {
	return FullScaleSigma * s.radar.NoiseStd(s.waveform.SampleRateHz)
}

// Synthesize generates every channel for one chirp. All channels complete
// before it returns.
func (s *Synthesizer) Synthesize(in ChirpInput) ([]Block, error) {
	blocks := make([]Block, s.geometry.NumChannels())

	var g errgroup.Group
	g.SetLimit(s.workers)
	for ch := range blocks {
		g.Go(func() error {
			b, err := s.channel(ch, &in)
			if err != nil {
				return fmt.Errorf("channel %d: %w", ch+1, err)
			}
			blocks[ch] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *Synthesizer) channel(ch int, in *ChirpInput) (Block, error) {
	w := s.waveform
	snap := &in.Snapshot
	n := w.NumSamples()
	dt := w.SampleInterval()
	st := s.streams[ch]
	mode := s.geometry.ChannelMode(ch)

	beat, carrier := snap.ActiveBeat, snap.CarrierHz
	if mode == antenna.ModeCW {
		beat, carrier = snap.DopplerCW, w.CWCarrierHz
	}
	lambda := units.Wavelength(carrier)

	// Target echo.
	var amplitude, phase0 float64
	var microDoppler []float64
	if snap.TargetActive {
		power := clutter.ReceivedPower(s.radar.TxPowerW, s.radar.TxGain, s.radar.RxGain,
			snap.RCS, snap.Gain, lambda, snap.Range)
		amplitude = math.Sqrt(2 * power)

		element := geom.Rotate(in.Platform.Attitude, s.geometry.Elements[ch])
		path := r3.Dot(element, snap.LOS)
		phase0 = -4*math.Pi*snap.Range*carrier/units.SpeedOfLight -
			4*math.Pi*carrier*path/units.SpeedOfLight
		microDoppler = s.trajectory.MicroDopplerPhaseNoise(n, dt, carrier, st.Noise)
		if len(microDoppler) != n {
			return Block{}, fmt.Errorf("micro-Doppler returned %d samples, want %d", len(microDoppler), n)
		}
	}

	// Clutter.
	var sum []complex128
	if len(s.clutter) > 0 {
		ctx := &clutter.RadarContext{
			Platform:         in.Platform,
			Antenna:          in.Antenna,
			Geometry:         s.geometry,
			BoresightGlobal:  snap.BoresightGlobal,
			AntennaPosition:  snap.AntennaPosition,
			CarrierHz:        carrier,
			NoiseBandwidthHz: s.radar.NoiseBandwidthCWHz,
			ChirpDurationS:   w.ChirpDurationS,
			SampleRateHz:     w.SampleRateHz,
			NumSamples:       n,
			Channel:          ch,
			Reference:        clutter.CalibrationReference(s.radar.TxPowerW, s.radar.TxGain, s.radar.RxGain, carrier),
		}
		sum = make([]complex128, n)
		for _, p := range s.clutter {
			c := p.Generate(ctx, st.Clutter)
			if len(c) != n {
				return Block{}, fmt.Errorf("clutter %q returned %d samples, want %d", p.Name(), len(c), n)
			}
			for i, v := range c {
				sum[i] += v
			}
		}
	}

	noiseStd := s.radar.NoiseStd(w.SampleRateHz)
	fullScale := FullScaleSigma * noiseStd

	b := Block{Channel: ch, Mode: mode, I: make([]int16, n), Q: make([]int16, n)}
	for i := 0; i < n; i++ {
		var re, im float64
		if snap.TargetActive {
			phase := 2*math.Pi*beat*float64(i)*dt + phase0 + microDoppler[i]
			sin, cos := math.Sincos(phase)
			re, im = amplitude*cos, amplitude*sin
		}
		if sum != nil {
			re += real(sum[i])
			im += imag(sum[i])
		}
		if noiseStd > 0 {
			re += st.Noise.NormFloat64() * noiseStd
			im += st.Noise.NormFloat64() * noiseStd
		}
		b.I[i] = Quantize(re, fullScale)
		b.Q[i] = Quantize(im, fullScale)
	}
	return b, nil
}
