package engine

import (
	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/iq"
	"github.com/banshee-data/iqsim/internal/physics"
	"github.com/banshee-data/iqsim/internal/registry"
)

// SettingsFromConfig resolves every scalar run option, applying defaults.
func SettingsFromConfig(c *config.RunConfig) Settings {
	return Settings{
		TotalDurationS: c.GetTotalDurationS(),
		TimeStepS:      c.GetTimeStepS(),
		MaxFlightS:     c.GetMaxFlightS(),
		SaveToFiles:    c.GetSaveToFiles(),
		EmitHeaders:    c.GetEmitHeaders(),
		Waveform: physics.Waveform{
			CWCarrierHz:    c.GetCWCenterFrequencyHz(),
			FMCWStartHz:    c.GetFMCWStartFrequencyHz(),
			BandwidthB1Hz:  c.GetBandwidthB1Hz(),
			BandwidthB2Hz:  c.GetBandwidthB2Hz(),
			ChirpDurationS: c.GetChirpDurationS(),
			SampleRateHz:   c.GetADCSampleRateHz(),
		},
		Radar: iq.Radar{
			TxPowerW:           c.GetTxPowerW(),
			TxGain:             c.GetTxGainLinear(),
			RxGain:             c.GetRxGainLinear(),
			NoiseFigure:        c.GetNoiseFigureLinear(),
			SystemTempK:        c.GetSystemTempK(),
			NoiseBandwidthCWHz: c.GetCWNoiseBandwidthHz(),
		},
		Seed:    c.GetSeed(),
		Workers: c.GetWorkers(),
	}
}

// ProvidersFromConfig builds the configured providers. The header is built
// only when it will be used.
func ProvidersFromConfig(c *config.RunConfig, reg *registry.Registry) (Providers, error) {
	var p Providers
	var err error
	if p.Trajectory, err = reg.BuildTrajectory(c.GetTrajectory()); err != nil {
		return Providers{}, err
	}
	if p.Platform, err = reg.BuildPlatform(c.GetPlatform()); err != nil {
		return Providers{}, err
	}
	if p.Antenna, err = reg.BuildAntenna(c.GetAntenna()); err != nil {
		return Providers{}, err
	}
	if p.Clutter, err = reg.BuildClutter(c.Clutter); err != nil {
		return Providers{}, err
	}
	if c.GetSaveToFiles() && c.GetEmitHeaders() {
		if p.Header, err = reg.BuildHeader(c.GetHeader()); err != nil {
			return Providers{}, err
		}
	}
	return p, nil
}

// FromConfig validates c and builds a Driver from it.
func FromConfig(c *config.RunConfig, reg *registry.Registry, opts ...Option) (*Driver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p, err := ProvidersFromConfig(c, reg)
	if err != nil {
		return nil, err
	}
	return New(SettingsFromConfig(c), p, opts...)
}
