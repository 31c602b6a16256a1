// Package config loads and validates the run configuration: simulation
// timing, waveform, radar constants and the provider selections.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical run defaults file.
const DefaultConfigPath = "config/run.defaults.json"

// ErrConfiguration marks every error caused by an invalid or incomplete run
// configuration. Callers test for it with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// Output formats.
const (
	FormatBinary  = "bin"
	FormatParquet = "parquet"
)

// ProviderConfig selects a provider implementation by kind. Params are decoded
// by the registry into the kind's own parameter type.
type ProviderConfig struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// RunConfig is the root run configuration. Omitted fields fall back to the
// defaults returned by the Get* accessors.
type RunConfig struct {
	// Timeline
	TotalDurationS *float64 `json:"total_duration_s,omitempty"`
	TimeStepS      *float64 `json:"time_step_s,omitempty"`
	MaxFlightS     *float64 `json:"max_flight_s,omitempty"`

	// Output
	SaveToFiles  *bool   `json:"save_to_files,omitempty"`
	EmitHeaders  *bool   `json:"emit_headers,omitempty"`
	OutputFormat *string `json:"output_format,omitempty"`
	RunName      *string `json:"run_name,omitempty"`

	// Waveform
	CWCenterFrequencyHz  *float64 `json:"cw_center_frequency_hz,omitempty"`
	FMCWStartFrequencyHz *float64 `json:"fmcw_start_frequency_hz,omitempty"`
	BandwidthB1Hz        *float64 `json:"bandwidth_b1_hz,omitempty"`
	BandwidthB2Hz        *float64 `json:"bandwidth_b2_hz,omitempty"`
	ChirpDurationS       *float64 `json:"chirp_duration_s,omitempty"`
	ADCSampleRateHz      *float64 `json:"adc_sample_rate_hz,omitempty"`

	// Radar range equation and receiver
	TxGainLinear       *float64 `json:"tx_gain_linear,omitempty"`
	RxGainLinear       *float64 `json:"rx_gain_linear,omitempty"`
	TxPowerW           *float64 `json:"tx_power_w,omitempty"`
	NoiseFigureLinear  *float64 `json:"noise_figure_linear,omitempty"`
	SystemTempK        *float64 `json:"system_temp_k,omitempty"`
	CWNoiseBandwidthHz *float64 `json:"cw_noise_bandwidth_hz,omitempty"`

	// Execution
	Seed    *uint64 `json:"seed,omitempty"`
	Workers *int    `json:"workers,omitempty"`

	// Providers
	Trajectory *ProviderConfig  `json:"trajectory,omitempty"`
	Platform   *ProviderConfig  `json:"platform,omitempty"`
	Antenna    *ProviderConfig  `json:"antenna,omitempty"`
	Header     *ProviderConfig  `json:"header,omitempty"`
	Clutter    []ProviderConfig `json:"clutter,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }

// EmptyRunConfig returns a RunConfig with all fields nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a fully populated configuration with the stock
// ballistic, ship and gimbal providers and no clutter.
func DefaultRunConfig() *RunConfig {
	c := EmptyRunConfig()
	c.TotalDurationS = ptrFloat64(c.GetTotalDurationS())
	c.TimeStepS = ptrFloat64(c.GetTimeStepS())
	c.MaxFlightS = ptrFloat64(c.GetMaxFlightS())
	c.SaveToFiles = ptrBool(c.GetSaveToFiles())
	c.EmitHeaders = ptrBool(c.GetEmitHeaders())
	c.OutputFormat = ptrString(c.GetOutputFormat())
	c.RunName = ptrString(c.GetRunName())
	c.CWCenterFrequencyHz = ptrFloat64(c.GetCWCenterFrequencyHz())
	c.FMCWStartFrequencyHz = ptrFloat64(c.GetFMCWStartFrequencyHz())
	c.BandwidthB1Hz = ptrFloat64(c.GetBandwidthB1Hz())
	c.BandwidthB2Hz = ptrFloat64(c.GetBandwidthB2Hz())
	c.ChirpDurationS = ptrFloat64(c.GetChirpDurationS())
	c.ADCSampleRateHz = ptrFloat64(c.GetADCSampleRateHz())
	c.TxGainLinear = ptrFloat64(c.GetTxGainLinear())
	c.RxGainLinear = ptrFloat64(c.GetRxGainLinear())
	c.TxPowerW = ptrFloat64(c.GetTxPowerW())
	c.NoiseFigureLinear = ptrFloat64(c.GetNoiseFigureLinear())
	c.SystemTempK = ptrFloat64(c.GetSystemTempK())
	c.CWNoiseBandwidthHz = ptrFloat64(c.GetCWNoiseBandwidthHz())
	c.Seed = ptrUint64(c.GetSeed())
	c.Workers = ptrInt(c.GetWorkers())
	traj, plat, ant, hdr := c.GetTrajectory(), c.GetPlatform(), c.GetAntenna(), c.GetHeader()
	c.Trajectory, c.Platform, c.Antenna, c.Header = &traj, &plat, &ant, &hdr
	return c
}

// LoadRunConfig loads a RunConfig from a JSON or YAML file. The file must be
// under 1MB. Fields omitted from the file keep their defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("%w: config file must have .json, .yaml or .yml extension, got %q", ErrConfiguration, ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrConfiguration, fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if ext != ".json" {
		if data, err = yamlToJSON(data); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config YAML: %v", ErrConfiguration, err)
		}
	}
	return ParseRunConfig(data)
}

// ParseRunConfig decodes and validates a JSON run configuration. Unknown
// fields are rejected so that typos do not silently fall back to defaults.
func ParseRunConfig(data []byte) (*RunConfig, error) {
	cfg := EmptyRunConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config JSON: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// yamlToJSON re-encodes a YAML document as JSON so that provider params end up
// as raw JSON regardless of the source format.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return json.Marshal(doc)
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. It panics if the file
// cannot be loaded and is intended for test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that every set value is usable. Errors wrap ErrConfiguration.
func (c *RunConfig) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

func (c *RunConfig) validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"total_duration_s", c.TotalDurationS},
		{"time_step_s", c.TimeStepS},
		{"max_flight_s", c.MaxFlightS},
		{"cw_center_frequency_hz", c.CWCenterFrequencyHz},
		{"fmcw_start_frequency_hz", c.FMCWStartFrequencyHz},
		{"bandwidth_b1_hz", c.BandwidthB1Hz},
		{"bandwidth_b2_hz", c.BandwidthB2Hz},
		{"chirp_duration_s", c.ChirpDurationS},
		{"adc_sample_rate_hz", c.ADCSampleRateHz},
	}
	for _, p := range positive {
		if p.v != nil && !(*p.v > 0 && !math.IsInf(*p.v, 0)) {
			return fmt.Errorf("%s must be positive, got %g", p.name, *p.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"tx_gain_linear", c.TxGainLinear},
		{"rx_gain_linear", c.RxGainLinear},
		{"tx_power_w", c.TxPowerW},
		{"noise_figure_linear", c.NoiseFigureLinear},
		{"system_temp_k", c.SystemTempK},
		{"cw_noise_bandwidth_hz", c.CWNoiseBandwidthHz},
	}
	for _, p := range nonNegative {
		if p.v != nil && !(*p.v >= 0 && !math.IsInf(*p.v, 0)) {
			return fmt.Errorf("%s must be non-negative, got %g", p.name, *p.v)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if f := c.GetOutputFormat(); f != FormatBinary && f != FormatParquet {
		return fmt.Errorf("output_format must be %q or %q, got %q", FormatBinary, FormatParquet, f)
	}

	// The ADC must produce a whole number of samples per chirp.
	samples := c.GetChirpDurationS() * c.GetADCSampleRateHz()
	if math.Abs(samples-math.Round(samples)) > 1e-6 || math.Round(samples) < 1 {
		return fmt.Errorf("chirp_duration_s * adc_sample_rate_hz must be a positive integer, got %g", samples)
	}
	if c.GetTimeStepS() > c.GetTotalDurationS() {
		return fmt.Errorf("time_step_s (%g) exceeds total_duration_s (%g)", c.GetTimeStepS(), c.GetTotalDurationS())
	}

	for name, p := range map[string]*ProviderConfig{
		"trajectory": c.Trajectory,
		"platform":   c.Platform,
		"antenna":    c.Antenna,
		"header":     c.Header,
	} {
		if p != nil && p.Kind == "" {
			return fmt.Errorf("%s.kind must be set", name)
		}
	}
	for i, p := range c.Clutter {
		if p.Kind == "" {
			return fmt.Errorf("clutter[%d].kind must be set", i)
		}
	}
	return nil
}

// GetTotalDurationS returns total_duration_s or the default.
func (c *RunConfig) GetTotalDurationS() float64 {
	if c.TotalDurationS == nil {
		return 2.0
	}
	return *c.TotalDurationS
}

// GetTimeStepS returns time_step_s or the default.
func (c *RunConfig) GetTimeStepS() float64 {
	if c.TimeStepS == nil {
		return 0.01
	}
	return *c.TimeStepS
}

// GetMaxFlightS returns max_flight_s or the default used to bound flight-time
// runs.
func (c *RunConfig) GetMaxFlightS() float64 {
	if c.MaxFlightS == nil {
		return 3600
	}
	return *c.MaxFlightS
}

// GetSaveToFiles returns save_to_files or the default.
func (c *RunConfig) GetSaveToFiles() bool {
	if c.SaveToFiles == nil {
		return true
	}
	return *c.SaveToFiles
}

// GetEmitHeaders returns emit_headers or the default.
func (c *RunConfig) GetEmitHeaders() bool {
	if c.EmitHeaders == nil {
		return false
	}
	return *c.EmitHeaders
}

// GetOutputFormat returns output_format or the default.
func (c *RunConfig) GetOutputFormat() string {
	if c.OutputFormat == nil || *c.OutputFormat == "" {
		return FormatBinary
	}
	return *c.OutputFormat
}

// GetRunName returns run_name. Empty means a timestamped directory.
func (c *RunConfig) GetRunName() string {
	if c.RunName == nil {
		return ""
	}
	return *c.RunName
}

func (c *RunConfig) GetCWCenterFrequencyHz() float64 {
	if c.CWCenterFrequencyHz == nil {
		return 10.450e9
	}
	return *c.CWCenterFrequencyHz
}

func (c *RunConfig) GetFMCWStartFrequencyHz() float64 {
	if c.FMCWStartFrequencyHz == nil {
		return 10.500e9
	}
	return *c.FMCWStartFrequencyHz
}

func (c *RunConfig) GetBandwidthB1Hz() float64 {
	if c.BandwidthB1Hz == nil {
		return 10e6
	}
	return *c.BandwidthB1Hz
}

func (c *RunConfig) GetBandwidthB2Hz() float64 {
	if c.BandwidthB2Hz == nil {
		return 15e6
	}
	return *c.BandwidthB2Hz
}

// GetChirpDurationS returns chirp_duration_s or the default of 40 ms.
func (c *RunConfig) GetChirpDurationS() float64 {
	if c.ChirpDurationS == nil {
		return 0.040
	}
	return *c.ChirpDurationS
}

func (c *RunConfig) GetADCSampleRateHz() float64 {
	if c.ADCSampleRateHz == nil {
		return 1e6
	}
	return *c.ADCSampleRateHz
}

// GetTxGainLinear returns tx_gain_linear or the default (30 dBi).
func (c *RunConfig) GetTxGainLinear() float64 {
	if c.TxGainLinear == nil {
		return 100
	}
	return *c.TxGainLinear
}

// GetRxGainLinear returns rx_gain_linear or the default (30 dBi).
func (c *RunConfig) GetRxGainLinear() float64 {
	if c.RxGainLinear == nil {
		return 100
	}
	return *c.RxGainLinear
}

func (c *RunConfig) GetTxPowerW() float64 {
	if c.TxPowerW == nil {
		return 1
	}
	return *c.TxPowerW
}

// GetNoiseFigureLinear returns noise_figure_linear or the default (2 dB).
func (c *RunConfig) GetNoiseFigureLinear() float64 {
	if c.NoiseFigureLinear == nil {
		return 1.58
	}
	return *c.NoiseFigureLinear
}

func (c *RunConfig) GetSystemTempK() float64 {
	if c.SystemTempK == nil {
		return 290
	}
	return *c.SystemTempK
}

func (c *RunConfig) GetCWNoiseBandwidthHz() float64 {
	if c.CWNoiseBandwidthHz == nil {
		return 1000
	}
	return *c.CWNoiseBandwidthHz
}

// GetSeed returns seed or the default.
func (c *RunConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

// GetWorkers returns workers. 0 means one per CPU.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetTrajectory returns the trajectory selection or the ballistic default.
func (c *RunConfig) GetTrajectory() ProviderConfig {
	if c.Trajectory == nil {
		return ProviderConfig{Kind: "ballistic"}
	}
	return *c.Trajectory
}

// GetPlatform returns the platform selection or the ship default.
func (c *RunConfig) GetPlatform() ProviderConfig {
	if c.Platform == nil {
		return ProviderConfig{Kind: "ship"}
	}
	return *c.Platform
}

// GetAntenna returns the antenna selection or the gimbal default.
func (c *RunConfig) GetAntenna() ProviderConfig {
	if c.Antenna == nil {
		return ProviderConfig{Kind: "gimbal"}
	}
	return *c.Antenna
}

// GetHeader returns the header selection or the Doppler default.
func (c *RunConfig) GetHeader() ProviderConfig {
	if c.Header == nil {
		return ProviderConfig{Kind: "doppler"}
	}
	return *c.Header
}
