package main

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/engine"
	"github.com/banshee-data/iqsim/internal/fsutil"
	"github.com/banshee-data/iqsim/internal/iq"
	"github.com/banshee-data/iqsim/internal/registry"
	"github.com/banshee-data/iqsim/internal/sink"
)

const scenario = `{
	"total_duration_s": 0.1,
	"time_step_s": 0.01,
	"chirp_duration_s": 0.02,
	"adc_sample_rate_hz": 3200,
	"run_name": "r"
}`

func parse(t *testing.T, body string) (*config.RunConfig, []byte) {
	t.Helper()
	cfg, err := config.ParseRunConfig([]byte(body))
	require.NoError(t, err)
	meta, err := json.Marshal(cfg)
	require.NoError(t, err)
	return cfg, meta
}

// tone is a complex exponential at freq Hz.
func tone(n int, freq, fs float64) iq.Block {
	b := iq.Block{I: make([]int16, n), Q: make([]int16, n)}
	for k := 0; k < n; k++ {
		ph := 2 * math.Pi * freq * float64(k) / fs
		b.I[k] = int16(math.Round(1000 * math.Cos(ph)))
		b.Q[k] = int16(math.Round(1000 * math.Sin(ph)))
	}
	return b
}

func TestInspectTone(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	_, meta := parse(t, scenario)
	s, err := sink.NewBinarySink(sink.Options{FS: fs, Root: "/out", RunName: "tone", Channels: 2, Metadata: meta})
	require.NoError(t, err)
	for seq := 0; seq < 3; seq++ {
		a, b := tone(64, 400, 3200), tone(64, -800, 3200)
		a.Channel, b.Channel = 0, 1
		require.NoError(t, s.WriteChirp(sink.Chirp{Sequence: uint32(seq), Blocks: []iq.Block{a, b}}))
	}
	require.NoError(t, s.Close())

	run, err := loadRun(fs, "/out/tone")
	require.NoError(t, err)
	assert.Equal(t, config.FormatBinary, run.Format)
	require.Len(t, run.Channels, 2)
	assert.Len(t, run.Channels[0].I, 3)

	var buf bytes.Buffer
	require.NoError(t, inspect(&buf, run, 0, -1))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "400.0")
	assert.Contains(t, lines[2], "-800.0")
	// |x|² = 1000² → 60 dB
	assert.Contains(t, lines[1], "60.0")
}

func TestInspectEngineRun(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		format  string
		headers int
	}{
		{"binary", scenario, config.FormatBinary, 0},
		{"binary with headers", strings.Replace(scenario, `"run_name"`, `"emit_headers": true, "run_name"`, 1), config.FormatBinary, 5},
		{"parquet", strings.Replace(scenario, `"run_name"`, `"output_format": "parquet", "run_name"`, 1), config.FormatParquet, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := fsutil.NewMemoryFileSystem()
			cfg, meta := parse(t, tt.body)
			d, err := engine.FromConfig(cfg, registry.Default(), engine.WithSink(func(channels int) (sink.Sink, error) {
				opts := sink.Options{FS: fs, Root: "/out", RunName: cfg.GetRunName(), Channels: channels, Metadata: meta}
				if cfg.GetOutputFormat() == config.FormatParquet {
					return sink.NewParquetSink(opts)
				}
				return sink.NewBinarySink(opts)
			}))
			require.NoError(t, err)
			res, err := d.Run()
			require.NoError(t, err)

			run, err := loadRun(fs, res.Dir)
			require.NoError(t, err)
			assert.Equal(t, tt.format, run.Format)
			require.Len(t, run.Channels, 8)
			for _, cd := range run.Channels {
				assert.Len(t, cd.I, 5)
				assert.Len(t, cd.Q, 5)
				assert.Equal(t, tt.headers, cd.Headers)
			}

			var buf bytes.Buffer
			require.NoError(t, inspect(&buf, run, 3, 0))
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			assert.True(t, strings.HasPrefix(lines[1], "3 "))
		})
	}
}

func TestInspectErrors(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	_, err := loadRun(fs, "/missing")
	assert.Error(t, err)

	_, meta := parse(t, scenario)
	require.NoError(t, fs.MkdirAll("/empty", 0o755))
	w, err := fs.Create("/empty/" + sink.ManifestName)
	require.NoError(t, err)
	_, _ = w.Write(meta)
	require.NoError(t, w.Close())
	_, err = loadRun(fs, "/empty")
	assert.ErrorContains(t, err, "no channel files")

	run := runData{Config: config.EmptyRunConfig(), Channels: []channelData{{Channel: 1}}}
	assert.ErrorContains(t, inspect(&bytes.Buffer{}, run, 4, -1), "channel 4 not found")
}
