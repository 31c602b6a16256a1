package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/iqsim/internal/config"
	"github.com/banshee-data/iqsim/internal/db"
	"github.com/banshee-data/iqsim/internal/monitoring"
	"github.com/banshee-data/iqsim/internal/sink"
)

// smallScenario is 11 ticks with a 64-sample chirp every other tick.
const smallScenario = `{
	"total_duration_s": 0.1,
	"time_step_s": 0.01,
	"chirp_duration_s": 0.02,
	"adc_sample_rate_hz": 3200,
	"run_name": "small",
	"seed": 3
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, smallScenario), "0x10", "parquet", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), cfg.GetSeed())
	assert.Equal(t, config.FormatParquet, cfg.GetOutputFormat())
	assert.Equal(t, 2, cfg.GetWorkers())

	cfg, err = loadConfig("", "", "", -1)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRunConfig(), cfg)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		seed   string
		format string
	}{
		{"bad seed", "seven", ""},
		{"bad format", "", "csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig("", tt.seed, tt.format, -1)
			assert.True(t, errors.Is(err, config.ErrConfiguration), "got %v", err)
		})
	}
}

func TestSimulateBinaryWithDatabase(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, smallScenario), "", "", -1)
	require.NoError(t, err)

	store, err := db.NewDB(filepath.Join(t.TempDir(), "iqsim.db"))
	require.NoError(t, err)
	defer store.Close()

	out := t.TempDir()
	plots := filepath.Join(t.TempDir(), "plots")
	res, err := simulate(options{Config: cfg, OutDir: out, DB: store, PlotsDir: plots})
	require.NoError(t, err)

	assert.Equal(t, 11, res.Result.Ticks)
	assert.Equal(t, 5, res.Result.Chirps)
	assert.Equal(t, filepath.Join(out, "small"), res.Result.Dir)
	assert.Len(t, res.Plots, 3)

	entries, err := os.ReadDir(res.Result.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 17, "16 channel files and the manifest")

	run, err := store.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusComplete, run.Status)
	assert.Equal(t, 5, run.Chirps)
	assert.Equal(t, uint64(3), run.Seed)

	ticks, err := store.Ticks(res.RunID)
	require.NoError(t, err)
	assert.Len(t, ticks, 11)
}

func TestSimulateParquetInMemoryPlots(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, smallScenario), "", "parquet", -1)
	require.NoError(t, err)

	out := t.TempDir()
	res, err := simulate(options{Config: cfg, OutDir: out, PlotsDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Len(t, res.Plots, 3)

	data, err := os.ReadFile(filepath.Join(res.Result.Dir, sink.ParquetName))
	require.NoError(t, err)
	chirps, err := sink.ReadParquet(data)
	require.NoError(t, err)
	assert.Len(t, chirps, 5)
}

func TestSimulateFlightTime(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `{"time_step_s": 0.04}`), "", "", -1)
	require.NoError(t, err)

	res, err := simulate(options{Config: cfg, OutDir: t.TempDir(), FlightTime: true})
	require.NoError(t, err)
	assert.InDelta(t, 89.2, res.FlightTimeS, 1e-6)
	assert.Equal(t, 2230, res.Result.Ticks)
	assert.Empty(t, res.Result.Dir, "flight time writes no samples")
}

func TestSimulateFailureMarksRun(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `{"clutter": [{"kind": "snow"}]}`), "", "", -1)
	require.NoError(t, err)

	store, err := db.NewDB(filepath.Join(t.TempDir(), "iqsim.db"))
	require.NoError(t, err)
	defer store.Close()

	res, err := simulate(options{Config: cfg, OutDir: t.TempDir(), DB: store})
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))

	run, err := store.GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)
}

func TestAdminMux(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, smallScenario), "", "", -1)
	require.NoError(t, err)
	store, err := db.NewDB(filepath.Join(t.TempDir(), "iqsim.db"))
	require.NoError(t, err)
	defer store.Close()
	res, err := simulate(options{Config: cfg, OutDir: t.TempDir(), DB: store})
	require.NoError(t, err)

	mux, err := adminMux(store)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []db.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs/"+res.RunID+"/charts", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Target Trajectory")
}

func TestProgressLoggerSteps(t *testing.T) {
	var lines int
	restore := captureLogs(func(string, ...interface{}) { lines++ })
	defer restore()

	p := progressLogger()
	for i := 1; i <= 100; i++ {
		p(float64(i)*0.01, 1)
	}
	assert.Equal(t, 10, lines)
}

func captureLogs(f func(string, ...interface{})) (restore func()) {
	prev := monitoring.Logf
	monitoring.SetLogger(f)
	return func() { monitoring.SetLogger(prev) }
}
