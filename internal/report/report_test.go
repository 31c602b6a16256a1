package report

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/db"
	"github.com/banshee-data/iqsim/internal/engine"
	"github.com/banshee-data/iqsim/internal/geom"
	"github.com/banshee-data/iqsim/internal/physics"
	"github.com/banshee-data/iqsim/internal/target"
)

func sampleRecorder() *engine.MemoryRecorder {
	rec := &engine.MemoryRecorder{}
	for i := 0; i < 5; i++ {
		tm := float64(i+1) * 0.5
		_ = rec.RecordTick(engine.TickRecord{
			Tick:  i,
			TimeS: tm,
			Target: target.State{
				Position:    r3.Vec{X: 300 * tm, Y: 400 - 10*tm, Z: 400 * tm},
				Orientation: geom.Identity,
				Active:      i < 4,
			},
		})
		if i%2 == 0 {
			_ = rec.RecordChirp(engine.ChirpRecord{
				Sequence: i / 2,
				TimeS:    tm,
				Snapshot: physics.Snapshot{
					Chirp:        i / 2,
					TargetActive: i < 4,
					Range:        1000 + 100*tm,
					DopplerCW:    -2000,
					ActiveBeat:   5000,
				},
			})
		}
	}
	return rec
}

func TestFromRecorder(t *testing.T) {
	run := FromRecorder("unit", sampleRecorder())
	require.Len(t, run.Track, 5)
	require.Len(t, run.Chirps, 3)

	assert.InDelta(t, 250.0, run.Track[0].Downrange, 1e-9, "hypot(150, 200)")
	assert.InDelta(t, 395.0, run.Track[0].Altitude, 1e-9)
	assert.False(t, run.Track[4].Active)

	want := ChirpPoint{Seq: 1, TimeS: 1.5, RangeM: 1150, DopplerCWHz: -2000, ActiveBeatHz: 5000, Active: true}
	if diff := cmp.Diff(want, run.Chirps[1]); diff != "" {
		t.Errorf("chirp mismatch (-want +got):\n%s", diff)
	}
}

func TestFromDB(t *testing.T) {
	store, err := db.NewDB(filepath.Join(t.TempDir(), "iqsim.db"))
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.StartRun(1, []byte(`{}`))
	require.NoError(t, err)
	rec := store.NewRecorder(runID)
	mem := sampleRecorder()
	for _, tk := range mem.Ticks {
		require.NoError(t, rec.RecordTick(tk))
	}
	for _, c := range mem.Chirps {
		require.NoError(t, rec.RecordChirp(c))
	}
	require.NoError(t, rec.Close())

	got, err := FromDB(store, runID)
	require.NoError(t, err)
	want := FromRecorder(runID, mem)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestWritePlots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	paths, err := WritePlots(FromRecorder("unit", sampleRecorder()), dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for _, name := range []string{TrajectoryPlot, RangePlot, FrequencyPlot} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "%s is a PNG", name)
	}
}

func TestWritePlotsWithoutChirps(t *testing.T) {
	run := FromRecorder("flight", sampleRecorder())
	run.Chirps = nil
	paths, err := WritePlots(run, t.TempDir())
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, TrajectoryPlot, filepath.Base(paths[0]))
}

func TestEmptyRun(t *testing.T) {
	_, err := WritePlots(Run{}, t.TempDir())
	assert.True(t, errors.Is(err, ErrEmptyRun))
	assert.True(t, errors.Is(RenderHTML(&bytes.Buffer{}, Run{}), ErrEmptyRun))
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, FromRecorder("unit", sampleRecorder())))
	out := buf.String()
	assert.Contains(t, out, "Target Trajectory")
	assert.Contains(t, out, "Doppler and Beat")
	assert.Contains(t, out, "FMCW beat")
}

func TestHandler(t *testing.T) {
	h := Handler(func(id string) (Run, error) {
		switch id {
		case "good":
			return FromRecorder(id, sampleRecorder()), nil
		case "broken":
			return Run{}, errors.New("disk on fire")
		}
		return Run{}, nil
	})

	tests := []struct {
		query string
		code  int
	}{
		{"", http.StatusBadRequest},
		{"?run_id=good", http.StatusOK},
		{"?run_id=broken", http.StatusInternalServerError},
		{"?run_id=missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(strings.TrimPrefix(tt.query, "?run_id="), func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug/charts"+tt.query, nil))
			assert.Equal(t, tt.code, rr.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
			}
		})
	}
}
