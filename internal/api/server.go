// Package api serves recorded runs from the ground-truth database as JSON and
// HTML charts.
package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/iqsim/internal/db"
	"github.com/banshee-data/iqsim/internal/report"
)

// ANSI colours for the request log.
const (
	colorReset     = "\033[0m"
	colorCyan      = "\033[36m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// DefaultRunLimit caps /api/runs when no limit is given.
const DefaultRunLimit = 100

// Server exposes the ground-truth database read-only over HTTP.
type Server struct {
	db *db.DB
}

// NewServer returns a Server reading runs, ticks and chirps from db.
func NewServer(db *db.DB) *Server {
	return &Server{db: db}
}

// statusRecorder remembers the status code a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// statusCodeColor renders code green for 2xx, yellow for 3xx and red for 4xx/5xx.
func statusCodeColor(code int) string {
	text := strconv.Itoa(code)
	var color string
	switch {
	case code >= 400:
		color = colorBoldRed
	case code >= 300:
		color = colorYellow
	case code >= 200:
		color = colorBoldGreen
	default:
		return text
	}
	return color + text + colorReset
}

// LoggingMiddleware writes one log line per request with its status, method,
// URI and elapsed milliseconds.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := float64(time.Since(start).Microseconds()) / 1e3
		log.Printf("[%s] %s %s%s%s %.3fms",
			statusCodeColor(rec.status), r.Method, colorCyan, r.RequestURI, colorReset, elapsed)
	})
}

// ServeMux routes the /api/runs endpoints.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("GET /api/runs/{id}/ticks", s.listTicks)
	mux.HandleFunc("GET /api/runs/{id}/chirps", s.listChirps)
	mux.Handle("GET /api/runs/{id}/charts", s.chartsHandler())
	return mux
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.Runs(limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.db.GetRun(r.PathValue("id"))
	switch {
	case errors.Is(err, db.ErrRunNotFound):
		writeJSONError(w, http.StatusNotFound, "run not found")
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve run: %v", err))
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

// tickJSON is a stored tick with named coordinates.
type tickJSON struct {
	Tick      int        `json:"tick"`
	TimeS     float64    `json:"time_s"`
	Active    bool       `json:"active"`
	Target    [3]float64 `json:"target"`
	Platform  [3]float64 `json:"platform"`
	Boresight [3]float64 `json:"boresight"`
}

func (s *Server) listTicks(w http.ResponseWriter, r *http.Request) {
	ticks, err := s.db.Ticks(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve ticks: %v", err))
		return
	}
	out := make([]tickJSON, len(ticks))
	for i, t := range ticks {
		out[i] = tickJSON{
			Tick:      t.Tick,
			TimeS:     t.TimeS,
			Active:    t.Active,
			Target:    [3]float64{t.Target.X, t.Target.Y, t.Target.Z},
			Platform:  [3]float64{t.Platform.X, t.Platform.Y, t.Platform.Z},
			Boresight: [3]float64{t.Boresight.X, t.Boresight.Y, t.Boresight.Z},
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listChirps(w http.ResponseWriter, r *http.Request) {
	chirps, err := s.db.Chirps(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve chirps: %v", err))
		return
	}
	if chirps == nil {
		chirps = []db.ChirpRow{}
	}
	writeJSON(w, http.StatusOK, chirps)
}

// chartsHandler adapts the report page, which reads the run from ?run_id.
func (s *Server) chartsHandler() http.Handler {
	charts := report.Handler(func(runID string) (report.Run, error) {
		return report.FromDB(s.db, runID)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		q := r2.URL.Query()
		q.Set("run_id", r.PathValue("id"))
		r2.URL.RawQuery = q.Encode()
		charts.ServeHTTP(w, r2)
	})
}
