package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/iqsim/internal/engine"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the runs table.
type Run struct {
	ID          string  `json:"id"`
	CreatedUnix float64 `json:"created_unix"`
	Seed        uint64  `json:"seed"`
	ConfigJSON  string  `json:"config_json"`
	Status      string  `json:"status"`
	Ticks       int     `json:"ticks"`
	Chirps      int     `json:"chirps"`
	ElapsedS    float64 `json:"elapsed_s"`
	ImpactS     float64 `json:"impact_s"`
	OutputDir   string  `json:"output_dir"`
	Error       string  `json:"error,omitempty"`
}

// StartRun inserts a running run and returns its generated ID.
func (db *DB) StartRun(seed uint64, configJSON []byte) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO runs (run_id, seed, config_json, status) VALUES (?, ?, ?, ?)`,
		id, int64(seed), string(configJSON), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the result of a run. A non-nil runErr marks it failed.
func (db *DB) FinishRun(id string, res engine.Result, runErr error) error {
	status, msg := StatusComplete, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	r, err := db.Exec(`UPDATE runs
		SET status = ?, ticks = ?, chirps = ?, elapsed_s = ?, impact_s = ?, output_dir = ?, error = ?
		WHERE run_id = ?`,
		status, res.Ticks, res.Chirps, res.ElapsedS, res.ImpactS, res.Dir, msg, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

const runColumns = `run_id, created_unix, seed, config_json, status,
	COALESCE(ticks, 0), COALESCE(chirps, 0), COALESCE(elapsed_s, 0), COALESCE(impact_s, -1),
	COALESCE(output_dir, ''), COALESCE(error, '')`

func scanRun(s interface{ Scan(...any) error }) (Run, error) {
	var r Run
	var seed int64
	err := s.Scan(&r.ID, &r.CreatedUnix, &seed, &r.ConfigJSON, &r.Status,
		&r.Ticks, &r.Chirps, &r.ElapsedS, &r.ImpactS, &r.OutputDir, &r.Error)
	r.Seed = uint64(seed)
	return r, err
}

// GetRun returns one run.
func (db *DB) GetRun(id string) (Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Runs lists the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_unix DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
