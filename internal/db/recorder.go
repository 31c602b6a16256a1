package db

import (
	"database/sql"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/iqsim/internal/engine"
)

// recorderBatch is the number of rows written per transaction.
const recorderBatch = 1000

// Recorder writes ground truth for one run. It buffers rows in a transaction
// and commits every recorderBatch rows; Close commits the remainder.
type Recorder struct {
	db      *DB
	runID   string
	tx      *sql.Tx
	tickSt  *sql.Stmt
	chirpSt *sql.Stmt
	pending int
}

// NewRecorder returns a Recorder for runID.
func (db *DB) NewRecorder(runID string) *Recorder {
	return &Recorder{db: db, runID: runID}
}

func (r *Recorder) begin() error {
	if r.tx != nil {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	tickSt, err := tx.Prepare(`INSERT INTO ticks (
		run_id, tick, time_s, target_active,
		target_x, target_y, target_z, target_vx, target_vy, target_vz,
		platform_x, platform_y, platform_z,
		attitude_w, attitude_x, attitude_y, attitude_z,
		boresight_x, boresight_y, boresight_z
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare ticks: %w", err)
	}
	chirpSt, err := tx.Prepare(`INSERT INTO chirps (
		run_id, seq, time_s, target_active, range_m, radial_velocity, rcs_m2, gain,
		doppler_cw_hz, beat_b1_hz, beat_b2_hz, active_beat_hz, carrier_hz
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare chirps: %w", err)
	}
	r.tx, r.tickSt, r.chirpSt = tx, tickSt, chirpSt
	return nil
}

func (r *Recorder) written() error {
	r.pending++
	if r.pending >= recorderBatch {
		return r.Flush()
	}
	return nil
}

func (r *Recorder) RecordTick(t engine.TickRecord) error {
	if err := r.begin(); err != nil {
		return err
	}
	tp, tv, pp := t.Target.Position, t.Target.Velocity, t.Platform.Position
	att := t.Platform.Attitude
	b := t.Antenna.BoresightPlatform
	if _, err := r.tickSt.Exec(r.runID, t.Tick, t.TimeS, t.Target.Active,
		tp.X, tp.Y, tp.Z, tv.X, tv.Y, tv.Z,
		pp.X, pp.Y, pp.Z,
		att.Real, att.Imag, att.Jmag, att.Kmag,
		b.X, b.Y, b.Z,
	); err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return r.written()
}

func (r *Recorder) RecordChirp(c engine.ChirpRecord) error {
	if err := r.begin(); err != nil {
		return err
	}
	s := c.Snapshot
	if _, err := r.chirpSt.Exec(r.runID, c.Sequence, c.TimeS, s.TargetActive,
		s.Range, s.RadialVelocity, s.RCS, s.Gain,
		s.DopplerCW, s.BeatB1, s.BeatB2, s.ActiveBeat, s.CarrierHz,
	); err != nil {
		return fmt.Errorf("insert chirp: %w", err)
	}
	return r.written()
}

// Flush commits buffered rows.
func (r *Recorder) Flush() error {
	if r.tx == nil {
		return nil
	}
	tx := r.tx
	r.tx, r.pending = nil, 0
	r.tickSt.Close()
	r.chirpSt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ground truth: %w", err)
	}
	return nil
}

// Close commits any remaining rows.
func (r *Recorder) Close() error { return r.Flush() }

// TickRow is a stored tick, as read back for reports.
type TickRow struct {
	Tick      int
	TimeS     float64
	Active    bool
	Target    r3.Vec
	Platform  r3.Vec
	Boresight r3.Vec
}

// Ticks returns every tick of a run in order.
func (db *DB) Ticks(runID string) ([]TickRow, error) {
	rows, err := db.Query(`SELECT tick, time_s, target_active,
		target_x, target_y, target_z, platform_x, platform_y, platform_z,
		boresight_x, boresight_y, boresight_z
		FROM ticks WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickRow
	for rows.Next() {
		var t TickRow
		if err := rows.Scan(&t.Tick, &t.TimeS, &t.Active,
			&t.Target.X, &t.Target.Y, &t.Target.Z,
			&t.Platform.X, &t.Platform.Y, &t.Platform.Z,
			&t.Boresight.X, &t.Boresight.Y, &t.Boresight.Z); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ChirpRow is a stored chirp snapshot.
type ChirpRow struct {
	Seq            int     `json:"seq"`
	TimeS          float64 `json:"time_s"`
	Active         bool    `json:"active"`
	RangeM         float64 `json:"range_m"`
	RadialVelocity float64 `json:"radial_velocity"`
	RCS            float64 `json:"rcs_m2"`
	Gain           float64 `json:"gain"`
	DopplerCWHz    float64 `json:"doppler_cw_hz"`
	ActiveBeatHz   float64 `json:"active_beat_hz"`
}

// Chirps returns every chirp of a run in order.
func (db *DB) Chirps(runID string) ([]ChirpRow, error) {
	rows, err := db.Query(`SELECT seq, time_s, target_active, range_m, radial_velocity,
		rcs_m2, gain, doppler_cw_hz, active_beat_hz
		FROM chirps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChirpRow
	for rows.Next() {
		var c ChirpRow
		if err := rows.Scan(&c.Seq, &c.TimeS, &c.Active, &c.RangeM, &c.RadialVelocity,
			&c.RCS, &c.Gain, &c.DopplerCWHz, &c.ActiveBeatHz); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
