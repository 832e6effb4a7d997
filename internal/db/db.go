// Package db persists analysis runs and their per-track results in
// SQLite. The schema is owned by embedded golang-migrate migrations;
// Open applies them before returning a usable handle.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/impulse-data/trajectory.report/internal/timeutil"
)

// Run statuses. A run moves pending -> running -> completed or failed.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrNotFound reports a missing run or track result.
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite connection. Timestamps come from the clock so
// tests can pin them.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// Run is one submitted analysis batch.
type Run struct {
	ID         string    `json:"id"`
	SourceName string    `json:"source_name"`
	Status     string    `json:"status"`
	ParamsJSON string    `json:"params_json"`
	TrackCount int       `json:"track_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TrackResultRow is the persisted form of one track's pipeline outcome.
// The JSON columns carry the cleaning stats, analysis and insights as
// produced by the pipeline; records_csv holds the derived samples in the
// tabular boundary format.
type TrackResultRow struct {
	RunID        string `json:"run_id"`
	TrackID      int64  `json:"track_id"`
	MotionType   string `json:"motion_type"`
	Error        string `json:"error,omitempty"`
	StatsJSON    string `json:"stats_json"`
	AnalysisJSON string `json:"analysis_json"`
	InsightsJSON string `json:"insights_json"`
	RecordsCSV   string `json:"-"`
}

// Open opens (creating if needed) the SQLite database at path and applies
// all pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; serialize through a single connection to
	// avoid SQLITE_BUSY under concurrent handlers.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// CreateRun inserts a new run in pending state.
func (db *DB) CreateRun(run *Run) error {
	now := db.clock.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = RunPending
	}
	if run.ParamsJSON == "" {
		run.ParamsJSON = "{}"
	}

	_, err := db.Exec(`
		INSERT INTO analysis_runs (id, source_name, status, params_json, track_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SourceName, run.Status, run.ParamsJSON, run.TrackCount, run.Error,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// UpdateRunStatus moves a run to a new status; errMsg is recorded for
// failed runs and cleared otherwise.
func (db *DB) UpdateRunStatus(id, status, errMsg string) error {
	res, err := db.Exec(`
		UPDATE analysis_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, db.clock.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRunTrackCount records how many tracks a run produced.
func (db *DB) SetRunTrackCount(id string, count int) error {
	_, err := db.Exec(`
		UPDATE analysis_runs SET track_count = ?, updated_at = ? WHERE id = ?`,
		count, db.clock.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run track count: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, source_name, status, params_json, track_count, error, created_at, updated_at
		FROM analysis_runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, source_name, status, params_json, track_count, error, created_at, updated_at
		FROM analysis_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// InsertTrackResult persists one track's pipeline outcome.
func (db *DB) InsertTrackResult(row *TrackResultRow) error {
	_, err := db.Exec(`
		INSERT INTO track_results (run_id, track_id, motion_type, error, stats_json, analysis_json, insights_json, records_csv)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.RunID, row.TrackID, row.MotionType, row.Error,
		row.StatsJSON, row.AnalysisJSON, row.InsightsJSON, row.RecordsCSV,
	)
	if err != nil {
		return fmt.Errorf("failed to insert track result: %w", err)
	}
	return nil
}

// ListTrackResults returns all track results of a run in track-id order.
// The records CSV is excluded; fetch it per track with GetTrackRecordsCSV.
func (db *DB) ListTrackResults(runID string) ([]TrackResultRow, error) {
	rows, err := db.Query(`
		SELECT run_id, track_id, motion_type, error, stats_json, analysis_json, insights_json
		FROM track_results WHERE run_id = ? ORDER BY track_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list track results: %w", err)
	}
	defer rows.Close()

	var results []TrackResultRow
	for rows.Next() {
		var r TrackResultRow
		if err := rows.Scan(&r.RunID, &r.TrackID, &r.MotionType, &r.Error,
			&r.StatsJSON, &r.AnalysisJSON, &r.InsightsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan track result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetTrackRecordsCSV fetches the derived record CSV of one track.
func (db *DB) GetTrackRecordsCSV(runID string, trackID int64) (string, error) {
	var csv string
	err := db.QueryRow(`
		SELECT records_csv FROM track_results WHERE run_id = ? AND track_id = ?`,
		runID, trackID).Scan(&csv)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get track records: %w", err)
	}
	return csv, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var created, updated string
	err := row.Scan(&run.ID, &run.SourceName, &run.Status, &run.ParamsJSON,
		&run.TrackCount, &run.Error, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return &run, nil
}
