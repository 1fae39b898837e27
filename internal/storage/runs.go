package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/user/netdiag/internal/model"
)

// RunStorage persists completed diagnostic runs and their report entries.
// Entries are written once per run and never updated.
type RunStorage struct {
	db *DB
}

// NewRunStorage creates a run storage handler.
func NewRunStorage(db *DB) *RunStorage {
	return &RunStorage{db: db}
}

// SaveRun stores one completed run with its full entry sequence.
func (s *RunStorage) SaveRun(startedAt, finishedAt time.Time, sum model.Summary, entries []model.LogEntry) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, finished_at, verdict, errors, warnings) VALUES (?, ?, ?, ?, ?)`,
		startedAt, finishedAt, string(sum.Verdict), sum.Errors, sum.Warnings)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO run_entries (run_id, seq, timestamp, severity, message) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(runID, i, e.Timestamp, string(e.Severity), e.Message); err != nil {
			return 0, fmt.Errorf("failed to save entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// LatestRun returns the most recent run, or nil when none exist.
func (s *RunStorage) LatestRun() (*model.Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, finished_at, verdict, errors, warnings
		 FROM runs ORDER BY id DESC LIMIT 1`)

	var run model.Run
	var verdict string
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &verdict, &run.Errors, &run.Warnings)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	run.Verdict = model.Verdict(verdict)
	return &run, nil
}

// GetRun returns one run by ID, or nil when absent.
func (s *RunStorage) GetRun(id int64) (*model.Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, finished_at, verdict, errors, warnings FROM runs WHERE id = ?`, id)

	var run model.Run
	var verdict string
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &verdict, &run.Errors, &run.Warnings)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	run.Verdict = model.Verdict(verdict)
	return &run, nil
}

// RunEntries returns the report entries of one run in append order.
func (s *RunStorage) RunEntries(runID int64) ([]model.LogEntry, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, severity, message FROM run_entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for run %d: %w", runID, err)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var severity string
		if err := rows.Scan(&e.Timestamp, &severity, &e.Message); err != nil {
			return nil, err
		}
		e.Severity = model.Severity(severity)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
