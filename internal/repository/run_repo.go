package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"diagnostic_assistant/internal/models"
)

type RunSQLite struct {
	db *sql.DB
}

func NewRunSQLite(db *sql.DB) *RunSQLite {
	return &RunSQLite{db: db}
}

var _ RunRepo = (*RunSQLite)(nil)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500

	insertRunSQL = `
		INSERT INTO scan_runs (run_no, vin, model_code, confirmed_vin, confirmed_model, status, reason,
			started_at, finished_at, total_dtcs, total_ecus, ecus_with_dtcs, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectRunColumns = `SELECT run_no, vin, model_code, confirmed_vin, confirmed_model, status, reason,
		started_at, finished_at, total_dtcs, total_ecus, ecus_with_dtcs, failures FROM scan_runs`

	selectLastRunSQL  = selectRunColumns + ` ORDER BY id DESC LIMIT 1`
	selectRunsSQL     = selectRunColumns + ` ORDER BY id DESC LIMIT ?`
	selectMaxRunNoSQL = `SELECT COALESCE(MAX(run_no), 0) FROM scan_runs`
)

// marshalFailures converts per-ECU failures to a JSON string.
func marshalFailures(fs []models.ECUFailure) (string, error) {
	if len(fs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(fs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalFailures(s string) ([]models.ECUFailure, error) {
	if s == "" || s == "[]" || s == "null" {
		return nil, nil
	}
	var fs []models.ECUFailure
	if err := json.Unmarshal([]byte(s), &fs); err != nil {
		return nil, err
	}
	return fs, nil
}

// Save appends a finished run. Runs that have not reached a terminal state are rejected.
func (r *RunSQLite) Save(ctx context.Context, run models.ScanRun) error {
	if !run.Status.Terminal() {
		return fmt.Errorf("save run %d: status %s is not terminal", run.ID, run.Status)
	}
	failures, err := marshalFailures(run.Failures)
	if err != nil {
		return fmt.Errorf("marshal failures of run %d: %w", run.ID, err)
	}

	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	_, err = r.db.ExecContext(ctx, insertRunSQL,
		run.ID,
		run.Vehicle.VIN,
		run.Vehicle.ModelCode,
		run.Confirmed.VIN,
		run.Confirmed.ModelCode,
		string(run.Status),
		run.Reason,
		run.StartedAt.UTC(),
		finished.UTC(),
		run.Summary.TotalDTCs,
		run.Summary.TotalECUs,
		run.Summary.ECUsWithDTCs,
		failures,
	)
	if err != nil {
		return fmt.Errorf("insert run %d: %w", run.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (models.ScanRun, error) {
	var (
		run      models.ScanRun
		status   string
		failures string
	)
	if err := row.Scan(
		&run.ID,
		&run.Vehicle.VIN,
		&run.Vehicle.ModelCode,
		&run.Confirmed.VIN,
		&run.Confirmed.ModelCode,
		&status,
		&run.Reason,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Summary.TotalDTCs,
		&run.Summary.TotalECUs,
		&run.Summary.ECUsWithDTCs,
		&failures,
	); err != nil {
		return models.ScanRun{}, err
	}
	fs, err := unmarshalFailures(failures)
	if err != nil {
		return models.ScanRun{}, fmt.Errorf("decode failures of run %d: %w", run.ID, err)
	}
	run.Status = models.ScanStatus(status)
	run.Failures = fs
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	return run, nil
}

// Last returns the most recently stored run. ok is false when nothing was stored yet.
func (r *RunSQLite) Last(ctx context.Context) (models.ScanRun, bool, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, selectLastRunSQL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ScanRun{}, false, nil
		}
		return models.ScanRun{}, false, fmt.Errorf("select last run: %w", err)
	}
	return run, true, nil
}

// List returns up to limit runs, newest first.
func (r *RunSQLite) List(ctx context.Context, limit int) ([]models.ScanRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	rows, err := r.db.QueryContext(ctx, selectRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.ScanRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MaxRunNo returns the highest run number stored so far.
func (r *RunSQLite) MaxRunNo(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, selectMaxRunNoSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("select max run_no: %w", err)
	}
	return n, nil
}
