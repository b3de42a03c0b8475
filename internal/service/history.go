package service

import (
	"context"
	"time"

	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/repository"
)

type HistoryService struct {
	runRepo repository.RunRepo
}

func NewHistoryService(runRepo repository.RunRepo) *HistoryService {
	return &HistoryService{runRepo: runRepo}
}

// LastRun returns the most recent persisted run.
// If nothing was persisted yet, returns a baseline IDLE run.
func (s *HistoryService) LastRun(ctx context.Context) (models.ScanRun, error) {
	run, ok, err := s.runRepo.Last(ctx)
	if err != nil {
		return models.ScanRun{}, err
	}
	if !ok {
		return baselineRun(), nil
	}
	run.StartedAt = toUTC(run.StartedAt)
	run.FinishedAt = toUTC(run.FinishedAt)
	return run, nil
}

// RunNumbering is what ResumeRunNumbers drives.
type RunNumbering interface {
	ResumeRunNumbering(last int64)
}

// ResumeRunNumbers continues scan run numbers after the highest one in the
// run history, so numbers stay unique across restarts.
func ResumeRunNumbers(ctx context.Context, runs repository.RunRepo, target RunNumbering) (int64, error) {
	last, err := runs.MaxRunNo(ctx)
	if err != nil {
		return 0, err
	}
	target.ResumeRunNumbering(last)
	return last, nil
}

func (s *HistoryService) ListRuns(ctx context.Context, limit int) ([]models.ScanRun, error) {
	return s.runRepo.List(ctx, limit)
}

// Setup combines the entered vehicle with the outcome of the last run.
// The last run time and status stay empty when there is no run yet.
func (s *HistoryService) Setup(ctx context.Context, vehicle models.VehicleIdentity) (models.VehicleSetup, error) {
	run, err := s.LastRun(ctx)
	if err != nil {
		return models.VehicleSetup{Vehicle: vehicle}, err
	}
	setup := models.VehicleSetup{Vehicle: vehicle}
	if run.ID != 0 {
		setup.LastRunAt = run.FinishedAt
		setup.LastRunStatus = run.Status
	}
	return setup, nil
}

// baselineRun stands in for "no previous runs".
func baselineRun() models.ScanRun {
	return models.ScanRun{Status: models.ScanIdle}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
