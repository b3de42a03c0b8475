package repository

import (
	"context"
	"database/sql"
	"time"

	"diagnostic_assistant/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// RunRepo stores terminal scan runs.
type RunRepo interface {
	Save(ctx context.Context, run models.ScanRun) error
	Last(ctx context.Context) (models.ScanRun, bool, error)
	List(ctx context.Context, limit int) ([]models.ScanRun, error)
	// MaxRunNo returns the highest stored run number, 0 when empty.
	MaxRunNo(ctx context.Context) (int64, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.SessionEvent) error
	List(ctx context.Context, from, to time.Time, typ string, limit int) ([]models.SessionEvent, error)
}

type Repository struct {
	RunRepo   RunRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		RunRepo:   NewRunSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
