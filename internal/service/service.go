package service

import (
	"context"
	"time"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Diagnostics drives the vehicle session: link, vehicle setup, scans, ECU
// registry and the live sensor stream.
type Diagnostics interface {
	Connect(ctx context.Context) (models.ConnectionState, error)
	Disconnect(ctx context.Context) (models.ConnectionState, error)
	Status() engine.Status

	Vehicle() models.VehicleIdentity
	SetVehicle(vin, model string) (models.VehicleIdentity, error)
	ClearVehicle() error
	FetchVehicleIdentity(ctx context.Context) (models.VehicleIdentity, error)

	StartScan(p ScanParams) (models.ScanRun, error)
	CancelScan() (models.ScanRun, bool)
	CurrentScan() (models.ScanRun, bool)

	ECUs(f ECUFilter) []models.ECURecord
	ECU(id string) (models.ECURecord, error)
	Summary() models.DTCSummary
	Refresh(ctx context.Context) (engine.RefreshResult, error)
	RefreshECU(ctx context.Context, id string) (models.ECURecord, models.DTCSummary, error)

	StartStream(interval time.Duration) error
	StopStream()
	LatestSensors() []models.SensorSnapshot

	SubscribeSensors() *engine.FrameSubscription
	SubscribeEvents() *engine.Subscription
}

// History exposes persisted scan runs.
type History interface {
	LastRun(ctx context.Context) (models.ScanRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.ScanRun, error)
	Setup(ctx context.Context, vehicle models.VehicleIdentity) (models.VehicleSetup, error)
}

// EventLog exposes the append-only session log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.SessionEvent, error)
}

type Service struct {
	Diagnostics
	History
	EventLog
	Authorization

	Recorder *Recorder
}

// NewService wires the repository layer and the session coordinator into concrete services.
func NewService(repos *repository.Repository, coord *engine.Coordinator, auth AuthConfig, log *logger.Logger) *Service {
	return &Service{
		Diagnostics:   NewDiagnosticsService(coord),
		History:       NewHistoryService(repos.RunRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, auth),
		Recorder:      NewRecorder(coord, repos.RunRepo, repos.EventRepo, log),
	}
}
