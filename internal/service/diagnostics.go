package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/models"
)

// coordinator is the slice of *engine.Coordinator the diagnostics service drives.
type coordinator interface {
	Connect(ctx context.Context) (models.ConnectionState, error)
	Disconnect(ctx context.Context) (models.ConnectionState, error)
	Status() engine.Status
	Vehicle() models.VehicleIdentity
	SetVehicle(vin, model string) (models.VehicleIdentity, error)
	ClearVehicle() error
	FetchVehicleIdentity(ctx context.Context) (models.VehicleIdentity, error)
	StartScanAsync(vin, model string) (models.ScanRun, <-chan models.ScanRun, error)
	CancelScan() (models.ScanRun, bool)
	CurrentScanRun() (models.ScanRun, bool)
	ECURecords() []models.ECURecord
	ECU(id string) (models.ECURecord, error)
	CurrentSummary() models.DTCSummary
	Refresh(ctx context.Context) (engine.RefreshResult, error)
	RefreshECU(ctx context.Context, id string) (models.ECURecord, models.DTCSummary, error)
	StartStream(interval time.Duration) error
	StopStream()
	LatestSensors() []models.SensorSnapshot
	SubscribeSensors() *engine.FrameSubscription
	SubscribeEvents() *engine.Subscription
}

var _ coordinator = (*engine.Coordinator)(nil)

var errInvalidECUStatus = errors.New("invalid ecu status filter")

type DiagnosticsService struct {
	coord coordinator
}

func NewDiagnosticsService(coord coordinator) *DiagnosticsService {
	return &DiagnosticsService{coord: coord}
}

func (s *DiagnosticsService) Connect(ctx context.Context) (models.ConnectionState, error) {
	return s.coord.Connect(ctx)
}

func (s *DiagnosticsService) Disconnect(ctx context.Context) (models.ConnectionState, error) {
	return s.coord.Disconnect(ctx)
}

func (s *DiagnosticsService) Status() engine.Status { return s.coord.Status() }

func (s *DiagnosticsService) Vehicle() models.VehicleIdentity { return s.coord.Vehicle() }

func (s *DiagnosticsService) SetVehicle(vin, model string) (models.VehicleIdentity, error) {
	return s.coord.SetVehicle(vin, model)
}

func (s *DiagnosticsService) ClearVehicle() error { return s.coord.ClearVehicle() }

func (s *DiagnosticsService) FetchVehicleIdentity(ctx context.Context) (models.VehicleIdentity, error) {
	return s.coord.FetchVehicleIdentity(ctx)
}

// StartScan accepts a scan and returns the run as accepted. The run finishes
// in the background; its transitions arrive on the event feed.
func (s *DiagnosticsService) StartScan(p ScanParams) (models.ScanRun, error) {
	run, _, err := s.coord.StartScanAsync(strings.TrimSpace(p.VIN), strings.TrimSpace(p.ModelCode))
	return run, err
}

func (s *DiagnosticsService) CancelScan() (models.ScanRun, bool) { return s.coord.CancelScan() }

func (s *DiagnosticsService) CurrentScan() (models.ScanRun, bool) { return s.coord.CurrentScanRun() }

// ECUs returns the registry in discovery order, narrowed by f.
func (s *DiagnosticsService) ECUs(f ECUFilter) []models.ECURecord {
	records := s.coord.ECURecords()
	if f.Status == "" && !f.WithDTCOnly {
		return records
	}
	out := records[:0]
	for _, r := range records {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.WithDTCOnly && r.Status != models.ECUStatusDTCFound {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ParseECUFilter builds a filter from query values.
func ParseECUFilter(status string, withDTCOnly bool) (ECUFilter, error) {
	st := models.ECUStatus(strings.ToUpper(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return ECUFilter{}, fmt.Errorf("%w: %q", errInvalidECUStatus, status)
	}
	return ECUFilter{Status: st, WithDTCOnly: withDTCOnly}, nil
}

// ECU looks a record up by id; the registry matches ids case-insensitively.
func (s *DiagnosticsService) ECU(id string) (models.ECURecord, error) {
	return s.coord.ECU(id)
}

func (s *DiagnosticsService) Summary() models.DTCSummary { return s.coord.CurrentSummary() }

func (s *DiagnosticsService) Refresh(ctx context.Context) (engine.RefreshResult, error) {
	return s.coord.Refresh(ctx)
}

// RefreshECU re-queries a single ECU.
func (s *DiagnosticsService) RefreshECU(ctx context.Context, id string) (models.ECURecord, models.DTCSummary, error) {
	return s.coord.RefreshECU(ctx, id)
}

func (s *DiagnosticsService) StartStream(interval time.Duration) error {
	return s.coord.StartStream(interval)
}

func (s *DiagnosticsService) StopStream() { s.coord.StopStream() }

func (s *DiagnosticsService) LatestSensors() []models.SensorSnapshot { return s.coord.LatestSensors() }

func (s *DiagnosticsService) SubscribeSensors() *engine.FrameSubscription {
	return s.coord.SubscribeSensors()
}

func (s *DiagnosticsService) SubscribeEvents() *engine.Subscription { return s.coord.SubscribeEvents() }
