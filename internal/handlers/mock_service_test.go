package handlers

import (
	"context"
	"net/http"
	"time"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockDiagnostics returns canned values; zero values mean success.
type mockDiagnostics struct {
	connState  models.ConnectionState
	connectErr error
	status     engine.Status

	vehicle    models.VehicleIdentity
	vehicleErr error
	fetchErr   error
	clearErr   error

	scanRun    models.ScanRun
	scanErr    error
	cancelRun  models.ScanRun
	cancelOK   bool
	current    models.ScanRun
	currentOK  bool
	lastParams service.ScanParams

	ecus       []models.ECURecord
	lastFilter service.ECUFilter
	ecu        models.ECURecord
	ecuErr     error
	lastECUID  string
	summary    models.DTCSummary
	refresh    engine.RefreshResult
	refreshErr error

	refreshOneErr error

	streamErr    error
	lastInterval time.Duration
	stopCalls    int
	sensors      []models.SensorSnapshot
}

func (m *mockDiagnostics) Connect(context.Context) (models.ConnectionState, error) {
	return m.connState, m.connectErr
}
func (m *mockDiagnostics) Disconnect(context.Context) (models.ConnectionState, error) {
	return models.ConnectionDisconnected, nil
}
func (m *mockDiagnostics) Status() engine.Status           { return m.status }
func (m *mockDiagnostics) Vehicle() models.VehicleIdentity { return m.vehicle }
func (m *mockDiagnostics) SetVehicle(vin, model string) (models.VehicleIdentity, error) {
	if m.vehicleErr != nil {
		return models.VehicleIdentity{}, m.vehicleErr
	}
	m.vehicle = models.VehicleIdentity{VIN: vin, ModelCode: model}
	return m.vehicle, nil
}
func (m *mockDiagnostics) ClearVehicle() error { return m.clearErr }
func (m *mockDiagnostics) FetchVehicleIdentity(context.Context) (models.VehicleIdentity, error) {
	return m.vehicle, m.fetchErr
}
func (m *mockDiagnostics) StartScan(p service.ScanParams) (models.ScanRun, error) {
	m.lastParams = p
	return m.scanRun, m.scanErr
}
func (m *mockDiagnostics) CancelScan() (models.ScanRun, bool)  { return m.cancelRun, m.cancelOK }
func (m *mockDiagnostics) CurrentScan() (models.ScanRun, bool) { return m.current, m.currentOK }
func (m *mockDiagnostics) ECUs(f service.ECUFilter) []models.ECURecord {
	m.lastFilter = f
	return m.ecus
}
func (m *mockDiagnostics) ECU(id string) (models.ECURecord, error) {
	m.lastECUID = id
	return m.ecu, m.ecuErr
}
func (m *mockDiagnostics) Summary() models.DTCSummary { return m.summary }
func (m *mockDiagnostics) Refresh(context.Context) (engine.RefreshResult, error) {
	return m.refresh, m.refreshErr
}
func (m *mockDiagnostics) RefreshECU(_ context.Context, id string) (models.ECURecord, models.DTCSummary, error) {
	m.lastECUID = id
	return m.ecu, m.refresh.Summary, m.refreshOneErr
}
func (m *mockDiagnostics) StartStream(interval time.Duration) error {
	m.lastInterval = interval
	return m.streamErr
}
func (m *mockDiagnostics) StopStream()                            { m.stopCalls++ }
func (m *mockDiagnostics) LatestSensors() []models.SensorSnapshot { return m.sensors }
func (m *mockDiagnostics) SubscribeSensors() *engine.FrameSubscription {
	return engine.NewStreamer(nil, nil, nil, engine.NewBus(), nil).Subscribe()
}
func (m *mockDiagnostics) SubscribeEvents() *engine.Subscription {
	return engine.NewBus().Subscribe()
}

type mockHistory struct {
	last      models.ScanRun
	runs      []models.ScanRun
	err       error
	lastLimit int
}

func (m *mockHistory) LastRun(context.Context) (models.ScanRun, error) { return m.last, m.err }
func (m *mockHistory) ListRuns(_ context.Context, limit int) ([]models.ScanRun, error) {
	m.lastLimit = limit
	return m.runs, m.err
}
func (m *mockHistory) Setup(_ context.Context, v models.VehicleIdentity) (models.VehicleSetup, error) {
	if m.err != nil {
		return models.VehicleSetup{Vehicle: v}, m.err
	}
	return models.VehicleSetup{Vehicle: v, LastRunAt: m.last.FinishedAt, LastRunStatus: m.last.Status}, nil
}

type mockEventLog struct {
	resp      []models.SessionEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.SessionEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastLimit = f.Limit
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
