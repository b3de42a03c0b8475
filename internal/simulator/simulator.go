// Package simulator provides a VehicleTransport backed by an in-memory model
// of the reference vehicle. It is used when no hardware adapter is attached.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"diagnostic_assistant/internal/catalog"
	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/models"
)

// Reference vehicle identity reported when none is configured.
const (
	DefaultVIN   = "MA1NS2NVPR2DS1667"
	DefaultModel = "AS22XPNV5TP03D00ZY"
)

var (
	ErrLinkDown      = errors.New("simulator: link down")
	ErrECUNotPresent = errors.New("simulator: ecu not present")
	ErrECUNack       = errors.New("simulator: negative response")
)

// Config tunes the simulated vehicle.
type Config struct {
	Latency        time.Duration
	ConfirmedVIN   string
	ConfirmedModel string
	TimeoutECUs    []string
	FailingECUs    []string
	// Faults maps ECU id to stored DTC count. Nil uses DefaultFaults.
	Faults     map[string]int
	SensorRate time.Duration
}

// DefaultFaults is the fault table of the reference vehicle.
func DefaultFaults() map[string]int {
	return map[string]int{
		"IS_SM": 8, "TCU": 5, "ESP": 4, "PKE": 6, "ESCL": 1,
		"SRS": 10, "MBFM": 10, "FCM": 8, "FRM": 7, "SVS": 7,
		"EPS": 1, "WLC": 7, "MGM": 2, "DATC": 11,
	}
}

// Transport is a simulated vehicle link.
type Transport struct {
	cat *catalog.Catalog
	cfg Config
	log *logger.Logger

	mu        sync.Mutex
	connected bool
	identity  models.VehicleIdentity
	faults    map[string]int
	timeouts  map[string]bool
	failing   map[string]bool
	lost      chan error
	stopGen   context.CancelFunc
	genDone   chan struct{}
	subs      map[uint64]func(engine.SensorSample)
	nextSub   uint64
	model     *sensorModel
}

var (
	_ engine.VehicleTransport = (*Transport)(nil)
	_ engine.LinkMonitor      = (*Transport)(nil)
)

func New(cat *catalog.Catalog, cfg Config, log *logger.Logger) *Transport {
	if cat == nil {
		cat = catalog.Default()
	}
	if cfg.SensorRate <= 0 {
		cfg.SensorRate = 250 * time.Millisecond
	}
	t := &Transport{
		cat: cat,
		cfg: cfg,
		log: logger.OrNop(log).Named("simulator"),
		identity: models.VehicleIdentity{
			VIN:       orDefault(cfg.ConfirmedVIN, DefaultVIN),
			ModelCode: orDefault(cfg.ConfirmedModel, DefaultModel),
		},
		faults:   make(map[string]int),
		timeouts: toSet(cfg.TimeoutECUs),
		failing:  toSet(cfg.FailingECUs),
		lost:     make(chan error, 1),
		subs:     make(map[uint64]func(engine.SensorSample)),
		model:    newSensorModel(),
	}
	faults := cfg.Faults
	if faults == nil {
		faults = DefaultFaults()
	}
	for id, n := range faults {
		t.faults[strings.ToUpper(id)] = n
	}
	return t
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	return out
}

// wait simulates bus latency, honouring ctx.
func (t *Transport) wait(ctx context.Context) error {
	if t.cfg.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.cfg.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) isConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *Transport) Connect(ctx context.Context) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return nil
	}
	t.connected = true
	// Drop a stale loss report from the previous session.
	select {
	case <-t.lost:
	default:
	}
	genCtx, cancel := context.WithCancel(context.Background())
	t.stopGen = cancel
	t.genDone = make(chan struct{})
	go t.run(genCtx, t.cfg.SensorRate, t.genDone)
	t.log.Infow("vci_connected", "vin", t.identity.VIN)
	return nil
}

func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false
	stop, done := t.stopGen, t.genDone
	t.stopGen, t.genDone = nil, nil
	t.mu.Unlock()

	stop()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.log.Infow("vci_disconnected")
	return nil
}

// DropLink simulates an abrupt loss of the vehicle link.
func (t *Transport) DropLink(cause error) {
	if cause == nil {
		cause = ErrLinkDown
	}
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return
	}
	t.connected = false
	stop, done := t.stopGen, t.genDone
	t.stopGen, t.genDone = nil, nil
	t.mu.Unlock()

	stop()
	<-done
	select {
	case t.lost <- cause:
	default:
	}
	t.log.Warnw("vci_link_dropped", "error", cause)
}

// Lost yields once per dropped link.
func (t *Transport) Lost() <-chan error {
	return t.lost
}

func (t *Transport) FetchIdentity(ctx context.Context) (string, string, error) {
	if !t.isConnected() {
		return "", "", ErrLinkDown
	}
	if err := t.wait(ctx); err != nil {
		return "", "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity.VIN, t.identity.ModelCode, nil
}

// SetIdentity changes the identity the simulated vehicle reports.
func (t *Transport) SetIdentity(vin, model string) {
	t.mu.Lock()
	t.identity = models.VehicleIdentity{VIN: vin, ModelCode: model}
	t.mu.Unlock()
}

func (t *Transport) ListECUs(ctx context.Context) ([]string, error) {
	if !t.isConnected() {
		return nil, ErrLinkDown
	}
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.cat.ECUIDs(), nil
}

func (t *Transport) QueryECU(ctx context.Context, id string) (models.ECUStatus, int, error) {
	if !t.isConnected() {
		return "", 0, ErrLinkDown
	}
	id = strings.ToUpper(id)

	t.mu.Lock()
	timeout, failing := t.timeouts[id], t.failing[id]
	count := t.faults[id]
	t.mu.Unlock()

	if timeout {
		<-ctx.Done()
		return "", 0, ctx.Err()
	}
	if err := t.wait(ctx); err != nil {
		return "", 0, err
	}
	if failing {
		return "", 0, fmt.Errorf("%w: %s", ErrECUNack, id)
	}

	if !t.cat.Has(id) {
		return "", 0, fmt.Errorf("%w: %s", ErrECUNotPresent, id)
	}
	e := t.cat.ECU(id)
	switch {
	case e.Special:
		return models.ECUStatusDashboardData, count, nil
	case count > 0:
		return models.ECUStatusDTCFound, count, nil
	default:
		return models.ECUStatusSuccess, 0, nil
	}
}

// SetFaults overrides the stored DTC count of one ECU.
func (t *Transport) SetFaults(id string, count int) {
	t.mu.Lock()
	t.faults[strings.ToUpper(id)] = count
	t.mu.Unlock()
}

// ClearFaults erases all stored DTCs.
func (t *Transport) ClearFaults() {
	t.mu.Lock()
	t.faults = make(map[string]int)
	t.mu.Unlock()
}

func (t *Transport) SubscribeSensors(ctx context.Context, fn func(engine.SensorSample)) (func(), error) {
	if !t.isConnected() {
		return nil, ErrLinkDown
	}
	t.mu.Lock()
	t.nextSub++
	id := t.nextSub
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
	context.AfterFunc(ctx, unsubscribe)
	return unsubscribe, nil
}

func (t *Transport) publish(samples []engine.SensorSample) {
	t.mu.Lock()
	fns := make([]func(engine.SensorSample), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		for _, s := range samples {
			fn(s)
		}
	}
}
