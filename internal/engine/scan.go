package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/metrics"
	"diagnostic_assistant/internal/models"

	"github.com/looplab/fsm"
)

const (
	scanEventBegin      = "begin"
	scanEventIdentified = "identified"
	scanEventComplete   = "complete"
	scanEventWarn       = "warn"
	scanEventPartial    = "partial"
	scanEventFail       = "fail"
)

func newScanMachine() *fsm.FSM {
	idle := string(models.ScanIdle)
	fetching := string(models.ScanFetchingIdentity)
	scanning := string(models.ScanScanning)

	return fsm.NewFSM(
		idle,
		fsm.Events{
			{Name: scanEventBegin, Src: []string{idle}, Dst: fetching},
			{Name: scanEventIdentified, Src: []string{fetching}, Dst: scanning},
			{Name: scanEventComplete, Src: []string{scanning}, Dst: string(models.ScanCompleted)},
			{Name: scanEventWarn, Src: []string{scanning}, Dst: string(models.ScanWarning)},
			{Name: scanEventPartial, Src: []string{scanning}, Dst: string(models.ScanPartial)},
			{Name: scanEventFail, Src: []string{fetching, scanning}, Dst: string(models.ScanFailed)},
		},
		fsm.Callbacks{},
	)
}

type scanRun struct {
	run     models.ScanRun
	machine *fsm.FSM
	ctx     context.Context
	cancel  context.CancelFunc
}

// ScanSession runs at most one scan at a time. Begin reserves the session
// atomically; Execute drives the reserved run to a terminal state.
type ScanSession struct {
	transport       VehicleTransport
	refresher       *Refresher
	registry        *Registry
	bus             *Bus
	log             *logger.Logger
	identityTimeout time.Duration

	mu     sync.Mutex
	nextID int64
	cur    *scanRun
	last   atomic.Pointer[models.ScanRun]
}

func NewScanSession(t VehicleTransport, refresher *Refresher, registry *Registry, bus *Bus, log *logger.Logger, identityTimeout time.Duration) *ScanSession {
	if identityTimeout <= 0 {
		identityTimeout = 10 * time.Second
	}
	return &ScanSession{
		transport:       t,
		refresher:       refresher,
		registry:        registry,
		bus:             bus,
		log:             logger.OrNop(log).Named("scan"),
		identityTimeout: identityTimeout,
	}
}

// ResumeNumbering makes the next run number follow last. It never moves
// numbering backwards.
func (s *ScanSession) ResumeNumbering(last int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last > s.nextID {
		s.nextID = last
	}
}

// Current returns the latest run, active or terminal. ok is false before the first run.
func (s *ScanSession) Current() (models.ScanRun, bool) {
	p := s.last.Load()
	if p == nil {
		return models.ScanRun{Status: models.ScanIdle}, false
	}
	return p.Clone(), true
}

// Active reports whether a run is in FETCHING_IDENTITY or SCANNING.
func (s *ScanSession) Active() bool {
	p := s.last.Load()
	return p != nil && p.Status.Active()
}

// Begin validates vehicle and reserves a new run in FETCHING_IDENTITY.
// It fails with ErrSessionBusy while another run is active.
func (s *ScanSession) Begin(vehicle models.VehicleIdentity) (models.ScanRun, error) {
	v, err := NormalizeVehicle(vehicle.VIN, vehicle.ModelCode)
	if err != nil {
		return models.ScanRun{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil && s.cur.run.Status.Active() {
		metrics.ScanRejectedTotal.Inc()
		s.log.Infow("scan_rejected_busy", "active_run_id", s.cur.run.ID)
		return models.ScanRun{}, newError(ErrSessionBusy, strconv.FormatInt(s.cur.run.ID, 10), nil)
	}

	s.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	r := &scanRun{
		run: models.ScanRun{
			ID:        s.nextID,
			StartedAt: time.Now().UTC(),
			Status:    models.ScanIdle,
			Vehicle:   v,
		},
		machine: newScanMachine(),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.cur = r
	if err := s.transition(r, scanEventBegin, ""); err != nil {
		cancel()
		return models.ScanRun{}, err
	}
	return r.run.Clone(), nil
}

// transition fires event on r and publishes the new state. Callers hold mu.
func (s *ScanSession) transition(r *scanRun, event, reason string) error {
	if err := r.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("scan run %d: %w", r.run.ID, err)
	}
	r.run.Status = models.ScanStatus(r.machine.Current())
	if reason != "" {
		r.run.Reason = reason
	}
	if r.run.Status.Terminal() {
		r.run.FinishedAt = time.Now().UTC()
		r.cancel()
		metrics.ScanRunsTotal.WithLabelValues(string(r.run.Status)).Inc()
	}

	snap := r.run.Clone()
	s.last.Store(&snap)
	published := r.run.Clone()
	s.bus.Publish(Event{Kind: EventScan, Run: &published, Reason: r.run.Reason})
	s.log.Infow("scan_state", "run_id", r.run.ID, "status", r.run.Status, "reason", r.run.Reason)
	return nil
}

func (s *ScanSession) lookup(id int64) (*scanRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.cur.run.ID != id {
		return nil, fmt.Errorf("scan run %d: not the current run", id)
	}
	return s.cur, nil
}

// Execute drives run id from FETCHING_IDENTITY to a terminal state and returns
// the terminal run. Cancelling ctx cancels the run.
func (s *ScanSession) Execute(ctx context.Context, id int64) (models.ScanRun, error) {
	r, err := s.lookup(id)
	if err != nil {
		return models.ScanRun{}, err
	}
	stop := context.AfterFunc(ctx, func() { s.cancelRun(r, models.ReasonCancelled) })
	defer stop()

	confirmed, err := s.fetchIdentity(r.ctx)

	s.mu.Lock()
	if r.run.Status.Terminal() {
		defer s.mu.Unlock()
		return r.run.Clone(), nil
	}
	if err != nil {
		s.log.Warnw("identity_fetch_failed", "run_id", r.run.ID, "error", err)
		_ = s.transition(r, scanEventFail, models.ReasonIdentityFailed)
		defer s.mu.Unlock()
		return r.run.Clone(), nil
	}
	r.run.Confirmed = confirmed
	mismatch := !SameVehicle(confirmed, r.run.Vehicle)
	if err := s.transition(r, scanEventIdentified, ""); err != nil {
		s.mu.Unlock()
		return models.ScanRun{}, err
	}
	s.mu.Unlock()

	res, collectErr := s.refresher.Collect(r.ctx, s.registry)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Cancelled while querying: the collected results are discarded.
	if r.run.Status.Terminal() {
		return r.run.Clone(), nil
	}
	if collectErr != nil {
		reason := models.ReasonListECUsFailed
		switch {
		case errors.Is(collectErr, ErrDuplicateECU):
			reason = models.ReasonRegistryRejected
		case errors.Is(collectErr, ErrCancelled):
			reason = models.ReasonCancelled
		}
		s.log.Warnw("ecu_collect_failed", "run_id", r.run.ID, "error", collectErr)
		_ = s.transition(r, scanEventFail, reason)
		return r.run.Clone(), nil
	}

	r.run.Failures = res.Failures
	if res.Responded == 0 {
		_ = s.transition(r, scanEventFail, models.ReasonNoECUResponded)
		return r.run.Clone(), nil
	}

	summary, err := s.registry.ReplaceAll(res.Records)
	if err != nil {
		s.log.Errorw("registry_rejected", "run_id", r.run.ID, "error", err)
		_ = s.transition(r, scanEventFail, models.ReasonRegistryRejected)
		return r.run.Clone(), nil
	}
	r.run.Summary = summary

	event, reason := decideOutcome(res, mismatch, summary)
	_ = s.transition(r, event, reason)
	return r.run.Clone(), nil
}

// decideOutcome maps per-ECU results to a terminal event. Partial outranks Warning.
func decideOutcome(res CollectResult, mismatch bool, summary models.DTCSummary) (event, reason string) {
	switch {
	case len(res.Failures) > 0:
		return scanEventPartial, models.ReasonECUNoResponse
	case mismatch:
		return scanEventWarn, models.ReasonIdentityMismatch
	case summary.ECUsWithDTCs > 0:
		return scanEventWarn, models.ReasonDTCFound
	default:
		return scanEventComplete, ""
	}
}

func (s *ScanSession) fetchIdentity(ctx context.Context) (models.VehicleIdentity, error) {
	ictx, cancel := context.WithTimeout(ctx, s.identityTimeout)
	defer cancel()
	vin, model, err := s.transport.FetchIdentity(ictx)
	if err != nil {
		return models.VehicleIdentity{}, err
	}
	return models.VehicleIdentity{
		VIN:       strings.ToUpper(strings.TrimSpace(vin)),
		ModelCode: strings.ToUpper(strings.TrimSpace(model)),
	}, nil
}

// Cancel moves the active run to FAILED with reason CANCELLED. It reports
// whether a run was cancelled; terminal runs are left untouched.
func (s *ScanSession) Cancel() (models.ScanRun, bool) {
	return s.CancelWithReason(models.ReasonCancelled)
}

// CancelWithReason is Cancel with a caller-supplied failure reason.
func (s *ScanSession) CancelWithReason(reason string) (models.ScanRun, bool) {
	s.mu.Lock()
	r := s.cur
	s.mu.Unlock()
	if r == nil {
		return models.ScanRun{Status: models.ScanIdle}, false
	}
	return s.cancelRun(r, reason)
}

func (s *ScanSession) cancelByID(id int64, reason string) (models.ScanRun, bool) {
	r, err := s.lookup(id)
	if err != nil {
		return models.ScanRun{}, false
	}
	return s.cancelRun(r, reason)
}

func (s *ScanSession) cancelRun(r *scanRun, reason string) (models.ScanRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !r.run.Status.Active() {
		return r.run.Clone(), false
	}
	if err := s.transition(r, scanEventFail, reason); err != nil {
		return r.run.Clone(), false
	}
	return r.run.Clone(), true
}
