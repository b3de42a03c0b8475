package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/models"
)

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
	IdentityTimeout   time.Duration
	ECUQueryTimeout   time.Duration
	MaxInFlight       int
	StreamInterval    time.Duration
}

// Status is a point-in-time view of the whole session.
type Status struct {
	Connection    models.ConnectionState  `json:"connection"`
	Vehicle       models.VehicleIdentity  `json:"vehicle"`
	Scan          *models.ScanRun         `json:"scan,omitempty"`
	Summary       models.DTCSummary       `json:"summary"`
	StreamRunning bool                    `json:"stream_running"`
	Sensors       []models.SensorSnapshot `json:"sensors,omitempty"`
}

// RefreshResult reports one refresh pass. Failures lists ECUs that kept their prior record.
type RefreshResult struct {
	Summary   models.DTCSummary   `json:"summary"`
	Failures  []models.ECUFailure `json:"failures,omitempty"`
	Queried   int                 `json:"queried"`
	Responded int                 `json:"responded"`
}

// Partial reports whether some ECUs failed while others responded.
func (r RefreshResult) Partial() bool {
	return len(r.Failures) > 0 && r.Responded > 0
}

// Coordinator is the command and query surface of the engine. Scans and
// refreshes are serialized by cmdMu; reads never take it.
type Coordinator struct {
	bus       *Bus
	conn      *ConnectionManager
	registry  *Registry
	refresher *Refresher
	session   *ScanSession
	streamer  *Streamer
	log       *logger.Logger
	opts      Options

	cmdMu sync.Mutex

	vehicleMu sync.RWMutex
	vehicle   models.VehicleIdentity

	// lifeMu orders wg.Add against Close.
	lifeMu sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ECUCatalog is what the coordinator needs from the ECU catalog.
type ECUCatalog interface {
	ECUDescriber
	SensorClassifier
}

func NewCoordinator(t VehicleTransport, cat ECUCatalog, log *logger.Logger, opts Options) *Coordinator {
	log = logger.OrNop(log)
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = time.Second
	}
	bus := NewBus()
	registry := NewRegistry()
	conn := NewConnectionManager(t, bus, log, opts.ConnectTimeout, opts.DisconnectTimeout)
	refresher := NewRefresher(t, cat, log, opts.ECUQueryTimeout, opts.MaxInFlight)
	c := &Coordinator{
		bus:       bus,
		conn:      conn,
		registry:  registry,
		refresher: refresher,
		session:   NewScanSession(t, refresher, registry, bus, log, opts.IdentityTimeout),
		streamer:  NewStreamer(t, conn, cat, bus, log),
		log:       log.Named("coordinator"),
		opts:      opts,
	}
	conn.OnDown(c.abort)
	return c
}

// abort cancels the active scan and stops the stream when the link goes down.
func (c *Coordinator) abort(reason string) {
	scanReason, streamReason := models.ReasonCancelled, StreamEndDisconnected
	if reason == models.ReasonLinkLost {
		scanReason, streamReason = models.ReasonLinkLost, StreamEndLinkLost
	}
	if run, ok := c.session.CancelWithReason(scanReason); ok {
		c.bus.Publish(Event{Kind: EventDisconnectDuringScan, Run: &run, Reason: reason})
		c.log.Warnw("scan_aborted_by_disconnect", "run_id", run.ID, "reason", reason)
	}
	c.streamer.halt(streamReason)
}

// Connect opens the vehicle link.
func (c *Coordinator) Connect(ctx context.Context) (models.ConnectionState, error) {
	return c.conn.Connect(ctx)
}

// Disconnect cancels any active scan, stops the stream, then closes the link.
// It waits for an in-flight scan or refresh to release the registry.
func (c *Coordinator) Disconnect(ctx context.Context) (models.ConnectionState, error) {
	if c.conn.State() == models.ConnectionDisconnected {
		return models.ConnectionDisconnected, nil
	}
	c.abort(ReasonDisconnect)

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.conn.Disconnect(ctx)
}

// SetVehicle stores the technician-entered identity used by later scans.
func (c *Coordinator) SetVehicle(vin, model string) (models.VehicleIdentity, error) {
	v, err := NormalizeVehicle(vin, model)
	if err != nil {
		return v, err
	}
	if c.session.Active() {
		return v, newError(ErrSessionBusy, "vehicle", nil)
	}
	c.vehicleMu.Lock()
	c.vehicle = v
	c.vehicleMu.Unlock()
	return v, nil
}

// ClearVehicle forgets the stored identity.
func (c *Coordinator) ClearVehicle() error {
	if c.session.Active() {
		return newError(ErrSessionBusy, "vehicle", nil)
	}
	c.vehicleMu.Lock()
	c.vehicle = models.VehicleIdentity{}
	c.vehicleMu.Unlock()
	return nil
}

// Vehicle returns the stored identity.
func (c *Coordinator) Vehicle() models.VehicleIdentity {
	c.vehicleMu.RLock()
	defer c.vehicleMu.RUnlock()
	return c.vehicle
}

// FetchVehicleIdentity reads the identity reported by the vehicle without
// storing it.
func (c *Coordinator) FetchVehicleIdentity(ctx context.Context) (models.VehicleIdentity, error) {
	if st := c.conn.State(); st != models.ConnectionConnected {
		return models.VehicleIdentity{}, newError(ErrNotConnected, string(st), nil)
	}
	if c.session.Active() {
		return models.VehicleIdentity{}, newError(ErrSessionBusy, "identity", nil)
	}
	v, err := c.session.fetchIdentity(ctx)
	if err != nil {
		return models.VehicleIdentity{}, newError(ErrConnection, "identity", err)
	}
	return v, nil
}

// StartScanAsync reserves a scan run and executes it in the background. The
// returned channel yields the terminal run once.
func (c *Coordinator) StartScanAsync(vin, model string) (models.ScanRun, <-chan models.ScanRun, error) {
	v, err := c.resolveVehicle(vin, model)
	if err != nil {
		return models.ScanRun{}, nil, err
	}
	if st := c.conn.State(); st != models.ConnectionConnected {
		return models.ScanRun{}, nil, newError(ErrNotConnected, string(st), nil)
	}

	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return models.ScanRun{}, nil, newError(ErrNotConnected, "closed", nil)
	}
	run, err := c.session.Begin(v)
	if err != nil {
		c.lifeMu.Unlock()
		return models.ScanRun{}, nil, err
	}
	c.wg.Add(1)
	c.lifeMu.Unlock()

	c.vehicleMu.Lock()
	c.vehicle = run.Vehicle
	c.vehicleMu.Unlock()

	done := make(chan models.ScanRun, 1)
	go func() {
		defer c.wg.Done()
		c.cmdMu.Lock()
		defer c.cmdMu.Unlock()
		final, err := c.session.Execute(context.Background(), run.ID)
		if err != nil {
			c.log.Errorw("scan_execute_failed", "run_id", run.ID, "error", err)
			final, _ = c.session.Current()
		}
		done <- final
		close(done)
	}()
	return run, done, nil
}

// StartScan runs a scan to completion. Cancelling ctx cancels the run.
func (c *Coordinator) StartScan(ctx context.Context, vin, model string) (models.ScanRun, error) {
	run, done, err := c.StartScanAsync(vin, model)
	if err != nil {
		return models.ScanRun{}, err
	}
	select {
	case final := <-done:
		return final, nil
	case <-ctx.Done():
		c.session.cancelByID(run.ID, models.ReasonCancelled)
		return <-done, ctx.Err()
	}
}

// resolveVehicle uses the arguments when given, the stored vehicle otherwise.
func (c *Coordinator) resolveVehicle(vin, model string) (models.VehicleIdentity, error) {
	if vin == "" && model == "" {
		stored := c.Vehicle()
		vin, model = stored.VIN, stored.ModelCode
	}
	return NormalizeVehicle(vin, model)
}

// ResumeRunNumbering continues run numbers after last, the highest number
// already persisted.
func (c *Coordinator) ResumeRunNumbering(last int64) {
	c.session.ResumeNumbering(last)
}

// CancelScan cancels the active run, if any.
func (c *Coordinator) CancelScan() (models.ScanRun, bool) {
	return c.session.Cancel()
}

// Refresh re-queries every ECU and commits the collected set in one swap.
// Per-ECU failures are reported in the result; the error is non-nil only when
// nothing could be collected.
func (c *Coordinator) Refresh(ctx context.Context) (RefreshResult, error) {
	if st := c.conn.State(); st != models.ConnectionConnected {
		return RefreshResult{}, newError(ErrNotConnected, string(st), nil)
	}
	if c.session.Active() {
		return RefreshResult{}, newError(ErrSessionBusy, "refresh", nil)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.session.Active() {
		return RefreshResult{}, newError(ErrSessionBusy, "refresh", nil)
	}
	if st := c.conn.State(); st != models.ConnectionConnected {
		return RefreshResult{}, newError(ErrNotConnected, string(st), nil)
	}

	res, err := c.refresher.Collect(ctx, c.registry)
	if err != nil {
		c.log.Warnw("refresh_failed", "error", err)
		return RefreshResult{}, err
	}
	out := RefreshResult{Failures: res.Failures, Queried: res.Queried, Responded: res.Responded}
	if res.Responded == 0 {
		// Nothing new to commit; the previous snapshot stays.
		out.Summary = c.registry.Summary()
		if res.Queried == 0 {
			c.log.Warnw("refresh_empty_ecu_list")
			return out, newError(ErrFetchFailed, "ecu-list", errors.New("vehicle listed no ecus"))
		}
		return out, newError(ErrFetchFailed, "all-ecus", errors.New("no ecu responded"))
	}
	summary, err := c.registry.ReplaceAll(res.Records)
	if err != nil {
		c.log.Errorw("refresh_rejected", "error", err)
		return out, err
	}
	out.Summary = summary
	c.bus.Publish(Event{Kind: EventRefresh, Summary: &summary, Failures: res.Failures})
	return out, nil
}

// RefreshECU re-queries one known ECU and applies the result to the
// registry. A failed query leaves the record untouched.
func (c *Coordinator) RefreshECU(ctx context.Context, id string) (models.ECURecord, models.DTCSummary, error) {
	if st := c.conn.State(); st != models.ConnectionConnected {
		return models.ECURecord{}, models.DTCSummary{}, newError(ErrNotConnected, string(st), nil)
	}
	if c.session.Active() {
		return models.ECURecord{}, models.DTCSummary{}, newError(ErrSessionBusy, "refresh", nil)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.session.Active() {
		return models.ECURecord{}, models.DTCSummary{}, newError(ErrSessionBusy, "refresh", nil)
	}
	if st := c.conn.State(); st != models.ConnectionConnected {
		return models.ECURecord{}, models.DTCSummary{}, newError(ErrNotConnected, string(st), nil)
	}
	rec, ok := c.registry.Get(id)
	if !ok {
		return rec, c.registry.Summary(), newError(ErrUnknownECU, id, nil)
	}
	o := c.refresher.query(ctx, rec.ID)
	if o.err != nil {
		return rec, c.registry.Summary(), o.err
	}
	summary, err := c.registry.ApplyDelta(rec.ID, o.status, o.count)
	if err != nil {
		return rec, summary, err
	}
	rec, _ = c.registry.Get(rec.ID)
	c.bus.Publish(Event{Kind: EventRefresh, Summary: &summary})
	return rec, summary, nil
}

// StartStream begins the live data stream. interval <= 0 uses the configured default.
func (c *Coordinator) StartStream(interval time.Duration) error {
	if interval <= 0 {
		interval = c.opts.StreamInterval
	}
	return c.streamer.Start(interval)
}

// StopStream stops the live data stream and waits for it to exit.
func (c *Coordinator) StopStream() {
	c.streamer.Stop()
}

// Close shuts the session down: stream, scan, link. It waits for background
// scans until ctx expires.
func (c *Coordinator) Close(ctx context.Context) error {
	c.lifeMu.Lock()
	c.closed = true
	c.lifeMu.Unlock()

	c.streamer.Stop()
	c.session.Cancel()
	_, err := c.Disconnect(ctx)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	c.bus.Close()
	return err
}

func (c *Coordinator) ConnectionState() models.ConnectionState { return c.conn.State() }

// CurrentScanRun returns the latest run; ok is false before the first scan.
func (c *Coordinator) CurrentScanRun() (models.ScanRun, bool) { return c.session.Current() }

func (c *Coordinator) CurrentSummary() models.DTCSummary { return c.registry.Summary() }

func (c *Coordinator) ECURecords() []models.ECURecord { return c.registry.Records() }

// ECU returns one registry record.
func (c *Coordinator) ECU(id string) (models.ECURecord, error) {
	rec, ok := c.registry.Get(id)
	if !ok {
		return rec, newError(ErrUnknownECU, id, nil)
	}
	return rec, nil
}

func (c *Coordinator) LatestSensors() []models.SensorSnapshot { return c.streamer.Latest() }

func (c *Coordinator) StreamRunning() bool { return c.streamer.Running() }

// SubscribeSensors registers a latest-value-wins sensor frame subscriber.
func (c *Coordinator) SubscribeSensors() *FrameSubscription { return c.streamer.Subscribe() }

// SubscribeEvents registers an ordered state-change event subscriber.
func (c *Coordinator) SubscribeEvents() *Subscription { return c.bus.Subscribe() }

// Status aggregates the session state for display.
func (c *Coordinator) Status() Status {
	st := Status{
		Connection:    c.conn.State(),
		Vehicle:       c.Vehicle(),
		Summary:       c.registry.Summary(),
		StreamRunning: c.streamer.Running(),
		Sensors:       c.streamer.Latest(),
	}
	if run, ok := c.session.Current(); ok {
		st.Scan = &run
	}
	return st
}
