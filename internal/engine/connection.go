package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/metrics"
	"diagnostic_assistant/internal/models"

	"github.com/looplab/fsm"
)

const (
	connEventConnect       = "connect"
	connEventConnected     = "connected"
	connEventConnectFailed = "connect_failed"
	connEventDisconnect    = "disconnect"
	connEventDisconnected  = "disconnected"
	connEventLinkLost      = "link_lost"
)

// ReasonDisconnect marks a link taken down on request.
const ReasonDisconnect = "DISCONNECT_REQUESTED"

// ConnectionManager owns the vehicle link lifecycle. It is the single writer
// of ConnectionState; State is lock-free.
type ConnectionManager struct {
	transport         VehicleTransport
	bus               *Bus
	log               *logger.Logger
	connectTimeout    time.Duration
	disconnectTimeout time.Duration

	// opMu serializes transport connect/disconnect; mu guards transitions.
	opMu      sync.Mutex
	mu        sync.Mutex
	machine   *fsm.FSM
	state     atomic.Value
	downHooks []func(reason string)
	stopWatch context.CancelFunc
}

func NewConnectionManager(t VehicleTransport, bus *Bus, log *logger.Logger, connectTimeout, disconnectTimeout time.Duration) *ConnectionManager {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	if disconnectTimeout <= 0 {
		disconnectTimeout = 5 * time.Second
	}
	m := &ConnectionManager{
		transport:         t,
		bus:               bus,
		log:               logger.OrNop(log).Named("connection"),
		connectTimeout:    connectTimeout,
		disconnectTimeout: disconnectTimeout,
	}
	disconnected := string(models.ConnectionDisconnected)
	connecting := string(models.ConnectionConnecting)
	connected := string(models.ConnectionConnected)
	disconnecting := string(models.ConnectionDisconnecting)

	m.machine = fsm.NewFSM(
		disconnected,
		fsm.Events{
			{Name: connEventConnect, Src: []string{disconnected}, Dst: connecting},
			{Name: connEventConnected, Src: []string{connecting}, Dst: connected},
			{Name: connEventConnectFailed, Src: []string{connecting}, Dst: disconnected},
			{Name: connEventDisconnect, Src: []string{connected, connecting}, Dst: disconnecting},
			{Name: connEventDisconnected, Src: []string{disconnecting}, Dst: disconnected},
			{Name: connEventLinkLost, Src: []string{connected, connecting}, Dst: disconnected},
		},
		fsm.Callbacks{},
	)
	m.state.Store(models.ConnectionDisconnected)
	metrics.ConnectionUp.Set(0)
	return m
}

// State returns the last committed connection state.
func (m *ConnectionManager) State() models.ConnectionState {
	return m.state.Load().(models.ConnectionState)
}

// OnDown registers fn to run whenever the link leaves CONNECTED, before the
// transport is torn down. fn must not call back into the ConnectionManager.
func (m *ConnectionManager) OnDown(fn func(reason string)) {
	m.mu.Lock()
	m.downHooks = append(m.downHooks, fn)
	m.mu.Unlock()
}

// fire runs one transition and publishes it. Callers hold mu.
func (m *ConnectionManager) fire(event, reason string) error {
	if err := m.machine.Event(context.Background(), event); err != nil {
		return err
	}
	st := models.ConnectionState(m.machine.Current())
	m.state.Store(st)
	metrics.ConnectionUp.Set(metrics.BoolGauge(st == models.ConnectionConnected))
	m.bus.Publish(Event{Kind: EventConnection, Connection: st, Reason: reason})
	m.log.Infow("connection_state", "state", st, "event", event, "reason", reason)
	return nil
}

// Connect opens the link. It returns the current state unchanged when already
// CONNECTED or CONNECTING.
func (m *ConnectionManager) Connect(ctx context.Context) (models.ConnectionState, error) {
	switch st := m.State(); st {
	case models.ConnectionConnected, models.ConnectionConnecting:
		return st, nil
	case models.ConnectionDisconnecting:
		return st, newError(ErrConnection, "", errors.New("disconnect in progress"))
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if st := m.State(); st != models.ConnectionDisconnected {
		m.mu.Unlock()
		return st, nil
	}
	if err := m.fire(connEventConnect, ""); err != nil {
		m.mu.Unlock()
		return m.State(), newError(ErrConnection, "", err)
	}
	m.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	err := m.transport.Connect(cctx)
	timedOut := errors.Is(cctx.Err(), context.DeadlineExceeded)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		if timedOut && !errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(err, context.DeadlineExceeded)
		}
		if m.State() == models.ConnectionConnecting {
			_ = m.fire(connEventConnectFailed, err.Error())
		}
		m.log.Warnw("connect_failed", "error", err)
		return m.State(), newError(ErrConnection, "", err)
	}

	// Link lost while the transport was still connecting.
	if m.State() != models.ConnectionConnecting {
		dctx, dcancel := context.WithTimeout(context.Background(), m.disconnectTimeout)
		_ = m.transport.Disconnect(dctx)
		dcancel()
		return m.State(), newError(ErrConnection, "", errors.New("link lost during connect"))
	}
	if err := m.fire(connEventConnected, ""); err != nil {
		return m.State(), newError(ErrConnection, "", err)
	}
	m.watchLink()
	return m.State(), nil
}

// watchLink forwards transport link-loss reports. Callers hold mu.
func (m *ConnectionManager) watchLink() {
	lm, ok := m.transport.(LinkMonitor)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopWatch = cancel
	lost := lm.Lost()
	go func() {
		select {
		case <-ctx.Done():
		case err, ok := <-lost:
			if !ok {
				return
			}
			m.ReportLinkLost(err)
		}
	}()
}

func (m *ConnectionManager) unwatchLink() {
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
}

func (m *ConnectionManager) hooks() []func(string) {
	return slices.Clone(m.downHooks)
}

// Disconnect tears the link down. Calling it while DISCONNECTED is a no-op.
// Down hooks run before the transport disconnect.
func (m *ConnectionManager) Disconnect(ctx context.Context) (models.ConnectionState, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.State() == models.ConnectionDisconnected {
		m.mu.Unlock()
		return models.ConnectionDisconnected, nil
	}
	if err := m.fire(connEventDisconnect, ReasonDisconnect); err != nil {
		m.mu.Unlock()
		return m.State(), newError(ErrConnection, "", err)
	}
	m.unwatchLink()
	hooks := m.hooks()
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(ReasonDisconnect)
	}

	dctx, cancel := context.WithTimeout(ctx, m.disconnectTimeout)
	err := m.transport.Disconnect(dctx)
	cancel()

	m.mu.Lock()
	if m.State() == models.ConnectionDisconnecting {
		_ = m.fire(connEventDisconnected, "")
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warnw("disconnect_failed", "error", err)
		return models.ConnectionDisconnected, newError(ErrConnection, "", err)
	}
	return models.ConnectionDisconnected, nil
}

// ReportLinkLost records an abrupt loss of the vehicle link.
func (m *ConnectionManager) ReportLinkLost(cause error) {
	m.mu.Lock()
	st := m.State()
	if st != models.ConnectionConnected && st != models.ConnectionConnecting {
		m.mu.Unlock()
		return
	}
	if err := m.fire(connEventLinkLost, models.ReasonLinkLost); err != nil {
		m.mu.Unlock()
		return
	}
	m.unwatchLink()
	hooks := m.hooks()
	m.mu.Unlock()

	m.log.Warnw("link_lost", "error", cause)
	if st != models.ConnectionConnected {
		return
	}
	for _, fn := range hooks {
		fn(models.ReasonLinkLost)
	}
}
