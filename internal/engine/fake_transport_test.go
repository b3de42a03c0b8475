package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"diagnostic_assistant/internal/models"
)

const (
	testVIN   = "MA1NS2NVPR2DS1667"
	testModel = "AS22XPNV5TP03D00ZY"
)

// ---- Test doubles ----

type fakeECU struct {
	status models.ECUStatus
	count  int
}

// fakeTransport is a scriptable VehicleTransport.
type fakeTransport struct {
	mu sync.Mutex

	connectErr    error
	connectBlock  bool
	disconnectErr error
	vin, model    string
	identityErr   error
	listErr       error
	ids           []string
	ecus          map[string]fakeECU
	hang          map[string]bool
	fail          map[string]error
	gate          chan struct{}

	inFlight    int
	maxInFlight int
	connects    int
	disconnects int
	queries     int

	sensorFn     func(SensorSample)
	unsubscribed int
}

// newFakeTransport returns 15 healthy ECUs (ECU01..ECU15) and the test identity.
func newFakeTransport() *fakeTransport {
	f := &fakeTransport{
		vin:   testVIN,
		model: testModel,
		ecus:  make(map[string]fakeECU),
		hang:  make(map[string]bool),
		fail:  make(map[string]error),
	}
	for i := 1; i <= 15; i++ {
		id := fmt.Sprintf("ECU%02d", i)
		f.ids = append(f.ids, id)
		f.ecus[id] = fakeECU{status: models.ECUStatusSuccess}
	}
	return f
}

func (f *fakeTransport) set(fn func(f *fakeTransport)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	block, err := f.connectBlock, f.connectErr
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeTransport) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return f.disconnectErr
}

func (f *fakeTransport) FetchIdentity(ctx context.Context) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identityErr != nil {
		return "", "", f.identityErr
	}
	return f.vin, f.model, nil
}

func (f *fakeTransport) ListECUs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.ids...), nil
}

func (f *fakeTransport) QueryECU(ctx context.Context, id string) (models.ECUStatus, int, error) {
	f.mu.Lock()
	f.queries++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate, hang, err := f.gate, f.hang[id], f.fail[id]
	e, ok := f.ecus[id]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	}
	if hang {
		<-ctx.Done()
		return "", 0, ctx.Err()
	}
	if err != nil {
		return "", 0, err
	}
	if !ok {
		return "", 0, errors.New("no such ecu")
	}
	return e.status, e.count, nil
}

func (f *fakeTransport) SubscribeSensors(ctx context.Context, fn func(SensorSample)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sensorFn = fn
	return func() {
		f.mu.Lock()
		f.sensorFn = nil
		f.unsubscribed++
		f.mu.Unlock()
	}, nil
}

func (f *fakeTransport) emit(s SensorSample) {
	f.mu.Lock()
	fn := f.sensorFn
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// linkTransport adds LinkMonitor to fakeTransport.
type linkTransport struct {
	*fakeTransport
	lost chan error
}

func (l *linkTransport) Lost() <-chan error { return l.lost }

// testCatalog flags special units and marks values above 100 as ERROR.
type testCatalog struct {
	special map[string]bool
}

func (c testCatalog) DescribeECU(id string) (string, string, bool) {
	return id + " unit", "", c.special[id]
}

func (testCatalog) Classify(ch models.SensorChannel, v float64) models.SensorStatus {
	if v > 100 {
		return models.SensorError
	}
	return models.SensorNormal
}

func (testCatalog) Unit(ch models.SensorChannel) string { return "u" }

// ---- Helpers ----

func waitUntil(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", d)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func nextEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatalf("event subscription closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event within 2s")
	}
	return Event{}
}

// nextEventOf skips events until one of kind arrives.
func nextEventOf(t *testing.T, sub *Subscription, kind EventKind) Event {
	t.Helper()
	for {
		ev := nextEvent(t, sub)
		if ev.Kind == kind {
			return ev
		}
	}
}

func newTestCoordinator(t *testing.T, tr VehicleTransport, opts Options) *Coordinator {
	t.Helper()
	c := NewCoordinator(tr, testCatalog{}, nil, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}

func mustConnect(t *testing.T, c *Coordinator) {
	t.Helper()
	st, err := c.Connect(context.Background())
	if err != nil || st != models.ConnectionConnected {
		t.Fatalf("connect: state=%s err=%v", st, err)
	}
}
