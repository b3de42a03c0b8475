package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/models"
)

type busSource struct{ bus *engine.Bus }

func (b busSource) SubscribeEvents() *engine.Subscription { return b.bus.Subscribe() }

// eventSink captures appended session events.
type eventSink struct {
	mu     sync.Mutex
	events []models.SessionEvent
	err    error
}

func (s *eventSink) Append(_ context.Context, e models.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *eventSink) List(context.Context, time.Time, time.Time, string, int) ([]models.SessionEvent, error) {
	return nil, nil
}

func (s *eventSink) snapshot() []models.SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SessionEvent(nil), s.events...)
}

// lockedRuns guards runRepoStub for use from the recorder goroutine.
type lockedRuns struct {
	mu sync.Mutex
	runRepoStub
}

func (l *lockedRuns) Save(ctx context.Context, run models.ScanRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runRepoStub.Save(ctx, run)
}

func TestRecorder_PersistsEventsAndTerminalRuns(t *testing.T) {
	t.Parallel()

	bus := engine.NewBus()
	sink := &eventSink{}
	runs := &lockedRuns{}
	done := NewRecorder(busSource{bus}, runs, sink, nil).Start(context.Background())

	scanning := models.ScanRun{ID: 1, Status: models.ScanScanning}
	finished := models.ScanRun{ID: 1, Status: models.ScanWarning, Reason: models.ReasonDTCFound,
		Summary: models.DTCSummary{TotalDTCs: 80, TotalECUs: 15, ECUsWithDTCs: 13}}
	summary := finished.Summary

	bus.Publish(engine.Event{Kind: engine.EventConnection, Connection: models.ConnectionConnected})
	bus.Publish(engine.Event{Kind: engine.EventScan, Run: &scanning})
	bus.Publish(engine.Event{Kind: engine.EventScan, Run: &finished})
	bus.Publish(engine.Event{Kind: engine.EventRefresh, Summary: &summary, Failures: []models.ECUFailure{{ECUID: "EPS"}}})
	bus.Publish(engine.Event{Kind: engine.EventStreamEnded, Reason: engine.StreamEndLinkLost})
	bus.Publish(engine.Event{Kind: engine.EventDisconnectDuringScan, Run: &scanning})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("recorder did not stop after the feed closed")
	}

	got := sink.snapshot()
	wantTypes := []string{LogConnection, LogScan, LogScan, LogRefresh, LogStream, LogError}
	if len(got) != len(wantTypes) {
		t.Fatalf("recorded %d events, want %d", len(got), len(wantTypes))
	}
	for i, w := range wantTypes {
		if got[i].Type != w || got[i].EventID == "" || got[i].OccurredAt.IsZero() {
			t.Fatalf("event %d: %+v", i, got[i])
		}
	}
	if got[3].Description != "ECU list refreshed: 15 ECUs, 80 DTCs" {
		t.Fatalf("refresh description %q", got[3].Description)
	}

	runs.mu.Lock()
	defer runs.mu.Unlock()
	if len(runs.saved) != 1 || runs.saved[0].Status != models.ScanWarning {
		t.Fatalf("saved runs %+v", runs.saved)
	}
}

func TestRecorder_KeepsGoingAfterWriteErrors(t *testing.T) {
	t.Parallel()

	bus := engine.NewBus()
	sink := &eventSink{err: errors.New("disk full")}
	runs := &lockedRuns{}
	runs.saveErr = errors.New("disk full")
	done := NewRecorder(busSource{bus}, runs, sink, nil).Start(context.Background())

	failed := models.ScanRun{ID: 2, Status: models.ScanFailed, Reason: models.ReasonCancelled}
	bus.Publish(engine.Event{Kind: engine.EventScan, Run: &failed})
	bus.Publish(engine.Event{Kind: engine.EventStreamStarted})
	bus.Close()
	<-done

	if n := len(sink.snapshot()); n != 2 {
		t.Fatalf("attempted %d appends, want 2", n)
	}
}

func TestRecorder_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	bus := engine.NewBus()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := NewRecorder(busSource{bus}, &lockedRuns{}, &eventSink{}, nil).Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("recorder ignored cancellation")
	}
}

// gatedSink blocks the first Append until release is closed.
type gatedSink struct {
	eventSink
	release chan struct{}
	once    sync.Once
}

func (g *gatedSink) Append(ctx context.Context, e models.SessionEvent) error {
	g.once.Do(func() { <-g.release })
	return g.eventSink.Append(ctx, e)
}

func TestRecorder_ResubscribesAfterFallingBehind(t *testing.T) {
	t.Parallel()

	bus := engine.NewBus()
	defer bus.Close()
	sink := &gatedSink{release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewRecorder(busSource{bus}, &lockedRuns{}, sink, nil).Start(ctx)

	for i := 0; i < engine.MaxPendingEvents+8; i++ {
		bus.Publish(engine.Event{Kind: engine.EventConnection, Connection: models.ConnectionConnected})
	}
	close(sink.release)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		bus.Publish(engine.Event{Kind: engine.EventStreamStarted})
		for _, e := range sink.snapshot() {
			if e.Type == LogStream {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("recorder stopped recording after its feed overflowed")
}
