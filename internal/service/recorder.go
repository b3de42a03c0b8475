package service

import (
	"context"
	"fmt"
	"time"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/metrics"
	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/repository"

	"github.com/google/uuid"
)

// Session log entry types.
const (
	LogConnection = "CONNECTION"
	LogScan       = "SCAN"
	LogRefresh    = "REFRESH"
	LogStream     = "STREAM"
	LogError      = "ERROR"
)

const recordTimeout = 5 * time.Second

// EventSource is where the recorder reads state changes from.
type EventSource interface {
	SubscribeEvents() *engine.Subscription
}

// Recorder persists engine events: every event goes to the session log and
// every terminal scan run goes to the run history.
type Recorder struct {
	source    EventSource
	runRepo   repository.RunRepo
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewRecorder(source EventSource, runRepo repository.RunRepo, eventRepo repository.EventRepo, log *logger.Logger) *Recorder {
	return &Recorder{
		source:    source,
		runRepo:   runRepo,
		eventRepo: eventRepo,
		log:       logger.OrNop(log).Named("recorder"),
	}
}

// Start subscribes immediately and records in a background goroutine until
// ctx is cancelled or the event feed closes. The returned channel is closed
// when recording stops.
func (r *Recorder) Start(ctx context.Context) <-chan struct{} {
	sub := r.source.SubscribeEvents()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for sub != nil {
			overflowed := r.run(ctx, sub)
			sub.Close()
			sub = nil
			if overflowed && ctx.Err() == nil {
				r.log.Errorw("event_feed_overflowed", "max_pending", engine.MaxPendingEvents)
				sub = r.source.SubscribeEvents()
			}
		}
	}()
	return done
}

// run records until ctx ends or the feed closes. It reports whether the feed
// was closed for falling behind.
func (r *Recorder) run(ctx context.Context, sub *engine.Subscription) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return sub.Overflowed()
			}
			r.record(ev)
		}
	}
}

// record writes with its own deadline so a shutdown still flushes the last events.
func (r *Recorder) record(ev engine.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if ev.Kind == engine.EventScan && ev.Run != nil && ev.Run.Status.Terminal() {
		if err := r.runRepo.Save(ctx, *ev.Run); err != nil {
			metrics.HistoryWriteErrors.WithLabelValues("scan_runs").Inc()
			r.log.Errorw("run_save_failed", "run_id", ev.Run.ID, "error", err)
		}
	}

	entry := describe(ev)
	if err := r.eventRepo.Append(ctx, entry); err != nil {
		metrics.HistoryWriteErrors.WithLabelValues("session_events").Inc()
		r.log.Errorw("event_append_failed", "kind", ev.Kind, "seq", ev.Seq, "error", err)
	}
}

// describe maps an engine event to a session log entry.
func describe(ev engine.Event) models.SessionEvent {
	out := models.SessionEvent{
		EventID:    uuid.NewString(),
		OccurredAt: ev.At.UTC(),
	}
	meta := map[string]any{"seq": ev.Seq}
	if ev.Reason != "" {
		meta["reason"] = ev.Reason
	}

	switch ev.Kind {
	case engine.EventConnection:
		out.Type = LogConnection
		out.Description = fmt.Sprintf("Vehicle link %s", ev.Connection)
		meta["state"] = ev.Connection

	case engine.EventDisconnectDuringScan:
		out.Type = LogError
		out.Description = "Vehicle disconnected during scan"
		if ev.Run != nil {
			out.Description = fmt.Sprintf("Vehicle disconnected during scan %d", ev.Run.ID)
			meta["run_id"] = ev.Run.ID
		}

	case engine.EventScan:
		out.Type = LogScan
		if ev.Run != nil {
			run := ev.Run
			out.Description = fmt.Sprintf("Scan %d %s", run.ID, run.Status)
			meta["run_id"] = run.ID
			meta["status"] = run.Status
			meta["vin"] = run.Vehicle.VIN
			if run.Reason != "" {
				meta["reason"] = run.Reason
			}
			if run.Status.Terminal() {
				meta["summary"] = run.Summary
				if n := len(run.Failures); n > 0 {
					meta["failed_ecus"] = n
				}
			}
		}

	case engine.EventRefresh:
		out.Type = LogRefresh
		out.Description = "ECU list refreshed"
		if ev.Summary != nil {
			out.Description = fmt.Sprintf("ECU list refreshed: %d ECUs, %d DTCs", ev.Summary.TotalECUs, ev.Summary.TotalDTCs)
			meta["summary"] = *ev.Summary
		}
		if n := len(ev.Failures); n > 0 {
			meta["failed_ecus"] = n
		}

	case engine.EventStreamStarted:
		out.Type = LogStream
		out.Description = "Live data stream started"

	case engine.EventStreamEnded:
		out.Type = LogStream
		out.Description = "Live data stream ended"

	default:
		out.Type = LogError
		out.Description = fmt.Sprintf("Unhandled event %s", ev.Kind)
	}

	out.Metadata = meta
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}
	return out
}
