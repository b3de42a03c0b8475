package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"diagnostic_assistant/internal/logger"
	"diagnostic_assistant/internal/metrics"
	"diagnostic_assistant/internal/models"
)

// Stream end reasons.
const (
	StreamEndStopped      = "STOPPED"
	StreamEndDisconnected = "DISCONNECTED"
	StreamEndLinkLost     = models.ReasonLinkLost
)

// StreamFrame is one delivery to a sensor subscriber. The final frame of a
// stream has Ended set and carries no snapshots.
type StreamFrame struct {
	At        time.Time               `json:"at"`
	Snapshots []models.SensorSnapshot `json:"snapshots,omitempty"`
	Ended     bool                    `json:"ended,omitempty"`
	Reason    string                  `json:"reason,omitempty"`
}

type connectionStater interface {
	State() models.ConnectionState
}

// Streamer samples the transport's sensor subscription on a fixed interval
// and fans snapshot sets out to subscribers, latest value wins.
type Streamer struct {
	transport  VehicleTransport
	conn       connectionStater
	classifier SensorClassifier
	bus        *Bus
	log        *logger.Logger

	mu  sync.Mutex
	run *streamRun

	subMu  sync.Mutex
	subs   map[uint64]chan StreamFrame
	nextID uint64

	latest atomic.Pointer[[]models.SensorSnapshot]
}

type streamRun struct {
	interval    time.Duration
	cancel      context.CancelFunc
	unsubscribe func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
	reason   atomic.Value

	samplesMu sync.Mutex
	samples   map[models.SensorChannel]SensorSample
}

func (r *streamRun) requestStop(reason string) {
	r.stopOnce.Do(func() {
		r.reason.Store(reason)
		close(r.stop)
	})
}

func (r *streamRun) record(s SensorSample) {
	r.samplesMu.Lock()
	r.samples[s.Channel] = s
	r.samplesMu.Unlock()
}

func (r *streamRun) collect() []SensorSample {
	r.samplesMu.Lock()
	defer r.samplesMu.Unlock()
	out := make([]SensorSample, 0, len(r.samples))
	for _, s := range r.samples {
		out = append(out, s)
	}
	return out
}

func NewStreamer(t VehicleTransport, conn connectionStater, classifier SensorClassifier, bus *Bus, log *logger.Logger) *Streamer {
	return &Streamer{
		transport:  t,
		conn:       conn,
		classifier: classifier,
		bus:        bus,
		log:        logger.OrNop(log).Named("stream"),
		subs:       make(map[uint64]chan StreamFrame),
	}
}

// Running reports whether the sampling loop is active.
func (s *Streamer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

// Latest returns the last published snapshot set.
func (s *Streamer) Latest() []models.SensorSnapshot {
	p := s.latest.Load()
	if p == nil {
		return nil
	}
	out := make([]models.SensorSnapshot, len(*p))
	copy(out, *p)
	return out
}

// Start begins sampling every interval. It is a no-op while already running
// and fails with ErrStreamNotConnected unless the link is CONNECTED.
func (s *Streamer) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	for {
		s.mu.Lock()
		prev := s.run
		if prev == nil {
			break
		}
		s.mu.Unlock()
		select {
		case <-prev.stop:
			<-prev.done
		default:
			return nil
		}
	}
	defer s.mu.Unlock()

	if st := s.conn.State(); st != models.ConnectionConnected {
		return newError(ErrStreamNotConnected, string(st), nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &streamRun{
		interval: interval,
		cancel:   cancel,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		samples:  make(map[models.SensorChannel]SensorSample),
	}
	unsub, err := s.transport.SubscribeSensors(ctx, run.record)
	if err != nil {
		cancel()
		return newError(ErrConnection, "sensors", err)
	}
	run.unsubscribe = unsub
	s.run = run

	metrics.StreamRunning.Set(1)
	s.bus.Publish(Event{Kind: EventStreamStarted})
	s.log.Infow("stream_started", "interval", interval)

	go s.loop(run)
	return nil
}

// Stop ends the stream and returns once the loop has exited. Idempotent.
func (s *Streamer) Stop() {
	s.halt(StreamEndStopped)
}

func (s *Streamer) halt(reason string) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return
	}
	run.requestStop(reason)
	<-run.done
}

func (s *Streamer) loop(run *streamRun) {
	defer s.finish(run)

	ticker := time.NewTicker(run.interval)
	defer ticker.Stop()

	for {
		select {
		case <-run.stop:
			return
		case <-ticker.C:
		}
		if st := s.conn.State(); st != models.ConnectionConnected {
			run.requestStop(StreamEndLinkLost)
			return
		}
		frame := StreamFrame{At: time.Now().UTC(), Snapshots: s.snapshot(run)}
		select {
		case <-run.stop:
			return
		default:
		}
		s.latest.Store(&frame.Snapshots)
		s.deliver(frame)
	}
}

func (s *Streamer) snapshot(run *streamRun) []models.SensorSnapshot {
	samples := run.collect()
	out := make([]models.SensorSnapshot, 0, len(samples))
	for _, smp := range samples {
		unit := smp.Unit
		status := models.SensorNormal
		if s.classifier != nil {
			if unit == "" {
				unit = s.classifier.Unit(smp.Channel)
			}
			status = s.classifier.Classify(smp.Channel, smp.Value)
		}
		out = append(out, models.SensorSnapshot{
			Channel:   smp.Channel,
			Value:     smp.Value,
			Unit:      unit,
			Status:    status,
			SampledAt: smp.SampledAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

func (s *Streamer) finish(run *streamRun) {
	run.requestStop(StreamEndStopped)
	if run.unsubscribe != nil {
		run.unsubscribe()
	}
	run.cancel()

	s.mu.Lock()
	if s.run == run {
		s.run = nil
	}
	s.mu.Unlock()

	reason, _ := run.reason.Load().(string)
	metrics.StreamRunning.Set(0)
	s.deliver(StreamFrame{At: time.Now().UTC(), Ended: true, Reason: reason})
	s.bus.Publish(Event{Kind: EventStreamEnded, Reason: reason})
	s.log.Infow("stream_ended", "reason", reason)
	close(run.done)
}

// FrameSubscription receives stream frames on C until Close.
type FrameSubscription struct {
	C <-chan StreamFrame

	once   sync.Once
	cancel func()
}

func (f *FrameSubscription) Close() {
	f.once.Do(f.cancel)
}

// Subscribe registers a frame subscriber. Each subscriber buffers at most one
// frame; a newer frame replaces an unread one.
func (s *Streamer) Subscribe() *FrameSubscription {
	ch := make(chan StreamFrame, 1)

	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = ch
	s.subMu.Unlock()

	return &FrameSubscription{
		C: ch,
		cancel: func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		},
	}
}

func (s *Streamer) deliver(frame StreamFrame) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		f := frame
		if f.Snapshots != nil {
			f.Snapshots = append([]models.SensorSnapshot(nil), frame.Snapshots...)
		}
		select {
		case ch <- f:
			continue
		default:
		}
		select {
		case <-ch:
			metrics.StreamFramesDropped.Inc()
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
}
