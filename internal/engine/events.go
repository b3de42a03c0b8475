package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"diagnostic_assistant/internal/metrics"
	"diagnostic_assistant/internal/models"
)

// MaxPendingEvents bounds each subscriber's backlog. A subscriber that falls
// further behind is detached: its channel closes and Overflowed reports true.
const MaxPendingEvents = 1024

type EventKind string

const (
	EventConnection           EventKind = "CONNECTION"
	EventDisconnectDuringScan EventKind = "DISCONNECT_DURING_SCAN"
	EventScan                 EventKind = "SCAN"
	EventRefresh              EventKind = "REFRESH"
	EventStreamStarted        EventKind = "STREAM_STARTED"
	EventStreamEnded          EventKind = "STREAM_ENDED"
)

// Event is a state-change notification. Pointer fields are private copies.
type Event struct {
	Seq        uint64                 `json:"seq"`
	Kind       EventKind              `json:"kind"`
	At         time.Time              `json:"at"`
	Connection models.ConnectionState `json:"connection,omitempty"`
	Run        *models.ScanRun        `json:"run,omitempty"`
	Summary    *models.DTCSummary     `json:"summary,omitempty"`
	Failures   []models.ECUFailure    `json:"failures,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
}

// Bus fans state-change events out to subscribers in publish order.
// Publish never blocks on a slow subscriber; each subscriber has its own
// queue of at most MaxPendingEvents.
type Bus struct {
	mu     sync.Mutex
	seq    uint64
	nextID uint64
	subs   map[uint64]*subscriber
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// Subscription delivers events on C until Close. C is closed afterwards.
type Subscription struct {
	C <-chan Event

	sub    *subscriber
	once   sync.Once
	cancel func()
}

// Overflowed reports whether the bus detached this subscription because its
// backlog exceeded MaxPendingEvents.
func (s *Subscription) Overflowed() bool {
	return s.sub != nil && s.sub.overflow.Load()
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

type subscriber struct {
	mu    sync.Mutex
	queue []Event
	wake  chan struct{}
	out   chan Event

	quitOnce sync.Once
	quit     chan struct{}
	overflow atomic.Bool
}

func (s *subscriber) stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// push enqueues ev; it reports false when the backlog is full.
func (s *subscriber) push(ev Event) bool {
	s.mu.Lock()
	if len(s.queue) >= MaxPendingEvents {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.out <- ev:
			case <-s.quit:
				return
			}
		}
	}
}

// Subscribe registers a new subscriber. Events published before the call are not replayed.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscriber{
		wake: make(chan struct{}, 1),
		out:  make(chan Event),
		quit: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.out)
		return &Subscription{C: sub.out, cancel: func() {}}
	}
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	go sub.pump()

	return &Subscription{
		C:   sub.out,
		sub: sub,
		cancel: func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			sub.stop()
		},
	}
}

// Publish stamps ev with the next sequence number and enqueues it for every subscriber.
func (b *Bus) Publish(ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ev
	}
	b.seq++
	ev.Seq = b.seq
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	for id, s := range b.subs {
		if !s.push(ev) {
			delete(b.subs, id)
			s.overflow.Store(true)
			s.stop()
			metrics.EventSubscribersDropped.Inc()
		}
	}
	return ev
}

// Close detaches all subscribers and drops further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = map[uint64]*subscriber{}
	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}
