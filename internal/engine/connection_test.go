package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"diagnostic_assistant/internal/models"
)

func TestConnectionManager_ConnectAndDisconnect(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe()
	defer sub.Close()

	m := NewConnectionManager(ft, bus, nil, time.Second, time.Second)
	if m.State() != models.ConnectionDisconnected {
		t.Fatalf("initial state: %s", m.State())
	}

	st, err := m.Connect(context.Background())
	if err != nil || st != models.ConnectionConnected {
		t.Fatalf("connect: %s %v", st, err)
	}

	// Already connected: no second transport call.
	st, err = m.Connect(context.Background())
	if err != nil || st != models.ConnectionConnected {
		t.Fatalf("second connect: %s %v", st, err)
	}
	if ft.connects != 1 {
		t.Fatalf("transport connects: want 1, got %d", ft.connects)
	}

	st, err = m.Disconnect(context.Background())
	if err != nil || st != models.ConnectionDisconnected {
		t.Fatalf("disconnect: %s %v", st, err)
	}
	st, err = m.Disconnect(context.Background())
	if err != nil || st != models.ConnectionDisconnected {
		t.Fatalf("second disconnect: %s %v", st, err)
	}
	if ft.disconnects != 1 {
		t.Fatalf("transport disconnects: want 1, got %d", ft.disconnects)
	}

	want := []models.ConnectionState{
		models.ConnectionConnecting,
		models.ConnectionConnected,
		models.ConnectionDisconnecting,
		models.ConnectionDisconnected,
	}
	var lastSeq uint64
	for i, w := range want {
		ev := nextEvent(t, sub)
		if ev.Kind != EventConnection || ev.Connection != w {
			t.Fatalf("event %d: got %s/%s, want %s", i, ev.Kind, ev.Connection, w)
		}
		if ev.Seq <= lastSeq {
			t.Fatalf("event %d: seq %d not increasing", i, ev.Seq)
		}
		lastSeq = ev.Seq
	}
}

func TestConnectionManager_ConnectFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		setup     func(f *fakeTransport)
		wantCause error
	}{
		{
			name:      "transport error",
			setup:     func(f *fakeTransport) { f.connectErr = errors.New("adapter not found") },
			wantCause: nil,
		},
		{
			name:      "timeout",
			setup:     func(f *fakeTransport) { f.connectBlock = true },
			wantCause: context.DeadlineExceeded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ft := newFakeTransport()
			ft.set(tc.setup)
			m := NewConnectionManager(ft, NewBus(), nil, 30*time.Millisecond, time.Second)

			st, err := m.Connect(context.Background())
			if !errors.Is(err, ErrConnection) {
				t.Fatalf("want ErrConnection, got %v", err)
			}
			if tc.wantCause != nil && !errors.Is(err, tc.wantCause) {
				t.Fatalf("want cause %v, got %v", tc.wantCause, err)
			}
			if st != models.ConnectionDisconnected || m.State() != models.ConnectionDisconnected {
				t.Fatalf("state after failure: %s / %s", st, m.State())
			}
		})
	}
}

func TestConnectionManager_DownHooksRunBeforeTransportDisconnect(t *testing.T) {
	t.Parallel()

	ft := newFakeTransport()
	m := NewConnectionManager(ft, NewBus(), nil, time.Second, time.Second)

	var got []string
	var disconnectsAtHook int
	m.OnDown(func(reason string) {
		got = append(got, reason)
		ft.mu.Lock()
		disconnectsAtHook = ft.disconnects
		ft.mu.Unlock()
	})

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := m.Disconnect(context.Background()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if len(got) != 1 || got[0] != ReasonDisconnect {
		t.Fatalf("hook reasons: %v", got)
	}
	if disconnectsAtHook != 0 {
		t.Fatalf("transport disconnected before hook ran")
	}
}

func TestConnectionManager_LinkMonitor(t *testing.T) {
	t.Parallel()

	lt := &linkTransport{fakeTransport: newFakeTransport(), lost: make(chan error, 1)}
	m := NewConnectionManager(lt, NewBus(), nil, time.Second, time.Second)

	var mu sync.Mutex
	var reasons []string
	m.OnDown(func(reason string) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	})

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	lt.lost <- errors.New("cable unplugged")

	waitUntil(t, time.Second, func() bool { return m.State() == models.ConnectionDisconnected })
	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reasons) == 1 && reasons[0] == models.ReasonLinkLost
	})

	// A repeated report is ignored.
	m.ReportLinkLost(errors.New("again"))
	mu.Lock()
	defer mu.Unlock()
	if len(reasons) != 1 {
		t.Fatalf("hooks ran %d times", len(reasons))
	}
}

func TestConnectionManager_HookAddedDuringTeardownRunsNextTime(t *testing.T) {
	t.Parallel()

	m := NewConnectionManager(newFakeTransport(), NewBus(), nil, time.Second, time.Second)

	var first, late int
	m.OnDown(func(string) {
		first++
		if first == 1 {
			m.OnDown(func(string) { late++ })
		}
	})

	for i := 0; i < 2; i++ {
		if _, err := m.Connect(context.Background()); err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
		if _, err := m.Disconnect(context.Background()); err != nil {
			t.Fatalf("disconnect %d: %v", i, err)
		}
	}
	if first != 2 || late != 1 {
		t.Fatalf("hook runs: first=%d late=%d; want 2 and 1", first, late)
	}
}
