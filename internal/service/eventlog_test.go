package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"diagnostic_assistant/internal/models"
)

// eventRepoSpy records the last List query and returns canned results.
type eventRepoSpy struct {
	from, to time.Time
	typ      string
	limit    int
	calls    int

	events []models.SessionEvent
	err    error
}

func (s *eventRepoSpy) List(_ context.Context, from, to time.Time, typ string, limit int) ([]models.SessionEvent, error) {
	s.calls++
	s.from, s.to, s.typ, s.limit = from, to, typ, limit
	return s.events, s.err
}

func (s *eventRepoSpy) Append(context.Context, models.SessionEvent) error { return nil }

func TestEventLogService_List(t *testing.T) {
	t.Parallel()

	plus5 := time.FixedZone("UTC+5", 5*3600)
	minus2 := time.FixedZone("UTC-2", -2*3600)
	dbDown := errors.New("db down")

	cases := []struct {
		name      string
		filter    LogFilter
		repoErr   error
		wantErr   error
		wantFrom  time.Time
		wantTo    time.Time
		wantType  string
		wantLimit int
	}{
		{
			name:   "no filter",
			filter: LogFilter{},
		},
		{
			name: "bounds converted to UTC and type normalized",
			filter: LogFilter{
				From:  time.Date(2026, time.October, 1, 10, 0, 0, 0, plus5),
				To:    time.Date(2026, time.October, 1, 12, 30, 0, 0, minus2),
				Type:  "  scan ",
				Limit: 20,
			},
			wantFrom:  time.Date(2026, time.October, 1, 5, 0, 0, 0, time.UTC),
			wantTo:    time.Date(2026, time.October, 1, 14, 30, 0, 0, time.UTC),
			wantType:  LogScan,
			wantLimit: 20,
		},
		{
			name:      "limit clamped",
			filter:    LogFilter{Type: "stream", Limit: 5000},
			wantType:  LogStream,
			wantLimit: maxLogLimit,
		},
		{
			name: "from after to",
			filter: LogFilter{
				From: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC),
			},
			wantErr: errInvalidTimeRange,
		},
		{name: "unknown type", filter: LogFilter{Type: "telemetry"}, wantErr: errInvalidEventType},
		{name: "negative limit", filter: LogFilter{Limit: -1}, wantErr: errInvalidLimit},
		{name: "repository error", filter: LogFilter{}, repoErr: dbDown, wantErr: dbDown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			spy := &eventRepoSpy{events: []models.SessionEvent{{EventID: "1"}}, err: tc.repoErr}
			out, err := NewEventLogService(spy).List(context.Background(), tc.filter)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v; want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil {
				filterErr := tc.repoErr == nil
				if IsFilterError(err) != filterErr {
					t.Fatalf("IsFilterError(%v) = %v", err, !filterErr)
				}
				if filterErr && spy.calls != 0 {
					t.Fatalf("repository queried despite invalid filter")
				}
				return
			}
			if len(out) != 1 || spy.calls != 1 {
				t.Fatalf("events=%+v calls=%d", out, spy.calls)
			}
			if !spy.from.Equal(tc.wantFrom) || !spy.to.Equal(tc.wantTo) {
				t.Fatalf("bounds = [%v, %v]; want [%v, %v]", spy.from, spy.to, tc.wantFrom, tc.wantTo)
			}
			if !spy.from.IsZero() && spy.from.Location() != time.UTC {
				t.Fatalf("from not in UTC: %v", spy.from.Location())
			}
			if spy.typ != tc.wantType || spy.limit != tc.wantLimit {
				t.Fatalf("type=%q limit=%d; want %q %d", spy.typ, spy.limit, tc.wantType, tc.wantLimit)
			}
		})
	}
}
