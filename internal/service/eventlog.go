package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/repository"
)

const maxLogLimit = 1000

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errInvalidLimit     = errors.New("invalid limit: must be >= 0")
	errInvalidEventType = errors.New("invalid event type")
)

var eventTypes = map[string]bool{
	"CONNECTION": true,
	"SCAN":       true,
	"REFRESH":    true,
	"STREAM":     true,
	"ERROR":      true,
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	if eventType != "" && !eventTypes[eventType] {
		return time.Time{}, time.Time{}, "", errInvalidEventType
	}
	return from, to, eventType, nil
}

// List returns session log entries oldest first. Limit keeps the newest entries.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.SessionEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	if f.Limit < 0 {
		return nil, errInvalidLimit
	}
	limit := f.Limit
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return s.eventRepo.List(ctx, from, to, typ, limit)
}

// IsFilterError reports whether err comes from an invalid log filter.
func IsFilterError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, errInvalidLimit) || errors.Is(err, errInvalidEventType)
}
