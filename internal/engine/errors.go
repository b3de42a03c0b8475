package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is; *Error carries the affected entity.
var (
	ErrConnection             = errors.New("connection error")
	ErrInvalidVehicleIdentity = errors.New("invalid vehicle identity")
	ErrSessionBusy            = errors.New("session busy")
	ErrUnknownECU             = errors.New("unknown ecu")
	ErrDuplicateECU           = errors.New("duplicate ecu")
	ErrFetchTimeout           = errors.New("ecu fetch timeout")
	ErrFetchFailed            = errors.New("ecu fetch failed")
	ErrStreamNotConnected     = errors.New("stream requires a connected vehicle")
	ErrNotConnected           = errors.New("vehicle not connected")
	ErrCancelled              = errors.New("cancelled")
)

// Error is a classified engine failure. Kind is one of the sentinels above and
// Entity names what it concerns (an ECU id, a VIN, a run id).
type Error struct {
	Kind   error
	Entity string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Entity != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Entity)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, entity string, cause error) *Error {
	return &Error{Kind: kind, Entity: entity, Err: cause}
}

// KindName returns a stable machine-readable name for err's kind, or "" if unclassified.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidVehicleIdentity):
		return "INVALID_VEHICLE_IDENTITY"
	case errors.Is(err, ErrSessionBusy):
		return "SESSION_BUSY"
	case errors.Is(err, ErrUnknownECU):
		return "UNKNOWN_ECU"
	case errors.Is(err, ErrDuplicateECU):
		return "DUPLICATE_ECU"
	case errors.Is(err, ErrFetchTimeout):
		return "FETCH_TIMEOUT"
	case errors.Is(err, ErrFetchFailed):
		return "FETCH_FAILED"
	case errors.Is(err, ErrStreamNotConnected):
		return "STREAM_NOT_CONNECTED"
	case errors.Is(err, ErrNotConnected):
		return "NOT_CONNECTED"
	case errors.Is(err, ErrCancelled):
		return "CANCELLED"
	case errors.Is(err, ErrConnection):
		return "CONNECTION_ERROR"
	}
	return ""
}

// EntityOf returns the entity attached to err, if any.
func EntityOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Entity
	}
	return ""
}
