package handlers

import (
	"errors"
	"net/http"

	"diagnostic_assistant/internal/engine"

	"github.com/gin-gonic/gin"
)

// errorResponse is the body of every engine failure.
type errorResponse struct {
	Error  string `json:"error" example:"session busy: 1"`
	Kind   string `json:"kind,omitempty" example:"SESSION_BUSY"`
	Entity string `json:"entity,omitempty" example:"1"`
}

// statusFor maps an engine error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidVehicleIdentity):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrSessionBusy),
		errors.Is(err, engine.ErrNotConnected),
		errors.Is(err, engine.ErrStreamNotConnected):
		return http.StatusConflict
	case errors.Is(err, engine.ErrFetchTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrConnection),
		errors.Is(err, engine.ErrFetchFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// engineError logs err and writes the classified error body.
func (h *Handler) engineError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	h.engineErrorStatus(c, statusFor(err), logKey, err, kv...)
}

func (h *Handler) engineErrorStatus(c *gin.Context, code int, logKey string, err error, kv ...interface{}) {
	if h.log != nil {
		fields := append([]interface{}{"err", err, "kind", engine.KindName(err)}, kv...)
		if code >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(code, errorResponse{
		Error:  err.Error(),
		Kind:   engine.KindName(err),
		Entity: engine.EntityOf(err),
	})
}

// logAndJSONError writes a plain error for failures outside the engine.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}
