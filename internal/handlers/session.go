package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Connect to the vehicle
// @Description  Opens the vehicle link. Idempotent while connected or connecting.
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]string  "connection"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  errorResponse
// @Router       /api/v1/session/connect [post]
// @Security     BearerAuth
func (h *Handler) connect(c *gin.Context) {
	st, err := h.services.Connect(c.Request.Context())
	if err != nil {
		h.engineError(c, "session_connect_failed", err, "user_id", userID(c))
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": st})
}

// @Summary      Disconnect from the vehicle
// @Description  Closes the vehicle link. An active scan is cancelled and the live stream stops.
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]string  "connection"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  errorResponse
// @Router       /api/v1/session/disconnect [post]
// @Security     BearerAuth
func (h *Handler) disconnect(c *gin.Context) {
	st, err := h.services.Disconnect(c.Request.Context())
	if err != nil {
		h.engineError(c, "session_disconnect_failed", err, "state", st)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": st})
}

// @Summary      Session state
// @Description  Connection state, vehicle, current scan, DTC summary and stream state.
// @Tags         session
// @Produce      json
// @Success      200  {object}  engine.Status
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/session/state [get]
// @Security     BearerAuth
func (h *Handler) getSessionState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Status())
}
