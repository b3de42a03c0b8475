package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const maxStreamInterval = time.Minute

// parseStreamInterval reads ?interval=500ms or ?interval_ms=500. Zero means the configured default.
func parseStreamInterval(c *gin.Context) (time.Duration, bool) {
	if s := c.Query("interval"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 || d > maxStreamInterval {
			return 0, false
		}
		return d, true
	}
	if s := c.Query("interval_ms"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || time.Duration(v)*time.Millisecond > maxStreamInterval {
			return 0, false
		}
		return time.Duration(v) * time.Millisecond, true
	}
	return 0, true
}

// @Summary      Start live data stream
// @Description  Samples sensors on a fixed interval. Frames are pushed on /ws. No-op while already running.
// @Tags         stream
// @Produce      json
// @Param        interval     query  string  false  "Sampling interval (Go duration, up to 1m)"  example(500ms)
// @Param        interval_ms  query  int     false  "Sampling interval in milliseconds"
// @Success      200  {object}  map[string]bool  "running"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  errorResponse
// @Router       /api/v1/stream/start [post]
// @Security     BearerAuth
func (h *Handler) startStream(c *gin.Context) {
	interval, ok := parseStreamInterval(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval; use a positive duration up to 1m"})
		return
	}
	if err := h.services.StartStream(interval); err != nil {
		h.engineError(c, "stream_start_failed", err, "interval", interval)
		return
	}
	c.JSON(http.StatusOK, gin.H{"running": true})
}

// @Summary      Stop live data stream
// @Tags         stream
// @Produce      json
// @Success      200  {object}  map[string]bool  "running"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/stream/stop [post]
// @Security     BearerAuth
func (h *Handler) stopStream(c *gin.Context) {
	h.services.StopStream()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

// @Summary      Latest sensor values
// @Tags         stream
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, sensors"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/stream/latest [get]
// @Security     BearerAuth
func (h *Handler) latestSensors(c *gin.Context) {
	sensors := h.services.LatestSensors()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(sensors),
		"sensors": sensors,
	})
}
