package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// @Summary      List scan runs
// @Description  Persisted runs, newest first.
// @Tags         runs
// @Produce      json
// @Param        limit  query  int  false  "Maximum runs (default 50, max 500)"
// @Success      200  {object}  map[string]interface{}  "count, runs"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/runs [get]
// @Security     BearerAuth
func (h *Handler) listRuns(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit'; use a non-negative integer"})
			return
		}
		limit = v
	}
	runs, err := h.services.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load runs", "runs_list_failed", err, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"runs":  runs,
	})
}

// @Summary      Last scan run
// @Description  The most recent persisted run, IDLE when none was recorded.
// @Tags         runs
// @Produce      json
// @Success      200  {object}  models.ScanRun
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/runs/last [get]
// @Security     BearerAuth
func (h *Handler) lastRun(c *gin.Context) {
	run, err := h.services.LastRun(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load last run", "runs_last_failed", err)
		return
	}
	c.JSON(http.StatusOK, run)
}
