package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"diagnostic_assistant/internal/service"

	"github.com/gin-gonic/gin"
)

// queryTimeLayouts are tried in order; the flag marks day-granularity values.
var queryTimeLayouts = []struct {
	layout  string
	dayOnly bool
}{
	{time.RFC3339, false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", true},
}

// parseQueryTime parses s as UTC. A day-only value is returned as the start
// of that day, or its last nanosecond when endOfDay is set.
func parseQueryTime(s string, endOfDay bool) (time.Time, bool) {
	for _, l := range queryTimeLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.dayOnly && endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// logFilterFromQuery reads from/to/type/limit. On failure the second return
// value is the message for the 400 response.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, string) {
	f := service.LogFilter{Type: strings.ToUpper(strings.TrimSpace(c.Query("type")))}

	var ok bool
	if s := c.Query("from"); s != "" {
		if f.From, ok = parseQueryTime(s, false); !ok {
			return f, "invalid 'from' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
		}
	}
	if s := c.Query("to"); s != "" {
		if f.To, ok = parseQueryTime(s, true); !ok {
			return f, "invalid 'to' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
		}
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, "invalid 'limit'; use a non-negative integer"
		}
		f.Limit = n
	}
	return f, ""
}

// @Summary      Session log
// @Description  Filter the session log by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive. With 'limit' only the newest entries are returned, oldest first.
// @Tags         logs
// @Produce      json
// @Param        from   query   string  false  "Start of range"  example(2026-10-01)
// @Param        to     query   string  false  "End of range. Date-only treated as end of day."  example(2026-10-31)
// @Param        type   query   string  false  "Entry type"  Enums(CONNECTION,SCAN,REFRESH,STREAM,ERROR)
// @Param        limit  query   int     false  "Newest N entries (max 1000)"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, badQuery := logFilterFromQuery(c)
	if badQuery != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": badQuery})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	switch {
	case service.IsFilterError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"from", filter.From, "to", filter.To, "type", filter.Type)
	default:
		c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
	}
}
