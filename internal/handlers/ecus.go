package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"diagnostic_assistant/internal/engine"
	"diagnostic_assistant/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      List ECUs
// @Description  ECU records in discovery order.
// @Tags         ecus
// @Produce      json
// @Param        status    query  string  false  "ECU status"  Enums(SUCCESS,DTC_FOUND,DASHBOARD_DATA,UNKNOWN)
// @Param        with_dtc  query  bool    false  "Only units with stored DTCs"
// @Success      200  {object}  map[string]interface{}  "count, ecus, summary"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/ecus [get]
// @Security     BearerAuth
func (h *Handler) listECUs(c *gin.Context) {
	withDTC := false
	if s := c.Query("with_dtc"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'with_dtc'; use true or false"})
			return
		}
		withDTC = v
	}
	f, err := service.ParseECUFilter(c.Query("status"), withDTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ecus := h.services.ECUs(f)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(ecus),
		"ecus":    ecus,
		"summary": h.services.Summary(),
	})
}

// @Summary      DTC summary
// @Tags         ecus
// @Produce      json
// @Success      200  {object}  models.DTCSummary
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/ecus/summary [get]
// @Security     BearerAuth
func (h *Handler) getSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Summary())
}

// @Summary      Refresh ECUs
// @Description  Re-queries every ECU. ECUs that fail keep their previous record and are listed in failures.
// @Tags         ecus
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "result, partial"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /api/v1/ecus/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshECUs(c *gin.Context) {
	res, err := h.services.Refresh(c.Request.Context())
	if err != nil {
		h.engineError(c, "ecu_refresh_failed", err, "queried", res.Queried)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result":  res,
		"partial": res.Partial(),
	})
}

// @Summary      Refresh one ECU
// @Description  Re-queries a single ECU and updates its record. A failed query leaves the record unchanged.
// @Tags         ecus
// @Produce      json
// @Param        id   path      string  true  "ECU id"  example(EMS)
// @Success      200  {object}  map[string]interface{}  "ecu, summary"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Failure      504  {object}  errorResponse
// @Router       /api/v1/ecus/{id}/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshECU(c *gin.Context) {
	id := c.Param("id")
	rec, summary, err := h.services.RefreshECU(c.Request.Context(), id)
	if err != nil {
		code := statusFor(err)
		if errors.Is(err, engine.ErrUnknownECU) {
			code = http.StatusNotFound
		}
		h.engineErrorStatus(c, code, "ecu_refresh_one_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ecu": rec, "summary": summary})
}

// @Summary      Get ECU
// @Tags         ecus
// @Produce      json
// @Param        id   path      string  true  "ECU id"  example(EMS)
// @Success      200  {object}  models.ECURecord
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/ecus/{id} [get]
// @Security     BearerAuth
func (h *Handler) getECU(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.services.ECU(id)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownECU) {
			h.engineErrorStatus(c, http.StatusNotFound, "ecu_lookup_failed", err, "id", id)
			return
		}
		h.engineError(c, "ecu_lookup_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, rec)
}
