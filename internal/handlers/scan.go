package handlers

import (
	"errors"
	"io"
	"net/http"

	"diagnostic_assistant/internal/models"
	"diagnostic_assistant/internal/service"

	"github.com/gin-gonic/gin"
)

// ScanRequest optionally overrides the stored vehicle for one scan.
type ScanRequest struct {
	VIN       string `json:"vin" example:"MA1NS2NVPR2DS1667"`
	ModelCode string `json:"model_code" example:"AS22XPNV5TP03D00ZY"`
}

// @Summary      Start scan
// @Description  Starts a scan in the background. An empty body scans the stored vehicle. Progress is published on /ws.
// @Tags         scan
// @Accept       json
// @Produce      json
// @Param        body  body      ScanRequest  false  "Vehicle override"
// @Success      202   {object}  models.ScanRun
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  errorResponse
// @Router       /api/v1/scan [post]
// @Security     BearerAuth
func (h *Handler) startScan(c *gin.Context) {
	var req ScanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	run, err := h.services.StartScan(service.ScanParams{VIN: req.VIN, ModelCode: req.ModelCode})
	if err != nil {
		h.engineError(c, "scan_start_failed", err, "vin", req.VIN, "user_id", userID(c))
		return
	}
	if h.log != nil {
		h.log.Infow("scan_accepted", "run_id", run.ID, "vin", run.Vehicle.VIN, "user_id", userID(c))
	}
	c.JSON(http.StatusAccepted, run)
}

// @Summary      Cancel scan
// @Tags         scan
// @Produce      json
// @Success      200  {object}  models.ScanRun
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/scan/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelScan(c *gin.Context) {
	run, ok := h.services.CancelScan()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active scan"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// @Summary      Current scan
// @Description  The active run, or the last run of this session. IDLE before the first scan.
// @Tags         scan
// @Produce      json
// @Success      200  {object}  models.ScanRun
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/scan [get]
// @Security     BearerAuth
func (h *Handler) getScan(c *gin.Context) {
	run, ok := h.services.CurrentScan()
	if !ok {
		run = models.ScanRun{Status: models.ScanIdle}
	}
	c.JSON(http.StatusOK, run)
}
