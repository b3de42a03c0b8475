package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const errInvalidBodyPref = "invalid body: "

// VehicleRequest is the vehicle setup payload.
type VehicleRequest struct {
	// 17-character VIN; letters I, O and Q are not allowed
	VIN string `json:"vin" binding:"required" example:"MA1NS2NVPR2DS1667"`
	// Manufacturer model code
	ModelCode string `json:"model_code" binding:"required" example:"AS22XPNV5TP03D00ZY"`
}

// @Summary      Vehicle setup
// @Description  Entered vehicle with the time and status of the last recorded run.
// @Tags         vehicle
// @Produce      json
// @Success      200  {object}  models.VehicleSetup
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/vehicle [get]
// @Security     BearerAuth
func (h *Handler) getVehicle(c *gin.Context) {
	setup, err := h.services.Setup(c.Request.Context(), h.services.Vehicle())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load vehicle setup", "vehicle_setup_failed", err)
		return
	}
	c.JSON(http.StatusOK, setup)
}

// @Summary      Set vehicle
// @Description  Stores the vehicle used by scans started without an explicit VIN. Values are upper-cased.
// @Tags         vehicle
// @Accept       json
// @Produce      json
// @Param        body  body   VehicleRequest  true  "Vehicle"
// @Success      200   {object}  models.VehicleIdentity
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/vehicle [put]
// @Security     BearerAuth
func (h *Handler) setVehicle(c *gin.Context) {
	var req VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	v, err := h.services.SetVehicle(req.VIN, req.ModelCode)
	if err != nil {
		h.engineError(c, "vehicle_set_failed", err, "vin", req.VIN)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Clear vehicle
// @Tags         vehicle
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  errorResponse
// @Router       /api/v1/vehicle [delete]
// @Security     BearerAuth
func (h *Handler) clearVehicle(c *gin.Context) {
	if err := h.services.ClearVehicle(); err != nil {
		h.engineError(c, "vehicle_clear_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Fetch vehicle identity from the ECU
// @Description  Reads VIN and model code from the connected vehicle. Does not store them.
// @Tags         vehicle
// @Produce      json
// @Success      200  {object}  models.VehicleIdentity
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /api/v1/vehicle/fetch [post]
// @Security     BearerAuth
func (h *Handler) fetchVehicle(c *gin.Context) {
	v, err := h.services.FetchVehicleIdentity(c.Request.Context())
	if err != nil {
		h.engineError(c, "vehicle_fetch_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}
