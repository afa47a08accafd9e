package handlers

import (
	"errors"
	"net/http"
	"time"

	"appliance_status/internal/detector"

	"github.com/gin-gonic/gin"
)

const (
	statusAccepted = "accepted"

	errReportPower  = "failed to record power reading"
	errReportEnergy = "failed to record energy reading"
	errStaleReading = "reading older than the last accepted one"
)

// Request DTO for a power reading. The timestamp is optional; a missing or
// zero value means "now".
type powerReadingRequest struct {
	PowerW float64   `json:"power_w"`
	At     time.Time `json:"at,omitempty"`
}

type energyReadingRequest struct {
	EnergyKWh float64   `json:"energy_kwh"`
	At        time.Time `json:"at,omitempty"`
}

// PowerReadingRequest is an exported model for Swagger docs of the power payload.
type PowerReadingRequest struct {
	// Instantaneous power draw in watts
	PowerW float64 `json:"power_w" example:"1850.5"`
	// Reading timestamp (RFC3339); defaults to now
	At time.Time `json:"at,omitempty" example:"2025-08-27T15:04:05Z"`
}

// EnergyReadingRequest is an exported model for Swagger docs of the energy payload.
type EnergyReadingRequest struct {
	// Cumulative energy counter in kWh
	EnergyKWh float64 `json:"energy_kwh" example:"152.731"`
	// Reading timestamp (RFC3339); defaults to now
	At time.Time `json:"at,omitempty" example:"2025-08-27T15:04:05Z"`
}

// @Summary      Report power reading
// @Description  Feeds one power reading into the appliance's cycle detector. Readings older than the last accepted one are rejected.
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        id    path   string               true  "Appliance id"
// @Param        body  body   PowerReadingRequest  true  "Power reading"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/appliances/{id}/power [post]
// @Security     BearerAuth
func (h *Handler) reportPower(c *gin.Context) {
	var req powerReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.services.Readings.ReportPower(c.Request.Context(), id, req.PowerW, req.At); err != nil {
		if errors.Is(err, detector.ErrOutOfOrderReading) {
			c.JSON(http.StatusConflict, gin.H{"error": errStaleReading})
			return
		}
		h.notFoundOrInternal(c, errReportPower, "power_report_failed", err, "id", id)
		return
	}
	snap, err := h.services.Monitoring.Status(c.Request.Context(), id)
	if err != nil {
		h.notFoundOrInternal(c, errGetStatus, "status_get_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusAccepted, "appliance": snap})
}

// @Summary      Report energy reading
// @Description  Records the appliance's cumulative energy counter, used to derive per-cycle consumption.
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        id    path   string                true  "Appliance id"
// @Param        body  body   EnergyReadingRequest  true  "Energy reading"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/appliances/{id}/energy [post]
// @Security     BearerAuth
func (h *Handler) reportEnergy(c *gin.Context) {
	var req energyReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.services.Readings.ReportEnergy(c.Request.Context(), id, req.EnergyKWh, req.At); err != nil {
		h.notFoundOrInternal(c, errReportEnergy, "energy_report_failed", err, "id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusAccepted})
}
