package handlers

import (
	"errors"
	"net/http"

	"appliance_status/internal/detector"
	"appliance_status/internal/repository"
	"appliance_status/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusDeleted = "deleted"

	errCreateAppliance = "failed to create appliance"
	errListAppliances  = "failed to load appliances"
	errDeleteAppliance = "failed to delete appliance"
	errUpdateConfig    = "failed to update configuration"
	errGetStatus       = "failed to load status"
	errApplianceGone   = "appliance not found"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// notFoundOrInternal maps the missing-appliance sentinel to 404, everything
// else to 500.
func (h *Handler) notFoundOrInternal(c *gin.Context, userMsg, logKey string, err error, kv ...interface{}) {
	if errors.Is(err, repository.ErrApplianceNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errApplianceGone})
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, userMsg, logKey, err, kv...)
}

// Request DTO for creating an appliance.
type createApplianceRequest struct {
	Name         string                `json:"name" binding:"required"`
	PowerSensor  string                `json:"power_sensor" binding:"required"`
	EnergySensor string                `json:"energy_sensor,omitempty"`
	Config       service.SettingsPatch `json:"config,omitempty"`
}

// CreateApplianceRequest is an exported model for Swagger docs of the create payload.
type CreateApplianceRequest struct {
	// Human-readable appliance name
	Name string `json:"name" example:"Dishwasher"`
	// Power sensor entity id
	PowerSensor string `json:"power_sensor" example:"sensor.dishwasher_power"`
	// Optional cumulative energy sensor entity id
	EnergySensor string `json:"energy_sensor,omitempty" example:"sensor.dishwasher_energy"`
	// Optional detector settings overrides (defaults apply when omitted)
	Config ConfigPatchRequest `json:"config,omitempty"`
}

// ConfigPatchRequest is an exported model for Swagger docs of the config payload.
type ConfigPatchRequest struct {
	// Power at or above which the appliance is considered in standby (W)
	StandbyThresholdW *float64 `json:"standby_threshold_w,omitempty" example:"2"`
	// Power at or above which the appliance is considered running (W)
	RunningThresholdW *float64 `json:"running_threshold_w,omitempty" example:"8"`
	// Seconds a start must sustain before the cycle counts as running
	StartDelayS *int `json:"start_delay_s,omitempty" example:"300"`
	// Seconds a power drop must sustain before the cycle counts as completed
	FinishDelayS *int `json:"finish_delay_s,omitempty" example:"120"`
	// Minimum seconds between evaluated readings
	DebounceS *int `json:"debounce_s,omitempty" example:"20"`
}

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

// @Summary      Register appliance
// @Description  Creates an appliance and starts its cycle detector. Omitted config fields take defaults.
// @Tags         appliances
// @Accept       json
// @Produce      json
// @Param        body  body   CreateApplianceRequest  true  "Appliance payload"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/appliances [post]
// @Security     BearerAuth
func (h *Handler) createAppliance(c *gin.Context) {
	var req createApplianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	a, err := h.services.Appliances.Create(ctx, service.CreateApplianceParams{
		Name:         req.Name,
		PowerSensor:  req.PowerSensor,
		EnergySensor: req.EnergySensor,
		Settings:     req.Config,
	})
	if err != nil {
		if errors.Is(err, detector.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errCreateAppliance, "appliance_create_failed", err, "name", req.Name)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary      List appliances
// @Tags         appliances
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, appliances"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/appliances [get]
// @Security     BearerAuth
func (h *Handler) listAppliances(c *gin.Context) {
	list, err := h.services.Appliances.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListAppliances, "appliance_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(list),
		"appliances": list,
	})
}

// @Summary      Get appliance
// @Tags         appliances
// @Produce      json
// @Param        id  path  string  true  "Appliance id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/appliances/{id} [get]
// @Security     BearerAuth
func (h *Handler) getAppliance(c *gin.Context) {
	a, err := h.services.Appliances.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOrInternal(c, errListAppliances, "appliance_get_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary      Delete appliance
// @Tags         appliances
// @Produce      json
// @Param        id  path  string  true  "Appliance id"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/appliances/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteAppliance(c *gin.Context) {
	if err := h.services.Appliances.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.notFoundOrInternal(c, errDeleteAppliance, "appliance_delete_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusDeleted})
}

// @Summary      Update detector configuration
// @Description  Partial update; omitted fields keep their current values. An invalid combination is rejected and the previous configuration stays in effect.
// @Tags         appliances
// @Accept       json
// @Produce      json
// @Param        id    path   string              true  "Appliance id"
// @Param        body  body   ConfigPatchRequest  true  "Config patch"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/appliances/{id}/config [patch]
// @Security     BearerAuth
func (h *Handler) updateConfig(c *gin.Context) {
	var patch service.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	a, err := h.services.Appliances.UpdateSettings(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, detector.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.notFoundOrInternal(c, errUpdateConfig, "appliance_config_update_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, a)
}

// @Summary      Get appliance status
// @Description  Live cycle status with derived metrics (cycle duration, cycles today, energy per cycle).
// @Tags         status
// @Produce      json
// @Param        id  path  string  true  "Appliance id"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/appliances/{id}/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	snap, err := h.services.Monitoring.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOrInternal(c, errGetStatus, "status_get_failed", err, "id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Get all appliance statuses
// @Tags         status
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatusAll(c *gin.Context) {
	all, err := h.services.Monitoring.StatusAll(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "status_all_failed", err)
		return
	}
	c.JSON(http.StatusOK, all)
}
