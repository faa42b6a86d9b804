package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deskforge/pushdesk/internal/model"
	"github.com/deskforge/pushdesk/internal/repository"
)

// DeviceHandler exposes the device registration and heartbeat endpoints.
// Both are thin adapters over the device registry.
type DeviceHandler struct {
	devices *repository.DeviceRepository
}

func NewDeviceHandler(devices *repository.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// Register godoc
// @Summary Register or refresh a push token for the calling user's device
// @Tags Devices
// @Accept json
// @Produce json
// @Param body body model.RegisterDeviceRequest true "Register device request"
// @Success 200 {object} model.RegisterDeviceResponse
// @Failure 400 {object} model.ErrorResponse
// @Security BearerAuth
// @Router /devices/register [post]
func (h *DeviceHandler) Register(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.GetInt64("user_id")
	deviceID, err := h.devices.Upsert(userID, req.DeviceID, req.Token, req.UserAgent, req.Platform)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to register device"})
		return
	}

	c.JSON(http.StatusOK, model.RegisterDeviceResponse{Success: true, DeviceID: deviceID})
}

// Heartbeat godoc
// @Summary Refresh a device's last-seen state and optional ticket watermark
// @Description When the device is unknown the response carries a distinct
// @Description device_not_found error so the client clears its local state.
// @Tags Devices
// @Accept json
// @Produce json
// @Param body body model.HeartbeatRequest true "Heartbeat request"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.SuccessResponse
// @Security BearerAuth
// @Router /devices/heartbeat [post]
func (h *DeviceHandler) Heartbeat(c *gin.Context) {
	var req model.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.GetInt64("user_id")
	err := h.devices.Touch(userID, req.DeviceID, req.TicketID, nil)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		c.JSON(http.StatusNotFound, model.SuccessResponse{Success: false, Error: "device_not_found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to update device"})
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Success: true})
}
