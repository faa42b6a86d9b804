package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/deskforge/pushdesk/internal/model"
	"github.com/deskforge/pushdesk/internal/repository"
	"github.com/deskforge/pushdesk/internal/service"
)

// AdminHandler exposes administrative device CRUD and the test notification
// action.
type AdminHandler struct {
	devices    *repository.DeviceRepository
	dispatcher *service.Dispatcher
}

func NewAdminHandler(devices *repository.DeviceRepository, dispatcher *service.Dispatcher) *AdminHandler {
	return &AdminHandler{devices: devices, dispatcher: dispatcher}
}

// ListDevices godoc
// @Summary List all registered devices
// @Tags Admin
// @Produce json
// @Success 200 {array} model.Device
// @Security BearerAuth
// @Router /admin/devices [get]
func (h *AdminHandler) ListDevices(c *gin.Context) {
	devices, err := h.devices.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to list devices"})
		return
	}
	c.JSON(http.StatusOK, devices)
}

// DeleteDevice godoc
// @Summary Delete one device by its row id
// @Tags Admin
// @Produce json
// @Param id path string true "Device row id"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Security BearerAuth
// @Router /admin/devices/{id} [delete]
func (h *AdminHandler) DeleteDevice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid device id"})
		return
	}
	if err := h.devices.DeleteByID(id); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to delete device"})
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Success: true})
}

// DeleteAllDevices godoc
// @Summary Delete every registered device
// @Tags Admin
// @Produce json
// @Success 200 {object} model.SuccessResponse
// @Security BearerAuth
// @Router /admin/devices [delete]
func (h *AdminHandler) DeleteAllDevices(c *gin.Context) {
	if err := h.devices.DeleteAll(); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to delete devices"})
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Success: true})
}

// TestNotification godoc
// @Summary Send a test push to the calling admin's own devices
// @Description The only surface that reports delivery failures to a user.
// @Tags Admin
// @Produce json
// @Success 200 {object} model.TestNotificationResponse
// @Failure 503 {object} model.ErrorResponse
// @Security BearerAuth
// @Router /admin/test-notification [post]
func (h *AdminHandler) TestNotification(c *gin.Context) {
	if !h.dispatcher.Configured() {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Push gateway not configured"})
		return
	}

	userID := c.GetInt64("user_id")
	outcomes, err := h.dispatcher.SendTest(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Test notification failed", Message: err.Error()})
		return
	}

	ok := len(outcomes) > 0
	for _, o := range outcomes {
		if !o.Sent {
			ok = false
		}
	}
	c.JSON(http.StatusOK, model.TestNotificationResponse{Success: ok, Results: outcomes})
}
