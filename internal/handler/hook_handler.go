package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deskforge/pushdesk/internal/model"
	"github.com/deskforge/pushdesk/internal/service"
)

// HookHandler receives ticket lifecycle events from the helpdesk host.
type HookHandler struct {
	dispatcher *service.Dispatcher
}

func NewHookHandler(dispatcher *service.Dispatcher) *HookHandler {
	return &HookHandler{dispatcher: dispatcher}
}

// TicketEvent godoc
// @Summary Ingest a ticket lifecycle event and fan out push notifications
// @Description Fire-and-forget: the response is always 202 once the request
// @Description parses, so a notification problem can never fail the ticket
// @Description operation that raised the event.
// @Tags Hooks
// @Accept json
// @Produce json
// @Param id path int true "Ticket id"
// @Param body body model.TicketEventRequest true "Ticket event"
// @Success 202 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /hooks/tickets/{id}/events [post]
func (h *HookHandler) TicketEvent(c *gin.Context) {
	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || ticketID <= 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid ticket id"})
		return
	}

	var req model.TicketEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	h.dispatcher.Notify(c.Request.Context(), model.TicketEvent{
		TicketID: ticketID,
		Type:     req.EventType,
		ActorID:  req.ActorID,
		Fields:   req.Fields,
	})

	c.JSON(http.StatusAccepted, model.SuccessResponse{Success: true})
}
