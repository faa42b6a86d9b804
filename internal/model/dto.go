package model

import "github.com/google/uuid"

// ErrorResponse is the generic error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RegisterDeviceRequest registers or refreshes a push token for the caller
type RegisterDeviceRequest struct {
	DeviceID  uuid.UUID `json:"device_id" binding:"required"`
	Token     string    `json:"token" binding:"required"`
	UserAgent string    `json:"user_agent"`
	Platform  string    `json:"platform"`
}

// RegisterDeviceResponse confirms a registration
type RegisterDeviceResponse struct {
	Success  bool      `json:"success"`
	DeviceID uuid.UUID `json:"device_id"`
}

// HeartbeatRequest refreshes a device's last-seen state; when TicketID is
// set the device's ticket watermark is advanced as well
type HeartbeatRequest struct {
	DeviceID uuid.UUID `json:"device_id" binding:"required"`
	TicketID *int64    `json:"ticket_id"`
}

// SuccessResponse is the generic success payload
type SuccessResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TicketEventRequest is posted by the host's ticket lifecycle hooks
type TicketEventRequest struct {
	EventType string            `json:"event_type" binding:"required"`
	ActorID   *int64            `json:"actor_id"`
	Fields    map[string]string `json:"fields"`
}

// TestNotificationResponse reports per-device outcomes of an admin test send
type TestNotificationResponse struct {
	Success bool                `json:"success"`
	Results []TestDeviceOutcome `json:"results"`
}

// TestDeviceOutcome is one device's delivery result in a test send
type TestDeviceOutcome struct {
	DeviceID uuid.UUID `json:"device_id"`
	Platform string    `json:"platform"`
	Sent     bool      `json:"sent"`
	Error    string    `json:"error,omitempty"`
}
