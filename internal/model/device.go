package model

import (
	"time"

	"github.com/google/uuid"
)

// Device represents one registered push endpoint for one user
type Device struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerUserID int64     `json:"owner_user_id" gorm:"not null;index;uniqueIndex:idx_owner_device"`
	DeviceID    uuid.UUID `json:"device_id" gorm:"type:uuid;not null;uniqueIndex:idx_owner_device"`
	PushToken   string    `json:"-" gorm:"not null;uniqueIndex"`
	UserAgent   string    `json:"user_agent" gorm:"size:255"`
	Platform    string    `json:"platform" gorm:"size:20;default:'unknown'"` // android, ios, web

	// LastSeenAt tracks the owner's most recent general activity from this
	// device. Used only to rate-limit self-caused notifications.
	LastSeenAt *time.Time `json:"last_seen_at"`

	// Watermark of the last ticket the owner actually viewed from this
	// device, and that ticket's modification time at the moment of viewing.
	// Both nil until the first ticket view, and reset to nil whenever the
	// push token changes (a token refresh may mean app reinstall).
	LastSeenTicketID        *int64     `json:"last_seen_ticket_id"`
	LastSeenTicketUpdatedAt *time.Time `json:"last_seen_ticket_updated_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
