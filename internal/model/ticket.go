package model

import "time"

// Event types recognized by the notification composer.
const (
	EventCreated             = "created"
	EventUpdated             = "updated"
	EventFollowupAdded       = "followup_added"
	EventClosed              = "closed"
	EventSolved              = "solved"
	EventAssigned            = "assigned"
	EventValidationRequested = "validation_requested"
	EventValidationUpdated   = "validation_updated"
)

// Actor roles on a ticket.
const (
	ActorRequester = "requester"
	ActorObserver  = "observer"
	ActorAssigned  = "assigned"
)

// Ticket mirrors the helpdesk host's ticket record. Only the fields this
// service reads are mapped; ModifiedAt is the authoritative modification
// timestamp and LinkPath the relative deep link into the host UI.
type Ticket struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	Title           string    `json:"title" gorm:"size:255"`
	RecipientUserID int64     `json:"recipient_user_id" gorm:"index"`
	LinkPath        string    `json:"link_path" gorm:"size:255"`
	ModifiedAt      time.Time `json:"modified_at" gorm:"not null;index"`
	CreatedAt       time.Time `json:"created_at"`
}

// TicketActor links a user or a group to a ticket in a given role
// (requester, observer or assigned). Exactly one of UserID/GroupID is set.
type TicketActor struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	TicketID int64  `json:"ticket_id" gorm:"not null;index"`
	Role     string `json:"role" gorm:"size:20;not null"`
	UserID   *int64 `json:"user_id" gorm:"index"`
	GroupID  *int64 `json:"group_id" gorm:"index"`
}

// User mirrors the host's user record.
type User struct {
	ID    int64  `json:"id" gorm:"primaryKey"`
	Name  string `json:"name" gorm:"size:100"`
	Email string `json:"email" gorm:"size:255;uniqueIndex"`
	Admin bool   `json:"admin" gorm:"default:false"`
}

// Group mirrors the host's group record.
type Group struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:100"`
}

// GroupMember links users into groups.
type GroupMember struct {
	ID      int64 `json:"id" gorm:"primaryKey"`
	GroupID int64 `json:"group_id" gorm:"not null;uniqueIndex:idx_group_user"`
	UserID  int64 `json:"user_id" gorm:"not null;uniqueIndex:idx_group_user"`
}

// TicketEvent is the ephemeral value describing something that happened to a
// ticket. It is handed to the dispatcher by the host's lifecycle hooks and
// never persisted here.
type TicketEvent struct {
	TicketID int64
	// ModifiedAt must be the ticket record's own modification timestamp,
	// never a freshly generated now(): it is compared against device
	// watermarks and has to be consistent across the whole decision.
	ModifiedAt time.Time
	Type       string
	// ActorID identifies the acting user, excluded from the recipients
	// when set.
	ActorID *int64
	// Fields carries payload text inputs (author, content, assignee, ...).
	Fields map[string]string
}
