package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deskforge/pushdesk/internal/model"
)

// Delivery TTLs. Validation events are low-frequency and worth delivering
// even to a briefly offline recipient, so they live much longer.
const (
	defaultTTL    = 600 * time.Second
	validationTTL = 21600 * time.Second
)

// bodyPreviewLimit caps free-text previews (follow-up content etc.) in
// notification bodies.
const bodyPreviewLimit = 100

// Notification is a composed, transport-ready push message. Data is a flat
// string map: the payload is data-only so that exactly one layer, the
// client's background handler, ever renders the visible notification.
type Notification struct {
	Title       string
	Body        string
	Data        map[string]string
	TTL         time.Duration
	CollapseKey string
}

// Composer builds per-event-type notification content.
type Composer struct {
	baseURL string
}

func NewComposer(baseURL string) *Composer {
	return &Composer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Compose builds the title, body and payload for one ticket event. Unknown
// event types fall back to a generic composition, never an error.
func (c *Composer) Compose(eventType string, ticketID int64, fields map[string]string) Notification {
	get := func(key, fallback string) string {
		if v, ok := fields[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	author := get("author", "someone")
	title := get("title", "")

	var head, body string
	ttl := defaultTTL

	switch eventType {
	case model.EventCreated:
		head = fmt.Sprintf("Ticket #%d opened", ticketID)
		body = fmt.Sprintf("%s opened: %s", author, title)
	case model.EventUpdated:
		head = fmt.Sprintf("Ticket #%d updated", ticketID)
		body = fmt.Sprintf("%s updated the ticket", author)
	case model.EventFollowupAdded:
		head = fmt.Sprintf("New follow-up on ticket #%d", ticketID)
		body = fmt.Sprintf("%s: %s", author, truncate(get("content", ""), bodyPreviewLimit))
	case model.EventClosed:
		head = fmt.Sprintf("Ticket #%d closed", ticketID)
		body = fmt.Sprintf("%s closed the ticket", author)
	case model.EventSolved:
		head = fmt.Sprintf("Ticket #%d solved", ticketID)
		body = fmt.Sprintf("%s marked the ticket as solved", author)
	case model.EventAssigned:
		head = fmt.Sprintf("Ticket #%d assigned", ticketID)
		body = fmt.Sprintf("Assigned to %s", get("assignee", "a technician"))
	case model.EventValidationRequested:
		head = fmt.Sprintf("Approval requested on ticket #%d", ticketID)
		body = fmt.Sprintf("%s requests your approval", author)
		ttl = validationTTL
	case model.EventValidationUpdated:
		head = fmt.Sprintf("Approval updated on ticket #%d", ticketID)
		body = fmt.Sprintf("%s answered an approval request", author)
		ttl = validationTTL
	default:
		head = fmt.Sprintf("Ticket #%d", ticketID)
		body = fmt.Sprintf("New event on ticket #%d", ticketID)
	}

	tag := "ticket-" + strconv.FormatInt(ticketID, 10)
	data := map[string]string{
		"event_type": eventType,
		"ticket_id":  strconv.FormatInt(ticketID, 10),
		"url":        c.absoluteURL(get("url", fmt.Sprintf("/front/ticket.form.php?id=%d", ticketID))),
		"tag":        tag,
	}

	return Notification{
		Title:       head,
		Body:        body,
		Data:        data,
		TTL:         ttl,
		CollapseKey: tag,
	}
}

// absoluteURL prefixes the configured base URL onto relative links.
func (c *Composer) absoluteURL(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return c.baseURL + link
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
