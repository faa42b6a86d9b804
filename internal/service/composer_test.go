package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/deskforge/pushdesk/internal/model"
)

func TestCompose_FollowupTruncatesPreview(t *testing.T) {
	c := NewComposer("https://desk.example.com")

	content := strings.Repeat("x", 250)
	n := c.Compose(model.EventFollowupAdded, 42, map[string]string{
		"author":  "Alice",
		"content": content,
	})

	assert.Equal(t, "New follow-up on ticket #42", n.Title)
	assert.Equal(t, "Alice: "+strings.Repeat("x", 100), n.Body)
}

func TestCompose_PayloadShape(t *testing.T) {
	c := NewComposer("https://desk.example.com")

	n := c.Compose(model.EventUpdated, 42, map[string]string{
		"author": "Bob",
		"url":    "/front/ticket.form.php?id=42",
	})

	assert.Equal(t, "42", n.Data["ticket_id"])
	assert.Equal(t, "ticket-42", n.Data["tag"])
	assert.Equal(t, "ticket-42", n.CollapseKey)
	assert.Equal(t, "https://desk.example.com/front/ticket.form.php?id=42", n.Data["url"])
}

func TestCompose_AbsoluteURLPassedThrough(t *testing.T) {
	c := NewComposer("https://desk.example.com")

	n := c.Compose(model.EventCreated, 7, map[string]string{
		"url": "https://other.example.com/t/7",
	})
	assert.Equal(t, "https://other.example.com/t/7", n.Data["url"])
}

func TestCompose_TTLPolicy(t *testing.T) {
	c := NewComposer("https://desk.example.com")

	tests := []struct {
		eventType string
		want      time.Duration
	}{
		{model.EventCreated, 600 * time.Second},
		{model.EventFollowupAdded, 600 * time.Second},
		{model.EventValidationRequested, 21600 * time.Second},
		{model.EventValidationUpdated, 21600 * time.Second},
		{"bogus", 600 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			n := c.Compose(tt.eventType, 1, nil)
			assert.Equal(t, tt.want, n.TTL)
		})
	}
}

func TestCompose_UnknownEventFallsBack(t *testing.T) {
	c := NewComposer("https://desk.example.com")

	n := c.Compose("reticulated", 13, nil)
	assert.Equal(t, "Ticket #13", n.Title)
	assert.Equal(t, "New event on ticket #13", n.Body)
	assert.Equal(t, "ticket-13", n.CollapseKey)
}

func TestCompose_MissingAuthorUsesPlaceholder(t *testing.T) {
	c := NewComposer("https://desk.example.com")

	n := c.Compose(model.EventClosed, 5, nil)
	assert.Equal(t, "someone closed the ticket", n.Body)
}
