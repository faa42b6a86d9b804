package service

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/deskforge/pushdesk/internal/model"
	"github.com/deskforge/pushdesk/pkg/fcm"
)

// TicketSource fetches the host's authoritative ticket record.
type TicketSource interface {
	FindByID(id int64) (*model.Ticket, error)
}

// RecipientSource resolves the users interested in a ticket and display
// names for payload text. UserName is best effort and returns a placeholder
// for unknown users, never an error.
type RecipientSource interface {
	RecipientIDs(ticketID int64) ([]int64, error)
	UserName(userID int64) string
}

// DeviceStore is the dispatcher's view of the device registry.
type DeviceStore interface {
	FindByUsers(userIDs []int64) ([]model.Device, error)
	FindByOwner(ownerUserID int64) ([]model.Device, error)
}

// PushSender delivers one composed message to one push token.
type PushSender interface {
	Send(ctx context.Context, pushToken string, msg fcm.Message) error
}

// Dispatcher fans ticket events out to eligible devices. It is the entry
// point invoked from the host's ticket lifecycle hooks: failures anywhere in
// the notification path are logged and contained, never returned, so a push
// problem can never block or roll back the ticket operation behind it.
type Dispatcher struct {
	tickets    TicketSource
	recipients RecipientSource
	devices    DeviceStore
	composer   *Composer
	sender     PushSender

	// limiter spaces consecutive outbound deliveries; fan-out is a
	// deliberate sequential throttle, not a concurrency primitive.
	limiter *rate.Limiter
}

// NewDispatcher wires the notification path. A nil sender means the push
// integration is not configured and every Notify call becomes a no-op.
func NewDispatcher(tickets TicketSource, recipients RecipientSource, devices DeviceStore, composer *Composer, sender PushSender, sendInterval time.Duration) *Dispatcher {
	if sender == nil {
		log.Println("⚠️  Push gateway not configured, ticket notifications disabled")
	}
	if sendInterval <= 0 {
		sendInterval = 100 * time.Millisecond
	}
	return &Dispatcher{
		tickets:    tickets,
		recipients: recipients,
		devices:    devices,
		composer:   composer,
		sender:     sender,
		limiter:    rate.NewLimiter(rate.Every(sendInterval), 1),
	}
}

// Configured reports whether the push integration is usable.
func (d *Dispatcher) Configured() bool {
	return d != nil && d.sender != nil
}

// Notify handles one ticket event. Fire-and-forget: all failures are logged.
func (d *Dispatcher) Notify(ctx context.Context, event model.TicketEvent) {
	if !d.Configured() {
		return
	}

	ticket, err := d.tickets.FindByID(event.TicketID)
	if err != nil {
		log.Printf("⚠️  Notification skipped, ticket %d unavailable: %v", event.TicketID, err)
		return
	}

	modifiedAt := event.ModifiedAt
	if modifiedAt.IsZero() {
		modifiedAt = ticket.ModifiedAt
	}

	userIDs, err := d.recipients.RecipientIDs(event.TicketID)
	if err != nil {
		log.Printf("⚠️  Notification skipped, recipient resolution failed for ticket %d: %v", event.TicketID, err)
		return
	}

	// On creation the ticket's own requester opened it and should not be
	// told about their own ticket; otherwise the acting user is excluded.
	var exclude *int64
	if event.Type == model.EventCreated {
		exclude = &ticket.RecipientUserID
	} else {
		exclude = event.ActorID
	}
	if exclude != nil {
		filtered := userIDs[:0]
		for _, id := range userIDs {
			if id != *exclude {
				filtered = append(filtered, id)
			}
		}
		userIDs = filtered
	}
	if len(userIDs) == 0 {
		return
	}

	devices, err := d.devices.FindByUsers(userIDs)
	if err != nil {
		log.Printf("⚠️  Notification skipped, device lookup failed for ticket %d: %v", event.TicketID, err)
		return
	}

	eligible := EligibleDevices(devices, &event.TicketID, modifiedAt)
	if len(eligible) == 0 {
		return
	}

	fields := event.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	if fields["url"] == "" && ticket.LinkPath != "" {
		fields["url"] = ticket.LinkPath
	}
	if fields["title"] == "" {
		fields["title"] = ticket.Title
	}
	if fields["author"] == "" && event.ActorID != nil {
		fields["author"] = d.recipients.UserName(*event.ActorID)
	}

	notif := d.composer.Compose(event.Type, event.TicketID, fields)
	log.Printf("📣 Ticket %d %s: notifying %d of %d devices across %d users",
		event.TicketID, event.Type, len(eligible), len(devices), len(userIDs))

	for _, device := range eligible {
		if err := d.limiter.Wait(ctx); err != nil {
			log.Printf("⚠️  Fan-out aborted for ticket %d: %v", event.TicketID, err)
			return
		}
		if err := d.deliver(ctx, device, notif); err != nil {
			// One device's failure must not abort the rest.
			log.Printf("⚠️  Delivery to device %s failed: %v", device.DeviceID, err)
		}
	}
}

// SendTest pushes a fixed test message to every device of one user,
// bypassing suppression. This is the only surface that reports delivery
// failures back to a caller.
func (d *Dispatcher) SendTest(ctx context.Context, userID int64) ([]model.TestDeviceOutcome, error) {
	if !d.Configured() {
		return nil, errors.New("push gateway not configured")
	}

	devices, err := d.devices.FindByOwner(userID)
	if err != nil {
		return nil, err
	}

	notif := Notification{
		Title: "Test notification",
		Body:  "Push notifications are working.",
		Data: map[string]string{
			"event_type": "test",
			"url":        d.composer.absoluteURL("/"),
		},
		TTL:         defaultTTL,
		CollapseKey: "test",
	}

	outcomes := make([]model.TestDeviceOutcome, 0, len(devices))
	for _, device := range devices {
		if err := d.limiter.Wait(ctx); err != nil {
			return outcomes, err
		}
		outcome := model.TestDeviceOutcome{DeviceID: device.DeviceID, Platform: device.Platform, Sent: true}
		if err := d.deliver(ctx, device, notif); err != nil {
			outcome.Sent = false
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (d *Dispatcher) deliver(ctx context.Context, device model.Device, notif Notification) error {
	return d.sender.Send(ctx, device.PushToken, fcm.Message{
		Title:       notif.Title,
		Body:        notif.Body,
		Data:        notif.Data,
		TTL:         notif.TTL,
		CollapseKey: notif.CollapseKey,
		Link:        notif.Data["url"],
	})
}
