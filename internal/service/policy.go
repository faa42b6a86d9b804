package service

import (
	"log"
	"time"

	"github.com/deskforge/pushdesk/internal/model"
)

// selfActionWindow is how closely a ticket modification may follow a
// device's last general activity before the modification is assumed to be
// the device owner's own action. The comparison is strict: a delta of
// exactly one second is NOT suppressed.
const selfActionWindow = time.Second

// ShouldNotify decides whether one device should receive a notification for
// a ticket modified at ticketModifiedAt. Evaluated independently per device:
//
//  1. Rate limit: a modification less than one second after the device's
//     last activity was very likely performed by the actively-browsing owner
//     themselves; notifying them of their own action is noise. There is no
//     sliding window: each event is judged solely against the static
//     last_seen_at, never against previously sent notifications.
//  2. Already viewed: when the device's watermark records this exact ticket
//     and the modification is not after the watermarked time, the owner has
//     already viewed this version of the ticket.
//
// Broken state fails open: better to over-notify than to silently drop a
// legitimate alert.
func ShouldNotify(device model.Device, ticketID *int64, ticketModifiedAt time.Time) bool {
	if ticketModifiedAt.IsZero() {
		log.Printf("⚠️  Suppression skipped for device %s: zero ticket modification time", device.DeviceID)
		return true
	}

	if device.LastSeenAt != nil && !device.LastSeenAt.IsZero() {
		if ticketModifiedAt.Sub(*device.LastSeenAt) < selfActionWindow {
			return false
		}
	}

	if ticketID != nil &&
		device.LastSeenTicketID != nil && *device.LastSeenTicketID == *ticketID &&
		device.LastSeenTicketUpdatedAt != nil && !device.LastSeenTicketUpdatedAt.IsZero() {
		if !ticketModifiedAt.After(*device.LastSeenTicketUpdatedAt) {
			return false
		}
	}

	return true
}

// EligibleDevices filters a device list through ShouldNotify.
func EligibleDevices(devices []model.Device, ticketID *int64, ticketModifiedAt time.Time) []model.Device {
	eligible := make([]model.Device, 0, len(devices))
	for _, d := range devices {
		if ShouldNotify(d, ticketID, ticketModifiedAt) {
			eligible = append(eligible, d)
		}
	}
	return eligible
}
