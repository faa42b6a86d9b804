package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deskforge/pushdesk/internal/model"
)

// ErrDeviceNotFound signals that no device row matched the caller's keys.
// Handlers surface it as a distinct status so clients discard local state.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceRepository is the device registry: one row per registered push
// endpoint, keyed by (owner, device_id) with a unique push token.
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert registers or refreshes a push token. Match order:
//
//  1. (owner_user_id, device_id): normal token refresh for a known device;
//  2. push_token alone: the client regenerated its device_id on the same
//     physical device, so the row is re-linked to the new owner/device_id;
//  3. no match: a new row is created.
//
// Paths 1 and 2 reset the ticket watermark to null: a refreshed token may
// mean app reinstall, so the device is treated as having seen nothing.
// All paths set last_seen_at to now. The whole operation runs in one
// transaction; the unique index on push_token is the backstop for two
// concurrent upserts racing on the same token.
func (r *DeviceRepository) Upsert(ownerUserID int64, deviceID uuid.UUID, pushToken, userAgent, platform string) (uuid.UUID, error) {
	if platform == "" {
		platform = "unknown"
	}
	now := time.Now()

	var id uuid.UUID
	err := r.db.Transaction(func(tx *gorm.DB) error {
		refresh := map[string]interface{}{
			"push_token":                  pushToken,
			"user_agent":                  userAgent,
			"platform":                    platform,
			"last_seen_at":                now,
			"last_seen_ticket_id":         nil,
			"last_seen_ticket_updated_at": nil,
		}

		var device model.Device
		err := tx.Where("owner_user_id = ? AND device_id = ?", ownerUserID, deviceID).First(&device).Error
		if err == nil {
			id = device.DeviceID
			return tx.Model(&device).Updates(refresh).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("push_token = ?", pushToken).First(&device).Error
		if err == nil {
			refresh["owner_user_id"] = ownerUserID
			refresh["device_id"] = deviceID
			id = deviceID
			return tx.Model(&device).Updates(refresh).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		device = model.Device{
			ID:          uuid.New(),
			OwnerUserID: ownerUserID,
			DeviceID:    deviceID,
			PushToken:   pushToken,
			UserAgent:   userAgent,
			Platform:    platform,
			LastSeenAt:  &now,
		}
		id = deviceID
		return tx.Create(&device).Error
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Touch refreshes last_seen_at for a device and, when a ticket id is given,
// advances the ticket watermark. The watermark time is the ticket's own
// modified_at: when the caller does not supply it, the ticket row is read,
// and the current time is never substituted. Returns ErrDeviceNotFound when no
// row matches (owner, device_id).
func (r *DeviceRepository) Touch(ownerUserID int64, deviceID uuid.UUID, ticketID *int64, ticketModifiedAt *time.Time) error {
	now := time.Now()

	return r.db.Transaction(func(tx *gorm.DB) error {
		var device model.Device
		err := tx.Where("owner_user_id = ? AND device_id = ?", ownerUserID, deviceID).First(&device).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeviceNotFound
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"last_seen_at": now}
		if ticketID != nil {
			modifiedAt := ticketModifiedAt
			if modifiedAt == nil {
				var ticket model.Ticket
				if err := tx.Select("modified_at").First(&ticket, *ticketID).Error; err != nil {
					if !errors.Is(err, gorm.ErrRecordNotFound) {
						return err
					}
					// Unknown ticket: refresh activity only, leave
					// the watermark untouched.
					modifiedAt = nil
				} else {
					modifiedAt = &ticket.ModifiedAt
				}
			}
			if modifiedAt != nil {
				updates["last_seen_ticket_id"] = *ticketID
				updates["last_seen_ticket_updated_at"] = *modifiedAt
			}
		}

		return tx.Model(&device).Updates(updates).Error
	})
}

// FindByUsers returns all devices owned by the given users.
func (r *DeviceRepository) FindByUsers(userIDs []int64) ([]model.Device, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var devices []model.Device
	err := r.db.Where("owner_user_id IN ?", userIDs).Find(&devices).Error
	return devices, err
}

// FindByOwner returns all devices owned by one user.
func (r *DeviceRepository) FindByOwner(ownerUserID int64) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.Where("owner_user_id = ?", ownerUserID).Find(&devices).Error
	return devices, err
}

// List returns every registered device.
func (r *DeviceRepository) List() ([]model.Device, error) {
	var devices []model.Device
	err := r.db.Order("created_at").Find(&devices).Error
	return devices, err
}

// DeleteByID removes a device row. Idempotent.
func (r *DeviceRepository) DeleteByID(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&model.Device{}).Error
}

// DeleteByToken removes the device holding the given push token. Called by
// the gateway client when the push service reports the token unregistered.
func (r *DeviceRepository) DeleteByToken(pushToken string) error {
	return r.db.Where("push_token = ?", pushToken).Delete(&model.Device{}).Error
}

// DeleteAll wipes the registry.
func (r *DeviceRepository) DeleteAll() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Device{}).Error
}
