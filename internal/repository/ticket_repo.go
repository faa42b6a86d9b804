package repository

import (
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/deskforge/pushdesk/internal/model"
)

// ErrTicketNotFound signals that the referenced ticket does not exist.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepository reads the helpdesk host's ticket, actor and group tables.
// It backs recipient resolution and is the source of record for a ticket's
// authoritative modification timestamp.
type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// FindByID fetches one ticket.
func (r *TicketRepository) FindByID(id int64) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.First(&ticket, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// RecipientIDs resolves the set of users interested in a ticket: requesters,
// observers and assigned technicians, plus the members of any group in those
// roles. The result is deduplicated and sorted for stable fan-out order.
func (r *TicketRepository) RecipientIDs(ticketID int64) ([]int64, error) {
	var actors []model.TicketActor
	if err := r.db.Where("ticket_id = ?", ticketID).Find(&actors).Error; err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var groupIDs []int64
	for _, actor := range actors {
		if actor.UserID != nil {
			seen[*actor.UserID] = struct{}{}
		}
		if actor.GroupID != nil {
			groupIDs = append(groupIDs, *actor.GroupID)
		}
	}

	if len(groupIDs) > 0 {
		var members []model.GroupMember
		if err := r.db.Where("group_id IN ?", groupIDs).Find(&members).Error; err != nil {
			return nil, err
		}
		for _, m := range members {
			seen[m.UserID] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// UserName returns a user's display name, or a placeholder when the user is
// unknown. Best-effort lookups must never fail the notification path.
func (r *TicketRepository) UserName(userID int64) string {
	var user model.User
	if err := r.db.Select("name").First(&user, userID).Error; err != nil || user.Name == "" {
		return "someone"
	}
	return user.Name
}
