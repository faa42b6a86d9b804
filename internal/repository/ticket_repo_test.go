package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientIDs_DeduplicatesAcrossRolesAndGroups(t *testing.T) {
	gormDB, mock := newTestDB(t)
	repo := NewTicketRepository(gormDB)

	ticketID := int64(42)
	groupID := int64(10)

	// User 2 appears both directly (assigned) and via group membership.
	mock.ExpectQuery(`SELECT .* FROM "ticket_actors" WHERE ticket_id = \$1`).
		WithArgs(ticketID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "role", "user_id", "group_id"}).
			AddRow(1, ticketID, "requester", int64(1), nil).
			AddRow(2, ticketID, "assigned", int64(2), nil).
			AddRow(3, ticketID, "observer", nil, groupID))

	mock.ExpectQuery(`SELECT .* FROM "group_members" WHERE group_id IN \(\$1\)`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "user_id"}).
			AddRow(1, groupID, int64(2)).
			AddRow(2, groupID, int64(3)))

	ids, err := repo.RecipientIDs(ticketID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientIDs_NoActors(t *testing.T) {
	gormDB, mock := newTestDB(t)
	repo := NewTicketRepository(gormDB)

	mock.ExpectQuery(`SELECT .* FROM "ticket_actors" WHERE ticket_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "ticket_id", "role", "user_id", "group_id"}))

	ids, err := repo.RecipientIDs(7)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_Missing(t *testing.T) {
	gormDB, mock := newTestDB(t)
	repo := NewTicketRepository(gormDB)

	mock.ExpectQuery(`SELECT .* FROM "tickets" WHERE "tickets"\."id" = \$1`).
		WithArgs(int64(99), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(99)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestUserName_FallsBackToPlaceholder(t *testing.T) {
	gormDB, mock := newTestDB(t)
	repo := NewTicketRepository(gormDB)

	mock.ExpectQuery(`SELECT "name" FROM "users" WHERE "users"\."id" = \$1`).
		WithArgs(int64(5), 1).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	assert.Equal(t, "someone", repo.UserName(5))
}
