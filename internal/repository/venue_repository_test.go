package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
)

var venueCols = []string{"id", "owner_id", "name", "address", "created_at", "updated_at"}

func TestVenueRepo_CheckOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRepo(db)

	for range 2 {
		mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id = \?`).WithArgs(1).
			WillReturnRows(sqlmock.NewRows(venueCols).AddRow(1, 2, "Harbour House", "1 Quay St", stamp, stamp))
	}
	mock.ExpectQuery(`SELECT (.+) FROM venues WHERE id = \?`).WithArgs(9).
		WillReturnRows(sqlmock.NewRows(venueCols))

	ctx := context.Background()
	assert.NoError(t, repo.CheckOwner(ctx, 1, 2))
	assert.ErrorIs(t, repo.CheckOwner(ctx, 1, 3), ErrForbidden)
	err := repo.CheckOwner(ctx, 9, 2)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepo_CreateReadsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRepo(db)

	mock.ExpectExec(`INSERT INTO venues \(owner_id, name, address\) VALUES \(\?, \?, \?\)`).
		WithArgs(2, "Harbour House", "1 Quay St").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectQuery(`FROM venues WHERE id = \?`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows(venueCols).AddRow(4, 2, "Harbour House", "1 Quay St", stamp, stamp))

	v := model.Venue{OwnerID: 2, Name: "  Harbour House ", Address: "1 Quay St"}
	require.NoError(t, repo.Create(context.Background(), &v))
	assert.Equal(t, uint64(4), v.ID)
	assert.Equal(t, stamp, v.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueRepo_CreateDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRepo(db)

	mock.ExpectExec(`INSERT INTO venues`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.Venue{OwnerID: 2, Name: "Harbour House"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestVenueRepo_ListAll(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVenueRepo(db)

	mock.ExpectQuery(`FROM venues ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(venueCols).
			AddRow(1, 2, "Harbour House", "1 Quay St", stamp, stamp).
			AddRow(4, 5, "Hill Lodge", "", stamp, stamp))

	out, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Hill Lodge", out[1].Name)
}
