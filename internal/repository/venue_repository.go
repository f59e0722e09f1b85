package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/venue-booking/internal/model"
)

// VenueRepo encapsulates the queries on venues. Ownership checks of every
// owner endpoint go through it.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the provided DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

const venueColumns = "id, owner_id, name, address, created_at, updated_at"

// Create inserts a venue and reads the row back so timestamps are set.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	v.Name = strings.TrimSpace(v.Name)
	res, err := r.db.ExecContext(ctx, "INSERT INTO venues (owner_id, name, address) VALUES (?, ?, ?)", v.OwnerID, v.Name, v.Address)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*v = got
	return nil
}

// GetByID fetches a venue regardless of owner.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
	var v model.Venue
	err := r.db.QueryRowContext(ctx, "SELECT "+venueColumns+" FROM venues WHERE id = ?", id).
		Scan(&v.ID, &v.OwnerID, &v.Name, &v.Address, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return model.Venue{}, notFound(err, "venue", id)
	}
	return v, nil
}

// CheckOwner returns nil when ownerID owns the venue, ErrForbidden when
// someone else does and an ErrNotFound error when it does not exist.
func (r *VenueRepo) CheckOwner(ctx context.Context, venueID, ownerID uint64) error {
	v, err := r.GetByID(ctx, venueID)
	if err != nil {
		return err
	}
	if v.OwnerID != ownerID {
		return ErrForbidden
	}
	return nil
}

// ListAll returns every venue ordered by id, for public browsing.
func (r *VenueRepo) ListAll(ctx context.Context) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+venueColumns+" FROM venues ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Venue{}
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Address, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
