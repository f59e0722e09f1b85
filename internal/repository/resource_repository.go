package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const resourceColumns = `id, venue_id, kind, name, capacity, status, location,
	minimum_charge_cents, price_per_night_cents, amenities, created_at, updated_at`

// ResourceRepo manages the tables and rooms of venues.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a ResourceRepo bound to db.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// Create inserts a table or room. Names are unique per venue and kind.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	amenities, err := encodeAmenities(res.Amenities)
	if err != nil {
		return err
	}
	if res.Status == "" {
		res.Status = model.ResourceAvailable
	}
	const q = `INSERT INTO resources (venue_id, kind, name, capacity, status, location,
		minimum_charge_cents, price_per_night_cents, amenities) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, res.VenueID, res.Kind, strings.TrimSpace(res.Name), res.Capacity,
		res.Status, res.Location, res.MinimumChargeCents, res.PricePerNightCents, amenities)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	got, err := getResource(ctx, r.db, uint64(id), false)
	if err != nil {
		return err
	}
	*res = got
	return nil
}

// Get loads one resource.
func (r *ResourceRepo) Get(ctx context.Context, id uint64) (model.Resource, error) {
	return getResource(ctx, r.db, id, false)
}

// List returns the resources matching q ordered by id.
func (r *ResourceRepo) List(ctx context.Context, q booking.ResourceQuery) ([]model.Resource, error) {
	return listResources(ctx, r.db, q)
}

// SetDisabled takes a resource out of availability or puts it back. Putting
// it back derives the status from the bookings still holding it.
func (r *ResourceRepo) SetDisabled(ctx context.Context, id uint64, disabled bool) error {
	status := model.ResourceDisabled
	if !disabled {
		status = model.ResourceAvailable
		var held int
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE resource_id = ? AND status IN (?, ?)`,
			id, model.BookingConfirmed, model.BookingCheckedIn).Scan(&held)
		if err != nil {
			return err
		}
		if held > 0 {
			status = model.ResourceReserved
		}
	}
	return setResourceStatus(ctx, r.db, id, status)
}

// Delete removes a resource unless a pending, confirmed or checked-in
// booking references it. Cancelled and finished bookings keep their
// history, so in that case the resource is disabled instead.
func (r *ResourceRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := getResource(ctx, tx, id, true); err != nil {
		return err
	}
	var active, total int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(status IN (?, ?, ?)), 0), COUNT(*) FROM bookings WHERE resource_id = ?`,
		model.BookingPending, model.BookingConfirmed, model.BookingCheckedIn, id).Scan(&active, &total)
	if err != nil {
		return err
	}
	if active > 0 {
		return ErrResourceInUse
	}
	if total > 0 {
		err = setResourceStatus(ctx, tx, id, model.ResourceDisabled)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func getResource(ctx context.Context, q queryer, id uint64, forUpdate bool) (model.Resource, error) {
	query := "SELECT " + resourceColumns + " FROM resources WHERE id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}
	res, err := scanResource(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return model.Resource{}, notFound(err, "resource", id)
	}
	return res, nil
}

func listResources(ctx context.Context, q queryer, f booking.ResourceQuery) ([]model.Resource, error) {
	var (
		where []string
		args  []any
	)
	if f.VenueID != 0 {
		where = append(where, "venue_id = ?")
		args = append(args, f.VenueID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, f.MinCapacity)
	}
	if !f.IncludeDisabled {
		where = append(where, "status <> ?")
		args = append(args, model.ResourceDisabled)
	}
	if f.MaxPriceCents > 0 {
		where = append(where, "(kind <> ? OR price_per_night_cents <= ?)")
		args = append(args, model.ResourceRoom, f.MaxPriceCents)
	}
	query := "SELECT " + resourceColumns + " FROM resources"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func setResourceStatus(ctx context.Context, q queryer, id uint64, status model.ResourceStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE resources SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(sql.ErrNoRows, "resource", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(s rowScanner) (model.Resource, error) {
	var (
		res       model.Resource
		location  sql.NullString
		amenities sql.NullString
	)
	err := s.Scan(&res.ID, &res.VenueID, &res.Kind, &res.Name, &res.Capacity, &res.Status, &location,
		&res.MinimumChargeCents, &res.PricePerNightCents, &amenities, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return model.Resource{}, err
	}
	res.Location = location.String
	if amenities.Valid && amenities.String != "" {
		if err := json.Unmarshal([]byte(amenities.String), &res.Amenities); err != nil {
			return model.Resource{}, err
		}
	}
	return res, nil
}

func encodeAmenities(a []string) (sql.NullString, error) {
	if len(a) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
