package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
)

const bookingColumns = `id, booking_number, kind, user_id, venue_id, resource_id, starts_at, ends_at,
	duration_minutes, guests, amount_cents, special_request, status, payment_ref, cancelled_at,
	created_at, updated_at`

// BookingRepo is the booking.Store on MySQL. Atomically serializes writers
// with SELECT ... FOR UPDATE on the resource rows named by the lock, so the
// overlap re-check and the write it guards see the same data.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

var _ booking.Store = (*BookingRepo)(nil)

func (r *BookingRepo) Resource(ctx context.Context, id uint64) (model.Resource, error) {
	return getResource(ctx, r.db, id, false)
}

func (r *BookingRepo) Resources(ctx context.Context, q booking.ResourceQuery) ([]model.Resource, error) {
	return listResources(ctx, r.db, q)
}

func (r *BookingRepo) Booking(ctx context.Context, id uint64) (model.Booking, error) {
	return getBooking(ctx, r.db, "id", id)
}

func (r *BookingRepo) BookingByNumber(ctx context.Context, number string) (model.Booking, error) {
	return getBooking(ctx, r.db, "booking_number", number)
}

func (r *BookingRepo) Bookings(ctx context.Context, q booking.BookingQuery) ([]model.Booking, error) {
	return listBookings(ctx, r.db, q)
}

// Atomically runs fn in a transaction after locking the rows named by lock.
// Rows are locked in id order so two writers never wait on each other in a
// cycle.
func (r *BookingRepo) Atomically(ctx context.Context, lock booking.Lock, fn func(ctx context.Context, w booking.Writer) error) error {
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

	if err := lockRows(ctx, tx, lock); err != nil {
		return mapError(err)
	}
	if err := fn(ctx, &txWriter{tx: tx}); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	committed = true
	return nil
}

func lockRows(ctx context.Context, tx *sql.Tx, lock booking.Lock) error {
	if lock.VenueID != 0 {
		var id uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM venues WHERE id = ? FOR UPDATE`, lock.VenueID).Scan(&id)
		if err != nil {
			return notFound(err, "venue", lock.VenueID)
		}
		return drain(tx.QueryContext(ctx, `SELECT id FROM resources WHERE venue_id = ? ORDER BY id FOR UPDATE`, lock.VenueID))
	}
	ids := uniqueSorted(lock.ResourceIDs)
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return drain(tx.QueryContext(ctx,
		`SELECT id FROM resources WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id FOR UPDATE`, args...))
}

func drain(rows *sql.Rows, err error) error {
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

func uniqueSorted(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// txWriter is the booking.Writer handed to Atomically callbacks.
type txWriter struct {
	tx *sql.Tx
}

func (w *txWriter) Resource(ctx context.Context, id uint64) (model.Resource, error) {
	return getResource(ctx, w.tx, id, false)
}

func (w *txWriter) Resources(ctx context.Context, q booking.ResourceQuery) ([]model.Resource, error) {
	return listResources(ctx, w.tx, q)
}

func (w *txWriter) Booking(ctx context.Context, id uint64) (model.Booking, error) {
	return getBooking(ctx, w.tx, "id", id)
}

func (w *txWriter) BookingByNumber(ctx context.Context, number string) (model.Booking, error) {
	return getBooking(ctx, w.tx, "booking_number", number)
}

func (w *txWriter) Bookings(ctx context.Context, q booking.BookingQuery) ([]model.Booking, error) {
	return listBookings(ctx, w.tx, q)
}

func (w *txWriter) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (booking_number, kind, user_id, venue_id, resource_id, starts_at, ends_at,
		duration_minutes, guests, amount_cents, special_request, status, payment_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := w.tx.ExecContext(ctx, q, b.Number, b.Kind, b.UserID, b.VenueID, b.ResourceID,
		b.StartsAt.UTC(), b.EndsAt.UTC(), b.DurationMinutes, b.Guests, b.AmountCents,
		b.SpecialRequest, b.Status, b.PaymentRef)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := getBooking(ctx, w.tx, "id", uint64(id))
	if err != nil {
		return err
	}
	*b = got
	return nil
}

func (w *txWriter) UpdateBooking(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET resource_id = ?, starts_at = ?, ends_at = ?, duration_minutes = ?,
		guests = ?, amount_cents = ?, special_request = ?, status = ?, payment_ref = ?, cancelled_at = ?,
		updated_at = UTC_TIMESTAMP() WHERE id = ?`
	var cancelledAt any
	if b.CancelledAt != nil {
		cancelledAt = b.CancelledAt.UTC()
	}
	res, err := w.tx.ExecContext(ctx, q, b.ResourceID, b.StartsAt.UTC(), b.EndsAt.UTC(), b.DurationMinutes,
		b.Guests, b.AmountCents, b.SpecialRequest, b.Status, b.PaymentRef, cancelledAt, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(sql.ErrNoRows, "booking", b.ID)
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (w *txWriter) SetResourceStatus(ctx context.Context, id uint64, status model.ResourceStatus) error {
	return setResourceStatus(ctx, w.tx, id, status)
}

func getBooking(ctx context.Context, q queryer, column string, key any) (model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE "+column+" = ?", key))
	if err != nil {
		return model.Booking{}, notFound(err, "booking", key)
	}
	return b, nil
}

func listBookings(ctx context.Context, q queryer, f booking.BookingQuery) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if len(f.ResourceIDs) > 0 {
		where = append(where, "resource_id IN ("+placeholders(len(f.ResourceIDs))+")")
		for _, id := range f.ResourceIDs {
			args = append(args, id)
		}
	}
	if f.VenueID != 0 {
		where = append(where, "venue_id = ?")
		args = append(args, f.VenueID)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		where = append(where, "starts_at < ? AND ends_at > ?")
		args = append(args, f.To.UTC(), f.From.UTC())
	}
	if !f.StartsFrom.IsZero() {
		where = append(where, "starts_at >= ?")
		args = append(args, f.StartsFrom.UTC())
	}
	if !f.StartsBefore.IsZero() {
		where = append(where, "starts_at < ?")
		args = append(args, f.StartsBefore.UTC())
	}
	if !f.EndsFrom.IsZero() {
		where = append(where, "ends_at >= ?")
		args = append(args, f.EndsFrom.UTC())
	}
	if !f.EndsBefore.IsZero() {
		where = append(where, "ends_at < ?")
		args = append(args, f.EndsBefore.UTC())
	}
	if f.ExcludeID != 0 {
		where = append(where, "id <> ?")
		args = append(args, f.ExcludeID)
	}

	query := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY starts_at, id"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b           model.Booking
		resourceID  sql.NullInt64
		special     sql.NullString
		paymentRef  sql.NullString
		cancelledAt sql.NullTime
	)
	err := s.Scan(&b.ID, &b.Number, &b.Kind, &b.UserID, &b.VenueID, &resourceID, &b.StartsAt, &b.EndsAt,
		&b.DurationMinutes, &b.Guests, &b.AmountCents, &special, &b.Status, &paymentRef, &cancelledAt,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if resourceID.Valid {
		id := uint64(resourceID.Int64)
		b.ResourceID = &id
	}
	b.SpecialRequest = special.String
	if paymentRef.Valid {
		pr := paymentRef.String
		b.PaymentRef = &pr
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	b.StartsAt, b.EndsAt = b.StartsAt.UTC(), b.EndsAt.UTC()
	return b, nil
}
