package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/ordering"
)

// OrderRepo stores orders and their append-only status history.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns an OrderRepo bound to db.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

var _ ordering.Store = (*OrderRepo)(nil)

// InsertOrder writes the order and its initial history in one transaction.
func (r *OrderRepo) InsertOrder(ctx context.Context, o *model.Order) error {
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

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (order_number, venue_id, user_id, order_type, table_id, driver_id, total_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Number, o.VenueID, o.UserID, o.Type, o.TableID, o.DriverID, o.TotalCents, o.Status)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	for i := range o.History {
		o.History[i].OrderID = o.ID
		if err := insertHistory(ctx, tx, &o.History[i]); err != nil {
			return err
		}
	}
	if err := tx.QueryRowContext(ctx, `SELECT created_at, updated_at FROM orders WHERE id = ?`, o.ID).
		Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	committed = true
	return nil
}

const orderColumns = `id, order_number, venue_id, user_id, order_type, table_id, driver_id, total_cents, status, created_at, updated_at`

// Order loads an order with its history, oldest first.
func (r *OrderRepo) Order(ctx context.Context, id uint64) (model.Order, error) {
	return r.orderWhere(ctx, "id = ?", id)
}

// OrderByNumber loads an order with its history by its order number.
func (r *OrderRepo) OrderByNumber(ctx context.Context, number string) (model.Order, error) {
	return r.orderWhere(ctx, "order_number = ?", number)
}

func (r *OrderRepo) orderWhere(ctx context.Context, cond string, key any) (model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+cond, key))
	if err != nil {
		return model.Order{}, notFound(err, "order", key)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, from_status, to_status, notes, changed_by, changed_at
		 FROM order_status_history WHERE order_id = ? ORDER BY id`, o.ID)
	if err != nil {
		return model.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			h     model.OrderStatusChange
			from  sql.NullString
			notes sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.OrderID, &from, &h.To, &notes, &h.ChangedBy, &h.ChangedAt); err != nil {
			return model.Order{}, err
		}
		h.From = model.OrderStatus(from.String)
		h.Notes = notes.String
		o.History = append(o.History, h)
	}
	return o, rows.Err()
}

// Orders lists the orders matching q, oldest first. History is not loaded.
func (r *OrderRepo) Orders(ctx context.Context, q ordering.Query) ([]model.Order, error) {
	var (
		where []string
		args  []any
	)
	if q.VenueID != 0 {
		where = append(where, "venue_id = ?")
		args = append(args, q.VenueID)
	}
	if len(q.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(q.Statuses))+")")
		for _, st := range q.Statuses {
			args = append(args, st)
		}
	}
	if q.Type != "" {
		where = append(where, "order_type = ?")
		args = append(args, q.Type)
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(s rowScanner) (model.Order, error) {
	var (
		o        model.Order
		tableID  sql.NullInt64
		driverID sql.NullInt64
	)
	if err := s.Scan(&o.ID, &o.Number, &o.VenueID, &o.UserID, &o.Type, &tableID, &driverID, &o.TotalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return model.Order{}, err
	}
	o.TableID = nullID(tableID)
	o.DriverID = nullID(driverID)
	return o, nil
}

// SaveTransition updates the status only if it is still from, then appends
// the history entry. A lost compare-and-set is a write conflict.
func (r *OrderRepo) SaveTransition(ctx context.Context, o *model.Order, from model.OrderStatus, change *model.OrderStatusChange) error {
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

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, driver_id = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		o.Status, o.DriverID, o.ID, from)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", booking.ErrWriteConflict, o.ID, from)
	}
	if err := insertHistory(ctx, tx, change); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	committed = true
	return nil
}

func insertHistory(ctx context.Context, q queryer, h *model.OrderStatusChange) error {
	var from any
	if h.From != "" {
		from = h.From
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, from_status, to_status, notes, changed_by, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.OrderID, from, h.To, h.Notes, h.ChangedBy, h.ChangedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

func nullID(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}
