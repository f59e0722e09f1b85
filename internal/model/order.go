package model

import "time"

// OrderType is how an order is fulfilled.
type OrderType string

const (
	OrderDineIn   OrderType = "DINE_IN"
	OrderTakeaway OrderType = "TAKEAWAY"
	OrderDelivery OrderType = "DELIVERY"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	switch t {
	case OrderDineIn, OrderTakeaway, OrderDelivery:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderPreparing      OrderStatus = "PREPARING"
	OrderReady          OrderStatus = "READY"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCompleted      OrderStatus = "COMPLETED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

// Order is a dine-in, takeaway or delivery order. Its status follows its
// own lifecycle, independent from table bookings.
type Order struct {
	ID         uint64              `json:"id"`
	Number     string              `json:"order_number"`
	VenueID    uint64              `json:"venue_id"`
	UserID     uint64              `json:"user_id"`
	Type       OrderType           `json:"order_type"`
	TableID    *uint64             `json:"table_id,omitempty"`
	DriverID   *uint64             `json:"driver_id,omitempty"`
	TotalCents int64               `json:"total_cents"`
	Status     OrderStatus         `json:"status"`
	History    []OrderStatusChange `json:"history,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// OrderStatusChange is one entry of an order's append-only status history.
// From is empty for the entry written when the order is created.
type OrderStatusChange struct {
	ID        uint64      `json:"id"`
	OrderID   uint64      `json:"order_id"`
	From      OrderStatus `json:"from,omitempty"`
	To        OrderStatus `json:"to"`
	Notes     string      `json:"notes,omitempty"`
	ChangedBy uint64      `json:"changed_by"`
	ChangedAt time.Time   `json:"changed_at"`
}
