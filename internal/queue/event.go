// Package queue carries status-change notifications over RabbitMQ: a
// publisher that implements the booking and order notifiers, and a
// background consumer that appends every event to a rotated audit log.
package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-booking/internal/model"
)

// Entity names carried in StatusChangedEvent.Entity.
const (
	EntityBooking = "booking"
	EntityOrder   = "order"
)

// StatusChangedEvent is published after a booking or order status change
// commits. It carries enough for consumers to log or notify without
// reading the primary database. From is empty when the record was just
// created.
type StatusChangedEvent struct {
	EventID    string     `json:"event_id"`
	Entity     string     `json:"entity"`
	ID         uint64     `json:"id"`
	Number     string     `json:"number"`
	Kind       string     `json:"kind"`
	VenueID    uint64     `json:"venue_id"`
	UserID     uint64     `json:"user_id"`
	ResourceID *uint64    `json:"resource_id,omitempty"`
	From       string     `json:"from,omitempty"`
	To         string     `json:"to"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// BookingEvent describes a booking moving from one status to its current one.
func BookingEvent(b model.Booking, from model.BookingStatus, at time.Time) StatusChangedEvent {
	start, end := b.StartsAt.UTC(), b.EndsAt.UTC()
	return StatusChangedEvent{
		EventID:    uuid.NewString(),
		Entity:     EntityBooking,
		ID:         b.ID,
		Number:     b.Number,
		Kind:       string(b.Kind),
		VenueID:    b.VenueID,
		UserID:     b.UserID,
		ResourceID: b.ResourceID,
		From:       string(from),
		To:         string(b.Status),
		StartsAt:   &start,
		EndsAt:     &end,
		OccurredAt: at.UTC(),
	}
}

// OrderEvent describes an order moving from one status to its current one.
func OrderEvent(o model.Order, from model.OrderStatus, at time.Time) StatusChangedEvent {
	return StatusChangedEvent{
		EventID:    uuid.NewString(),
		Entity:     EntityOrder,
		ID:         o.ID,
		Number:     o.Number,
		Kind:       string(o.Type),
		VenueID:    o.VenueID,
		UserID:     o.UserID,
		ResourceID: o.TableID,
		From:       string(from),
		To:         string(o.Status),
		OccurredAt: at.UTC(),
	}
}

// AuditLine renders the event as one line of the audit log.
func (e StatusChangedEvent) AuditLine() string {
	from := e.From
	if from == "" {
		from = "NEW"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s %s -> %s | id=%d | kind=%s | venue_id=%d | user_id=%d",
		e.OccurredAt.Format(time.RFC3339), e.Entity, e.Number, from, e.To, e.ID, e.Kind, e.VenueID, e.UserID)
	if e.ResourceID != nil {
		fmt.Fprintf(&sb, " | resource_id=%d", *e.ResourceID)
	}
	if e.StartsAt != nil && e.EndsAt != nil {
		fmt.Fprintf(&sb, " | window=[%s, %s)", e.StartsAt.Format(time.RFC3339), e.EndsAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, " | event_id=%s\n", e.EventID)
	return sb.String()
}
