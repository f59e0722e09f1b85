package model

import "time"

// BookingKind selects the interval semantics and the lifecycle table that
// apply to a booking.
type BookingKind string

const (
	// BookingTable is a table reservation: a date, a start time and a
	// duration in minutes.
	BookingTable BookingKind = "TABLE"
	// BookingRoom is a room stay: a check-in date and an exclusive
	// check-out date.
	BookingRoom BookingKind = "ROOM"
	// BookingVenue reserves the whole venue and references no resource.
	BookingVenue BookingKind = "VENUE"
)

// Valid reports whether k is a known booking kind.
func (k BookingKind) Valid() bool {
	switch k {
	case BookingTable, BookingRoom, BookingVenue:
		return true
	}
	return false
}

// ResourceKind returns the kind of resource a booking of kind k occupies.
// Whole-venue reservations are sized against the venue's tables.
func (k BookingKind) ResourceKind() ResourceKind {
	if k == BookingRoom {
		return ResourceRoom
	}
	return ResourceTable
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingNoShow     BookingStatus = "NO_SHOW"
)

// BlockingStatuses are the statuses whose intervals may not overlap on the
// same resource.
var BlockingStatuses = []BookingStatus{BookingConfirmed, BookingCheckedIn}

// OccupyingStatuses are counted as occupied days by occupancy reports.
var OccupyingStatuses = []BookingStatus{BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingCompleted}

// UpcomingStatuses are listed by the upcoming-bookings report.
var UpcomingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn}

// ActiveStatuses keep a resource from being deleted.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn}

// Booking is a claim on a resource (or on a whole venue) for the half-open
// interval [StartsAt, EndsAt). Both instants are stored in UTC; for rooms
// they fall on midnight of the check-in and check-out dates.
type Booking struct {
	ID              uint64        `json:"id"`
	Number          string        `json:"booking_number"`
	Kind            BookingKind   `json:"kind"`
	UserID          uint64        `json:"user_id"`
	VenueID         uint64        `json:"venue_id"`
	ResourceID      *uint64       `json:"resource_id,omitempty"`
	StartsAt        time.Time     `json:"starts_at"`
	EndsAt          time.Time     `json:"ends_at"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
	Guests          int           `json:"guests"`
	AmountCents     int64         `json:"amount_cents"`
	SpecialRequest  string        `json:"special_request,omitempty"`
	Status          BookingStatus `json:"status"`
	PaymentRef      *string       `json:"payment_ref,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// HasResource reports whether the booking is bound to a single resource.
func (b Booking) HasResource() bool { return b.ResourceID != nil && *b.ResourceID != 0 }

// StatusIn reports whether the booking status is one of statuses.
func (b Booking) StatusIn(statuses ...BookingStatus) bool {
	for _, s := range statuses {
		if b.Status == s {
			return true
		}
	}
	return false
}
