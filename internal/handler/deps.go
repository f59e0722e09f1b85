package handler

import (
	"context"
	"time"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/ordering"
	"github.com/iliyamo/venue-booking/internal/schedule"
)

// The interfaces below list what each handler needs from the services
// and repositories; *booking.Service, *ordering.Service and the
// repository types satisfy them.

type bookingService interface {
	Window(k model.BookingKind, slot booking.Slot) (schedule.Interval, error)
	CreateBooking(ctx context.Context, req booking.CreateRequest) (model.Booking, error)
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	GetBookingByNumber(ctx context.Context, number string) (model.Booking, error)
	ListBookings(ctx context.Context, q booking.BookingQuery) ([]model.Booking, error)
	UpdateBooking(ctx context.Context, id uint64, ch booking.Changes) (model.Booking, error)
	TransitionStatus(ctx context.Context, id uint64, to model.BookingStatus) (model.Booking, error)
	CancelBooking(ctx context.Context, id uint64) (model.Booking, error)

	FindAvailableResources(ctx context.Context, q booking.AvailabilityQuery) ([]model.Resource, error)
	CheckAvailability(ctx context.Context, resourceID uint64, window schedule.Interval, guests int) (booking.Availability, error)
	VenueCapacity(ctx context.Context, venueID uint64, window schedule.Interval) (int, error)

	QueryUpcoming(ctx context.Context, venueID uint64, horizon time.Duration) ([]model.Booking, error)
	QueryCheckOuts(ctx context.Context, venueID uint64, horizon time.Duration) ([]model.Booking, error)
	QueryOccupancy(ctx context.Context, resourceID uint64, from, to time.Time) (schedule.Occupancy, error)
	Stats(ctx context.Context, venueID uint64, from, to time.Time) (booking.Stats, error)
}

type orderService interface {
	Create(ctx context.Context, req ordering.CreateOrder) (model.Order, error)
	Get(ctx context.Context, id uint64) (model.Order, error)
	GetByNumber(ctx context.Context, number string) (model.Order, error)
	KitchenQueue(ctx context.Context, venueID uint64) ([]model.Order, error)
	DeliveryQueue(ctx context.Context, venueID uint64) ([]model.Order, error)
	Transition(ctx context.Context, id uint64, to model.OrderStatus, notes string, changedBy uint64) (model.Order, error)
	AssignDriver(ctx context.Context, id, driverID, changedBy uint64) (model.Order, error)
}

type venueStore interface {
	Create(ctx context.Context, v *model.Venue) error
	GetByID(ctx context.Context, id uint64) (model.Venue, error)
	CheckOwner(ctx context.Context, venueID, ownerID uint64) error
	ListAll(ctx context.Context) ([]model.Venue, error)
}

// ownerChecker is the slice of venueStore the booking and order handlers use.
type ownerChecker interface {
	CheckOwner(ctx context.Context, venueID, ownerID uint64) error
}

type resourceStore interface {
	Create(ctx context.Context, res *model.Resource) error
	Get(ctx context.Context, id uint64) (model.Resource, error)
	List(ctx context.Context, q booking.ResourceQuery) ([]model.Resource, error)
	SetDisabled(ctx context.Context, id uint64, disabled bool) error
	Delete(ctx context.Context, id uint64) error
}

type resourceGetter interface {
	Get(ctx context.Context, id uint64) (model.Resource, error)
}

type userStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
}

type tokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}
