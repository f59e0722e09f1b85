package lifecycle

import "github.com/iliyamo/venue-booking/internal/model"

// TableReservations covers table and whole-venue reservations. There is no
// check-in step; completion frees the table just like cancellation.
var TableReservations = New("table reservation", []Edge[model.BookingStatus]{
	{model.BookingPending, model.BookingConfirmed, EffectReserve},
	{model.BookingPending, model.BookingCancelled, EffectRelease},
	{model.BookingConfirmed, model.BookingCompleted, EffectRelease},
	{model.BookingConfirmed, model.BookingCancelled, EffectRelease},
	{model.BookingConfirmed, model.BookingNoShow, EffectRelease},
}, model.BookingCompleted, model.BookingCancelled, model.BookingNoShow)

// RoomBookings adds the physical check-in and check-out steps. The room is
// released at check-out, so completing a checked-out stay has no effect,
// while completing straight from CHECKED_IN releases it.
var RoomBookings = New("room booking", []Edge[model.BookingStatus]{
	{model.BookingPending, model.BookingConfirmed, EffectReserve},
	{model.BookingPending, model.BookingCancelled, EffectRelease},
	{model.BookingConfirmed, model.BookingCheckedIn, EffectOccupy},
	{model.BookingConfirmed, model.BookingCancelled, EffectRelease},
	{model.BookingConfirmed, model.BookingNoShow, EffectRelease},
	{model.BookingCheckedIn, model.BookingCheckedOut, EffectRelease},
	{model.BookingCheckedIn, model.BookingCompleted, EffectRelease},
	{model.BookingCheckedOut, model.BookingCompleted, EffectNone},
}, model.BookingCompleted, model.BookingCancelled, model.BookingNoShow)

// Orders is the kitchen/delivery lifecycle. Order transitions never touch a
// resource.
var Orders = New("order", []Edge[model.OrderStatus]{
	{model.OrderPending, model.OrderPreparing, EffectNone},
	{model.OrderPending, model.OrderCancelled, EffectNone},
	{model.OrderPreparing, model.OrderReady, EffectNone},
	{model.OrderPreparing, model.OrderOutForDelivery, EffectNone}, // driver collects as the food is finished
	{model.OrderPreparing, model.OrderCancelled, EffectNone},
	{model.OrderReady, model.OrderOutForDelivery, EffectNone},
	{model.OrderReady, model.OrderCompleted, EffectNone},
	{model.OrderReady, model.OrderCancelled, EffectNone},
	{model.OrderOutForDelivery, model.OrderDelivered, EffectNone},
	{model.OrderOutForDelivery, model.OrderCancelled, EffectNone},
	{model.OrderDelivered, model.OrderCompleted, EffectNone},
}, model.OrderCompleted, model.OrderCancelled)

// ForBooking returns the machine governing bookings of kind k.
func ForBooking(k model.BookingKind) *Machine[model.BookingStatus] {
	if k == model.BookingRoom {
		return RoomBookings
	}
	return TableReservations
}
