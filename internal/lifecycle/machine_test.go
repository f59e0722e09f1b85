package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/model"
)

var allBookingStatuses = []model.BookingStatus{
	model.BookingPending,
	model.BookingConfirmed,
	model.BookingCheckedIn,
	model.BookingCheckedOut,
	model.BookingCompleted,
	model.BookingCancelled,
	model.BookingNoShow,
}

func TestTableReservations_Table(t *testing.T) {
	m := TableReservations

	assert.True(t, m.CanTransition(model.BookingPending, model.BookingConfirmed))
	assert.True(t, m.CanTransition(model.BookingPending, model.BookingCancelled))
	assert.True(t, m.CanTransition(model.BookingConfirmed, model.BookingNoShow))
	assert.False(t, m.CanTransition(model.BookingPending, model.BookingCompleted))
	assert.False(t, m.CanTransition(model.BookingConfirmed, model.BookingCheckedIn), "tables have no check-in step")
	assert.False(t, m.Known(model.BookingCheckedIn))

	assert.Equal(t, []model.BookingStatus{model.BookingConfirmed, model.BookingCancelled}, m.Next(model.BookingPending))
}

func TestRoomBookings_Table(t *testing.T) {
	m := RoomBookings

	eff, err := m.Apply(model.BookingConfirmed, model.BookingCheckedIn)
	require.NoError(t, err)
	assert.Equal(t, EffectOccupy, eff)

	eff, err = m.Apply(model.BookingCheckedIn, model.BookingCheckedOut)
	require.NoError(t, err)
	assert.Equal(t, EffectRelease, eff)

	eff, err = m.Apply(model.BookingCheckedOut, model.BookingCompleted)
	require.NoError(t, err)
	assert.Equal(t, EffectNone, eff, "the room was already released at check-out")

	_, err = m.Apply(model.BookingCheckedIn, model.BookingCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminalStates_RejectEveryTarget(t *testing.T) {
	for _, m := range []*Machine[model.BookingStatus]{TableReservations, RoomBookings} {
		for _, from := range []model.BookingStatus{model.BookingCompleted, model.BookingCancelled, model.BookingNoShow} {
			assert.True(t, m.IsTerminal(from), "%s %s", m.Name(), from)
			for _, to := range allBookingStatuses {
				_, err := m.Apply(from, to)
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s %s -> %s", m.Name(), from, to)
			}
		}
	}
}

func TestReserveAndReleaseEffects(t *testing.T) {
	eff, err := TableReservations.Apply(model.BookingPending, model.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, EffectReserve, eff)

	for _, to := range []model.BookingStatus{model.BookingCompleted, model.BookingCancelled, model.BookingNoShow} {
		eff, err := TableReservations.Apply(model.BookingConfirmed, to)
		require.NoError(t, err)
		assert.Equal(t, EffectRelease, eff, to)
	}
}

func TestOrders_Table(t *testing.T) {
	path := []model.OrderStatus{
		model.OrderPending,
		model.OrderPreparing,
		model.OrderReady,
		model.OrderOutForDelivery,
		model.OrderDelivered,
		model.OrderCompleted,
	}
	for i := 0; i+1 < len(path); i++ {
		assert.True(t, Orders.CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
	assert.True(t, Orders.CanTransition(model.OrderReady, model.OrderCompleted), "pickup orders skip delivery")
	assert.True(t, Orders.CanTransition(model.OrderPreparing, model.OrderOutForDelivery))
	assert.False(t, Orders.CanTransition(model.OrderPending, model.OrderOutForDelivery))
	assert.False(t, Orders.CanTransition(model.OrderDelivered, model.OrderCancelled))
	assert.True(t, Orders.IsTerminal(model.OrderCancelled))

	_, err := Orders.Apply(model.OrderCompleted, model.OrderPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "order COMPLETED -> PENDING")
}

func TestUnknownStateIsTerminal(t *testing.T) {
	assert.True(t, TableReservations.IsTerminal("ARCHIVED"))
	assert.False(t, TableReservations.CanTransition("ARCHIVED", model.BookingPending))
	assert.Empty(t, TableReservations.Next("ARCHIVED"))
}

func TestForBooking(t *testing.T) {
	assert.Same(t, RoomBookings, ForBooking(model.BookingRoom))
	assert.Same(t, TableReservations, ForBooking(model.BookingTable))
	assert.Same(t, TableReservations, ForBooking(model.BookingVenue))
}
