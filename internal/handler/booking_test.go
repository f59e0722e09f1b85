package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
)

const (
	guestID = 7
	ownerID = 2
	venueID = 1
)

func newBookingHandler(svc *fakeBookings) *BookingHandler {
	res := &fakeResources{items: map[uint64]model.Resource{
		3: {ID: 3, VenueID: venueID, Kind: model.ResourceTable, Capacity: 4},
	}}
	return NewBookingHandler(svc, owners{venueID: ownerID}, res, quietLog(), 0)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: guests must be positive", booking.ErrValidation), http.StatusBadRequest, "validation_failed"},
		{fmt.Errorf("%w: 5 guests", booking.ErrCapacityExceeded), http.StatusUnprocessableEntity, "capacity_exceeded"},
		{booking.ErrResourceUnavailable, http.StatusConflict, "resource_unavailable"},
		{booking.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{booking.ErrImmutableState, http.StatusConflict, "immutable_state"},
		{booking.ErrNotFound, http.StatusNotFound, "not_found"},
		{repository.ErrForbidden, http.StatusForbidden, "forbidden"},
		{repository.ErrResourceInUse, http.StatusConflict, "resource_in_use"},
		{repository.ErrConflict, http.StatusConflict, "conflict"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, respondError(c, quietLog(), tc.err))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decode(t, rec)["error"])
		})
	}
}

func TestRespondError_HidesInternalMessage(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, respondError(c, quietLog(), errors.New("dial tcp 10.0.0.3:3306: refused")))
	assert.Equal(t, "internal error", decode(t, rec)["message"])
}

func TestBookingHandler_CreateTable(t *testing.T) {
	svc := &fakeBookings{}
	h := newBookingHandler(svc)
	e := echo.New()
	e.POST("/v1/bookings", h.Create, as(guestID, model.RoleCustomer))

	rec := do(e, http.MethodPost, "/v1/bookings",
		`{"kind":"table","venue_id":1,"resource_id":3,"date":"2024-06-01","time":"19:30","duration_minutes":90,"guests":3,"special_request":" window seat "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req := svc.created
	assert.Equal(t, model.BookingTable, req.Kind)
	assert.Equal(t, uint64(guestID), req.UserID)
	assert.Equal(t, uint64(3), req.ResourceID)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), req.Slot.Date)
	assert.Equal(t, 19*time.Hour+30*time.Minute, req.Slot.Clock)
	assert.Equal(t, 90*time.Minute, req.Slot.Duration)
	assert.Equal(t, 3, req.Guests)
	assert.Equal(t, "window seat", req.SpecialRequest)
}

func TestBookingHandler_CreateRoom(t *testing.T) {
	svc := &fakeBookings{}
	e := echo.New()
	e.POST("/v1/bookings", newBookingHandler(svc).Create, as(guestID, model.RoleCustomer))

	rec := do(e, http.MethodPost, "/v1/bookings",
		`{"kind":"ROOM","venue_id":1,"resource_id":5,"check_in":"2024-07-01","check_out":"2024-07-05","guests":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), svc.created.Slot.CheckIn)
	assert.Equal(t, time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), svc.created.Slot.CheckOut)
}

func TestBookingHandler_CreateErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"unknown kind", `{"kind":"BOAT"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"bad date", `{"kind":"TABLE","date":"01/06/2024","time":"19:00"}`, nil, http.StatusBadRequest, "validation_failed"},
		{"capacity", `{"kind":"TABLE","date":"2024-06-01","time":"19:00","guests":9}`, booking.ErrCapacityExceeded, http.StatusUnprocessableEntity, "capacity_exceeded"},
		{"taken", `{"kind":"TABLE","date":"2024-06-01","time":"19:00","guests":2}`, booking.ErrResourceUnavailable, http.StatusConflict, "resource_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.POST("/v1/bookings", newBookingHandler(&fakeBookings{err: tc.err}).Create, as(guestID, model.RoleCustomer))
			rec := do(e, http.MethodPost, "/v1/bookings", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decode(t, rec)["error"])
		})
	}
}

func TestBookingHandler_GetAccess(t *testing.T) {
	svc := &fakeBookings{current: model.Booking{ID: 10, Number: "RSV10", UserID: guestID, VenueID: venueID}}
	h := newBookingHandler(svc)

	cases := []struct {
		name   string
		uid    uint64
		role   string
		status int
	}{
		{"guest", guestID, model.RoleCustomer, http.StatusOK},
		{"venue owner", ownerID, model.RoleOwner, http.StatusOK},
		{"other owner", 99, model.RoleOwner, http.StatusForbidden},
		{"other customer", 8, model.RoleCustomer, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/v1/bookings/:id", h.Get, as(tc.uid, tc.role))
			e.GET("/v1/bookings/number/:number", h.GetByNumber, as(tc.uid, tc.role))
			assert.Equal(t, tc.status, do(e, http.MethodGet, "/v1/bookings/10", "").Code)
			assert.Equal(t, tc.status, do(e, http.MethodGet, "/v1/bookings/number/rsv10", "").Code)
		})
	}

	e := echo.New()
	e.GET("/v1/bookings/:id", h.Get, as(guestID, model.RoleCustomer))
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/bookings/11", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/bookings/abc", "").Code)
}

func TestBookingHandler_UpdateUsesBookingKind(t *testing.T) {
	svc := &fakeBookings{current: model.Booking{ID: 10, Kind: model.BookingRoom, UserID: guestID, VenueID: venueID}}
	e := echo.New()
	e.PATCH("/v1/bookings/:id", newBookingHandler(svc).Update, as(guestID, model.RoleCustomer))

	rec := do(e, http.MethodPatch, "/v1/bookings/10", `{"check_in":"2024-07-02","check_out":"2024-07-04","guests":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.changes.Slot)
	assert.Equal(t, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC), svc.changes.Slot.CheckIn)
	require.NotNil(t, svc.changes.Guests)
	assert.Equal(t, 2, *svc.changes.Guests)
	assert.Nil(t, svc.changes.ResourceID)

	rec = do(e, http.MethodPatch, "/v1/bookings/10", `{"special_request":"late arrival"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.changes.Slot)
	require.NotNil(t, svc.changes.SpecialRequest)
	assert.Equal(t, "late arrival", *svc.changes.SpecialRequest)
}

func TestBookingHandler_TransitionIsForOwners(t *testing.T) {
	svc := &fakeBookings{current: model.Booking{ID: 10, UserID: guestID, VenueID: venueID, Status: model.BookingPending}}
	h := newBookingHandler(svc)

	e := echo.New()
	e.POST("/v1/bookings/:id/status", h.Transition, as(guestID, model.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/v1/bookings/10/status", `{"status":"CONFIRMED"}`).Code)

	e = echo.New()
	e.POST("/v1/bookings/:id/status", h.Transition, as(ownerID, model.RoleOwner))
	rec := do(e, http.MethodPost, "/v1/bookings/10/status", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.BookingConfirmed, svc.moved)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/bookings/10/status", `{}`).Code)

	svc.err = fmt.Errorf("%w: CANCELLED -> CONFIRMED", booking.ErrInvalidTransition)
	rec = do(e, http.MethodPost, "/v1/bookings/10/status", `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode(t, rec)["error"])
}

func TestBookingHandler_CancelTwice(t *testing.T) {
	svc := &fakeBookings{current: model.Booking{ID: 10, UserID: guestID, VenueID: venueID}}
	e := echo.New()
	e.DELETE("/v1/bookings/:id", newBookingHandler(svc).Cancel, as(guestID, model.RoleCustomer))

	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/v1/bookings/10", "").Code)
	assert.Equal(t, model.BookingCancelled, svc.moved)

	svc.err = booking.ErrImmutableState
	rec := do(e, http.MethodDelete, "/v1/bookings/10", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "immutable_state", decode(t, rec)["error"])
}

func TestBookingHandler_Mine(t *testing.T) {
	svc := &fakeBookings{}
	e := echo.New()
	e.GET("/v1/my-bookings", newBookingHandler(svc).Mine, as(guestID, model.RoleCustomer))

	rec := do(e, http.MethodGet, "/v1/my-bookings?status=confirmed,checked_in&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(guestID), svc.listed.UserID)
	assert.Equal(t, []model.BookingStatus{model.BookingConfirmed, model.BookingCheckedIn}, svc.listed.Statuses)
	assert.Equal(t, 10, svc.listed.Limit)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/my-bookings?limit=1000", "").Code)
}

func TestBookingHandler_VenueBookings(t *testing.T) {
	svc := &fakeBookings{}
	h := newBookingHandler(svc)
	e := echo.New()
	e.GET("/v1/venues/:id/bookings", h.VenueBookings, as(ownerID, model.RoleOwner))

	rec := do(e, http.MethodGet, "/v1/venues/1/bookings?from=2024-06-01&to=2024-06-02&kind=table", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(venueID), svc.listed.VenueID)
	assert.Equal(t, model.BookingTable, svc.listed.Kind)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), svc.listed.To)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/venues/1/bookings?from=2024-06-02&to=2024-06-01", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/venues/4/bookings", "").Code)
}

func TestBookingHandler_FindAvailable(t *testing.T) {
	svc := &fakeBookings{resources: []model.Resource{{ID: 3}, {ID: 2}}}
	e := echo.New()
	e.GET("/v1/venues/:id/availability", newBookingHandler(svc).FindAvailable)

	rec := do(e, http.MethodGet, "/v1/venues/1/availability?kind=table&date=2024-06-01&time=19:00&guests=4", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := svc.avQuery
	assert.Equal(t, uint64(venueID), q.VenueID)
	assert.Equal(t, model.ResourceTable, q.Kind)
	assert.Equal(t, 4, q.Guests)
	assert.Equal(t, time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC), q.Window.Start)
	assert.Equal(t, time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC), q.Window.End)
	assert.Len(t, decode(t, rec)["resources"], 2)

	rec = do(e, http.MethodGet, "/v1/venues/1/availability?kind=room&check_in=2024-07-01&check_out=2024-07-05&guests=2&max_price=15000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(15000), svc.avQuery.MaxPriceCents)
	assert.Equal(t, time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), svc.avQuery.Window.End)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/venues/1/availability?kind=hall", "").Code)
	assert.Equal(t, http.StatusBadRequest,
		do(e, http.MethodGet, "/v1/venues/1/availability?kind=room&check_in=2024-07-05&check_out=2024-07-01", "").Code)
}

func TestBookingHandler_CheckAvailabilityInfersStay(t *testing.T) {
	svc := &fakeBookings{}
	e := echo.New()
	e.GET("/v1/resources/:id/availability", newBookingHandler(svc).CheckAvailability)

	rec := do(e, http.MethodGet, "/v1/resources/5/availability?check_in=2024-07-01&check_out=2024-07-03&guests=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 48*time.Hour, svc.checked.Duration())
	assert.Equal(t, 2, svc.guests)

	rec = do(e, http.MethodGet, "/v1/resources/3/availability?date=2024-06-01&time=20:00&duration=60&guests=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, time.Hour, svc.checked.Duration())
}

func TestBookingHandler_VenueCapacity(t *testing.T) {
	e := echo.New()
	e.GET("/v1/venues/:id/capacity", newBookingHandler(&fakeBookings{}).VenueCapacity)

	rec := do(e, http.MethodGet, "/v1/venues/1/capacity?date=2024-06-01&time=18:00", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 38, decode(t, rec)["available_seats"])
}

func TestBookingHandler_Reports(t *testing.T) {
	svc := &fakeBookings{}
	h := newBookingHandler(svc)
	e := echo.New()
	e.GET("/v1/venues/:id/upcoming", h.Upcoming, as(ownerID, model.RoleOwner))
	e.GET("/v1/venues/:id/stats", h.Stats, as(ownerID, model.RoleOwner))
	e.GET("/v1/resources/:id/occupancy", h.Occupancy, as(ownerID, model.RoleOwner))

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/venues/1/upcoming", "").Code)
	assert.Equal(t, 24*time.Hour, svc.horizon)
	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/venues/1/upcoming?hours=6", "").Code)
	assert.Equal(t, 6*time.Hour, svc.horizon)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/venues/1/upcoming?hours=0", "").Code)

	rec := do(e, http.MethodGet, "/v1/venues/1/stats?from=2024-06-01&to=2024-07-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)["stats"].(map[string]any)
	assert.Equal(t, 66.67, stats["completion_rate"])

	rec = do(e, http.MethodGet, "/v1/resources/3/occupancy?from=2024-07-01&to=2024-07-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/resources/8/occupancy?from=2024-07-01&to=2024-07-31", "").Code)

	other := echo.New()
	other.GET("/v1/venues/:id/stats", h.Stats, as(99, model.RoleOwner))
	assert.Equal(t, http.StatusForbidden, do(other, http.MethodGet, "/v1/venues/1/stats?from=2024-06-01&to=2024-07-01", "").Code)
}

func TestBookingHandler_CheckOuts(t *testing.T) {
	svc := &fakeBookings{current: model.Booking{ID: 4, Kind: model.BookingRoom, VenueID: venueID, Status: model.BookingCheckedIn}}
	h := newBookingHandler(svc)
	e := echo.New()
	e.GET("/v1/venues/:id/check-outs", h.CheckOuts, as(ownerID, model.RoleOwner))

	rec := do(e, http.MethodGet, "/v1/venues/1/check-outs?hours=12", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 12*time.Hour, svc.checkOuts)
	assert.Len(t, decode(t, rec)["bookings"], 1)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/venues/1/check-outs", "").Code)
	assert.Equal(t, 24*time.Hour, svc.checkOuts)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/venues/1/check-outs?hours=-1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/venues/5/check-outs", "").Code)
}
