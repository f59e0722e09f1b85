package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/schedule"
)

// availabilityQuery carries the non-slot query parameters. The slot is
// bound separately since echo skips embedded unexported structs.
type availabilityQuery struct {
	Kind     string `query:"kind"`
	Guests   int    `query:"guests"`
	MaxPrice int64  `query:"max_price"`
}

type windowResp struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func windowOf(w schedule.Interval) windowResp { return windowResp{StartsAt: w.Start, EndsAt: w.End} }

// FindAvailable lists the tables or rooms of a venue that can host the
// party for the whole requested window.
//
//	GET /v1/venues/:id/availability?kind=TABLE&date=2024-06-01&time=19:00&duration=120&guests=4
//	GET /v1/venues/:id/availability?kind=ROOM&check_in=2024-07-01&check_out=2024-07-05&guests=2&max_price=15000
func (h *BookingHandler) FindAvailable(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var (
		in   availabilityQuery
		slot slotInput
	)
	if err := bindQuery(c, &in, &slot); err != nil {
		return badRequest(c, "invalid query")
	}
	kind := model.ResourceKind(strings.ToUpper(in.Kind))
	if !kind.Valid() {
		return badRequest(c, "kind must be TABLE or ROOM")
	}
	window, err := h.window(model.BookingKind(kind), slot)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Svc.FindAvailableResources(ctx, booking.AvailabilityQuery{
		VenueID:       venueID,
		Kind:          kind,
		Window:        window,
		Guests:        in.Guests,
		MaxPriceCents: in.MaxPrice,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"venue_id":  venueID,
		"kind":      kind,
		"window":    windowOf(window),
		"resources": out,
	})
}

// CheckAvailability answers for one resource. Room stays pass check_in
// and check_out; tables pass date, time and duration.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	resourceID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var (
		in   availabilityQuery
		slot slotInput
	)
	if err := bindQuery(c, &in, &slot); err != nil {
		return badRequest(c, "invalid query")
	}
	kind := model.BookingTable
	if slot.isStay() {
		kind = model.BookingRoom
	}
	window, err := h.window(kind, slot)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Svc.CheckAvailability(ctx, resourceID, window, in.Guests)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"window": windowOf(window), "availability": res})
}

// VenueCapacity reports how many seats a whole-venue reservation could
// use during the requested window.
func (h *BookingHandler) VenueCapacity(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var in slotInput
	if err := bindQuery(c, &in); err != nil {
		return badRequest(c, "invalid query")
	}
	window, err := h.window(model.BookingVenue, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	seats, err := h.Svc.VenueCapacity(ctx, venueID, window)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "window": windowOf(window), "available_seats": seats})
}

func (h *BookingHandler) window(kind model.BookingKind, in slotInput) (schedule.Interval, error) {
	slot, err := in.slot(kind)
	if err != nil {
		return schedule.Interval{}, err
	}
	return h.Svc.Window(kind, slot)
}
