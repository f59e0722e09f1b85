package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/booking"
)

// Occupancy reports the occupied days of a resource over [from, to).
//
//	GET /v1/resources/:id/occupancy?from=2024-07-01&to=2024-08-01
func (h *BookingHandler) Occupancy(c echo.Context) error {
	resourceID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	from, err := queryDate(c, "from")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Resources.Get(ctx, resourceID)
	if err == nil {
		err = h.Venues.CheckOwner(ctx, res.VenueID, uid)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	occ, err := h.Svc.QueryOccupancy(ctx, resourceID, from, to)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"resource_id": resourceID, "occupancy": occ})
}

// Upcoming lists the venue's bookings starting within the next hours
// (default from configuration).
func (h *BookingHandler) Upcoming(c echo.Context) error {
	venueID, ctx, cancel, err := h.ownedVenue(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	defer cancel()

	horizon, err := h.horizon(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out, err := h.Svc.QueryUpcoming(ctx, venueID, horizon)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "horizon_hours": int(horizon.Hours()), "bookings": out})
}

// CheckOuts lists the checked-in stays due to leave within the next hours.
func (h *BookingHandler) CheckOuts(c echo.Context) error {
	venueID, ctx, cancel, err := h.ownedVenue(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	defer cancel()

	horizon, err := h.horizon(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out, err := h.Svc.QueryCheckOuts(ctx, venueID, horizon)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "horizon_hours": int(horizon.Hours()), "bookings": out})
}

// horizon reads ?hours=, falling back to the configured upcoming horizon.
func (h *BookingHandler) horizon(c echo.Context) (time.Duration, error) {
	if c.QueryParam("hours") == "" {
		return h.UpcomingHorizon, nil
	}
	hours, err := queryInt(c, "hours", 0)
	if err != nil {
		return 0, err
	}
	if hours <= 0 || hours > 24*31 {
		return 0, fmt.Errorf("%w: hours must be between 1 and %d", booking.ErrValidation, 24*31)
	}
	return time.Duration(hours) * time.Hour, nil
}

// Stats counts the venue's bookings starting in [from, to) per status.
func (h *BookingHandler) Stats(c echo.Context) error {
	venueID, ctx, cancel, err := h.ownedVenue(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	defer cancel()

	from, err := queryDate(c, "from")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	st, err := h.Svc.Stats(ctx, venueID, from, to)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "from": from, "to": to, "stats": st})
}
