package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// BookingHandler exposes the booking orchestrator, the availability
// queries and the venue reports.
type BookingHandler struct {
	Svc       bookingService
	Venues    ownerChecker
	Resources resourceGetter
	Log       logrus.FieldLogger
	// UpcomingHorizon is used when the upcoming report gets no hours.
	UpcomingHorizon time.Duration
}

// NewBookingHandler panics on a missing dependency, like every other
// handler constructor.
func NewBookingHandler(svc bookingService, venues ownerChecker, resources resourceGetter, log logrus.FieldLogger, horizon time.Duration) *BookingHandler {
	if svc == nil || venues == nil || resources == nil || log == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	return &BookingHandler{Svc: svc, Venues: venues, Resources: resources, Log: log, UpcomingHorizon: horizon}
}

type createBookingReq struct {
	Kind       string `json:"kind"`
	VenueID    uint64 `json:"venue_id"`
	ResourceID uint64 `json:"resource_id"`
	slotInput
	Guests         int     `json:"guests"`
	AmountCents    int64   `json:"amount_cents"`
	SpecialRequest string  `json:"special_request"`
	PaymentRef     *string `json:"payment_ref"`
}

// Create books a table, a room or a whole venue for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	kind := model.BookingKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		return badRequest(c, "kind must be TABLE, ROOM or VENUE")
	}
	slot, err := req.slot(kind)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.Svc.CreateBooking(ctx, booking.CreateRequest{
		Kind:           kind,
		UserID:         uid,
		VenueID:        req.VenueID,
		ResourceID:     req.ResourceID,
		Slot:           slot,
		Guests:         req.Guests,
		AmountCents:    req.AmountCents,
		SpecialRequest: strings.TrimSpace(req.SpecialRequest),
		PaymentRef:     req.PaymentRef,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get returns one booking to its guest or to the venue owner.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.Svc.GetBooking(ctx, id)
	if err == nil {
		err = h.authorize(ctx, c, b)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// GetByNumber looks a booking up by its booking number.
func (h *BookingHandler) GetByNumber(c echo.Context) error {
	number := strings.ToUpper(strings.TrimSpace(c.Param("number")))
	if number == "" {
		return badRequest(c, "booking number required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.Svc.GetBookingByNumber(ctx, number)
	if err == nil {
		err = h.authorize(ctx, c, b)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Mine lists the caller's bookings, optionally filtered by status.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}
	q := booking.BookingQuery{UserID: uid}
	if err := h.listFilters(c, &q); err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Svc.ListBookings(ctx, q)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out, "limit": q.Limit, "offset": q.Offset})
}

// VenueBookings lists a venue's bookings for its owner. from and to are
// dates; bookings intersecting [from, to) are returned.
func (h *BookingHandler) VenueBookings(c echo.Context) error {
	venueID, ctx, cancel, err := h.ownedVenue(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	defer cancel()

	q := booking.BookingQuery{VenueID: venueID}
	if err := h.listFilters(c, &q); err != nil {
		return respondError(c, h.Log, err)
	}
	if k := strings.ToUpper(c.QueryParam("kind")); k != "" {
		q.Kind = model.BookingKind(k)
		if !q.Kind.Valid() {
			return badRequest(c, "kind must be TABLE, ROOM or VENUE")
		}
	}
	if c.QueryParam("from") != "" || c.QueryParam("to") != "" {
		if q.From, err = queryDate(c, "from"); err != nil {
			return respondError(c, h.Log, err)
		}
		if q.To, err = queryDate(c, "to"); err != nil {
			return respondError(c, h.Log, err)
		}
		if !q.To.After(q.From) {
			return badRequest(c, "to must be after from")
		}
	}
	out, err := h.Svc.ListBookings(ctx, q)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out, "limit": q.Limit, "offset": q.Offset})
}

type updateBookingReq struct {
	ResourceID *uint64 `json:"resource_id"`
	slotInput
	Guests         *int    `json:"guests"`
	AmountCents    *int64  `json:"amount_cents"`
	SpecialRequest *string `json:"special_request"`
	PaymentRef     *string `json:"payment_ref"`
}

// Update changes a booking. Changing its time needs the full slot for the
// booking's kind: date, time and duration for tables, check-in and
// check-out for rooms.
func (h *BookingHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req updateBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	current, err := h.Svc.GetBooking(ctx, id)
	if err == nil {
		err = h.authorize(ctx, c, current)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ch := booking.Changes{
		ResourceID:     req.ResourceID,
		Guests:         req.Guests,
		AmountCents:    req.AmountCents,
		SpecialRequest: req.SpecialRequest,
		PaymentRef:     req.PaymentRef,
	}
	if !req.slotInput.empty() {
		slot, err := req.slot(current.Kind)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		ch.Slot = &slot
	}
	b, err := h.Svc.UpdateBooking(ctx, id, ch)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

type transitionReq struct {
	Status string `json:"status"`
}

// Transition moves a booking through its lifecycle. Only the venue owner
// may do this; guests cancel through Cancel.
func (h *BookingHandler) Transition(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req transitionReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		return badRequest(c, "status required")
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	current, err := h.Svc.GetBooking(ctx, id)
	if err == nil {
		err = h.Venues.CheckOwner(ctx, current.VenueID, uid)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Svc.TransitionStatus(ctx, id, model.BookingStatus(strings.ToUpper(strings.TrimSpace(req.Status))))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel cancels a booking on behalf of its guest or the venue owner.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	current, err := h.Svc.GetBooking(ctx, id)
	if err == nil {
		err = h.authorize(ctx, c, current)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Svc.CancelBooking(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// authorize lets the booking's guest and the owner of its venue through.
func (h *BookingHandler) authorize(ctx context.Context, c echo.Context, b model.Booking) error {
	uid, err := getUserID(c)
	if err != nil {
		return repository.ErrForbidden
	}
	if b.UserID == uid {
		return nil
	}
	if getRole(c) == model.RoleOwner {
		return h.Venues.CheckOwner(ctx, b.VenueID, uid)
	}
	return repository.ErrForbidden
}

// ownedVenue parses the :id venue parameter and checks that the caller
// owns it. The returned context must be cancelled by the caller.
func (h *BookingHandler) ownedVenue(c echo.Context) (uint64, context.Context, context.CancelFunc, error) {
	venueID, err := pathID(c, "id")
	if err != nil {
		return 0, nil, nil, err
	}
	uid, err := getUserID(c)
	if err != nil {
		return 0, nil, nil, repository.ErrForbidden
	}
	ctx, cancel := requestContext(c)
	if err := h.Venues.CheckOwner(ctx, venueID, uid); err != nil {
		cancel()
		return 0, nil, nil, err
	}
	return venueID, ctx, cancel, nil
}

func (h *BookingHandler) listFilters(c echo.Context, q *booking.BookingQuery) error {
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		for _, part := range strings.Split(strings.ToUpper(s), ",") {
			q.Statuses = append(q.Statuses, model.BookingStatus(strings.TrimSpace(part)))
		}
	}
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	if limit <= 0 || limit > maxPageSize {
		return fmt.Errorf("%w: limit must be between 1 and %d", booking.ErrValidation, maxPageSize)
	}
	if offset < 0 {
		return fmt.Errorf("%w: offset cannot be negative", booking.ErrValidation)
	}
	q.Limit, q.Offset = limit, offset
	return nil
}
