package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
)

// VenueHandler manages venues and their tables and rooms. Writes are for
// the owning user; listings are public.
type VenueHandler struct {
	Venues    venueStore
	Resources resourceStore
	Log       logrus.FieldLogger
}

// NewVenueHandler panics if a dependency is missing.
func NewVenueHandler(venues venueStore, resources resourceStore, log logrus.FieldLogger) *VenueHandler {
	if venues == nil || resources == nil || log == nil {
		panic("nil dependency passed to NewVenueHandler")
	}
	return &VenueHandler{Venues: venues, Resources: resources, Log: log}
}

type createVenueReq struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CreateVenue registers a venue owned by the caller.
func (h *VenueHandler) CreateVenue(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}
	var req createVenueReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return badRequest(c, "name required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v := model.Venue{OwnerID: uid, Name: req.Name, Address: strings.TrimSpace(req.Address)}
	if err := h.Venues.Create(ctx, &v); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// ListVenues lists every venue.
func (h *VenueHandler) ListVenues(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Venues.ListAll(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": out})
}

// GetVenue returns one venue.
func (h *VenueHandler) GetVenue(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Venues.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, v)
}

type createResourceReq struct {
	VenueID            uint64   `json:"venue_id"`
	Kind               string   `json:"kind"`
	Name               string   `json:"name"`
	Capacity           int      `json:"capacity"`
	Location           string   `json:"location"`
	MinimumChargeCents int64    `json:"minimum_charge_cents"`
	PricePerNightCents int64    `json:"price_per_night_cents"`
	Amenities          []string `json:"amenities"`
}

func (r createResourceReq) validate() string {
	switch {
	case r.VenueID == 0:
		return "venue_id required"
	case !model.ResourceKind(r.Kind).Valid():
		return "kind must be TABLE or ROOM"
	case strings.TrimSpace(r.Name) == "":
		return "name required"
	case r.Capacity <= 0:
		return "capacity must be positive"
	case r.MinimumChargeCents < 0 || r.PricePerNightCents < 0:
		return "prices cannot be negative"
	case r.Kind == string(model.ResourceRoom) && r.PricePerNightCents == 0:
		return "rooms need price_per_night_cents"
	}
	return ""
}

// CreateResource adds a table or a room to one of the caller's venues.
func (h *VenueHandler) CreateResource(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}
	var req createResourceReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Kind = strings.ToUpper(strings.TrimSpace(req.Kind))
	if msg := req.validate(); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Venues.CheckOwner(ctx, req.VenueID, uid); err != nil {
		return respondError(c, h.Log, err)
	}
	res := model.Resource{
		VenueID:            req.VenueID,
		Kind:               model.ResourceKind(req.Kind),
		Name:               req.Name,
		Capacity:           req.Capacity,
		Status:             model.ResourceAvailable,
		Location:           strings.TrimSpace(req.Location),
		MinimumChargeCents: req.MinimumChargeCents,
		PricePerNightCents: req.PricePerNightCents,
		Amenities:          req.Amenities,
	}
	if err := h.Resources.Create(ctx, &res); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListResources lists a venue's tables and rooms. Disabled ones are only
// included when ?include_disabled=true.
func (h *VenueHandler) ListResources(c echo.Context) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	q := booking.ResourceQuery{VenueID: venueID, IncludeDisabled: c.QueryParam("include_disabled") == "true"}
	if k := strings.ToUpper(c.QueryParam("kind")); k != "" {
		q.Kind = model.ResourceKind(k)
		if !q.Kind.Valid() {
			return badRequest(c, "kind must be TABLE or ROOM")
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Resources.List(ctx, q)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "resources": out})
}

type setDisabledReq struct {
	Disabled *bool `json:"disabled"`
}

// SetResourceDisabled takes a resource out of availability or puts it
// back.
func (h *VenueHandler) SetResourceDisabled(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req setDisabledReq
	if err := c.Bind(&req); err != nil || req.Disabled == nil {
		return badRequest(c, "disabled required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.ownResource(c, id); err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Resources.SetDisabled(ctx, id, *req.Disabled); err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Resources.Get(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteResource removes a resource. One with booking history is disabled
// instead; one with active bookings is refused with 409.
func (h *VenueHandler) DeleteResource(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.ownResource(c, id); err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Resources.Delete(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *VenueHandler) ownResource(c echo.Context, id uint64) error {
	uid, err := getUserID(c)
	if err != nil {
		return repository.ErrForbidden
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Resources.Get(ctx, id)
	if err != nil {
		return err
	}
	return h.Venues.CheckOwner(ctx, res.VenueID, uid)
}
