package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/ordering"
	"github.com/iliyamo/venue-booking/internal/repository"
)

// OrderHandler exposes the order lifecycle. Customers place and read
// their orders; the venue owner moves them along.
type OrderHandler struct {
	Orders orderService
	Venues ownerChecker
	Log    logrus.FieldLogger
}

// NewOrderHandler panics if a dependency is missing.
func NewOrderHandler(orders orderService, venues ownerChecker, log logrus.FieldLogger) *OrderHandler {
	if orders == nil || venues == nil || log == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders, Venues: venues, Log: log}
}

type createOrderReq struct {
	VenueID    uint64  `json:"venue_id"`
	OrderType  string  `json:"order_type"`
	TableID    *uint64 `json:"table_id"`
	TotalCents int64   `json:"total_cents"`
	Notes      string  `json:"notes"`
}

// Create places an order for the caller.
func (h *OrderHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Create(ctx, ordering.CreateOrder{
		VenueID:    req.VenueID,
		UserID:     uid,
		Type:       model.OrderType(strings.ToUpper(strings.TrimSpace(req.OrderType))),
		TableID:    req.TableID,
		TotalCents: req.TotalCents,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// Get returns an order with its status history to the customer who placed
// it or to the venue owner.
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if err == nil {
		err = h.authorize(ctx, c, o, false)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// GetByNumber is Get keyed by the order number printed on the receipt.
func (h *OrderHandler) GetByNumber(c echo.Context) error {
	number := strings.ToUpper(strings.TrimSpace(c.Param("number")))
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.GetByNumber(ctx, number)
	if err == nil {
		err = h.authorize(ctx, c, o, false)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Kitchen lists the venue's orders waiting to be cooked or on the stove.
//
//	GET /v1/venues/:id/orders/kitchen
func (h *OrderHandler) Kitchen(c echo.Context) error {
	return h.queue(c, h.Orders.KitchenQueue)
}

// Deliveries lists the venue's delivery orders that are ready or on the road.
//
//	GET /v1/venues/:id/orders/delivery
func (h *OrderHandler) Deliveries(c echo.Context) error {
	return h.queue(c, h.Orders.DeliveryQueue)
}

func (h *OrderHandler) queue(c echo.Context, list func(context.Context, uint64) ([]model.Order, error)) error {
	venueID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": err.Error()})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Venues.CheckOwner(ctx, venueID, uid); err != nil {
		return respondError(c, h.Log, err)
	}
	out, err := list(ctx, venueID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"venue_id": venueID, "orders": out})
}

type orderStatusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Transition moves an order to the requested status. Only the venue owner
// may do this.
func (h *OrderHandler) Transition(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req orderStatusReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		return badRequest(c, "status required")
	}
	uid, _ := getUserID(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if err == nil {
		err = h.authorize(ctx, c, o, true)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	o, err = h.Orders.Transition(ctx, id, model.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status))), strings.TrimSpace(req.Notes), uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, o)
}

type assignDriverReq struct {
	DriverID uint64 `json:"driver_id"`
}

// AssignDriver sends a delivery order out with a driver.
func (h *OrderHandler) AssignDriver(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req assignDriverReq
	if err := c.Bind(&req); err != nil || req.DriverID == 0 {
		return badRequest(c, "driver_id required")
	}
	uid, _ := getUserID(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if err == nil {
		err = h.authorize(ctx, c, o, true)
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	o, err = h.Orders.AssignDriver(ctx, id, req.DriverID, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// authorize admits the venue owner, and the customer who placed the order
// unless ownerOnly is set.
func (h *OrderHandler) authorize(ctx context.Context, c echo.Context, o model.Order, ownerOnly bool) error {
	uid, err := getUserID(c)
	if err != nil {
		return repository.ErrForbidden
	}
	if !ownerOnly && o.UserID == uid {
		return nil
	}
	if getRole(c) != model.RoleOwner {
		return repository.ErrForbidden
	}
	return h.Venues.CheckOwner(ctx, o.VenueID, uid)
}
