// Package ordering drives dine-in, takeaway and delivery orders through
// their status lifecycle. It shares the transition contract and the error
// taxonomy of the booking core but never touches resources.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/lifecycle"
	"github.com/iliyamo/venue-booking/internal/model"
)

var (
	ErrValidation        = booking.ErrValidation
	ErrNotFound          = booking.ErrNotFound
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
)

// Store persists orders and their history.
type Store interface {
	// InsertOrder stores o together with its history entries and fills in
	// the generated ids.
	InsertOrder(ctx context.Context, o *model.Order) error
	// Order loads an order with its history, oldest entry first.
	Order(ctx context.Context, id uint64) (model.Order, error)
	// OrderByNumber is Order keyed by the order number.
	OrderByNumber(ctx context.Context, number string) (model.Order, error)
	// Orders lists orders matching q, oldest first, without history.
	Orders(ctx context.Context, q Query) ([]model.Order, error)
	// SaveTransition writes o's new status and driver and appends change,
	// provided the stored status is still from. Otherwise it returns an
	// error wrapping booking.ErrWriteConflict.
	SaveTransition(ctx context.Context, o *model.Order, from model.OrderStatus, change *model.OrderStatusChange) error
}

// Query filters order listings. Zero fields do not filter.
type Query struct {
	VenueID  uint64
	Statuses []model.OrderStatus
	Type     model.OrderType
	Limit    int
}

// The statuses the kitchen and the dispatch screens work through.
var (
	KitchenStatuses  = []model.OrderStatus{model.OrderPending, model.OrderPreparing}
	DeliveryStatuses = []model.OrderStatus{model.OrderReady, model.OrderOutForDelivery}
)

// Notifier receives order status changes after they are stored.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, o model.Order, from model.OrderStatus) error
}

// Service is the order lifecycle service.
type Service struct {
	store    Store
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
	timeout  time.Duration
}

// NewService returns a Service. notifier may be nil.
func NewService(store Store, notifier Notifier, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		timeout:  10 * time.Second,
	}
}

// CreateOrder is the input of Create.
type CreateOrder struct {
	VenueID    uint64
	UserID     uint64
	Type       model.OrderType
	TableID    *uint64
	TotalCents int64
	Notes      string
}

// Create stores a PENDING order with its first history entry.
func (s *Service) Create(ctx context.Context, req CreateOrder) (model.Order, error) {
	switch {
	case !req.Type.Valid():
		return model.Order{}, fmt.Errorf("%w: unknown order type %q", ErrValidation, req.Type)
	case req.VenueID == 0:
		return model.Order{}, fmt.Errorf("%w: venue is required", ErrValidation)
	case req.UserID == 0:
		return model.Order{}, fmt.Errorf("%w: user is required", ErrValidation)
	case req.TotalCents < 0:
		return model.Order{}, fmt.Errorf("%w: total cannot be negative", ErrValidation)
	case req.Type == model.OrderDineIn && req.TableID == nil:
		return model.Order{}, fmt.Errorf("%w: dine-in orders need a table", ErrValidation)
	case req.Type != model.OrderDineIn && req.TableID != nil:
		return model.Order{}, fmt.Errorf("%w: only dine-in orders take a table", ErrValidation)
	}

	now := s.now().UTC()
	number, err := booking.NewNumber(booking.PrefixOrder, now)
	if err != nil {
		return model.Order{}, err
	}
	o := model.Order{
		Number:     number,
		VenueID:    req.VenueID,
		UserID:     req.UserID,
		Type:       req.Type,
		TableID:    req.TableID,
		TotalCents: req.TotalCents,
		Status:     model.OrderPending,
		History: []model.OrderStatusChange{{
			To:        model.OrderPending,
			Notes:     req.Notes,
			ChangedBy: req.UserID,
			ChangedAt: now,
		}},
	}
	if err := s.store.InsertOrder(ctx, &o); err != nil {
		return model.Order{}, err
	}
	s.log.WithFields(logrus.Fields{"order_id": o.ID, "order_number": o.Number, "type": o.Type}).Info("order created")
	s.notify(o, "")
	return o, nil
}

// Get loads an order with its history.
func (s *Service) Get(ctx context.Context, id uint64) (model.Order, error) {
	return s.store.Order(ctx, id)
}

// GetByNumber loads an order with its history by its number.
func (s *Service) GetByNumber(ctx context.Context, number string) (model.Order, error) {
	if number == "" {
		return model.Order{}, fmt.Errorf("%w: order number is required", ErrValidation)
	}
	return s.store.OrderByNumber(ctx, number)
}

// KitchenQueue lists the venue's orders still to be cooked, oldest first.
func (s *Service) KitchenQueue(ctx context.Context, venueID uint64) ([]model.Order, error) {
	if venueID == 0 {
		return nil, fmt.Errorf("%w: venue is required", ErrValidation)
	}
	return s.store.Orders(ctx, Query{VenueID: venueID, Statuses: KitchenStatuses})
}

// DeliveryQueue lists the venue's delivery orders waiting for a driver or
// on the road, oldest first.
func (s *Service) DeliveryQueue(ctx context.Context, venueID uint64) ([]model.Order, error) {
	if venueID == 0 {
		return nil, fmt.Errorf("%w: venue is required", ErrValidation)
	}
	return s.store.Orders(ctx, Query{VenueID: venueID, Statuses: DeliveryStatuses, Type: model.OrderDelivery})
}

// Transition moves an order to status to and records who did it.
func (s *Service) Transition(ctx context.Context, id uint64, to model.OrderStatus, notes string, changedBy uint64) (model.Order, error) {
	return s.transition(ctx, id, to, notes, changedBy, nil)
}

// AssignDriver hands a delivery order that is being prepared or is ready
// to a driver, which sends it out for delivery.
func (s *Service) AssignDriver(ctx context.Context, id, driverID, changedBy uint64) (model.Order, error) {
	if driverID == 0 {
		return model.Order{}, fmt.Errorf("%w: driver is required", ErrValidation)
	}
	return s.transition(ctx, id, model.OrderOutForDelivery, fmt.Sprintf("assigned to driver %d", driverID), changedBy, func(o *model.Order) error {
		if o.Type != model.OrderDelivery {
			return fmt.Errorf("%w: order %s is not a delivery order", ErrValidation, o.Number)
		}
		if o.Status != model.OrderPreparing && o.Status != model.OrderReady {
			return fmt.Errorf("%w: order %s is %s, drivers are assigned while preparing or ready", ErrInvalidTransition, o.Number, o.Status)
		}
		o.DriverID = &driverID
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id uint64, to model.OrderStatus, notes string, changedBy uint64, prepare func(*model.Order) error) (model.Order, error) {
	o, err := s.store.Order(ctx, id)
	if err != nil {
		return model.Order{}, err
	}
	from := o.Status
	if prepare != nil {
		if err := prepare(&o); err != nil {
			return model.Order{}, err
		}
	}
	if _, err := lifecycle.Orders.Apply(from, to); err != nil {
		return model.Order{}, err
	}
	if to == model.OrderOutForDelivery && o.Type != model.OrderDelivery {
		return model.Order{}, fmt.Errorf("%w: order %s is not a delivery order", ErrInvalidTransition, o.Number)
	}

	change := model.OrderStatusChange{
		OrderID:   o.ID,
		From:      from,
		To:        to,
		Notes:     notes,
		ChangedBy: changedBy,
		ChangedAt: s.now().UTC(),
	}
	o.Status = to
	if err := s.store.SaveTransition(ctx, &o, from, &change); err != nil {
		if errors.Is(err, booking.ErrWriteConflict) {
			return model.Order{}, fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, o.Number)
		}
		return model.Order{}, err
	}
	o.History = append(o.History, change)

	s.log.WithFields(logrus.Fields{"order_id": o.ID, "from": from, "to": to}).Info("order status changed")
	s.notify(o, from)
	return o, nil
}

func (s *Service) notify(o model.Order, from model.OrderStatus) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.notifier.OrderStatusChanged(ctx, o, from); err != nil {
			s.log.WithError(err).WithField("order_id", o.ID).Warn("order notification failed")
		}
	}()
}
