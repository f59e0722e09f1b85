package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/booking"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/ordering"
	"github.com/iliyamo/venue-booking/internal/repository"
	"github.com/iliyamo/venue-booking/internal/schedule"
)

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// as stands in for JWTAuth.
func as(uid uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", uid)
			c.Set("role", role)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// owners maps venue id to owner id.
type owners map[uint64]uint64

func (o owners) CheckOwner(_ context.Context, venueID, ownerID uint64) error {
	owner, ok := o[venueID]
	if !ok {
		return booking.ErrNotFound
	}
	if owner != ownerID {
		return repository.ErrForbidden
	}
	return nil
}

type fakeBookings struct {
	current   model.Booking
	err       error
	created   booking.CreateRequest
	changes   booking.Changes
	moved     model.BookingStatus
	listed    booking.BookingQuery
	avQuery   booking.AvailabilityQuery
	resources []model.Resource
	checked   schedule.Interval
	guests    int
	horizon   time.Duration
	checkOuts time.Duration
}

func (f *fakeBookings) Window(k model.BookingKind, s booking.Slot) (schedule.Interval, error) {
	var (
		w   schedule.Interval
		err error
	)
	if k == model.BookingRoom {
		w, err = schedule.StayWindow(s.CheckIn, s.CheckOut)
	} else {
		w, err = schedule.TableWindow(s.Date, s.Clock, s.Duration, schedule.DefaultTableDuration)
	}
	if err != nil {
		return w, booking.ErrValidation
	}
	return w, nil
}

func (f *fakeBookings) CreateBooking(_ context.Context, req booking.CreateRequest) (model.Booking, error) {
	f.created = req
	if f.err != nil {
		return model.Booking{}, f.err
	}
	return model.Booking{ID: 1, Number: "RSV1", Kind: req.Kind, UserID: req.UserID, VenueID: req.VenueID, Status: model.BookingPending}, nil
}

func (f *fakeBookings) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	if f.current.ID != id {
		return model.Booking{}, booking.ErrNotFound
	}
	return f.current, nil
}

func (f *fakeBookings) GetBookingByNumber(_ context.Context, number string) (model.Booking, error) {
	if f.current.Number != number {
		return model.Booking{}, booking.ErrNotFound
	}
	return f.current, nil
}

func (f *fakeBookings) ListBookings(_ context.Context, q booking.BookingQuery) ([]model.Booking, error) {
	f.listed = q
	return []model.Booking{f.current}, nil
}

func (f *fakeBookings) UpdateBooking(_ context.Context, _ uint64, ch booking.Changes) (model.Booking, error) {
	f.changes = ch
	return f.current, f.err
}

func (f *fakeBookings) TransitionStatus(_ context.Context, _ uint64, to model.BookingStatus) (model.Booking, error) {
	f.moved = to
	if f.err != nil {
		return model.Booking{}, f.err
	}
	b := f.current
	b.Status = to
	return b, nil
}

func (f *fakeBookings) CancelBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return f.TransitionStatus(ctx, id, model.BookingCancelled)
}

func (f *fakeBookings) FindAvailableResources(_ context.Context, q booking.AvailabilityQuery) ([]model.Resource, error) {
	f.avQuery = q
	return f.resources, f.err
}

func (f *fakeBookings) CheckAvailability(_ context.Context, resourceID uint64, w schedule.Interval, guests int) (booking.Availability, error) {
	f.checked, f.guests = w, guests
	return booking.Availability{Available: true, Resource: model.Resource{ID: resourceID}}, f.err
}

func (f *fakeBookings) VenueCapacity(_ context.Context, _ uint64, w schedule.Interval) (int, error) {
	f.checked = w
	return 38, f.err
}

func (f *fakeBookings) QueryUpcoming(_ context.Context, _ uint64, horizon time.Duration) ([]model.Booking, error) {
	f.horizon = horizon
	return []model.Booking{}, f.err
}

func (f *fakeBookings) QueryCheckOuts(_ context.Context, _ uint64, horizon time.Duration) ([]model.Booking, error) {
	f.checkOuts = horizon
	return []model.Booking{f.current}, f.err
}

func (f *fakeBookings) QueryOccupancy(_ context.Context, _ uint64, from, to time.Time) (schedule.Occupancy, error) {
	return schedule.ComputeOccupancy(from, to, nil), f.err
}

func (f *fakeBookings) Stats(context.Context, uint64, time.Time, time.Time) (booking.Stats, error) {
	return booking.Stats{Total: 3, Completed: 2, Cancelled: 1, CompletionRate: 66.67}, f.err
}

type fakeResources struct {
	items    map[uint64]model.Resource
	created  model.Resource
	disabled map[uint64]bool
	deleted  []uint64
	err      error
}

func (f *fakeResources) Create(_ context.Context, res *model.Resource) error {
	if f.err != nil {
		return f.err
	}
	res.ID = 99
	f.created = *res
	return nil
}

func (f *fakeResources) Get(_ context.Context, id uint64) (model.Resource, error) {
	res, ok := f.items[id]
	if !ok {
		return model.Resource{}, booking.ErrNotFound
	}
	return res, nil
}

func (f *fakeResources) List(_ context.Context, q booking.ResourceQuery) ([]model.Resource, error) {
	var out []model.Resource
	for _, r := range f.items {
		if r.VenueID == q.VenueID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResources) SetDisabled(_ context.Context, id uint64, disabled bool) error {
	if f.disabled == nil {
		f.disabled = map[uint64]bool{}
	}
	f.disabled[id] = disabled
	return f.err
}

func (f *fakeResources) Delete(_ context.Context, id uint64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeOrders struct {
	current  model.Order
	err      error
	created  ordering.CreateOrder
	to       model.OrderStatus
	driverID uint64
	by       uint64
	queued   []model.Order
	queue    string
}

func (f *fakeOrders) GetByNumber(_ context.Context, number string) (model.Order, error) {
	if f.current.Number != number {
		return model.Order{}, booking.ErrNotFound
	}
	return f.current, nil
}

func (f *fakeOrders) KitchenQueue(context.Context, uint64) ([]model.Order, error) {
	f.queue = "kitchen"
	return f.queued, f.err
}

func (f *fakeOrders) DeliveryQueue(context.Context, uint64) ([]model.Order, error) {
	f.queue = "delivery"
	return f.queued, f.err
}

func (f *fakeOrders) Create(_ context.Context, req ordering.CreateOrder) (model.Order, error) {
	f.created = req
	return model.Order{ID: 5, Number: "ORD5", VenueID: req.VenueID, UserID: req.UserID, Type: req.Type, Status: model.OrderPending}, f.err
}

func (f *fakeOrders) Get(_ context.Context, id uint64) (model.Order, error) {
	if f.current.ID != id {
		return model.Order{}, booking.ErrNotFound
	}
	return f.current, nil
}

func (f *fakeOrders) Transition(_ context.Context, _ uint64, to model.OrderStatus, _ string, by uint64) (model.Order, error) {
	f.to, f.by = to, by
	o := f.current
	o.Status = to
	return o, f.err
}

func (f *fakeOrders) AssignDriver(_ context.Context, _ uint64, driverID, by uint64) (model.Order, error) {
	f.driverID, f.by = driverID, by
	o := f.current
	o.DriverID = &driverID
	o.Status = model.OrderOutForDelivery
	return o, f.err
}

