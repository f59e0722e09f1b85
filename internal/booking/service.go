// Package booking is the scheduling core: the availability query engine and
// the orchestrator that creates, updates, transitions and cancels bookings
// of tables, rooms and whole venues. It owns every write to a booking's
// status and to the denormalized status of the resource it holds.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/lifecycle"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/schedule"
)

// Options configures a Service. Zero values take the defaults noted on
// each field.
type Options struct {
	// DefaultTableDuration applies to table and venue reservations created
	// without a duration. Default schedule.DefaultTableDuration.
	DefaultTableDuration time.Duration
	// MaxTableDuration bounds caller supplied durations. Default 8h.
	MaxTableDuration time.Duration
	// NotifyTimeout bounds each asynchronous notification. Default 10s.
	NotifyTimeout time.Duration
	Notifier      Notifier
	Logger        logrus.FieldLogger
	Now           func() time.Time
}

// Service is the booking orchestrator.
type Service struct {
	store    Store
	finder   *Finder
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time

	defaultDuration time.Duration
	maxDuration     time.Duration
	notifyTimeout   time.Duration
}

// NewService wires the orchestrator to its persistence collaborator.
func NewService(store Store, opts Options) *Service {
	if store == nil {
		panic("nil store passed to booking.NewService")
	}
	s := &Service{
		store:           store,
		finder:          NewFinder(store),
		notifier:        opts.Notifier,
		log:             opts.Logger,
		now:             opts.Now,
		defaultDuration: opts.DefaultTableDuration,
		maxDuration:     opts.MaxTableDuration,
		notifyTimeout:   opts.NotifyTimeout,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.defaultDuration <= 0 {
		s.defaultDuration = schedule.DefaultTableDuration
	}
	if s.maxDuration <= 0 {
		s.maxDuration = 8 * time.Hour
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = 10 * time.Second
	}
	return s
}

// Slot is the requested time of a booking. Tables and whole-venue
// reservations use Date, Clock and Duration; rooms use CheckIn and
// CheckOut.
type Slot struct {
	Date     time.Time
	Clock    time.Duration
	Duration time.Duration
	CheckIn  time.Time
	CheckOut time.Time
}

// Window turns a slot into the half-open interval a booking of kind k
// occupies, applying the default table duration.
func (s *Service) Window(k model.BookingKind, slot Slot) (schedule.Interval, error) {
	var (
		w   schedule.Interval
		err error
	)
	switch k {
	case model.BookingRoom:
		w, err = schedule.StayWindow(slot.CheckIn, slot.CheckOut)
	case model.BookingTable, model.BookingVenue:
		if slot.Duration > s.maxDuration {
			return schedule.Interval{}, fmt.Errorf("%w: duration exceeds %s", ErrValidation, s.maxDuration)
		}
		w, err = schedule.TableWindow(slot.Date, slot.Clock, slot.Duration, s.defaultDuration)
	default:
		return schedule.Interval{}, fmt.Errorf("%w: unknown booking kind %q", ErrValidation, k)
	}
	if err != nil {
		return schedule.Interval{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return w, nil
}

// CreateRequest carries a new booking. ResourceID is zero for whole-venue
// reservations. AmountCents is the table deposit; for rooms it defaults to
// nights × nightly price.
type CreateRequest struct {
	Kind           model.BookingKind
	UserID         uint64
	VenueID        uint64
	ResourceID     uint64
	Slot           Slot
	Guests         int
	AmountCents    int64
	SpecialRequest string
	PaymentRef     *string
}

// CreateBooking validates the request, re-checks availability under the
// resource lock and stores the booking as PENDING. The resource status is
// left alone until the booking is confirmed.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (model.Booking, error) {
	if !req.Kind.Valid() {
		return model.Booking{}, fmt.Errorf("%w: unknown booking kind %q", ErrValidation, req.Kind)
	}
	if req.UserID == 0 {
		return model.Booking{}, fmt.Errorf("%w: user is required", ErrValidation)
	}
	if req.Guests <= 0 {
		return model.Booking{}, fmt.Errorf("%w: guests must be positive", ErrValidation)
	}
	if req.AmountCents < 0 {
		return model.Booking{}, fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	}
	window, err := s.Window(req.Kind, req.Slot)
	if err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		Kind:           req.Kind,
		UserID:         req.UserID,
		VenueID:        req.VenueID,
		StartsAt:       window.Start,
		EndsAt:         window.End,
		Guests:         req.Guests,
		AmountCents:    req.AmountCents,
		SpecialRequest: req.SpecialRequest,
		Status:         model.BookingPending,
		PaymentRef:     req.PaymentRef,
	}
	if req.Kind != model.BookingRoom {
		b.DurationMinutes = int(window.Duration() / time.Minute)
	}

	if req.Kind == model.BookingVenue {
		if req.ResourceID != 0 {
			return model.Booking{}, fmt.Errorf("%w: whole-venue reservations do not take a resource", ErrValidation)
		}
		if err := s.createVenueBooking(ctx, &b, window); err != nil {
			return model.Booking{}, err
		}
	} else {
		if req.ResourceID == 0 {
			return model.Booking{}, fmt.Errorf("%w: resource is required", ErrValidation)
		}
		if err := s.createResourceBooking(ctx, &b, req.ResourceID, window); err != nil {
			return model.Booking{}, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"booking_id":     b.ID,
		"booking_number": b.Number,
		"kind":           b.Kind,
		"venue_id":       b.VenueID,
		"window":         window.String(),
	}).Info("booking created")
	s.notify(b, "")
	return b, nil
}

func (s *Service) createResourceBooking(ctx context.Context, b *model.Booking, resourceID uint64, window schedule.Interval) error {
	res, err := s.store.Resource(ctx, resourceID)
	if err != nil {
		return err
	}
	if err := s.checkResource(b, res); err != nil {
		return err
	}
	b.ResourceID = &res.ID
	b.VenueID = res.VenueID
	if b.Kind == model.BookingRoom && b.AmountCents == 0 {
		b.AmountCents = int64(schedule.Nights(window)) * res.PricePerNightCents
	}

	err = s.store.Atomically(ctx, ResourceLock(res.ID), func(ctx context.Context, w Writer) error {
		// The resource row may have changed since the unlocked read.
		locked, err := w.Resource(ctx, res.ID)
		if err != nil {
			return err
		}
		if err := s.checkResource(b, locked); err != nil {
			return err
		}
		conflicts, err := conflictsFor(ctx, w, locked, window, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return fmt.Errorf("%w: %s %q is booked during %s", ErrResourceUnavailable, locked.Kind, locked.Name, window)
		}
		return s.insert(ctx, w, b)
	})
	return s.commitError(err)
}

func (s *Service) createVenueBooking(ctx context.Context, b *model.Booking, window schedule.Interval) error {
	if b.VenueID == 0 {
		return fmt.Errorf("%w: venue is required", ErrValidation)
	}
	if err := checkVenueCapacity(ctx, s.store, b); err != nil {
		return err
	}

	err := s.store.Atomically(ctx, VenueLock(b.VenueID), func(ctx context.Context, w Writer) error {
		if err := checkVenueCapacity(ctx, w, b); err != nil {
			return err
		}
		if err := checkVenueFree(ctx, w, b, window); err != nil {
			return err
		}
		return s.insert(ctx, w, b)
	})
	return s.commitError(err)
}

// checkVenueCapacity compares the party with every enabled table of the
// venue, booked or not. Failing it is ErrCapacityExceeded; running out of
// free tables is checkVenueFree's ErrResourceUnavailable.
func checkVenueCapacity(ctx context.Context, r Reader, b *model.Booking) error {
	tables, err := r.Resources(ctx, ResourceQuery{VenueID: b.VenueID, Kind: model.ResourceTable})
	if err != nil {
		return err
	}
	caps := make([]int, 0, len(tables))
	for _, t := range tables {
		if t.Status != model.ResourceDisabled {
			caps = append(caps, t.Capacity)
		}
	}
	if total := schedule.TotalCapacity(caps...); !schedule.Fits(b.Guests, total) {
		return fmt.Errorf("%w: venue seats %d guests, %d requested", ErrCapacityExceeded, total, b.Guests)
	}
	return nil
}

// checkVenueFree requires no other whole-venue reservation in the window and
// enough free table capacity for the party.
func checkVenueFree(ctx context.Context, r Reader, b *model.Booking, window schedule.Interval) error {
	blocked, err := venueBlocked(ctx, r, b.VenueID, window, b.ID)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("%w: venue is already reserved during %s", ErrResourceUnavailable, window)
	}
	free, err := freeTableCapacity(ctx, r, b.VenueID, window, b.ID)
	if err != nil {
		return err
	}
	if !schedule.Fits(b.Guests, free) {
		return fmt.Errorf("%w: only %d seats free during %s", ErrResourceUnavailable, free, window)
	}
	return nil
}

func (s *Service) checkResource(b *model.Booking, res model.Resource) error {
	if res.Kind != b.Kind.ResourceKind() {
		return fmt.Errorf("%w: resource %d is a %s, not a %s", ErrValidation, res.ID, res.Kind, b.Kind.ResourceKind())
	}
	if b.VenueID != 0 && res.VenueID != b.VenueID {
		return fmt.Errorf("%w: resource %d does not belong to venue %d", ErrValidation, res.ID, b.VenueID)
	}
	if res.Status == model.ResourceDisabled {
		return fmt.Errorf("%w: %s %q is disabled", ErrResourceUnavailable, res.Kind, res.Name)
	}
	if !schedule.Fits(b.Guests, res.Capacity) {
		return fmt.Errorf("%w: %s %q seats %d guests, %d requested", ErrCapacityExceeded, res.Kind, res.Name, res.Capacity, b.Guests)
	}
	return nil
}

func (s *Service) insert(ctx context.Context, w Writer, b *model.Booking) error {
	num, err := NewNumber(numberPrefix(b.Kind), s.now())
	if err != nil {
		return err
	}
	b.Number = num
	return w.InsertBooking(ctx, b)
}

// commitError turns a lost write race into ErrResourceUnavailable. Every
// other error passes through unchanged.
func (s *Service) commitError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrWriteConflict) && !errors.Is(err, ErrResourceUnavailable) {
		return fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	return err
}

// Changes lists the fields UpdateBooking may modify. Nil fields are kept.
type Changes struct {
	ResourceID     *uint64
	Slot           *Slot
	Guests         *int
	AmountCents    *int64
	SpecialRequest *string
	PaymentRef     *string
}

func (c Changes) reschedules() bool {
	return c.ResourceID != nil || c.Slot != nil || c.Guests != nil
}

// UpdateBooking applies changes to a non-terminal booking. Moving it in
// time, to another resource or resizing the party re-runs the capacity and
// overlap checks with the booking's own row excluded.
func (s *Service) UpdateBooking(ctx context.Context, id uint64, ch Changes) (model.Booking, error) {
	current, err := s.store.Booking(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if ch.Guests != nil && *ch.Guests <= 0 {
		return model.Booking{}, fmt.Errorf("%w: guests must be positive", ErrValidation)
	}
	if ch.AmountCents != nil && *ch.AmountCents < 0 {
		return model.Booking{}, fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	}
	if ch.ResourceID != nil && current.Kind == model.BookingVenue {
		return model.Booking{}, fmt.Errorf("%w: whole-venue reservations do not take a resource", ErrValidation)
	}

	lock := s.lockFor(current)
	if ch.ResourceID != nil && current.HasResource() {
		lock = ResourceLock(*current.ResourceID, *ch.ResourceID)
	}

	var updated model.Booking
	err = s.store.Atomically(ctx, lock, func(ctx context.Context, w Writer) error {
		b, err := w.Booking(ctx, id)
		if err != nil {
			return err
		}
		if err := lock.holds(b); err != nil {
			return err
		}
		if lifecycle.ForBooking(b.Kind).IsTerminal(b.Status) {
			return fmt.Errorf("%w: booking %s is %s", ErrImmutableState, b.Number, b.Status)
		}
		if ch.reschedules() {
			if err := s.reschedule(ctx, w, &b, ch); err != nil {
				return err
			}
		}
		if ch.AmountCents != nil {
			b.AmountCents = *ch.AmountCents
		}
		if ch.SpecialRequest != nil {
			b.SpecialRequest = *ch.SpecialRequest
		}
		if ch.PaymentRef != nil {
			b.PaymentRef = ch.PaymentRef
		}
		if err := w.UpdateBooking(ctx, &b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err = s.commitError(err); err != nil {
		return model.Booking{}, err
	}
	s.log.WithFields(logrus.Fields{"booking_id": updated.ID, "status": updated.Status}).Info("booking updated")
	return updated, nil
}

func (s *Service) reschedule(ctx context.Context, w Writer, b *model.Booking, ch Changes) error {
	inProgress := b.StatusIn(model.BookingCheckedIn, model.BookingCheckedOut)

	window := schedule.Interval{Start: b.StartsAt, End: b.EndsAt}
	if ch.Slot != nil {
		nw, err := s.Window(b.Kind, *ch.Slot)
		if err != nil {
			return err
		}
		if inProgress && !nw.Start.Equal(b.StartsAt) {
			return fmt.Errorf("%w: booking %s has already started", ErrImmutableState, b.Number)
		}
		window = nw
	}
	if ch.Guests != nil {
		b.Guests = *ch.Guests
	}

	if b.Kind == model.BookingVenue {
		if err := checkVenueCapacity(ctx, w, b); err != nil {
			return err
		}
		if err := checkVenueFree(ctx, w, b, window); err != nil {
			return err
		}
		b.StartsAt, b.EndsAt = window.Start, window.End
		b.DurationMinutes = int(window.Duration() / time.Minute)
		return nil
	}

	oldResource := *b.ResourceID
	target := oldResource
	if ch.ResourceID != nil {
		target = *ch.ResourceID
	}
	if target != oldResource && inProgress {
		return fmt.Errorf("%w: booking %s has already started", ErrImmutableState, b.Number)
	}
	res, err := w.Resource(ctx, target)
	if err != nil {
		return err
	}
	if err := s.checkResource(b, res); err != nil {
		return err
	}
	conflicts, err := conflictsFor(ctx, w, res, window, b.ID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %s %q is booked during %s", ErrResourceUnavailable, res.Kind, res.Name, window)
	}

	moved := ch.Slot != nil && (!window.Start.Equal(b.StartsAt) || !window.End.Equal(b.EndsAt))
	b.StartsAt, b.EndsAt = window.Start, window.End
	if b.Kind != model.BookingRoom {
		b.DurationMinutes = int(window.Duration() / time.Minute)
	} else if ch.AmountCents == nil && (moved || target != oldResource) {
		b.AmountCents = int64(schedule.Nights(window)) * res.PricePerNightCents
	}

	if target != oldResource {
		b.ResourceID = &res.ID
		if b.Status == model.BookingConfirmed {
			if err := s.applyEffect(ctx, w, *b, oldResource, lifecycle.EffectRelease); err != nil {
				return err
			}
			if err := s.applyEffect(ctx, w, *b, target, lifecycle.EffectReserve); err != nil {
				return err
			}
		}
	}
	return nil
}

// TransitionStatus moves a booking to status to through its kind's state
// machine, applying the transition's effect on the resource in the same
// transaction. Confirming re-checks that no other confirmed booking took
// the resource meanwhile.
func (s *Service) TransitionStatus(ctx context.Context, id uint64, to model.BookingStatus) (model.Booking, error) {
	return s.transition(ctx, id, to, nil)
}

// CancelBooking cancels a booking that has not started. A second call on
// the same booking fails with ErrImmutableState; a checked-in stay cannot be
// cancelled (ErrInvalidTransition).
func (s *Service) CancelBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return s.transition(ctx, id, model.BookingCancelled, func(b model.Booking) error {
		m := lifecycle.ForBooking(b.Kind)
		if m.IsTerminal(b.Status) {
			return fmt.Errorf("%w: booking %s is already %s", ErrImmutableState, b.Number, b.Status)
		}
		if !m.CanTransition(b.Status, model.BookingCancelled) {
			return fmt.Errorf("%w: booking %s is %s and can no longer be cancelled", ErrInvalidTransition, b.Number, b.Status)
		}
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id uint64, to model.BookingStatus, guard func(model.Booking) error) (model.Booking, error) {
	current, err := s.store.Booking(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}

	var (
		updated model.Booking
		from    model.BookingStatus
	)
	lock := s.lockFor(current)
	err = s.store.Atomically(ctx, lock, func(ctx context.Context, w Writer) error {
		b, err := w.Booking(ctx, id)
		if err != nil {
			return err
		}
		if err := lock.holds(b); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(b); err != nil {
				return err
			}
		}
		effect, err := lifecycle.ForBooking(b.Kind).Apply(b.Status, to)
		if err != nil {
			return err
		}
		if to == model.BookingConfirmed {
			if err := s.checkStillFree(ctx, w, b); err != nil {
				return err
			}
		}
		if b.HasResource() {
			if err := s.applyEffect(ctx, w, b, *b.ResourceID, effect); err != nil {
				return err
			}
		}
		from = b.Status
		b.Status = to
		if to == model.BookingCancelled {
			now := s.now().UTC()
			b.CancelledAt = &now
		}
		if err := w.UpdateBooking(ctx, &b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err = s.commitError(err); err != nil {
		return model.Booking{}, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": updated.ID,
		"from":       from,
		"to":         updated.Status,
	}).Info("booking status changed")
	s.notify(updated, from)
	return updated, nil
}

func (s *Service) checkStillFree(ctx context.Context, w Writer, b model.Booking) error {
	window := schedule.Interval{Start: b.StartsAt, End: b.EndsAt}
	if b.Kind == model.BookingVenue {
		return checkVenueFree(ctx, w, &b, window)
	}
	res, err := w.Resource(ctx, *b.ResourceID)
	if err != nil {
		return err
	}
	conflicts, err := conflictsFor(ctx, w, res, window, b.ID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("%w: %s %q was confirmed for another booking during %s", ErrResourceUnavailable, res.Kind, res.Name, window)
	}
	return nil
}

// applyEffect writes the resource status implied by a transition. Release
// derives the status from the bookings still holding the resource, so
// freeing one booking never frees a resource another booking holds.
// Disabled resources keep their flag.
func (s *Service) applyEffect(ctx context.Context, w Writer, b model.Booking, resourceID uint64, effect lifecycle.Effect) error {
	if effect == lifecycle.EffectNone {
		return nil
	}
	res, err := w.Resource(ctx, resourceID)
	if err != nil {
		return err
	}
	if res.Status == model.ResourceDisabled {
		return nil
	}

	var next model.ResourceStatus
	switch effect {
	case lifecycle.EffectReserve:
		next = model.ResourceReserved
		if res.Status == model.ResourceOccupied {
			next = model.ResourceOccupied
		}
	case lifecycle.EffectOccupy:
		next = model.ResourceOccupied
	case lifecycle.EffectRelease:
		holding, err := w.Bookings(ctx, BookingQuery{
			ResourceIDs: []uint64{resourceID},
			Statuses:    model.BlockingStatuses,
			ExcludeID:   b.ID,
		})
		if err != nil {
			return err
		}
		next = derivedStatus(holding)
	}
	if next == res.Status {
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"resource_id": resourceID,
		"booking_id":  b.ID,
		"effect":      effect.String(),
		"status":      next,
	}).Debug("resource status flipped")
	return w.SetResourceStatus(ctx, resourceID, next)
}

func derivedStatus(holding []model.Booking) model.ResourceStatus {
	next := model.ResourceAvailable
	for _, h := range holding {
		switch h.Status {
		case model.BookingCheckedIn:
			return model.ResourceOccupied
		case model.BookingConfirmed:
			next = model.ResourceReserved
		}
	}
	return next
}

func (s *Service) lockFor(b model.Booking) Lock {
	if b.HasResource() {
		return ResourceLock(*b.ResourceID)
	}
	return VenueLock(b.VenueID)
}

func (s *Service) notify(b model.Booking, from model.BookingStatus) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.BookingStatusChanged(ctx, b, from); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"booking_id": b.ID,
				"status":     b.Status,
			}).Warn("booking notification failed")
		}
	}()
}

// GetBooking loads one booking.
func (s *Service) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return s.store.Booking(ctx, id)
}

// GetBookingByNumber loads one booking by its human readable number.
func (s *Service) GetBookingByNumber(ctx context.Context, number string) (model.Booking, error) {
	return s.store.BookingByNumber(ctx, number)
}

// ListBookings returns the bookings matching q.
func (s *Service) ListBookings(ctx context.Context, q BookingQuery) ([]model.Booking, error) {
	return s.store.Bookings(ctx, q)
}

// FindAvailableResources is the availability query engine exposed to
// callers. Reads are safe to retry.
func (s *Service) FindAvailableResources(ctx context.Context, q AvailabilityQuery) ([]model.Resource, error) {
	return s.finder.FindAvailable(ctx, q)
}

// CheckAvailability answers for a single resource.
func (s *Service) CheckAvailability(ctx context.Context, resourceID uint64, window schedule.Interval, guests int) (Availability, error) {
	return s.finder.CheckAvailability(ctx, resourceID, window, guests)
}

// VenueCapacity is the seat count a whole-venue reservation could use
// during window.
func (s *Service) VenueCapacity(ctx context.Context, venueID uint64, window schedule.Interval) (int, error) {
	return s.finder.VenueCapacity(ctx, venueID, window)
}

// QueryUpcoming lists the venue's pending, confirmed and checked-in
// bookings starting within horizon from now, earliest first.
func (s *Service) QueryUpcoming(ctx context.Context, venueID uint64, horizon time.Duration) ([]model.Booking, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", ErrValidation)
	}
	now := s.now().UTC()
	out, err := s.store.Bookings(ctx, BookingQuery{
		VenueID:      venueID,
		Statuses:     model.UpcomingStatuses,
		StartsFrom:   now,
		StartsBefore: now.Add(horizon),
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// QueryCheckOuts lists the venue's checked-in stays due to end within
// horizon from now, earliest departure first.
func (s *Service) QueryCheckOuts(ctx context.Context, venueID uint64, horizon time.Duration) ([]model.Booking, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", ErrValidation)
	}
	now := s.now().UTC()
	out, err := s.store.Bookings(ctx, BookingQuery{
		VenueID:    venueID,
		Statuses:   []model.BookingStatus{model.BookingCheckedIn},
		EndsFrom:   now,
		EndsBefore: now.Add(horizon),
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndsAt.Equal(out[j].EndsAt) {
			return out[i].EndsAt.Before(out[j].EndsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// QueryOccupancy reports how many days of [from, to) the resource was
// held by a confirmed, in-progress or finished booking. Each booking is
// clamped to the range and each day counted once.
func (s *Service) QueryOccupancy(ctx context.Context, resourceID uint64, from, to time.Time) (schedule.Occupancy, error) {
	from, to = schedule.Midnight(from), schedule.Midnight(to)
	if !to.After(from) {
		return schedule.Occupancy{}, fmt.Errorf("%w: range end must be after its start", ErrValidation)
	}
	if _, err := s.store.Resource(ctx, resourceID); err != nil {
		return schedule.Occupancy{}, err
	}
	bookings, err := s.store.Bookings(ctx, BookingQuery{
		ResourceIDs: []uint64{resourceID},
		Statuses:    model.OccupyingStatuses,
		From:        from,
		To:          to,
	})
	if err != nil {
		return schedule.Occupancy{}, err
	}
	intervals := make([]schedule.Interval, 0, len(bookings))
	for _, b := range bookings {
		intervals = append(intervals, schedule.Interval{Start: b.StartsAt, End: b.EndsAt})
	}
	return schedule.ComputeOccupancy(from, to, intervals), nil
}

// Stats counts a venue's bookings starting in [from, to) per status.
type Stats struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Confirmed      int     `json:"confirmed"`
	CheckedIn      int     `json:"checked_in"`
	Completed      int     `json:"completed"`
	Cancelled      int     `json:"cancelled"`
	NoShow         int     `json:"no_show"`
	CompletionRate float64 `json:"completion_rate"`
}

// Stats computes a venue's Stats; CompletionRate is completed over the
// bookings that reached an outcome, as a percentage.
func (s *Service) Stats(ctx context.Context, venueID uint64, from, to time.Time) (Stats, error) {
	if !to.After(from) {
		return Stats{}, fmt.Errorf("%w: range end must be after its start", ErrValidation)
	}
	bookings, err := s.store.Bookings(ctx, BookingQuery{VenueID: venueID, StartsFrom: from, StartsBefore: to})
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, b := range bookings {
		st.Total++
		switch b.Status {
		case model.BookingPending:
			st.Pending++
		case model.BookingConfirmed:
			st.Confirmed++
		case model.BookingCheckedIn, model.BookingCheckedOut:
			st.CheckedIn++
		case model.BookingCompleted:
			st.Completed++
		case model.BookingCancelled:
			st.Cancelled++
		case model.BookingNoShow:
			st.NoShow++
		}
	}
	if outcomes := st.Completed + st.Cancelled + st.NoShow; outcomes > 0 {
		st.CompletionRate = float64(int(float64(st.Completed)/float64(outcomes)*10000+0.5)) / 100
	}
	return st, nil
}
