package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/schedule"
)

// Reasons reported by CheckAvailability when a resource cannot be booked.
const (
	ReasonCapacityExceeded = "CAPACITY_EXCEEDED"
	ReasonNotAvailable     = "NOT_AVAILABLE"
	ReasonDisabled         = "DISABLED"
)

// AvailabilityQuery asks which resources of a venue can host Guests during
// Window.
type AvailabilityQuery struct {
	VenueID       uint64
	Kind          model.ResourceKind
	Window        schedule.Interval
	Guests        int
	MaxPriceCents int64
}

// Availability is the answer for a single resource.
type Availability struct {
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
	Resource  model.Resource  `json:"resource"`
	Conflicts []model.Booking `json:"conflicts,omitempty"`
}

// Finder is the availability query engine. It only reads.
type Finder struct {
	store Reader
}

// NewFinder returns a Finder reading from r.
func NewFinder(r Reader) *Finder { return &Finder{store: r} }

// FindAvailable returns the resources that are large enough and free for
// the whole window, in a deterministic order: rooms by price ascending,
// tables by capacity descending, ties by id. An empty slice is a normal
// answer.
func (f *Finder) FindAvailable(ctx context.Context, q AvailabilityQuery) ([]model.Resource, error) {
	return findAvailable(ctx, f.store, q, 0)
}

// CheckAvailability reports whether one resource can host guests during
// window. Capacity is checked before time so the caller can tell "too many
// guests" from "not free then".
func (f *Finder) CheckAvailability(ctx context.Context, resourceID uint64, window schedule.Interval, guests int) (Availability, error) {
	if !window.Valid() {
		return Availability{}, fmt.Errorf("%w: %v", ErrValidation, schedule.ErrInvalidInterval)
	}
	if guests <= 0 {
		return Availability{}, fmt.Errorf("%w: guests must be positive", ErrValidation)
	}
	res, err := f.store.Resource(ctx, resourceID)
	if err != nil {
		return Availability{}, err
	}
	out := Availability{Resource: res}
	switch {
	case res.Status == model.ResourceDisabled:
		out.Reason = ReasonDisabled
		return out, nil
	case !schedule.Fits(guests, res.Capacity):
		out.Reason = ReasonCapacityExceeded
		return out, nil
	}
	conflicts, err := conflictsFor(ctx, f.store, res, window, 0)
	if err != nil {
		return Availability{}, err
	}
	if len(conflicts) > 0 {
		out.Reason = ReasonNotAvailable
		out.Conflicts = conflicts
		return out, nil
	}
	out.Available = true
	return out, nil
}

// VenueCapacity sums the capacities of the venue's tables that are free
// for the whole window.
func (f *Finder) VenueCapacity(ctx context.Context, venueID uint64, window schedule.Interval) (int, error) {
	if !window.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrValidation, schedule.ErrInvalidInterval)
	}
	return freeTableCapacity(ctx, f.store, venueID, window, 0)
}

func findAvailable(ctx context.Context, r Reader, q AvailabilityQuery, excludeID uint64) ([]model.Resource, error) {
	if !q.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown resource kind %q", ErrValidation, q.Kind)
	}
	if !q.Window.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrValidation, schedule.ErrInvalidInterval)
	}
	if q.Guests <= 0 {
		return nil, fmt.Errorf("%w: guests must be positive", ErrValidation)
	}

	if q.Kind == model.ResourceTable {
		blocked, err := venueBlocked(ctx, r, q.VenueID, q.Window, excludeID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return []model.Resource{}, nil
		}
	}

	candidates, err := r.Resources(ctx, ResourceQuery{
		VenueID:       q.VenueID,
		Kind:          q.Kind,
		MinCapacity:   q.Guests,
		MaxPriceCents: q.MaxPriceCents,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(candidates))
	for _, res := range candidates {
		ids = append(ids, res.ID)
	}
	if len(ids) == 0 {
		return []model.Resource{}, nil
	}

	// One range query for every candidate; the persisted end instant makes
	// the window exact.
	busy, err := r.Bookings(ctx, BookingQuery{
		ResourceIDs: ids,
		Statuses:    model.BlockingStatuses,
		From:        q.Window.Start,
		To:          q.Window.End,
		ExcludeID:   excludeID,
	})
	if err != nil {
		return nil, err
	}
	taken := make(map[uint64]bool, len(busy))
	for _, b := range busy {
		if b.HasResource() && overlapsWindow(b, q.Window) {
			taken[*b.ResourceID] = true
		}
	}

	free := make([]model.Resource, 0, len(candidates))
	for _, res := range candidates {
		if res.Status == model.ResourceDisabled || !schedule.Fits(q.Guests, res.Capacity) || taken[res.ID] {
			continue
		}
		if q.MaxPriceCents > 0 && res.Kind == model.ResourceRoom && res.PricePerNightCents > q.MaxPriceCents {
			continue
		}
		free = append(free, res)
	}
	sortResources(q.Kind, free)
	return free, nil
}

// conflictsFor lists the blocking bookings that overlap window on res. A
// confirmed whole-venue reservation blocks every table of the venue.
func conflictsFor(ctx context.Context, r Reader, res model.Resource, window schedule.Interval, excludeID uint64) ([]model.Booking, error) {
	busy, err := r.Bookings(ctx, BookingQuery{
		ResourceIDs: []uint64{res.ID},
		Statuses:    model.BlockingStatuses,
		From:        window.Start,
		To:          window.End,
		ExcludeID:   excludeID,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(busy))
	for _, b := range busy {
		if overlapsWindow(b, window) {
			out = append(out, b)
		}
	}
	if res.Kind == model.ResourceTable {
		venue, err := venueBookings(ctx, r, res.VenueID, window, excludeID)
		if err != nil {
			return nil, err
		}
		out = append(out, venue...)
	}
	return out, nil
}

func venueBookings(ctx context.Context, r Reader, venueID uint64, window schedule.Interval, excludeID uint64) ([]model.Booking, error) {
	if venueID == 0 {
		return nil, nil
	}
	busy, err := r.Bookings(ctx, BookingQuery{
		VenueID:   venueID,
		Kind:      model.BookingVenue,
		Statuses:  model.BlockingStatuses,
		From:      window.Start,
		To:        window.End,
		ExcludeID: excludeID,
	})
	if err != nil {
		return nil, err
	}
	out := busy[:0]
	for _, b := range busy {
		if overlapsWindow(b, window) {
			out = append(out, b)
		}
	}
	return out, nil
}

func venueBlocked(ctx context.Context, r Reader, venueID uint64, window schedule.Interval, excludeID uint64) (bool, error) {
	busy, err := venueBookings(ctx, r, venueID, window, excludeID)
	return len(busy) > 0, err
}

// freeTableCapacity sums the capacity of the tables free during window,
// the measure a whole-venue reservation is checked against.
func freeTableCapacity(ctx context.Context, r Reader, venueID uint64, window schedule.Interval, excludeID uint64) (int, error) {
	free, err := findAvailable(ctx, r, AvailabilityQuery{
		VenueID: venueID,
		Kind:    model.ResourceTable,
		Window:  window,
		Guests:  1,
	}, excludeID)
	if err != nil {
		return 0, err
	}
	caps := make([]int, 0, len(free))
	for _, res := range free {
		caps = append(caps, res.Capacity)
	}
	return schedule.TotalCapacity(caps...), nil
}

// overlapsWindow re-applies the half-open rule in memory so the result does
// not depend on how a store implements its range filter.
func overlapsWindow(b model.Booking, window schedule.Interval) bool {
	return schedule.Overlaps(b.StartsAt, b.EndsAt, window.Start, window.End)
}

func sortResources(kind model.ResourceKind, rs []model.Resource) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if kind == model.ResourceRoom && a.PricePerNightCents != b.PricePerNightCents {
			return a.PricePerNightCents < b.PricePerNightCents
		}
		if a.Capacity != b.Capacity {
			return a.Capacity > b.Capacity
		}
		return a.ID < b.ID
	})
}
