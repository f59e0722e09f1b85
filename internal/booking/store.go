package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/venue-booking/internal/model"
)

// ResourceQuery filters the resources of one venue.
type ResourceQuery struct {
	VenueID         uint64
	Kind            model.ResourceKind
	MinCapacity     int
	IncludeDisabled bool
	MaxPriceCents   int64 // rooms only, zero means no limit
}

// BookingQuery filters bookings. Zero fields do not filter. When both
// From and To are set only bookings whose [StartsAt, EndsAt) intersects
// [From, To) are returned; StartsFrom/StartsBefore filter on the start
// instant alone and EndsFrom/EndsBefore on the end instant alone.
type BookingQuery struct {
	ResourceIDs  []uint64
	VenueID      uint64
	UserID       uint64
	Kind         model.BookingKind
	Statuses     []model.BookingStatus
	From, To     time.Time
	StartsFrom   time.Time
	StartsBefore time.Time
	EndsFrom     time.Time
	EndsBefore   time.Time
	ExcludeID    uint64
	Limit        int
	Offset       int
}

// Reader is the read side of the persistence collaborator. Lookups of
// unknown ids return an error wrapping ErrNotFound.
type Reader interface {
	Resource(ctx context.Context, id uint64) (model.Resource, error)
	Resources(ctx context.Context, q ResourceQuery) ([]model.Resource, error)
	Booking(ctx context.Context, id uint64) (model.Booking, error)
	BookingByNumber(ctx context.Context, number string) (model.Booking, error)
	Bookings(ctx context.Context, q BookingQuery) ([]model.Booking, error)
}

// Writer is handed to Atomically callbacks. Its reads observe the same
// transaction as its writes.
type Writer interface {
	Reader
	InsertBooking(ctx context.Context, b *model.Booking) error
	UpdateBooking(ctx context.Context, b *model.Booking) error
	SetResourceStatus(ctx context.Context, resourceID uint64, status model.ResourceStatus) error
}

// Lock names what an atomic section serializes on: a set of resources, or
// every resource of a venue.
type Lock struct {
	VenueID     uint64
	ResourceIDs []uint64
}

// ResourceLock locks the given resources.
func ResourceLock(ids ...uint64) Lock { return Lock{ResourceIDs: ids} }

// VenueLock locks every resource of a venue.
func VenueLock(venueID uint64) Lock { return Lock{VenueID: venueID} }

// holds reports whether l serializes writes to b as it is now. A lock
// chosen from an unlocked read misses a booking that was moved to another
// resource in the meantime; the caller gets ErrWriteConflict and may retry.
func (l Lock) holds(b model.Booking) error {
	if l.VenueID != 0 && l.VenueID == b.VenueID {
		return nil
	}
	if b.HasResource() {
		for _, id := range l.ResourceIDs {
			if id == *b.ResourceID {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: booking %d changed before its lock was taken", ErrWriteConflict, b.ID)
}

// Store is the persistence collaborator. Atomically runs fn inside a
// transaction that holds an exclusive lock on lock's resources for the
// whole check-and-write sequence, so two overlapping requests for the same
// resource cannot both pass their overlap check. If fn returns an error the
// transaction is rolled back.
type Store interface {
	Reader
	Atomically(ctx context.Context, lock Lock, fn func(ctx context.Context, w Writer) error) error
}

// Notifier receives status changes after they are committed. Calls are
// fire-and-forget: the orchestrator never waits for them and their errors
// never undo a booking.
type Notifier interface {
	BookingStatusChanged(ctx context.Context, b model.Booking, from model.BookingStatus) error
}
