package booking

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/iliyamo/venue-booking/internal/model"
)

// memStore is an in-memory Store. Atomically takes one mutex per locked
// resource, in id order, the way the MySQL store takes row locks, and
// applies a callback's writes only when it returns nil.
type memStore struct {
	mu        sync.Mutex
	rowLocks  map[string]*sync.Mutex
	resources map[uint64]model.Resource
	bookings  map[uint64]model.Booking
	nextID    uint64

	// commitErr, when set, is returned by the next Atomically call after fn
	// succeeds, as a lost write race would be.
	commitErr error
	// beforeLock, when set, runs once at the start of the next Atomically
	// call, before any lock is taken.
	beforeLock func()
}

func newMemStore(resources ...model.Resource) *memStore {
	s := &memStore{
		rowLocks:  map[string]*sync.Mutex{},
		resources: map[uint64]model.Resource{},
		bookings:  map[uint64]model.Booking{},
		nextID:    1,
	}
	for _, r := range resources {
		s.resources[r.ID] = r
	}
	return s
}

func (s *memStore) Resource(_ context.Context, id uint64) (model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return model.Resource{}, fmt.Errorf("%w: resource %d", ErrNotFound, id)
	}
	return r, nil
}

func (s *memStore) Resources(_ context.Context, q ResourceQuery) ([]model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Resource{}
	for _, r := range s.resources {
		if q.VenueID != 0 && r.VenueID != q.VenueID {
			continue
		}
		if q.Kind != "" && r.Kind != q.Kind {
			continue
		}
		if r.Capacity < q.MinCapacity {
			continue
		}
		if !q.IncludeDisabled && r.Status == model.ResourceDisabled {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) Booking(_ context.Context, id uint64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: booking %d", ErrNotFound, id)
	}
	return b, nil
}

func (s *memStore) BookingByNumber(_ context.Context, number string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.Number == number {
			return b, nil
		}
	}
	return model.Booking{}, fmt.Errorf("%w: booking %s", ErrNotFound, number)
}

func (s *memStore) Bookings(_ context.Context, q BookingQuery) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if !matches(b, q) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func matches(b model.Booking, q BookingQuery) bool {
	if len(q.ResourceIDs) > 0 {
		if !b.HasResource() {
			return false
		}
		found := false
		for _, id := range q.ResourceIDs {
			if *b.ResourceID == id {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if q.VenueID != 0 && b.VenueID != q.VenueID {
		return false
	}
	if q.UserID != 0 && b.UserID != q.UserID {
		return false
	}
	if q.Kind != "" && b.Kind != q.Kind {
		return false
	}
	if len(q.Statuses) > 0 && !b.StatusIn(q.Statuses...) {
		return false
	}
	if !q.From.IsZero() && !q.To.IsZero() && !(b.StartsAt.Before(q.To) && q.From.Before(b.EndsAt)) {
		return false
	}
	if !q.StartsFrom.IsZero() && b.StartsAt.Before(q.StartsFrom) {
		return false
	}
	if !q.StartsBefore.IsZero() && !b.StartsAt.Before(q.StartsBefore) {
		return false
	}
	if !q.EndsFrom.IsZero() && b.EndsAt.Before(q.EndsFrom) {
		return false
	}
	if !q.EndsBefore.IsZero() && !b.EndsAt.Before(q.EndsBefore) {
		return false
	}
	return q.ExcludeID == 0 || b.ID != q.ExcludeID
}

// lockRows returns the row mutexes named by l, sorted so that callers
// never deadlock on each other.
func (s *memStore) lockRows(l Lock) []*sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := []string{}
	if l.VenueID != 0 {
		keys = append(keys, fmt.Sprintf("venue:%d", l.VenueID))
		for id, r := range s.resources {
			if r.VenueID == l.VenueID {
				keys = append(keys, fmt.Sprintf("resource:%020d", id))
			}
		}
	}
	for _, id := range l.ResourceIDs {
		keys = append(keys, fmt.Sprintf("resource:%020d", id))
	}
	sort.Strings(keys)
	keys = slices.Compact(keys)

	out := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		m, ok := s.rowLocks[k]
		if !ok {
			m = &sync.Mutex{}
			s.rowLocks[k] = m
		}
		out = append(out, m)
	}
	return out
}

func (s *memStore) Atomically(ctx context.Context, lock Lock, fn func(ctx context.Context, w Writer) error) error {
	s.mu.Lock()
	hook := s.beforeLock
	s.beforeLock = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	rows := s.lockRows(lock)
	for _, m := range rows {
		m.Lock()
	}
	defer func() {
		for _, m := range rows {
			m.Unlock()
		}
	}()

	tx := &memTx{
		memStore:  s,
		resources: map[uint64]model.ResourceStatus{},
		bookings:  map[uint64]model.Booking{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		err := s.commitErr
		s.commitErr = nil
		return err
	}
	for id, st := range tx.resources {
		r := s.resources[id]
		r.Status = st
		s.resources[id] = r
	}
	for id, b := range tx.bookings {
		if id == 0 {
			continue
		}
		s.bookings[id] = b
	}
	return nil
}

// memTx buffers writes until commit. Reads see the buffered writes.
type memTx struct {
	*memStore
	resources map[uint64]model.ResourceStatus
	bookings  map[uint64]model.Booking
}

func (t *memTx) Resource(ctx context.Context, id uint64) (model.Resource, error) {
	r, err := t.memStore.Resource(ctx, id)
	if err != nil {
		return r, err
	}
	if st, ok := t.resources[id]; ok {
		r.Status = st
	}
	return r, nil
}

func (t *memTx) Booking(ctx context.Context, id uint64) (model.Booking, error) {
	if b, ok := t.bookings[id]; ok {
		return b, nil
	}
	return t.memStore.Booking(ctx, id)
}

func (t *memTx) Bookings(ctx context.Context, q BookingQuery) ([]model.Booking, error) {
	base, err := t.memStore.Bookings(ctx, BookingQuery{})
	if err != nil {
		return nil, err
	}
	merged := map[uint64]model.Booking{}
	for _, b := range base {
		merged[b.ID] = b
	}
	for id, b := range t.bookings {
		merged[id] = b
	}
	out := []model.Booking{}
	for _, b := range merged {
		if matches(b, q) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.mu.Lock()
	b.ID = t.nextID
	t.nextID++
	t.mu.Unlock()
	t.bookings[b.ID] = *b
	return nil
}

func (t *memTx) UpdateBooking(_ context.Context, b *model.Booking) error {
	t.bookings[b.ID] = *b
	return nil
}

func (t *memTx) SetResourceStatus(_ context.Context, id uint64, st model.ResourceStatus) error {
	t.resources[id] = st
	return nil
}

// recordingNotifier counts calls and can block until released.
type recordingNotifier struct {
	mu      sync.Mutex
	calls   []model.BookingStatus
	release chan struct{}
	err     error
}

func (n *recordingNotifier) BookingStatusChanged(ctx context.Context, b model.Booking, _ model.BookingStatus) error {
	if n.release != nil {
		select {
		case <-n.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	n.calls = append(n.calls, b.Status)
	n.mu.Unlock()
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
