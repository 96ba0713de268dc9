package repository

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/google/uuid"
)

// MemoryStore keeps rooms and reservations in process.
//
// InTx holds the store lock for the whole callback and works on a copy of the
// reservation set, which replaces the live set only when the callback
// succeeds. Transactions are therefore fully serialised and a failed one
// leaves nothing behind. The callback must only use the Tx it is given.
type MemoryStore struct {
	mu           sync.Mutex
	rooms        map[string]model.Room
	reservations map[string]model.Reservation
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:        make(map[string]model.Room),
		reservations: make(map[string]model.Reservation),
	}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := maps.Clone(s.reservations)
	if err := fn(ctx, &memTx{rooms: s.rooms, reservations: work}); err != nil {
		return err
	}
	s.reservations = work
	return nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room.ID = uuid.New().String()
	room.CreatedAt = booking.Naive(time.Now())
	s.rooms[room.ID] = *room
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rm, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rm, nil
}

func (s *MemoryStore) ListRooms(_ context.Context) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := slices.Collect(maps.Values(s.rooms))
	slices.SortFunc(rooms, func(a, b model.Room) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return rooms, nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return ErrNotFound
	}
	delete(s.rooms, id)
	maps.DeleteFunc(s.reservations, func(_ string, r model.Reservation) bool {
		return r.RoomID == id
	})
	return nil
}

func (s *MemoryStore) GetReservation(_ context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ListReservations(_ context.Context, f ReservationFilter) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Reservation
	for _, r := range s.reservations {
		if f.OwnerID != "" && r.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Reservation) int {
		return cmp.Or(b.StartTime.Compare(a.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *MemoryStore) Overlapping(_ context.Context, q OverlapQuery) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return overlappingIn(s.reservations, q), nil
}

func (s *MemoryStore) CountActive(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return countActiveIn(s.reservations, now), nil
}

func (s *MemoryStore) CountOverlappingByRoom(_ context.Context, from, to, activeAt time.Time) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := booking.Interval{Start: from, End: to}
	counts := make(map[string]int)
	for _, r := range s.reservations {
		if r.ExpiredAt(activeAt) || !r.Interval().Overlaps(window) {
			continue
		}
		counts[r.RoomID]++
	}
	return counts, nil
}

func (s *MemoryStore) DeleteReservation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

func (s *MemoryStore) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteWhere(func(r model.Reservation) bool { return r.OwnerID == ownerID }), nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteWhere(func(r model.Reservation) bool { return r.ExpiredAt(now) }), nil
}

func (s *MemoryStore) deleteWhere(match func(model.Reservation) bool) int64 {
	before := len(s.reservations)
	maps.DeleteFunc(s.reservations, func(_ string, r model.Reservation) bool { return match(r) })
	return int64(before - len(s.reservations))
}

// memTx operates on the working copy owned by one InTx call. The store lock
// is already held, so nothing here locks.
type memTx struct {
	rooms        map[string]model.Room
	reservations map[string]model.Reservation
}

func (t *memTx) LockRoom(_ context.Context, id string) (*model.Room, error) {
	rm, ok := t.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rm, nil
}

func (t *memTx) LockCeiling(context.Context) error { return nil }

func (t *memTx) GetReservationForUpdate(_ context.Context, id string) (*model.Reservation, error) {
	r, ok := t.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) CountActive(_ context.Context, now time.Time) (int, error) {
	return countActiveIn(t.reservations, now), nil
}

func (t *memTx) Overlapping(_ context.Context, q OverlapQuery) ([]model.Reservation, error) {
	return overlappingIn(t.reservations, q), nil
}

func (t *memTx) Insert(_ context.Context, r *model.Reservation) error {
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) Update(_ context.Context, r *model.Reservation) error {
	cur, ok := t.reservations[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.OwnerID = cur.OwnerID
	r.CreatedAt = cur.CreatedAt
	t.reservations[r.ID] = *r
	return nil
}

func overlappingIn(set map[string]model.Reservation, q OverlapQuery) []model.Reservation {
	window := booking.Interval{Start: q.From, End: q.To}

	var out []model.Reservation
	for id, r := range set {
		if r.RoomID != q.RoomID || (q.ExcludeID != "" && id == q.ExcludeID) {
			continue
		}
		if r.ExpiredAt(q.ActiveAt) || !r.Interval().Overlaps(window) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Reservation) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out
}

func countActiveIn(set map[string]model.Reservation, now time.Time) int {
	n := 0
	for _, r := range set {
		if !r.ExpiredAt(now) {
			n++
		}
	}
	return n
}
