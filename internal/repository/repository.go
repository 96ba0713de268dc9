// Package repository implements persistence for rooms and reservations.
// PostgresStore uses pgx directly (no ORM); MemoryStore keeps the same
// contract in process for single-node runs and tests.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// OverlapQuery selects the reservations of one room whose interval overlaps
// [From, To). Reservations that ended before ActiveAt are ignored, so the
// result does not depend on whether the sweeper has run yet.
type OverlapQuery struct {
	RoomID    string
	From      time.Time
	To        time.Time
	ExcludeID string
	ActiveAt  time.Time
}

// ReservationFilter narrows ListReservations. The zero value lists everything.
type ReservationFilter struct {
	OwnerID string
}

// Tx is the view of the store available inside one admission unit of work.
// Lock* methods block concurrent admissions touching the same rows until the
// transaction ends.
type Tx interface {
	LockRoom(ctx context.Context, id string) (*model.Room, error)
	LockCeiling(ctx context.Context) error
	GetReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
	Overlapping(ctx context.Context, q OverlapQuery) ([]model.Reservation, error)
	Insert(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error
}

// Store is the persistent-storage collaborator of the booking services.
type Store interface {
	// InTx runs fn in a single transaction. A non-nil error from fn, or a
	// failed commit, discards every write made through tx.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	DeleteRoom(ctx context.Context, id string) error

	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	Overlapping(ctx context.Context, q OverlapQuery) ([]model.Reservation, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
	CountOverlappingByRoom(ctx context.Context, from, to, activeAt time.Time) (map[string]int, error)
	DeleteReservation(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
