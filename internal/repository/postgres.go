package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ceilingLockKey identifies the transaction-scoped advisory lock that
// serialises the system-wide reservation ceiling check.
const ceilingLockKey int64 = 0x6d72626b

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const roomColumns = `id, name, capacity, total_slots, description, created_at`

const reservationColumns = `id, room_id, owner_id, title, start_time, end_time, purpose, attendees, created_at`

// PostgresStore handles persistence for rooms and reservations.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTx runs fn inside one read-committed transaction.
//
// Admission is a read-then-write sequence: count the reservations occupying
// each sampled instant, then insert. Two transactions reading the same
// snapshot would both see a free slot and both commit, overbooking the room.
// Tx.LockRoom takes SELECT … FOR UPDATE on the room row, so admissions on the
// same room queue behind each other and each one counts the rows committed by
// its predecessor. Admissions on different rooms do not contend.
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateRoom inserts a room and fills its generated ID and creation time.
func (s *PostgresStore) CreateRoom(ctx context.Context, room *model.Room) error {
	room.ID = uuid.New().String()
	room.CreatedAt = booking.Naive(time.Now())

	_, err := s.db.Exec(ctx,
		`INSERT INTO rooms (id, name, capacity, total_slots, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID, room.Name, room.Capacity, room.TotalSlots, room.Description, room.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

// GetRoom returns a single room or ErrNotFound.
func (s *PostgresStore) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	return getRoom(ctx, s.db, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

// ListRooms returns all rooms ordered by name.
func (s *PostgresStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := s.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var rm model.Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.TotalSlots, &rm.Description, &rm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room; its reservations go with it (ON DELETE CASCADE).
//
// An edit locks its reservation row before the room row. The cascade would
// take the same locks in the opposite order, so the room's reservations are
// locked first and the two can only queue, never deadlock.
func (s *PostgresStore) DeleteRoom(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`SELECT id FROM reservations WHERE room_id = $1 ORDER BY id FOR UPDATE`, id,
		); err != nil {
			return fmt.Errorf("lock room reservations: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetReservation returns a single reservation or ErrNotFound.
func (s *PostgresStore) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	return getReservation(ctx, s.db, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

// ListReservations returns reservations ordered by start time, latest first.
func (s *PostgresStore) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE ($1::text = '' OR owner_id = $1)
		 ORDER BY start_time DESC, id ASC`,
		f.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return collectReservations(rows)
}

func (s *PostgresStore) Overlapping(ctx context.Context, q OverlapQuery) ([]model.Reservation, error) {
	return overlapping(ctx, s.db, q)
}

func (s *PostgresStore) CountActive(ctx context.Context, now time.Time) (int, error) {
	return countActive(ctx, s.db, now)
}

// CountOverlappingByRoom counts, per room, the active reservations whose
// interval overlaps [from, to). Rooms without overlaps are absent.
func (s *PostgresStore) CountOverlappingByRoom(ctx context.Context, from, to, activeAt time.Time) (map[string]int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT room_id, COUNT(*)
		 FROM reservations
		 WHERE end_time > $1 AND start_time < $2 AND end_time >= $3
		 GROUP BY room_id`,
		from, to, activeAt,
	)
	if err != nil {
		return nil, fmt.Errorf("count overlapping: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var roomID string
		var n int
		if err := rows.Scan(&roomID, &n); err != nil {
			return nil, fmt.Errorf("scan overlap count: %w", err)
		}
		counts[roomID] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) DeleteReservation(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM reservations WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete owner reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes every reservation that ended before now.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM reservations WHERE end_time < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// pgTx is the admission view over an open pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockRoom(ctx context.Context, id string) (*model.Room, error) {
	return getRoom(ctx, t.tx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id)
}

// LockCeiling blocks until no other transaction holds the ceiling lock.
// The lock is released on commit or rollback.
func (t *pgTx) LockCeiling(ctx context.Context) error {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ceilingLockKey); err != nil {
		return fmt.Errorf("lock reservation ceiling: %w", err)
	}
	return nil
}

func (t *pgTx) GetReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	return getReservation(ctx, t.tx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) CountActive(ctx context.Context, now time.Time) (int, error) {
	return countActive(ctx, t.tx, now)
}

func (t *pgTx) Overlapping(ctx context.Context, q OverlapQuery) ([]model.Reservation, error) {
	return overlapping(ctx, t.tx, q)
}

func (t *pgTx) Insert(ctx context.Context, r *model.Reservation) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO reservations (`+reservationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.RoomID, r.OwnerID, r.Title, r.StartTime, r.EndTime, r.Purpose, r.Attendees, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// Update replaces every mutable field of the reservation.
func (t *pgTx) Update(ctx context.Context, r *model.Reservation) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE reservations
		 SET room_id = $2, title = $3, start_time = $4, end_time = $5, purpose = $6, attendees = $7
		 WHERE id = $1`,
		r.ID, r.RoomID, r.Title, r.StartTime, r.EndTime, r.Purpose, r.Attendees,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getRoom(ctx context.Context, q querier, sql, id string) (*model.Room, error) {
	var rm model.Room
	err := q.QueryRow(ctx, sql, id).
		Scan(&rm.ID, &rm.Name, &rm.Capacity, &rm.TotalSlots, &rm.Description, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &rm, nil
}

func getReservation(ctx context.Context, q querier, sql, id string) (*model.Reservation, error) {
	var r model.Reservation
	err := q.QueryRow(ctx, sql, id).Scan(
		&r.ID, &r.RoomID, &r.OwnerID, &r.Title, &r.StartTime, &r.EndTime, &r.Purpose, &r.Attendees, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return &r, nil
}

func overlapping(ctx context.Context, q querier, oq OverlapQuery) ([]model.Reservation, error) {
	rows, err := q.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE room_id = $1
		   AND end_time > $2
		   AND start_time < $3
		   AND ($4::text = '' OR id <> $4)
		   AND end_time >= $5
		 ORDER BY start_time ASC`,
		oq.RoomID, oq.From, oq.To, oq.ExcludeID, oq.ActiveAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query overlapping reservations: %w", err)
	}
	return collectReservations(rows)
}

func countActive(ctx context.Context, q querier, now time.Time) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE end_time >= $1`, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active reservations: %w", err)
	}
	return n, nil
}

func collectReservations(rows pgx.Rows) ([]model.Reservation, error) {
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var r model.Reservation
		if err := rows.Scan(
			&r.ID, &r.RoomID, &r.OwnerID, &r.Title, &r.StartTime, &r.EndTime, &r.Purpose, &r.Attendees, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
