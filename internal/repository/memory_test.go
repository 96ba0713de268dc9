package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := booking.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func seedRoom(t *testing.T, s *MemoryStore) model.Room {
	t.Helper()
	room := model.Room{Name: "Board", Capacity: 10, TotalSlots: 2}
	if err := s.CreateRoom(context.Background(), &room); err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func insert(t *testing.T, s *MemoryStore, r model.Reservation) {
	t.Helper()
	err := s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, &r)
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestMemoryStore_InTxRollsBackOnError(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	boom := errors.New("boom")

	err := s.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		r := model.Reservation{ID: "r1", RoomID: room.ID, StartTime: ts(t, "2030-01-01T10:00"), EndTime: ts(t, "2030-01-01T11:00")}
		if err := tx.Insert(ctx, &r); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, err := s.GetReservation(context.Background(), "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rolled back insert is visible: %v", err)
	}
}

func TestMemoryStore_OverlappingHonoursExcludeAndExpiry(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)

	insert(t, s, model.Reservation{ID: "a", RoomID: room.ID, StartTime: ts(t, "2030-01-01T10:00"), EndTime: ts(t, "2030-01-01T11:00")})
	insert(t, s, model.Reservation{ID: "b", RoomID: room.ID, StartTime: ts(t, "2030-01-01T10:30"), EndTime: ts(t, "2030-01-01T11:30")})
	insert(t, s, model.Reservation{ID: "c", RoomID: room.ID, StartTime: ts(t, "2030-01-01T11:00"), EndTime: ts(t, "2030-01-01T12:00")})
	insert(t, s, model.Reservation{ID: "other-room", RoomID: "elsewhere", StartTime: ts(t, "2030-01-01T10:00"), EndTime: ts(t, "2030-01-01T11:00")})

	got, _ := s.Overlapping(context.Background(), OverlapQuery{
		RoomID: room.ID,
		From:   ts(t, "2030-01-01T10:15"),
		To:     ts(t, "2030-01-01T11:00"),
	})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected overlap set: %+v", got)
	}

	got, _ = s.Overlapping(context.Background(), OverlapQuery{
		RoomID:    room.ID,
		From:      ts(t, "2030-01-01T10:15"),
		To:        ts(t, "2030-01-01T11:00"),
		ExcludeID: "a",
	})
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("exclude id ignored: %+v", got)
	}

	got, _ = s.Overlapping(context.Background(), OverlapQuery{
		RoomID:   room.ID,
		From:     ts(t, "2030-01-01T09:00"),
		To:       ts(t, "2030-01-01T13:00"),
		ActiveAt: ts(t, "2030-01-01T11:15"),
	})
	if len(got) != 2 {
		t.Fatalf("expired reservation should be ignored: %+v", got)
	}
}

func TestMemoryStore_DeleteExpiredIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)

	insert(t, s, model.Reservation{ID: "old", RoomID: room.ID, StartTime: ts(t, "2030-01-01T08:00"), EndTime: ts(t, "2030-01-01T09:00")})
	insert(t, s, model.Reservation{ID: "new", RoomID: room.ID, StartTime: ts(t, "2030-01-01T10:00"), EndTime: ts(t, "2030-01-01T11:00")})

	now := ts(t, "2030-01-01T09:30")
	n, err := s.DeleteExpired(context.Background(), now)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removal, got %d (%v)", n, err)
	}
	n, _ = s.DeleteExpired(context.Background(), now)
	if n != 0 {
		t.Fatalf("second sweep should be a no-op, removed %d", n)
	}
	if active, _ := s.CountActive(context.Background(), now); active != 1 {
		t.Fatalf("expected 1 active reservation, got %d", active)
	}
}

func TestMemoryStore_DeleteRoomCascades(t *testing.T) {
	s := NewMemoryStore()
	room := seedRoom(t, s)
	insert(t, s, model.Reservation{ID: "a", RoomID: room.ID, StartTime: ts(t, "2030-01-01T10:00"), EndTime: ts(t, "2030-01-01T11:00")})

	if err := s.DeleteRoom(context.Background(), room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if _, err := s.GetReservation(context.Background(), "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reservation survived room deletion")
	}
	if err := s.DeleteRoom(context.Background(), room.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
