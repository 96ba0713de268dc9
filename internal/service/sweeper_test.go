package service

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/lease"
)

type denyLease struct{}

func (denyLease) Acquire(context.Context, string, time.Duration) (bool, error) { return false, nil }

func (denyLease) Release(context.Context, string) error { return nil }

func TestSweep_RemovesExpiredFromEveryView(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	room := f.room(t, "Focus", 4, 1)
	f.mustCreate(t, alice, room.ID, "2030-01-01T09:00", "2030-01-01T10:00")
	live := f.mustCreate(t, bob, room.ID, "2030-01-01T12:00", "2030-01-01T13:00")

	f.clock.now = at(t, "2030-01-01T10:30")
	sw := NewSweeper(f.store, f.clock, lease.Local{}, time.Minute, time.Minute)

	// The expired reservation is already invisible before any sweep.
	got, _ := f.avail.CheckAvailability(context.Background(), room.ID, at(t, "2030-01-01T09:15"), at(t, "2030-01-01T09:45"), "")
	if !got.Available {
		t.Fatalf("expired reservation still blocks the room: %s", got.Reason)
	}

	n, err := sw.Sweep(context.Background(), f.clock.Now())
	if err != nil || n != 1 {
		t.Fatalf("sweep removed %d (%v)", n, err)
	}
	if n, _ := sw.SweepNow(context.Background()); n != 0 {
		t.Fatalf("second sweep removed %d", n)
	}
	if _, err := f.store.GetReservation(context.Background(), live.ID); err != nil {
		t.Fatalf("live reservation swept: %v", err)
	}

	rooms, _ := f.avail.ListAvailableRooms(context.Background(), at(t, "2030-01-01T09:00"), at(t, "2030-01-01T10:00"))
	if len(rooms) != 1 || rooms[0].AvailableSlots != 1 {
		t.Fatalf("discovery after sweep: %+v", rooms)
	}
}

func TestSweep_EndingExactlyNowIsKept(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	room := f.room(t, "Focus", 4, 1)
	f.mustCreate(t, alice, room.ID, "2030-01-01T09:00", "2030-01-01T10:00")

	sw := NewSweeper(f.store, f.clock, lease.Local{}, time.Minute, time.Minute)
	if n, _ := sw.Sweep(context.Background(), at(t, "2030-01-01T10:00")); n != 0 {
		t.Fatalf("reservation ending now was swept")
	}
}

func TestSweeper_TickNeedsLease(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	room := f.room(t, "Focus", 4, 1)
	f.mustCreate(t, alice, room.ID, "2030-01-01T09:00", "2030-01-01T10:00")
	f.clock.now = at(t, "2030-01-01T11:00")

	NewSweeper(f.store, f.clock, denyLease{}, time.Minute, time.Minute).tick(context.Background())
	if f.count(t) != 1 {
		t.Fatalf("sweep ran without the lease")
	}

	NewSweeper(f.store, f.clock, lease.Local{}, time.Minute, time.Minute).tick(context.Background())
	if f.count(t) != 0 {
		t.Fatalf("sweep with the lease left expired reservations")
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t, DefaultPolicy())
	sw := NewSweeper(f.store, f.clock, lease.Local{}, 10*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
