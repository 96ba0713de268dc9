package service

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
)

var (
	alice = model.Actor{UserID: "alice"}
	bob   = model.Actor{UserID: "bob"}
	root  = model.Actor{UserID: "root", IsAdmin: true}
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := booking.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

type fixture struct {
	store *repository.MemoryStore
	clock *fixedClock
	avail *AvailabilityService
	admit *AdmissionService
	res   *ReservationService
}

func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &fixedClock{now: at(t, "2030-01-01T09:00")}
	avail := NewAvailabilityService(store, policy, clock)
	return &fixture{
		store: store,
		clock: clock,
		avail: avail,
		admit: NewAdmissionService(store, avail, policy, clock),
		res:   NewReservationService(store, policy, clock),
	}
}

func (f *fixture) room(t *testing.T, name string, capacity, slots int) model.Room {
	t.Helper()
	r := model.Room{Name: name, Capacity: capacity, TotalSlots: slots}
	if err := f.store.CreateRoom(context.Background(), &r); err != nil {
		t.Fatalf("create room: %v", err)
	}
	return r
}

func (f *fixture) mustCreate(t *testing.T, actor model.Actor, roomID, start, end string) *model.Reservation {
	t.Helper()
	r, err := f.admit.Create(context.Background(), actor, request(roomID, start, end))
	if err != nil {
		t.Fatalf("create %s-%s: %v", start, end, err)
	}
	return r
}

func request(roomID, start, end string) model.ReservationRequest {
	return model.ReservationRequest{
		RoomID:    roomID,
		Title:     "Sync",
		StartTime: start,
		EndTime:   end,
	}
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	all, err := f.store.ListReservations(context.Background(), repository.ReservationFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return len(all)
}
