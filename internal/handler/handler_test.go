package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/auth"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/lease"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/ratelimit"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/service"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *repository.MemoryStore
	tokens map[string]string
}

func newTestServer(t *testing.T, limiter *ratelimit.Store) *testServer {
	t.Helper()

	now, _ := booking.Parse("2030-01-01T09:00")
	clock := fixedClock{now: now}
	store := repository.NewMemoryStore()
	policy := service.DefaultPolicy()
	avail := service.NewAvailabilityService(store, policy, clock)

	h := New(Services{
		Rooms:        service.NewRoomService(store),
		Availability: avail,
		Admission:    service.NewAdmissionService(store, avail, policy, clock),
		Reservations: service.NewReservationService(store, policy, clock),
		Sweeper:      service.NewSweeper(store, clock, lease.Local{}, time.Minute, time.Minute),
	})

	verifier := auth.NewVerifier("test-secret", "")
	tokens := map[string]string{}
	for name, actor := range map[string]model.Actor{
		"alice": {UserID: "alice"},
		"bob":   {UserID: "bob"},
		"root":  {UserID: "root", IsAdmin: true},
	} {
		tok, err := verifier.Sign(actor, time.Now(), time.Hour)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		tokens[name] = tok
	}

	return &testServer{
		t:      t,
		router: NewRouter(h, RouterOptions{Verifier: verifier, Limiter: limiter, AllowedOrigins: []string{"*"}}),
		store:  store,
		tokens: tokens,
	}
}

func (s *testServer) do(method, path, who string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[who])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) room(name string, capacity, slots int) model.Room {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/rooms", "root", model.CreateRoomRequest{Name: name, Capacity: capacity, TotalSlots: slots})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("create room: %d %s", rec.Code, rec.Body)
	}
	var room model.Room
	_ = json.Unmarshal(rec.Body.Bytes(), &room)
	return room
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return v
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	if rec := s.do(http.MethodGet, "/rooms", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", rec.Code)
	}

	if rec := s.do(http.MethodPost, "/rooms", "alice", model.CreateRoomRequest{Name: "x", Capacity: 1}); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin created a room: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/admin/reservations", "alice", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin reached admin routes: %d", rec.Code)
	}
}

func TestReservationLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.room("Focus", 4, 1)

	rec := s.do(http.MethodPost, "/reservations", "alice", model.ReservationRequest{
		RoomID: room.ID, Title: "Planning", StartTime: "2030-01-01T10:00", EndTime: "2030-01-01T11:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	created := decode[model.ReservationView](t, rec)
	if created.StartTime != "2030-01-01T10:00" || created.OwnerID != "alice" || created.Attendees != 1 {
		t.Fatalf("unexpected view: %+v", created)
	}

	// Buffered conflict on a single-slot room.
	rec = s.do(http.MethodPost, "/reservations", "bob", model.ReservationRequest{
		RoomID: room.ID, Title: "Retro", StartTime: "2030-01-01T11:05", EndTime: "2030-01-01T12:00",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("conflict: %d %s", rec.Code, rec.Body)
	}
	if msg := decode[model.ErrorResponse](t, rec).Error; msg == "" {
		t.Fatalf("conflict without reason")
	}

	rec = s.do(http.MethodPut, "/reservations/"+created.ID, "bob", model.ReservationRequest{
		RoomID: room.ID, Title: "Mine now", StartTime: "2030-01-01T10:00", EndTime: "2030-01-01T11:00",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger edit: %d", rec.Code)
	}

	rec = s.do(http.MethodPut, "/reservations/"+created.ID, "alice", model.ReservationRequest{
		RoomID: room.ID, Title: "Planning", StartTime: "2030-01-01T10:30", EndTime: "2030-01-01T11:30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner edit: %d %s", rec.Code, rec.Body)
	}

	mine := decode[[]model.ReservationView](t, s.do(http.MethodGet, "/reservations", "alice", nil))
	if len(mine) != 1 || mine[0].EndTime != "2030-01-01T11:30" {
		t.Fatalf("own list: %+v", mine)
	}

	if rec := s.do(http.MethodDelete, "/reservations/"+created.ID, "alice", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/reservations/"+created.ID, "alice", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("cancelled reservation readable: %d", rec.Code)
	}
}

func TestReservationRejections(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.room("Large", 20, 10)

	cases := []struct {
		name string
		req  model.ReservationRequest
		want int
	}{
		{"reversed", model.ReservationRequest{RoomID: room.ID, Title: "x", StartTime: "2030-01-01T11:00", EndTime: "2030-01-01T10:00"}, http.StatusBadRequest},
		{"past", model.ReservationRequest{RoomID: room.ID, Title: "x", StartTime: "2030-01-01T08:00", EndTime: "2030-01-01T10:00"}, http.StatusBadRequest},
		{"bad layout", model.ReservationRequest{RoomID: room.ID, Title: "x", StartTime: "tomorrow", EndTime: "2030-01-01T10:00"}, http.StatusBadRequest},
		{"unknown room", model.ReservationRequest{RoomID: "nope", Title: "x", StartTime: "2030-01-01T10:00", EndTime: "2030-01-01T11:00"}, http.StatusNotFound},
		{"too many attendees", model.ReservationRequest{RoomID: room.ID, Title: "x", StartTime: "2030-01-01T10:00", EndTime: "2030-01-01T11:00", Attendees: 25}, http.StatusConflict},
	}
	for _, tc := range cases {
		if rec := s.do(http.MethodPost, "/reservations", "alice", tc.req); rec.Code != tc.want {
			t.Fatalf("%s: got %d want %d (%s)", tc.name, rec.Code, tc.want, rec.Body)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(`{"room":"x"}`))
	req.Header.Set("Authorization", "Bearer "+s.tokens["alice"])
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field accepted: %d", rec.Code)
	}
}

func TestAvailabilityEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.room("Board", 10, 1)
	s.do(http.MethodPost, "/reservations", "alice", model.ReservationRequest{
		RoomID: room.ID, Title: "x", StartTime: "2030-01-01T10:00", EndTime: "2030-01-01T11:00",
	})

	got := decode[model.Availability](t, s.do(http.MethodGet,
		"/rooms/"+room.ID+"/availability?start_time=2030-01-01T10:30&end_time=2030-01-01T11:30", "bob", nil))
	if got.Available {
		t.Fatalf("occupied room reported available")
	}

	overlap := decode[map[string]bool](t, s.do(http.MethodGet,
		"/rooms/"+room.ID+"/overlaps?start_time=2030-01-01T11:15&end_time=2030-01-01T12:00", "bob", nil))
	if overlap["overlaps"] {
		t.Fatalf("non-overlapping window reported as overlap")
	}

	free := decode[[]model.RoomAvailability](t, s.do(http.MethodGet,
		"/rooms/available?start_time=2030-01-01T10:00&end_time=2030-01-01T11:00", "bob", nil))
	if len(free) != 0 {
		t.Fatalf("fully booked room discovered: %+v", free)
	}

	if rec := s.do(http.MethodGet, "/rooms/available?start_time=2030-01-01T10:00", "bob", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing end_time: %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, nil)
	room := s.room("Board", 10, 5)
	for _, who := range []string{"alice", "alice", "bob"} {
		rec := s.do(http.MethodPost, "/reservations", who, model.ReservationRequest{
			RoomID: room.ID, Title: "x", StartTime: "2030-01-01T10:00", EndTime: "2030-01-01T11:00",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed reservation: %d %s", rec.Code, rec.Body)
		}
	}

	all := decode[[]model.ReservationView](t, s.do(http.MethodGet, "/admin/reservations", "root", nil))
	if len(all) != 3 {
		t.Fatalf("admin list: %d", len(all))
	}

	rec := s.do(http.MethodPut, "/admin/reservations/"+all[0].ID, "root", model.ReservationRequest{
		RoomID: room.ID, Title: "moved", StartTime: "2030-01-01T13:00", EndTime: "2030-01-01T14:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin edit: %d %s", rec.Code, rec.Body)
	}

	deleted := decode[map[string]int64](t, s.do(http.MethodDelete, "/admin/users/alice/reservations", "root", nil))
	if deleted["deleted"] != 2 {
		t.Fatalf("owner cascade: %+v", deleted)
	}

	dash := decode[model.Dashboard](t, s.do(http.MethodGet, "/dashboard", "bob", nil))
	if dash.ActiveReservations != 1 || dash.RemainingMeetings != 99 {
		t.Fatalf("dashboard: %+v", dash)
	}

	swept := decode[map[string]int64](t, s.do(http.MethodPost, "/admin/sweep", "root", nil))
	if swept["removed"] != 0 {
		t.Fatalf("nothing should be expired yet: %+v", swept)
	}

	if rec := s.do(http.MethodDelete, "/rooms/"+room.ID, "root", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete room: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/rooms/"+room.ID, "bob", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted room readable: %d", rec.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	s := newTestServer(t, ratelimit.NewStore(0.001, 1))
	room := s.room("Board", 10, 5) // consumes root's only token

	if rec := s.do(http.MethodPost, "/rooms", "root", model.CreateRoomRequest{Name: "Again", Capacity: 1}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write not throttled: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/rooms/"+room.ID, "root", nil); rec.Code != http.StatusOK {
		t.Fatalf("reads should not be throttled: %d", rec.Code)
	}
	rec := s.do(http.MethodPost, "/reservations", "alice", model.ReservationRequest{
		RoomID: room.ID, Title: "x", StartTime: "2030-01-01T10:00", EndTime: "2030-01-01T11:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("limits must be per caller: %d", rec.Code)
	}
}
