// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/errs"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

// Handler holds all HTTP handlers for the booking API.
type Handler struct {
	rooms        *service.RoomService
	availability *service.AvailabilityService
	admission    *service.AdmissionService
	reservations *service.ReservationService
	sweeper      *service.Sweeper
}

// Services groups the collaborators of Handler.
type Services struct {
	Rooms        *service.RoomService
	Availability *service.AvailabilityService
	Admission    *service.AdmissionService
	Reservations *service.ReservationService
	Sweeper      *service.Sweeper
}

// New constructs a Handler.
func New(s Services) *Handler {
	return &Handler{
		rooms:        s.Rooms,
		availability: s.Availability,
		admission:    s.Admission,
		reservations: s.Reservations,
		sweeper:      s.Sweeper,
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// fail writes err with the status of its kind. Anything that is not a domain
// rejection is logged and reported without detail.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.ToHTTP(err)
	if status == http.StatusInternalServerError {
		L(r.Context()).Error("request failed", slog.String("err", err.Error()))
	}
	writeError(w, status, errs.Reason(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func views(list []model.Reservation) []model.ReservationView {
	return lo.Map(list, func(r model.Reservation, _ int) model.ReservationView { return r.View() })
}

// ─── Rooms ────────────────────────────────────────────────────────────────────

// ListRooms handles GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

// CreateRoom handles POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), ActorFrom(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// GetRoom handles GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.rooms.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// DeleteRoom handles DELETE /rooms/{id}
// Reservations held on the room are removed with it.
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.DeleteRoom(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AvailableRooms handles GET /rooms/available?start_time=&end_time=
// Returns every room with at least one free slot in the window.
func (h *Handler) AvailableRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := service.ParseWindow(q.Get("start_time"), q.Get("end_time"))
	if err != nil {
		fail(w, r, err)
		return
	}

	rooms, err := h.availability.ListAvailableRooms(r.Context(), start, end)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// RoomAvailability handles GET /rooms/{id}/availability?start_time=&end_time=&exclude_id=
func (h *Handler) RoomAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := service.ParseWindow(q.Get("start_time"), q.Get("end_time"))
	if err != nil {
		fail(w, r, err)
		return
	}

	got, err := h.availability.CheckAvailability(r.Context(), chi.URLParam(r, "id"), start, end, q.Get("exclude_id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

// RoomOverlaps handles GET /rooms/{id}/overlaps?start_time=&end_time=&exclude_id=
// Reports any buffered overlap regardless of the room's slot count.
func (h *Handler) RoomOverlaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := service.ParseWindow(q.Get("start_time"), q.Get("end_time"))
	if err != nil {
		fail(w, r, err)
		return
	}

	hit, err := h.availability.Overlaps(r.Context(), chi.URLParam(r, "id"), start, end, q.Get("exclude_id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"overlaps": hit})
}

// ─── Reservations ─────────────────────────────────────────────────────────────

// CreateReservation handles POST /reservations
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req model.ReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.admission.Create(r.Context(), ActorFrom(r.Context()), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.View())
}

// ListMyReservations handles GET /reservations
func (h *Handler) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.reservations.ListOwn(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views(list))
}

// GetReservation handles GET /reservations/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.Get(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View())
}

// EditReservation handles PUT /reservations/{id}
func (h *Handler) EditReservation(w http.ResponseWriter, r *http.Request) {
	var req model.ReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.admission.Edit(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View())
}

// CancelReservation handles DELETE /reservations/{id}
func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.reservations.Cancel(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reservations.Dashboard(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if d.Rooms == nil {
		d.Rooms = []model.Room{}
	}
	writeJSON(w, http.StatusOK, d)
}

// ─── Administration ───────────────────────────────────────────────────────────

// AdminListReservations handles GET /admin/reservations
func (h *Handler) AdminListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := h.reservations.ListAll(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views(list))
}

// AdminEditReservation handles PUT /admin/reservations/{id}
func (h *Handler) AdminEditReservation(w http.ResponseWriter, r *http.Request) {
	var req model.ReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.admission.AdminEdit(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.View())
}

// AdminDeleteReservation handles DELETE /admin/reservations/{id}
func (h *Handler) AdminDeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.reservations.AdminDelete(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUserReservations handles DELETE /admin/users/{id}/reservations
// Called when the identity provider removes a user.
func (h *Handler) DeleteUserReservations(w http.ResponseWriter, r *http.Request) {
	n, err := h.reservations.DeleteByOwner(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Sweep handles POST /admin/sweep
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.sweeper.SweepNow(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
