package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/errs"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/logger"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
	"github.com/google/uuid"
)

// Mode selects the admission path.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
	ModeAdminEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	case ModeAdminEdit:
		return "admin_edit"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Draft is one admission request before any rule has run.
type Draft struct {
	Mode  Mode
	Actor model.Actor
	// ReservationID names the reservation being replaced; empty on create.
	ReservationID string
	Request       model.ReservationRequest
}

// AdmissionService decides whether a new or edited reservation may be
// persisted.
type AdmissionService struct {
	store  repository.Store
	avail  *AvailabilityService
	policy Policy
	clock  booking.Clock
}

// NewAdmissionService constructs an AdmissionService with its dependencies.
func NewAdmissionService(store repository.Store, avail *AvailabilityService, policy Policy, clock booking.Clock) *AdmissionService {
	return &AdmissionService{store: store, avail: avail, policy: policy, clock: clock}
}

// Create admits a new reservation owned by actor.
func (s *AdmissionService) Create(ctx context.Context, actor model.Actor, req model.ReservationRequest) (*model.Reservation, error) {
	return s.Admit(ctx, Draft{Mode: ModeCreate, Actor: actor, Request: req})
}

// Edit replaces reservation id on behalf of its owner or an administrator.
func (s *AdmissionService) Edit(ctx context.Context, actor model.Actor, id string, req model.ReservationRequest) (*model.Reservation, error) {
	return s.Admit(ctx, Draft{Mode: ModeEdit, Actor: actor, ReservationID: id, Request: req})
}

// AdminEdit replaces reservation id through the administrative path,
// which applies the shorter grace window.
func (s *AdmissionService) AdminEdit(ctx context.Context, actor model.Actor, id string, req model.ReservationRequest) (*model.Reservation, error) {
	return s.Admit(ctx, Draft{Mode: ModeAdminEdit, Actor: actor, ReservationID: id, Request: req})
}

// Admit runs the admission rules in order and persists the reservation when
// all of them pass. The first failing rule is returned as an *errs.Error;
// every other failure is reported as a persistence error and nothing is
// written.
//
// The rules and the write share one store transaction. The room row, the
// edited reservation and, on create, the global ceiling are locked before
// they are read, so two admissions cannot both observe the last free slot.
func (s *AdmissionService) Admit(ctx context.Context, d Draft) (*model.Reservation, error) {
	req := normalize(d.Request)
	if err := checkStruct(req); err != nil {
		return nil, err
	}
	iv, err := parseInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if d.Mode != ModeCreate && d.ReservationID == "" {
		return nil, errs.Validation("reservation id is required")
	}

	now := s.clock.Now()
	var admitted *model.Reservation

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var current *model.Reservation
		if d.Mode != ModeCreate {
			r, err := tx.GetReservationForUpdate(ctx, d.ReservationID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return errs.NotFound("reservation not found")
				}
				return fmt.Errorf("lock reservation: %w", err)
			}
			if err := authorize(d, r); err != nil {
				return err
			}
			current = r
		}

		if !iv.Valid() {
			return errs.Validation("start_time must be before end_time")
		}

		grace := s.policy.UserGrace
		if d.Mode == ModeAdminEdit {
			grace = s.policy.AdminGrace
		}
		if iv.Start.Before(now.Add(-grace)) {
			return errs.Validation(fmt.Sprintf("start_time cannot be more than %s in the past", grace))
		}

		if d.Mode == ModeCreate {
			if err := tx.LockCeiling(ctx); err != nil {
				return fmt.Errorf("lock ceiling: %w", err)
			}
			active, err := tx.CountActive(ctx, now)
			if err != nil {
				return fmt.Errorf("count active: %w", err)
			}
			if active >= s.policy.MaxActiveReservations {
				return errs.Capacity(fmt.Sprintf(
					"the system-wide limit of %d active reservations has been reached", s.policy.MaxActiveReservations))
			}
		}

		room, err := tx.LockRoom(ctx, req.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errs.NotFound("room not found")
			}
			return fmt.Errorf("lock room: %w", err)
		}

		if req.Attendees > room.Capacity {
			return errs.Capacity(fmt.Sprintf("attendees exceed room capacity (max %d)", room.Capacity))
		}

		avail, err := s.avail.evaluate(ctx, tx, room, iv, d.ReservationID, now)
		if err != nil {
			return err
		}
		if !avail.Available {
			return errs.Capacity(avail.Reason)
		}

		if current == nil {
			r := &model.Reservation{
				ID:        uuid.New().String(),
				RoomID:    room.ID,
				OwnerID:   d.Actor.UserID,
				Title:     req.Title,
				StartTime: iv.Start,
				EndTime:   iv.End,
				Purpose:   req.Purpose,
				Attendees: req.Attendees,
				CreatedAt: now,
			}
			if err := tx.Insert(ctx, r); err != nil {
				return fmt.Errorf("insert reservation: %w", err)
			}
			admitted = r
			return nil
		}

		updated := *current
		updated.RoomID = room.ID
		updated.Title = req.Title
		updated.StartTime = iv.Start
		updated.EndTime = iv.End
		updated.Purpose = req.Purpose
		updated.Attendees = req.Attendees
		if err := tx.Update(ctx, &updated); err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		admitted = &updated
		return nil
	})

	if err != nil {
		if errs.IsRejection(err) {
			slog.InfoContext(ctx, "reservation rejected",
				append(logger.AttrsFromCtx(ctx), "mode", d.Mode.String(), "room_id", req.RoomID, "user_id", d.Actor.UserID, "reason", errs.Reason(err))...)
			return nil, err
		}
		slog.ErrorContext(ctx, "reservation admission failed",
			append(logger.AttrsFromCtx(ctx), "mode", d.Mode.String(), "room_id", req.RoomID, "user_id", d.Actor.UserID, "err", err)...)
		return nil, errs.Persistence()
	}

	slog.InfoContext(ctx, "reservation admitted",
		append(logger.AttrsFromCtx(ctx), "mode", d.Mode.String(), "id", admitted.ID, "room_id", admitted.RoomID, "user_id", d.Actor.UserID)...)
	return admitted, nil
}

func authorize(d Draft, r *model.Reservation) error {
	switch d.Mode {
	case ModeAdminEdit:
		if !d.Actor.IsAdmin {
			return errs.Forbidden("administrator privileges required")
		}
	default:
		if !d.Actor.CanManage(r) {
			return errs.Forbidden("you may only change your own reservations")
		}
	}
	return nil
}

func normalize(req model.ReservationRequest) model.ReservationRequest {
	req.RoomID = strings.TrimSpace(req.RoomID)
	req.Title = strings.TrimSpace(req.Title)
	req.Purpose = strings.TrimSpace(req.Purpose)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	if req.Attendees == 0 {
		req.Attendees = 1
	}
	return req
}

func parseInterval(start, end string) (booking.Interval, error) {
	s, err := booking.Parse(start)
	if err != nil {
		return booking.Interval{}, errs.Validation("start_time: " + err.Error())
	}
	e, err := booking.Parse(end)
	if err != nil {
		return booking.Interval{}, errs.Validation("end_time: " + err.Error())
	}
	return booking.Interval{Start: s, End: e}, nil
}

// ParseWindow parses a start/end query pair.
func ParseWindow(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, errs.Validation("start_time and end_time are required")
	}
	iv, err := parseInterval(start, end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return iv.Start, iv.End, nil
}
