package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/errs"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
)

// ReservationService covers reads and removals. Creation and edits go
// through AdmissionService.
type ReservationService struct {
	store  repository.Store
	policy Policy
	clock  booking.Clock
}

// NewReservationService constructs a ReservationService with its dependencies.
func NewReservationService(store repository.Store, policy Policy, clock booking.Clock) *ReservationService {
	return &ReservationService{store: store, policy: policy, clock: clock}
}

// Get returns one reservation visible to actor.
func (s *ReservationService) Get(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(r) {
		return nil, errs.Forbidden("you may only view your own reservations")
	}
	return r, nil
}

// ListOwn returns the actor's reservations, latest start first.
func (s *ReservationService) ListOwn(ctx context.Context, actor model.Actor) ([]model.Reservation, error) {
	return s.store.ListReservations(ctx, repository.ReservationFilter{OwnerID: actor.UserID})
}

// ListAll returns every reservation, latest start first.
func (s *ReservationService) ListAll(ctx context.Context, actor model.Actor) ([]model.Reservation, error) {
	if !actor.IsAdmin {
		return nil, errs.Forbidden("administrator privileges required")
	}
	return s.store.ListReservations(ctx, repository.ReservationFilter{})
}

// Cancel deletes a reservation owned by actor, or any reservation when the
// actor is an administrator.
func (s *ReservationService) Cancel(ctx context.Context, actor model.Actor, id string) error {
	r, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(r) {
		return errs.Forbidden("you may only cancel your own reservations")
	}
	return s.remove(ctx, actor, r.ID)
}

// AdminDelete deletes any reservation.
func (s *ReservationService) AdminDelete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin {
		return errs.Forbidden("administrator privileges required")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return s.remove(ctx, actor, id)
}

// DeleteByOwner removes every reservation of ownerID. It is invoked when
// the identity provider deletes a user.
func (s *ReservationService) DeleteByOwner(ctx context.Context, actor model.Actor, ownerID string) (int64, error) {
	if !actor.IsAdmin {
		return 0, errs.Forbidden("administrator privileges required")
	}
	if ownerID == "" {
		return 0, errs.Validation("user id is required")
	}
	n, err := s.store.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete reservations of %s: %w", ownerID, err)
	}
	slog.InfoContext(ctx, "owner reservations deleted", "owner_id", ownerID, "count", n, "by", actor.UserID)
	return n, nil
}

// Dashboard reports the rooms and how much of the global ceiling is left.
func (s *ReservationService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	active, err := s.store.CountActive(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("count active: %w", err)
	}
	return &model.Dashboard{
		Rooms:              rooms,
		ActiveReservations: active,
		RemainingMeetings:  max(s.policy.MaxActiveReservations-active, 0),
	}, nil
}

func (s *ReservationService) load(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, errs.Validation("reservation id is required")
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("reservation not found")
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

func (s *ReservationService) remove(ctx context.Context, actor model.Actor, id string) error {
	if err := s.store.DeleteReservation(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errs.NotFound("reservation not found")
		}
		return fmt.Errorf("delete reservation: %w", err)
	}
	slog.InfoContext(ctx, "reservation cancelled", "id", id, "by", actor.UserID, "admin", actor.IsAdmin)
	return nil
}
