package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/errs"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
	"github.com/samber/lo"
)

// overlapReader is satisfied by repository.Store and repository.Tx, so the
// same checks run inside and outside an admission transaction.
type overlapReader interface {
	Overlapping(ctx context.Context, q repository.OverlapQuery) ([]model.Reservation, error)
}

// AvailabilityService answers capacity, overlap and discovery questions
// without writing anything.
type AvailabilityService struct {
	store  repository.Store
	policy Policy
	clock  booking.Clock
}

// NewAvailabilityService constructs an AvailabilityService with its dependencies.
func NewAvailabilityService(store repository.Store, policy Policy, clock booking.Clock) *AvailabilityService {
	return &AvailabilityService{store: store, policy: policy, clock: clock}
}

// CheckAvailability reports whether a reservation on roomID for [start, end)
// would fit under the configured conflict model. excludeID, when set, is left
// out of the count so that a reservation can be re-checked against itself.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, roomID string, start, end time.Time, excludeID string) (model.Availability, error) {
	iv := booking.Interval{Start: start, End: end}
	if !iv.Valid() {
		return model.Availability{}, errs.Validation("start_time must be before end_time")
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Availability{Reason: "room not found"}, nil
		}
		return model.Availability{}, fmt.Errorf("get room: %w", err)
	}

	return s.evaluate(ctx, s.store, room, iv, excludeID, s.clock.Now())
}

func (s *AvailabilityService) evaluate(ctx context.Context, r overlapReader, room *model.Room, iv booking.Interval, excludeID string, now time.Time) (model.Availability, error) {
	if s.policy.ConflictModel == ConflictExclusive {
		conflict, err := s.overlaps(ctx, r, room.ID, iv, excludeID, now)
		if err != nil {
			return model.Availability{}, err
		}
		if conflict {
			return model.Availability{
				Reason: fmt.Sprintf("room is already booked in this period (including the %s preparation buffer)", s.policy.Buffer),
			}, nil
		}
		return model.Availability{Available: true, Reason: "available"}, nil
	}
	return s.capacity(ctx, r, room, iv, excludeID, now)
}

// capacity samples the buffered interval and rejects at the first instant
// already occupied by room.TotalSlots reservations.
func (s *AvailabilityService) capacity(ctx context.Context, r overlapReader, room *model.Room, iv booking.Interval, excludeID string, now time.Time) (model.Availability, error) {
	window := iv.Expand(s.policy.Buffer)

	existing, err := r.Overlapping(ctx, repository.OverlapQuery{
		RoomID:    room.ID,
		From:      window.Start,
		To:        window.End,
		ExcludeID: excludeID,
		ActiveAt:  now,
	})
	if err != nil {
		return model.Availability{}, fmt.Errorf("load overlapping reservations: %w", err)
	}

	intervals := lo.Map(existing, func(res model.Reservation, _ int) booking.Interval { return res.Interval() })
	samples := booking.Discretize(window.Start, window.End, s.policy.SlotWidth)

	if at, full := booking.FirstSaturated(samples, intervals, room.TotalSlots); full {
		slog.DebugContext(ctx, "capacity check rejected",
			"room_id", room.ID, "window", window.String(), "saturated_at", booking.Format(at), "total_slots", room.TotalSlots)
		return model.Availability{
			Reason: fmt.Sprintf("time slot %s has reached the maximum number of reservations", booking.Format(at)),
		}, nil
	}
	return model.Availability{Available: true, Reason: "available"}, nil
}

// Overlaps reports whether any reservation on roomID overlaps [start, end)
// widened by the buffer, regardless of the room's slot count.
func (s *AvailabilityService) Overlaps(ctx context.Context, roomID string, start, end time.Time, excludeID string) (bool, error) {
	iv := booking.Interval{Start: start, End: end}
	if !iv.Valid() {
		return false, errs.Validation("start_time must be before end_time")
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, errs.NotFound("room not found")
		}
		return false, fmt.Errorf("get room: %w", err)
	}
	return s.overlaps(ctx, s.store, roomID, iv, excludeID, s.clock.Now())
}

func (s *AvailabilityService) overlaps(ctx context.Context, r overlapReader, roomID string, iv booking.Interval, excludeID string, now time.Time) (bool, error) {
	window := iv.Expand(s.policy.Buffer)

	existing, err := r.Overlapping(ctx, repository.OverlapQuery{
		RoomID:    roomID,
		From:      window.Start,
		To:        window.End,
		ExcludeID: excludeID,
		ActiveAt:  now,
	})
	if err != nil {
		return false, fmt.Errorf("load overlapping reservations: %w", err)
	}

	intervals := lo.Map(existing, func(res model.Reservation, _ int) booking.Interval { return res.Interval() })
	return booking.AnyOverlap(window, intervals), nil
}

// ListAvailableRooms reports, for every room with at least one free slot,
// how many slots remain over [start, end). The count uses the raw interval
// without buffer and is informational only: admission re-checks.
func (s *AvailabilityService) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]model.RoomAvailability, error) {
	if !start.Before(end) {
		return nil, errs.Validation("start_time must be before end_time")
	}

	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	counts, err := s.store.CountOverlappingByRoom(ctx, start, end, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("count overlapping: %w", err)
	}

	out := make([]model.RoomAvailability, 0, len(rooms))
	for _, rm := range rooms {
		free := rm.TotalSlots - counts[rm.ID]
		if free <= 0 {
			continue
		}
		out = append(out, model.RoomAvailability{
			RoomID:         rm.ID,
			Name:           rm.Name,
			Capacity:       rm.Capacity,
			AvailableSlots: free,
			Description:    rm.Description,
		})
	}
	return out, nil
}
