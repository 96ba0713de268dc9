// Package service implements the booking rules and orchestrates the handlers
// and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/errs"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/model"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
)

// RoomService manages the room catalogue.
type RoomService struct {
	store repository.Store
}

// NewRoomService constructs a RoomService with its dependencies.
func NewRoomService(store repository.Store) *RoomService {
	return &RoomService{store: store}
}

// CreateRoom validates the request and delegates to the repository.
func (s *RoomService) CreateRoom(ctx context.Context, actor model.Actor, req model.CreateRoomRequest) (*model.Room, error) {
	if !actor.IsAdmin {
		return nil, errs.Forbidden("administrator privileges required")
	}
	return s.create(ctx, req)
}

func (s *RoomService) create(ctx context.Context, req model.CreateRoomRequest) (*model.Room, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	room := &model.Room{
		Name:        req.Name,
		Capacity:    req.Capacity,
		TotalSlots:  req.TotalSlots,
		Description: req.Description,
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name.
func (s *RoomService) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.store.ListRooms(ctx)
}

// GetRoom returns a single room by ID.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, errs.Validation("room id is required")
	}
	room, err := s.store.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NotFound("room not found")
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// DeleteRoom removes a room together with its reservations.
func (s *RoomService) DeleteRoom(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin {
		return errs.Forbidden("administrator privileges required")
	}
	if err := s.store.DeleteRoom(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errs.NotFound("room not found")
		}
		return fmt.Errorf("delete room: %w", err)
	}
	slog.InfoContext(ctx, "room deleted", "room_id", id, "by", actor.UserID)
	return nil
}

// Seed creates rooms only when the catalogue is empty, so restarts do not
// duplicate them.
func (s *RoomService) Seed(ctx context.Context, rooms []model.CreateRoomRequest) (int, error) {
	if len(rooms) == 0 {
		return 0, nil
	}
	existing, err := s.store.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rooms: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, req := range rooms {
		if _, err := s.create(ctx, req); err != nil {
			return i, fmt.Errorf("seed room %q: %w", req.Name, err)
		}
	}
	return len(rooms), nil
}
