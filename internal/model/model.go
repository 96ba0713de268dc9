// Package model defines the core domain types for the meeting room booking system.
package model

import (
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
)

// Room is a bookable meeting room. TotalSlots bounds how many reservations
// may be active at any single instant; Capacity bounds attendees per reservation.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Capacity    int       `json:"capacity"`
	TotalSlots  int       `json:"total_slots"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reservation is a persisted booking of a room by its owner.
// StartTime and EndTime are naive wall-clock timestamps.
type Reservation struct {
	ID        string
	RoomID    string
	OwnerID   string
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Purpose   string
	Attendees int
	CreatedAt time.Time
}

// Interval returns the [StartTime, EndTime) span of the reservation.
func (r *Reservation) Interval() booking.Interval {
	return booking.Interval{Start: r.StartTime, End: r.EndTime}
}

// ExpiredAt reports whether the reservation ended strictly before now.
func (r *Reservation) ExpiredAt(now time.Time) bool {
	return r.EndTime.Before(now)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// CanManage reports whether the actor may edit or cancel r.
func (a Actor) CanManage(r *Reservation) bool {
	return a.IsAdmin || (a.UserID != "" && a.UserID == r.OwnerID)
}

// ReservationRequest is the payload for creating or editing a reservation.
// Timestamps use booking.Layout.
type ReservationRequest struct {
	RoomID    string `json:"room_id" validate:"required"`
	Title     string `json:"title" validate:"required,max=200"`
	StartTime string `json:"start_time" validate:"required,datetime=2006-01-02T15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=2006-01-02T15:04"`
	Purpose   string `json:"purpose" validate:"max=200"`
	Attendees int    `json:"attendees" validate:"gte=0"`
}

// CreateRoomRequest is the payload for registering a room.
type CreateRoomRequest struct {
	Name        string `json:"name" yaml:"name" validate:"required,max=100"`
	Capacity    int    `json:"capacity" yaml:"capacity" validate:"gte=1"`
	TotalSlots  int    `json:"total_slots" yaml:"total_slots" validate:"gte=0"`
	Description string `json:"description" yaml:"description"`
}

// ReservationView is the wire form of a Reservation.
type ReservationView struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Purpose   string    `json:"purpose"`
	Attendees int       `json:"attendees"`
	CreatedAt time.Time `json:"created_at"`
}

// View renders r for the wire.
func (r Reservation) View() ReservationView {
	return ReservationView{
		ID:        r.ID,
		RoomID:    r.RoomID,
		OwnerID:   r.OwnerID,
		Title:     r.Title,
		StartTime: booking.Format(r.StartTime),
		EndTime:   booking.Format(r.EndTime),
		Purpose:   r.Purpose,
		Attendees: r.Attendees,
		CreatedAt: r.CreatedAt,
	}
}

// Availability is the outcome of a capacity or overlap check.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

// RoomAvailability is one row of the room discovery view.
type RoomAvailability struct {
	RoomID         string `json:"room_id"`
	Name           string `json:"name"`
	Capacity       int    `json:"capacity"`
	AvailableSlots int    `json:"available_slots"`
	Description    string `json:"description"`
}

// Dashboard summarises the system-wide reservation ceiling.
type Dashboard struct {
	Rooms              []Room `json:"rooms"`
	ActiveReservations int    `json:"active_reservations"`
	RemainingMeetings  int    `json:"remaining_meetings"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
