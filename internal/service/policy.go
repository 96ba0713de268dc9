package service

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/errs"
	"github.com/go-playground/validator/v10"
)

// ConflictModel selects how a candidate interval is tested against the
// reservations already held on a room.
type ConflictModel string

const (
	// ConflictCapacity samples the buffered interval and rejects when any
	// sample instant is occupied by TotalSlots reservations.
	ConflictCapacity ConflictModel = "capacity"
	// ConflictExclusive rejects any overlap with the buffered interval,
	// as if every room had a single slot.
	ConflictExclusive ConflictModel = "exclusive"
)

// Policy holds the admission constants.
type Policy struct {
	MaxActiveReservations int
	Buffer                time.Duration
	SlotWidth             time.Duration
	// UserGrace and AdminGrace bound how far in the past a start time may lie
	// for ordinary submissions and administrative edits respectively.
	UserGrace     time.Duration
	AdminGrace    time.Duration
	ConflictModel ConflictModel
}

// DefaultPolicy returns the stock admission constants.
func DefaultPolicy() Policy {
	return Policy{
		MaxActiveReservations: 100,
		Buffer:                10 * time.Minute,
		SlotWidth:             booking.DefaultSlotWidth,
		UserGrace:             2 * time.Minute,
		AdminGrace:            time.Minute,
		ConflictModel:         ConflictCapacity,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct validates v and reports the first failing field as a
// validation rejection.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errs.Validation(err.Error())
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return errs.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "datetime":
		return errs.Validation(fmt.Sprintf("%s must be formatted as YYYY-MM-DDTHH:MM", fe.Field()))
	case "max":
		return errs.Validation(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "gte":
		return errs.Validation(fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
	default:
		return errs.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
