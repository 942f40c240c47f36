package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Calendar domain errors.
var (
	// ErrInvalidWindow indicates a malformed or overlapping availability window.
	ErrInvalidWindow = errors.New("invalid availability window")
	// ErrNoAvailability indicates the calendar offers no working time in the horizon.
	ErrNoAvailability = errors.New("no availability in scheduling horizon")
	// ErrOutsideAvailability indicates a segment does not lie in free calendar time.
	ErrOutsideAvailability = errors.New("segment outside free availability")
	// ErrCapacityExceeded indicates a period's effort ceiling would be exceeded.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// CapacityError reports which period overflowed and by how much.
type CapacityError struct {
	Period    string
	Used      time.Duration
	Requested time.Duration
	Ceiling   time.Duration
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded on %s: %s used + %s requested > %s ceiling", e.Period, e.Used, e.Requested, e.Ceiling)
}

// Is allows errors.Is to work with CapacityError.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
