package schedule

import (
	"errors"
	"fmt"
)

// ErrVersionConflict indicates a schedule was saved over a newer version.
var ErrVersionConflict = errors.New("schedule version conflict")

// ConflictError is returned when a save fails due to a version mismatch.
type ConflictError struct {
	GoalID   string
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on goal %s: expected schedule version %d but found %d; reload and retry", e.GoalID, e.Expected, e.Actual)
}

// Is allows errors.Is to work with ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}
