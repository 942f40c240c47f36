package domain

import (
	"errors"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// ErrNotFound is returned when a stored artifact does not exist.
var ErrNotFound = errors.New("not found")

// GoalRepository stores goals and their tasks.
type GoalRepository interface {
	SaveGoal(goal *planning.Goal) error
	LoadGoal(userID, goalID string) (*planning.Goal, error)
	ListGoals(userID string) ([]*planning.Goal, error)
	SaveTasks(userID, goalID string, tasks []planning.Task) error
	LoadTasks(userID, goalID string) ([]planning.Task, error)
}

// CalendarRepository stores one availability calendar per user.
type CalendarRepository interface {
	SaveCalendar(userID string, cal *calendar.Calendar) error
	LoadCalendar(userID string) (*calendar.Calendar, error)
}

// ScheduleRepository stores the current schedule of each goal. SaveSchedule
// fails with schedule.ErrVersionConflict unless the stored version equals
// expectedVersion, then persists s with Version expectedVersion+1.
type ScheduleRepository interface {
	SaveSchedule(s *schedule.Schedule, expectedVersion int) error
	LoadSchedule(userID, goalID string) (*schedule.Schedule, error)
}

// WorkspaceRepository handles everything pacer keeps in the .pacer/ directory.
type WorkspaceRepository interface {
	Initialize() error
	IsInitialized() bool
	ListUsers() ([]string, error)
	GoalRepository
	CalendarRepository
	ScheduleRepository
	events.Store
}
