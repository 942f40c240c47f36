package storage

import (
	"fmt"

	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

type tasksFile struct {
	Tasks []planning.Task `yaml:"tasks"`
}

func (r *FilesystemRepository) goalPath(userID, goalID, file string) (string, error) {
	if _, err := domain.NewUserID(userID); err != nil {
		return "", err
	}
	if _, err := domain.NewGoalID(goalID); err != nil {
		return "", err
	}
	return r.ResolvePath(UsersDir, userID, GoalsDir, goalID, file)
}

func (r *FilesystemRepository) SaveGoal(goal *planning.Goal) error {
	if err := goal.Validate(); err != nil {
		return err
	}
	path, err := r.goalPath(goal.UserID, goal.ID, GoalFile)
	if err != nil {
		return err
	}
	return writeYAML(path, goal)
}

func (r *FilesystemRepository) LoadGoal(userID, goalID string) (*planning.Goal, error) {
	path, err := r.goalPath(userID, goalID, GoalFile)
	if err != nil {
		return nil, err
	}
	g, err := readYAML[planning.Goal](r, path)
	if err != nil {
		return nil, fmt.Errorf("goal %s: %w", goalID, err)
	}
	return g, nil
}

// ListGoals returns a user's goals ordered by id.
func (r *FilesystemRepository) ListGoals(userID string) ([]*planning.Goal, error) {
	if _, err := domain.NewUserID(userID); err != nil {
		return nil, err
	}
	dir, err := r.ResolvePath(UsersDir, userID, GoalsDir)
	if err != nil {
		return nil, err
	}
	ids, err := listDirs(dir)
	if err != nil {
		return nil, err
	}
	goals := make([]*planning.Goal, 0, len(ids))
	for _, id := range ids {
		g, err := r.LoadGoal(userID, id)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func (r *FilesystemRepository) SaveTasks(userID, goalID string, tasks []planning.Task) error {
	path, err := r.goalPath(userID, goalID, TasksFile)
	if err != nil {
		return err
	}
	return writeYAML(path, tasksFile{Tasks: tasks})
}

// LoadTasks returns a goal's tasks; a goal without a tasks file has none.
func (r *FilesystemRepository) LoadTasks(userID, goalID string) ([]planning.Task, error) {
	path, err := r.goalPath(userID, goalID, TasksFile)
	if err != nil {
		return nil, err
	}
	f, err := readYAML[tasksFile](r, path)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return f.Tasks, nil
}

func (r *FilesystemRepository) calendarPath(userID string) (string, error) {
	if _, err := domain.NewUserID(userID); err != nil {
		return "", err
	}
	return r.ResolvePath(UsersDir, userID, CalendarFile)
}

func (r *FilesystemRepository) SaveCalendar(userID string, cal *calendar.Calendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	path, err := r.calendarPath(userID)
	if err != nil {
		return err
	}
	return writeYAML(path, cal)
}

func (r *FilesystemRepository) LoadCalendar(userID string) (*calendar.Calendar, error) {
	path, err := r.calendarPath(userID)
	if err != nil {
		return nil, err
	}
	cal, err := readYAML[calendar.Calendar](r, path)
	if err != nil {
		return nil, fmt.Errorf("calendar for %s: %w", userID, err)
	}
	return cal, nil
}
