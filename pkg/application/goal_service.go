package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

// GoalService manages goals, their task lists and users' calendars.
type GoalService struct {
	env Env
}

func NewGoalService(env Env) *GoalService {
	return &GoalService{env: env.WithDefaults()}
}

// CreateGoal stores a new goal for userID.
func (s *GoalService) CreateGoal(ctx context.Context, userID, title string, deadline time.Time, complexity planning.ComplexityTier) (*planning.Goal, error) {
	if err := s.env.checkWorkspace(); err != nil {
		return nil, err
	}
	if err := checkIDs(userID, ""); err != nil {
		return nil, err
	}
	if complexity == "" {
		complexity = planning.ComplexityModerate
	}
	now := s.env.now()
	if !deadline.After(now) {
		return nil, fmt.Errorf("%w: %s", ErrDeadlinePassed, deadline.Format(time.RFC3339))
	}

	goal := &planning.Goal{
		ID:         domain.GenerateGoalID().String(),
		UserID:     userID,
		Title:      strings.TrimSpace(title),
		Deadline:   deadline.UTC(),
		Complexity: complexity,
		CreatedAt:  now,
	}

	unlock := s.env.Locks.Lock(userID)
	defer unlock()
	if err := s.env.Repo.SaveGoal(goal); err != nil {
		return nil, fmt.Errorf("save goal: %w", err)
	}
	ev := s.env.event(events.EventTypeGoalCreated, userID, goal.ID, map[string]any{
		"title":    goal.Title,
		"deadline": goal.Deadline,
	})
	if err := s.env.emit(ctx, ev); err != nil {
		return nil, err
	}
	return goal, nil
}

// Goal loads one goal.
func (s *GoalService) Goal(userID, goalID string) (*planning.Goal, error) {
	if err := checkIDs(userID, goalID); err != nil {
		return nil, err
	}
	return s.env.Repo.LoadGoal(userID, goalID)
}

// Goals lists a user's goals.
func (s *GoalService) Goals(userID string) ([]*planning.Goal, error) {
	if err := checkIDs(userID, ""); err != nil {
		return nil, err
	}
	return s.env.Repo.ListGoals(userID)
}

// Tasks lists a goal's tasks in stored order.
func (s *GoalService) Tasks(userID, goalID string) ([]planning.Task, error) {
	if err := checkIDs(userID, goalID); err != nil {
		return nil, err
	}
	return s.env.Repo.LoadTasks(userID, goalID)
}

// ImportDrafts validates drafts into a task graph and stores its tasks,
// replacing any earlier task list of the goal.
func (s *GoalService) ImportDrafts(ctx context.Context, userID, goalID string, drafts []planning.DraftTask) (*graph.TaskGraph, error) {
	if err := checkIDs(userID, goalID); err != nil {
		return nil, err
	}
	unlock := s.env.Locks.Lock(userID)
	defer unlock()

	goal, err := s.env.Repo.LoadGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	g, err := s.env.Engine.BuildGraph(*goal, drafts)
	if err != nil {
		return nil, err
	}
	if err := s.env.Repo.SaveTasks(userID, goalID, g.Tasks()); err != nil {
		return nil, fmt.Errorf("save tasks: %w", err)
	}
	s.env.Logger.InfoContext(ctx, "tasks imported", "user_id", userID, "goal_id", goalID, "count", g.Len())
	return g, nil
}

// StartTask moves a task to in_progress. Every predecessor must be completed.
func (s *GoalService) StartTask(ctx context.Context, userID, goalID, taskID string) (*planning.Task, error) {
	return s.updateTask(ctx, userID, goalID, taskID, func(t *planning.Task, byID map[string]planning.Task) error {
		guard := func(_ string, event string) bool {
			if event != planning.EventStart {
				return true
			}
			for _, dep := range t.DependsOn {
				if d, ok := byID[dep]; ok && !d.Status.IsComplete() {
					return false
				}
			}
			return true
		}
		status, err := planning.Advance(*t, planning.EventStart, guard)
		if err != nil {
			return fmt.Errorf("task %s: %w", taskID, err)
		}
		t.Status = status
		return nil
	})
}

// LogProgress records effort already spent on a task. The schedule is not
// touched; the next adjustment schedules only the remaining effort.
func (s *GoalService) LogProgress(ctx context.Context, userID, goalID, taskID string, progress planning.Estimate) (*planning.Task, error) {
	return s.updateTask(ctx, userID, goalID, taskID, func(t *planning.Task, _ map[string]planning.Task) error {
		if progress.Compare(t.Effort) > 0 {
			return fmt.Errorf("progress %s exceeds effort %s of task %s", progress, t.Effort, taskID)
		}
		t.Progress = progress
		return nil
	})
}

func (s *GoalService) updateTask(ctx context.Context, userID, goalID, taskID string, fn func(t *planning.Task, byID map[string]planning.Task) error) (*planning.Task, error) {
	if err := checkIDs(userID, goalID); err != nil {
		return nil, err
	}
	unlock := s.env.Locks.Lock(userID)
	defer unlock()

	tasks, err := s.env.Repo.LoadTasks(userID, goalID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]planning.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for i := range tasks {
		if tasks[i].ID != taskID {
			continue
		}
		from := tasks[i].Status
		if err := fn(&tasks[i], byID); err != nil {
			return nil, err
		}
		if err := s.env.Repo.SaveTasks(userID, goalID, tasks); err != nil {
			return nil, fmt.Errorf("save tasks: %w", err)
		}
		if from != tasks[i].Status {
			ev := s.env.event(events.EventTypeTaskTransitioned, userID, goalID, map[string]any{
				"task_id": taskID, "from": string(from), "to": string(tasks[i].Status),
			})
			if err := s.env.emit(ctx, ev); err != nil {
				return nil, err
			}
		}
		t := tasks[i]
		return &t, nil
	}
	return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
}

// SetCalendar validates and stores a user's availability.
func (s *GoalService) SetCalendar(userID string, cal *calendar.Calendar) error {
	if err := s.env.checkWorkspace(); err != nil {
		return err
	}
	if err := checkIDs(userID, ""); err != nil {
		return err
	}
	if err := cal.Validate(); err != nil {
		return err
	}
	unlock := s.env.Locks.Lock(userID)
	defer unlock()
	return s.env.Repo.SaveCalendar(userID, cal)
}

// Calendar loads a user's availability.
func (s *GoalService) Calendar(userID string) (*calendar.Calendar, error) {
	if err := checkIDs(userID, ""); err != nil {
		return nil, err
	}
	return s.env.Repo.LoadCalendar(userID)
}
