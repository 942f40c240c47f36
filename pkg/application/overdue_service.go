package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/felixgeelhaar/pacer/pkg/domain"
)

// DefaultSweepConcurrency bounds how many users a sweep works on at once.
const DefaultSweepConcurrency = 4

// OverdueService finds tasks whose assigned time has passed and recovers them.
type OverdueService struct {
	env         Env
	schedules   *ScheduleService
	Concurrency int
}

// NewOverdueService shares the schedule service's environment and locks.
func NewOverdueService(schedules *ScheduleService) *OverdueService {
	return &OverdueService{env: schedules.env, schedules: schedules, Concurrency: DefaultSweepConcurrency}
}

// Detect lists the open tasks of a goal whose assignment ended before now.
func (s *OverdueService) Detect(userID, goalID string) ([]string, error) {
	if err := checkIDs(userID, goalID); err != nil {
		return nil, err
	}
	sched, err := s.env.Repo.LoadSchedule(userID, goalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tasks, err := s.env.Repo.LoadTasks(userID, goalID)
	if err != nil {
		return nil, err
	}
	return detectOverdue(tasks, sched, s.env.now()), nil
}

// GoalSweep is the sweep outcome for one goal.
type GoalSweep struct {
	UserID   string   `json:"user_id"`
	GoalID   string   `json:"goal_id"`
	Overdue  []string `json:"overdue,omitempty"`
	MustSlip []string `json:"must_slip,omitempty"`
	Err      string   `json:"error,omitempty"`
}

// SweepReport lists every goal that had overdue work.
type SweepReport struct {
	Goals  []GoalSweep `json:"goals"`
	Failed int         `json:"failed"`
}

// Sweep recovers overdue work for every user in the workspace. Users are
// processed concurrently, each under its own lock; goals of one user run in
// sequence. A failing goal is reported and does not stop the sweep.
func (s *OverdueService) Sweep(ctx context.Context) (*SweepReport, error) {
	users, err := s.env.Repo.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var (
		mu     sync.Mutex
		report SweepReport
	)
	n := s.Concurrency
	if n <= 0 {
		n = DefaultSweepConcurrency
	}
	p := pool.New().WithContext(ctx).WithMaxGoroutines(n)
	for _, userID := range users {
		userID := userID
		p.Go(func(ctx context.Context) error {
			var (
				catcher panics.Catcher
				results []GoalSweep
			)
			catcher.Try(func() {
				results = s.sweepUser(ctx, userID)
			})
			if r := catcher.Recovered(); r != nil {
				results = append(results, GoalSweep{UserID: userID, Err: r.AsError().Error()})
			}
			mu.Lock()
			report.Goals = append(report.Goals, results...)
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Goals, func(i, j int) bool {
		a, b := report.Goals[i], report.Goals[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.GoalID < b.GoalID
	})
	for _, g := range report.Goals {
		if g.Err != "" {
			report.Failed++
		}
	}
	s.env.Logger.InfoContext(ctx, "overdue sweep finished",
		"users", len(users), "goals_recovered", len(report.Goals)-report.Failed, "failed", report.Failed)
	return &report, nil
}

func (s *OverdueService) sweepUser(ctx context.Context, userID string) []GoalSweep {
	goals, err := s.env.Repo.ListGoals(userID)
	if err != nil {
		return []GoalSweep{{UserID: userID, Err: err.Error()}}
	}

	unlock := s.env.Locks.Lock(userID)
	defer unlock()

	var out []GoalSweep
	for _, goal := range goals {
		if ctx.Err() != nil {
			break
		}
		overdue, err := s.Detect(userID, goal.ID)
		if err != nil {
			out = append(out, GoalSweep{UserID: userID, GoalID: goal.ID, Err: err.Error()})
			continue
		}
		if len(overdue) == 0 {
			continue
		}
		res, err := s.schedules.recoverLocked(ctx, userID, goal.ID, overdue)
		if err != nil {
			s.env.Logger.ErrorContext(ctx, "overdue recovery failed", "user_id", userID, "goal_id", goal.ID, "error", err)
			out = append(out, GoalSweep{UserID: userID, GoalID: goal.ID, Overdue: overdue, Err: err.Error()})
			continue
		}
		gs := GoalSweep{UserID: userID, GoalID: goal.ID, Overdue: res.Overdue}
		for _, sl := range res.MustSlip {
			gs.MustSlip = append(gs.MustSlip, sl.TaskID)
		}
		out = append(out, gs)
	}
	return out
}
