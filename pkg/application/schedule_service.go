package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/felixgeelhaar/pacer/pkg/domain/feasibility"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/recovery"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
	"github.com/google/uuid"
)

// ScheduleService runs the engine against stored goals. Every call holds the
// user's lock from load to save.
type ScheduleService struct {
	env Env
}

func NewScheduleService(env Env) *ScheduleService {
	return &ScheduleService{env: env.WithDefaults()}
}

// Generated is the outcome of a fresh schedule.
type Generated struct {
	Schedule    *schedule.Schedule    `json:"schedule"`
	Analysis    *feasibility.Analysis `json:"analysis"`
	Transitions []Transition          `json:"transitions,omitempty"`
}

// Adjusted is the outcome of an adjustment.
type Adjusted struct {
	*adapt.Result
	Transitions []Transition `json:"transitions,omitempty"`
}

// Recovered is the outcome of overdue recovery.
type Recovered struct {
	*recovery.Result
	Transitions []Transition `json:"transitions,omitempty"`
}

// snapshot is everything stored for one goal.
type snapshot struct {
	goal  *planning.Goal
	tasks []planning.Task
	cal   *calendar.Calendar
	prior *schedule.Schedule
}

func (s *ScheduleService) load(userID, goalID string, needPrior bool) (*snapshot, error) {
	if err := checkIDs(userID, goalID); err != nil {
		return nil, err
	}
	goal, err := s.env.Repo.LoadGoal(userID, goalID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.env.Repo.LoadTasks(userID, goalID)
	if err != nil {
		return nil, err
	}
	cal, err := s.env.Repo.LoadCalendar(userID)
	if err != nil {
		return nil, err
	}
	prior, err := s.env.Repo.LoadSchedule(userID, goalID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if needPrior {
			return nil, fmt.Errorf("goal %s: %w", goalID, ErrNoSchedule)
		}
		prior = nil
	case err != nil:
		return nil, err
	}
	return &snapshot{goal: goal, tasks: tasks, cal: cal, prior: prior}, nil
}

// Generate builds a schedule from scratch, replacing any stored one.
// Placement starts at the later of now and the goal's creation.
func (s *ScheduleService) Generate(ctx context.Context, userID, goalID string) (*Generated, error) {
	unlock := s.env.Locks.Lock(userID)
	defer unlock()

	snap, err := s.load(userID, goalID, false)
	if err != nil {
		return nil, err
	}
	if len(snap.tasks) == 0 {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNoTasks)
	}

	anchor := s.env.now()
	if snap.goal.CreatedAt.After(anchor) {
		anchor = snap.goal.CreatedAt
	}
	g, err := s.env.Engine.Graph(*snap.goal, snap.tasks, anchor)
	if err != nil {
		return nil, err
	}
	out, err := s.env.Engine.GenerateSchedule(g, snap.cal)
	if err != nil {
		return nil, err
	}

	sched := out.Schedule
	sched.ID, sched.UserID = uuid.NewString(), userID
	expected := 0
	if snap.prior != nil {
		sched.ID, expected = snap.prior.ID, snap.prior.Version
	}
	sched.GeneratedAt = s.env.Clock().UTC()

	before := statusesOf(snap.tasks)
	tasks := g.Tasks()
	moves := syncStatuses(tasks, before, sched)
	if err := s.persist(userID, goalID, nil, tasks, sched, expected); err != nil {
		return nil, err
	}

	s.env.Logger.InfoContext(ctx, "schedule generated",
		"user_id", userID, "goal_id", goalID, "version", sched.Version,
		"assigned", len(sched.Assignments), "unschedulable", len(sched.Unschedulable),
		"conflicts", len(out.Analysis.Conflicts))

	evs := []*events.Event{s.env.event(events.EventTypeScheduleGenerated, userID, goalID, map[string]any{
		"schedule_id":   sched.ID,
		"version":       sched.Version,
		"score":         sched.Score,
		"critical_path": out.Analysis.CriticalPath,
		"conflicts":     out.Analysis.ConflictIDs(),
	})}
	evs = append(evs, s.outcomeEvents(userID, goalID, sched, moves)...)
	if err := s.env.emit(ctx, evs...); err != nil {
		return nil, err
	}
	return &Generated{Schedule: sched, Analysis: out.Analysis, Transitions: moves}, nil
}

// Schedule returns the stored schedule of a goal.
func (s *ScheduleService) Schedule(userID, goalID string) (*schedule.Schedule, error) {
	if err := checkIDs(userID, goalID); err != nil {
		return nil, err
	}
	sched, err := s.env.Repo.LoadSchedule(userID, goalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNoSchedule)
	}
	return sched, err
}

// Analyze runs the feasibility pass on the stored tasks without saving anything.
func (s *ScheduleService) Analyze(userID, goalID string) (*feasibility.Analysis, error) {
	unlock := s.env.Locks.Lock(userID)
	defer unlock()

	snap, err := s.load(userID, goalID, false)
	if err != nil {
		return nil, err
	}
	anchor := s.env.now()
	if snap.prior != nil {
		anchor = snap.prior.Anchor
	}
	g, err := s.env.Engine.Graph(*snap.goal, snap.tasks, anchor)
	if err != nil {
		return nil, err
	}
	return s.env.Engine.Analyze(g, snap.cal)
}

// Adjust applies changes to a goal and revises its stored schedule. Added
// tasks without an id get a generated one.
func (s *ScheduleService) Adjust(ctx context.Context, userID, goalID string, records []adapt.ChangeRecord) (*Adjusted, error) {
	for i := range records {
		if records[i].Kind == adapt.KindTaskAdded && records[i].Task != nil {
			if records[i].Task.ID == "" {
				records[i].Task.ID = domain.GenerateTaskID(goalID)
			}
			if err := domain.ValidateTaskID(records[i].Task.ID); err != nil {
				return nil, err
			}
			records[i].TaskID = records[i].Task.ID
		}
	}
	changes, err := adapt.Changes(records)
	if err != nil {
		return nil, err
	}

	unlock := s.env.Locks.Lock(userID)
	defer unlock()

	snap, err := s.load(userID, goalID, true)
	if err != nil {
		return nil, err
	}
	g, err := s.env.Engine.Graph(*snap.goal, snap.tasks, snap.prior.Anchor)
	if err != nil {
		return nil, err
	}
	res, err := s.env.Engine.AdjustSchedule(g, snap.prior, changes, snap.cal, s.env.now())
	if err != nil {
		return nil, err
	}

	sched := res.Schedule
	sched.GeneratedAt = s.env.Clock().UTC()
	tasks := res.Graph.Tasks()
	moves := syncStatuses(tasks, statusesOf(snap.tasks), sched)
	if err := s.persist(userID, goalID, s.changedGoal(snap.goal, res.Graph), tasks, sched, snap.prior.Version); err != nil {
		return nil, err
	}

	s.env.Logger.InfoContext(ctx, "schedule adjusted",
		"user_id", userID, "goal_id", goalID, "version", sched.Version,
		"changes", len(changes), "invalidated", len(res.Invalidated),
		"score_delta", res.Regression.Delta, "explained", res.Regression.Explained)
	if !res.Regression.Explained {
		s.env.Logger.WarnContext(ctx, "schedule score regressed beyond tolerance",
			"user_id", userID, "goal_id", goalID,
			"prior", res.Regression.Prior, "new", res.Regression.Score)
	}

	kinds := make([]string, 0, len(changes))
	for _, c := range changes {
		kinds = append(kinds, c.Kind())
	}
	evs := []*events.Event{s.env.event(events.EventTypeScheduleAdjusted, userID, goalID, map[string]any{
		"schedule_id":        sched.ID,
		"version":            sched.Version,
		"changes":            kinds,
		"invalidated":        res.Invalidated,
		"capacity_conflicts": len(res.CapacityConflicts),
		"score":              sched.Score,
		"score_delta":        res.Regression.Delta,
		"explained":          res.Regression.Explained,
	})}
	evs = append(evs, s.outcomeEvents(userID, goalID, sched, moves)...)
	if err := s.env.emit(ctx, evs...); err != nil {
		return nil, err
	}
	return &Adjusted{Result: res, Transitions: moves}, nil
}

// Recover re-anchors overdue tasks at now. With no ids, every task whose
// assigned end has passed is treated as overdue.
func (s *ScheduleService) Recover(ctx context.Context, userID, goalID string, overdue []string) (*Recovered, error) {
	unlock := s.env.Locks.Lock(userID)
	defer unlock()
	return s.recoverLocked(ctx, userID, goalID, overdue)
}

func (s *ScheduleService) recoverLocked(ctx context.Context, userID, goalID string, overdue []string) (*Recovered, error) {
	snap, err := s.load(userID, goalID, true)
	if err != nil {
		return nil, err
	}
	now := s.env.now()
	if len(overdue) == 0 {
		overdue = detectOverdue(snap.tasks, snap.prior, now)
	}
	g, err := s.env.Engine.Graph(*snap.goal, snap.tasks, snap.prior.Anchor)
	if err != nil {
		return nil, err
	}
	res, err := s.env.Engine.RecoverOverdue(g, snap.prior, overdue, now, snap.cal)
	if err != nil {
		return nil, err
	}

	sched := res.Schedule
	sched.GeneratedAt = s.env.Clock().UTC()
	tasks := res.Graph.Tasks()
	moves := syncStatuses(tasks, statusesOf(snap.tasks), sched)
	if err := s.persist(userID, goalID, nil, tasks, sched, snap.prior.Version); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"schedule_id": sched.ID,
		"version":     sched.Version,
		"overdue":     res.Overdue,
		"invalidated": res.Invalidated,
		"must_slip":   len(res.MustSlip),
	}
	if res.SuggestedGoalDeadline != nil {
		payload["suggested_goal_deadline"] = res.SuggestedGoalDeadline.Format(time.RFC3339)
	}
	s.env.Logger.InfoContext(ctx, "overdue tasks recovered",
		"user_id", userID, "goal_id", goalID, "overdue", len(res.Overdue), "must_slip", len(res.MustSlip))

	evs := []*events.Event{s.env.event(events.EventTypeScheduleRecovered, userID, goalID, payload)}
	evs = append(evs, s.outcomeEvents(userID, goalID, sched, moves)...)
	if err := s.env.emit(ctx, evs...); err != nil {
		return nil, err
	}
	return &Recovered{Result: res, Transitions: moves}, nil
}

// changedGoal returns the adapted goal when its deadline moved.
func (s *ScheduleService) changedGoal(before *planning.Goal, g *graph.TaskGraph) *planning.Goal {
	if g.Goal.Deadline.Equal(before.Deadline) {
		return nil
	}
	goal := g.Goal
	return &goal
}

func (s *ScheduleService) persist(userID, goalID string, goal *planning.Goal, tasks []planning.Task, sched *schedule.Schedule, expected int) error {
	sched.UserID, sched.GoalID = userID, goalID
	if sched.ID == "" {
		sched.ID = uuid.NewString()
	}
	// The schedule goes first: a version conflict must leave tasks untouched.
	if err := s.env.Repo.SaveSchedule(sched, expected); err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	if goal != nil {
		if err := s.env.Repo.SaveGoal(goal); err != nil {
			return fmt.Errorf("save goal: %w", err)
		}
	}
	if err := s.env.Repo.SaveTasks(userID, goalID, tasks); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func (s *ScheduleService) outcomeEvents(userID, goalID string, sched *schedule.Schedule, moves []Transition) []*events.Event {
	var evs []*events.Event
	for _, u := range sched.Unschedulable {
		evs = append(evs, s.env.event(events.EventTypeTaskUnschedulable, userID, goalID, map[string]any{
			"task_id": u.TaskID, "reason": u.Reason,
		}))
	}
	for _, sl := range sched.MustSlip {
		evs = append(evs, s.env.event(events.EventTypeTaskMustSlip, userID, goalID, map[string]any{
			"task_id":   sl.TaskID,
			"deadline":  sl.Deadline.Format(time.RFC3339),
			"finish":    sl.Finish.Format(time.RFC3339),
			"extension": sl.Extension.String(),
		}))
	}
	for _, m := range moves {
		evs = append(evs, s.env.event(events.EventTypeTaskTransitioned, userID, goalID, map[string]any{
			"task_id": m.TaskID, "from": string(m.From), "to": string(m.To),
		}))
	}
	return evs
}

// detectOverdue lists open tasks whose assignment ended before now.
func detectOverdue(tasks []planning.Task, sched *schedule.Schedule, now time.Time) []string {
	placed := sched.AssignmentMap()
	var out []string
	for _, t := range tasks {
		if t.Status.IsComplete() {
			continue
		}
		if a, ok := placed[t.ID]; ok && a.End.Before(now) {
			out = append(out, t.ID)
		}
	}
	return out
}
