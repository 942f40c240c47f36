// Package recovery re-anchors overdue work at the current time and reports
// which tasks can no longer meet their deadlines.
package recovery

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

var (
	// ErrNothingOverdue indicates no task ids were given.
	ErrNothingOverdue = errors.New("no overdue tasks given")
	// ErrTaskCompleted indicates a completed task was named as overdue.
	ErrTaskCompleted = errors.New("task already completed")
)

// Result is an adapted schedule plus slip guidance. The goal deadline is never
// changed here; SuggestedGoalDeadline is advice for whoever owns that call.
type Result struct {
	*adapt.Result
	Overdue               []string        `json:"overdue"`
	MustSlip              []schedule.Slip `json:"must_slip,omitempty"`
	SuggestedGoalDeadline *time.Time      `json:"suggested_goal_deadline,omitempty"`
}

// Recoverer specializes the adapter for overdue tasks.
type Recoverer struct {
	Adapter *adapt.Adapter
}

// NewRecoverer returns a recoverer using a.
func NewRecoverer(a *adapt.Adapter) *Recoverer {
	return &Recoverer{Adapter: a}
}

// RecoverOverdue moves every overdue task and its transitive dependents to
// start no earlier than now, schedules remaining effort only, and lets tasks
// run past their deadlines so the needed extension can be measured.
func (r *Recoverer) RecoverOverdue(g *graph.TaskGraph, prior *schedule.Schedule, overdue []string, now time.Time, cal *calendar.Calendar) (*Result, error) {
	if len(overdue) == 0 {
		return nil, ErrNothingOverdue
	}
	changes := make([]adapt.Change, 0, len(overdue))
	for _, id := range overdue {
		t, ok := g.Task(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", adapt.ErrUnknownTask, id)
		}
		if t.Status.IsComplete() {
			return nil, fmt.Errorf("%w: %s", ErrTaskCompleted, id)
		}
		changes = append(changes, adapt.TaskMarkedOverdue{TaskID: id, Progress: t.Progress, At: now})
	}

	slip := true
	res, err := r.Adapter.Run(adapt.Request{
		Graph:     g,
		Prior:     prior,
		Changes:   changes,
		Calendar:  cal,
		Now:       now,
		AllowSlip: &slip,
	})
	if err != nil {
		return nil, err
	}

	out := &Result{Result: res, Overdue: append([]string(nil), overdue...), MustSlip: res.Schedule.MustSlip}
	var worst time.Duration
	for _, s := range res.Schedule.MustSlip {
		t, ok := res.Graph.Task(s.TaskID)
		if !ok || t.HasOwnDeadline() {
			continue
		}
		if s.Extension > worst {
			worst = s.Extension
		}
	}
	if worst > 0 {
		d := res.Graph.Goal.Deadline.Add(worst)
		out.SuggestedGoalDeadline = &d
	}
	return out, nil
}
