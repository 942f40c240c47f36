// Package adapt revises an existing schedule after changes, moving only the
// tasks the changes invalidate.
package adapt

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/feasibility"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// DefaultTolerance is how much the score may worsen before a regression has
// to be explained by new unschedulable or slipping tasks.
const DefaultTolerance = 1.0

// CapacityConflict is a period where prior pinned work no longer fits the
// calendar, either over a lowered ceiling or outside the current windows.
type CapacityConflict struct {
	Period  string        `json:"period"`
	Used    time.Duration `json:"used"`
	Ceiling time.Duration `json:"ceiling"`
	TaskIDs []string      `json:"task_ids"`
}

// Regression compares the adapted schedule's score with the prior one.
type Regression struct {
	Prior     float64 `json:"prior"`
	Score     float64 `json:"score"`
	Delta     float64 `json:"delta"`
	Tolerance float64 `json:"tolerance"`
	// NewlyUnfit lists tasks that became unschedulable or started slipping.
	NewlyUnfit []string `json:"newly_unfit,omitempty"`
	// Explained is true when the delta is within tolerance or NewlyUnfit
	// accounts for it.
	Explained bool `json:"explained"`
}

// Result is an adapted schedule and what happened to get there.
type Result struct {
	Graph             *graph.TaskGraph      `json:"-"`
	Analysis          *feasibility.Analysis `json:"analysis"`
	Schedule          *schedule.Schedule    `json:"schedule"`
	Invalidated       []string              `json:"invalidated"`
	Pinned            []string              `json:"pinned"`
	CapacityConflicts []CapacityConflict    `json:"capacity_conflicts,omitempty"`
	Regression        Regression            `json:"regression"`
}

// Request is a full adaptation call.
type Request struct {
	Graph    *graph.TaskGraph
	Prior    *schedule.Schedule
	Changes  []Change
	Calendar *calendar.Calendar
	// Now, when set, re-anchors invalidated work: nothing re-timed starts before it.
	Now time.Time
	// Floors raise individual tasks' earliest start.
	Floors map[string]time.Time
	// AllowSlip places invalidated tasks past their deadlines rather than
	// leaving them unschedulable. Nil uses the adapter default.
	AllowSlip *bool
}

// Adapter applies changes to a graph and reschedules the invalidated subset.
type Adapter struct {
	Builder   *graph.Builder
	Analyzer  *feasibility.Analyzer
	Scheduler *schedule.Scheduler
	Tolerance float64
	AllowSlip bool
}

// NewAdapter wires an adapter from its collaborators.
func NewAdapter(b *graph.Builder, an *feasibility.Analyzer, s *schedule.Scheduler) *Adapter {
	return &Adapter{Builder: b, Analyzer: an, Scheduler: s, Tolerance: DefaultTolerance}
}

// Adapt applies changes to g and revises prior against cal.
func (a *Adapter) Adapt(g *graph.TaskGraph, prior *schedule.Schedule, changes []Change, cal *calendar.Calendar) (*Result, error) {
	return a.Run(Request{Graph: g, Prior: prior, Changes: changes, Calendar: cal})
}

type completion struct {
	id string
	at time.Time
}

// Run performs an adaptation.
func (a *Adapter) Run(req Request) (*Result, error) {
	goal := req.Graph.Goal
	tasks := req.Graph.Tasks()
	pos := make(map[string]int, len(tasks))
	for i, t := range tasks {
		pos[t.ID] = i
	}
	removed := make(map[string]bool)
	seeds := make(map[string]bool)
	floors := make(map[string]time.Time)
	for id, f := range req.Floors {
		floors[id] = f
	}
	var completions []completion
	var problems []graph.Problem

	start := req.Graph.Anchor
	if req.Now.After(start) {
		start = req.Now
	}

	lookup := func(id string) (*planning.Task, error) {
		i, ok := pos[id]
		if !ok || removed[id] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, id)
		}
		return &tasks[i], nil
	}

	for _, c := range req.Changes {
		switch v := c.(type) {
		case TaskAdded:
			t := v.Task.Clone()
			if t.GoalID == "" {
				t.GoalID = goal.ID
			}
			if t.Status == "" {
				t.Status = planning.StatusPending
			}
			t, found := a.Builder.Normalize(t, start)
			problems = append(problems, found...)
			if i, ok := pos[t.ID]; ok && removed[t.ID] {
				tasks[i] = t
				delete(removed, t.ID)
			} else {
				pos[t.ID] = len(tasks)
				tasks = append(tasks, t)
			}
			seeds[t.ID] = true

		case TaskRemoved:
			if _, err := lookup(v.TaskID); err != nil {
				return nil, err
			}
			removed[v.TaskID] = true

		case DeadlineChanged:
			if v.TaskID == "" {
				if v.Deadline == nil {
					return nil, fmt.Errorf("%w: goal deadline cannot be cleared", ErrInvalidChange)
				}
				goal.Deadline = *v.Deadline
				for _, t := range tasks {
					if !t.HasOwnDeadline() {
						seeds[t.ID] = true
					}
				}
				continue
			}
			t, err := lookup(v.TaskID)
			if err != nil {
				return nil, err
			}
			if v.Deadline == nil {
				t.Deadline = nil
			} else {
				d := *v.Deadline
				t.Deadline = &d
			}
			seeds[t.ID] = true

		case EffortReestimated:
			t, err := lookup(v.TaskID)
			if err != nil {
				return nil, err
			}
			switch {
			case v.Effort.IsZero():
				problems = append(problems, graph.Problem{TaskID: t.ID, Kind: graph.ProblemMissingEffort, Message: "effort estimate is required"})
			case v.Effort.Duration() <= t.Progress.Duration():
				problems = append(problems, graph.Problem{TaskID: t.ID, Kind: graph.ProblemInvalidEffort,
					Message: fmt.Sprintf("effort %s does not exceed logged progress %s", v.Effort, t.Progress)})
			}
			t.Effort = v.Effort
			seeds[t.ID] = true

		case DependenciesChanged:
			t, err := lookup(v.TaskID)
			if err != nil {
				return nil, err
			}
			t.DependsOn = append([]string(nil), v.DependsOn...)
			seeds[t.ID] = true

		case TaskMarkedOverdue:
			t, err := lookup(v.TaskID)
			if err != nil {
				return nil, err
			}
			if !v.Progress.IsZero() {
				t.Progress = v.Progress
			}
			t.Status = planning.StatusOverdue
			if !v.At.IsZero() && v.At.After(floors[t.ID]) {
				floors[t.ID] = v.At
			}
			seeds[t.ID] = true

		case TaskCompleted:
			t, err := lookup(v.TaskID)
			if err != nil {
				return nil, err
			}
			t.Status = planning.StatusCompleted
			if !v.At.IsZero() {
				at := v.At
				t.CompletedAt = &at
			}
			completions = append(completions, completion{id: t.ID, at: v.At})

		case nil:
			return nil, fmt.Errorf("%w: nil", ErrUnknownChange)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownChange, c.Kind())
		}
	}

	if len(problems) > 0 {
		return nil, &graph.ValidationError{Problems: problems}
	}

	kept := make([]planning.Task, 0, len(tasks))
	for _, t := range tasks {
		if removed[t.ID] {
			continue
		}
		deps := t.DependsOn[:0:0]
		for _, d := range t.DependsOn {
			if !removed[d] {
				deps = append(deps, d)
			}
		}
		t.DependsOn = deps
		kept = append(kept, t)
	}

	g, err := a.Builder.Rebuild(goal, kept, req.Graph.Anchor)
	if err != nil {
		return nil, err
	}
	prior := req.Prior
	if prior == nil {
		prior = &schedule.Schedule{GoalID: goal.ID, Anchor: g.Anchor}
	}
	priorByID := prior.AssignmentMap()

	// Late completion: dependents already placed before the actual finish
	// must move behind it.
	for _, c := range completions {
		if c.at.IsZero() {
			continue
		}
		for _, s := range g.Successors(c.id) {
			if pa, ok := priorByID[s]; ok && pa.Start.Before(c.at) {
				seeds[s] = true
				if c.at.After(floors[s]) {
					floors[s] = c.at
				}
			}
		}
	}

	open := func(id string) bool {
		t, ok := g.Task(id)
		return ok && !t.Status.IsComplete()
	}
	for _, id := range g.IDs() {
		if !open(id) {
			continue
		}
		if _, ok := priorByID[id]; !ok {
			seeds[id] = true
		}
	}

	dirty := closeOver(g, seeds, open)

	candidates := make(map[string]schedule.Assignment)
	for _, id := range g.IDs() {
		if pa, ok := priorByID[id]; ok && open(id) && !dirty[id] {
			candidates[id] = pa
		}
	}

	conflicts, broken, err := a.checkPins(g, req.Calendar, candidates)
	if err != nil {
		return nil, err
	}
	if len(broken) > 0 {
		for id := range broken {
			seeds[id] = true
		}
		dirty = closeOver(g, seeds, open)
	}
	pins := make(map[string]schedule.Assignment)
	fixed := make(map[string]feasibility.Interval)
	var reserved []calendar.Segment
	for id, pa := range candidates {
		if dirty[id] {
			continue
		}
		pins[id] = pa
		fixed[id] = feasibility.Interval{Start: pa.Start, End: pa.End}
		reserved = append(reserved, pa.Segments...)
	}

	anchor := prior.Anchor
	if anchor.IsZero() {
		anchor = g.Anchor
	}
	if req.Now.After(anchor) {
		anchor = req.Now
		for id := range dirty {
			if req.Now.After(floors[id]) {
				floors[id] = req.Now
			}
		}
	}

	analysis, err := a.Analyzer.Analyze(g, req.Calendar, feasibility.Options{
		Anchor:   anchor,
		Floors:   floors,
		Fixed:    fixed,
		Reserved: reserved,
		Subset:   dirty,
	})
	if err != nil {
		return nil, err
	}

	allowSlip := a.AllowSlip
	if req.AllowSlip != nil {
		allowSlip = *req.AllowSlip
	}
	sreq := schedule.Request{
		Graph:     g,
		Analysis:  analysis,
		Calendar:  req.Calendar,
		Anchor:    anchor,
		Pinned:    pins,
		Subset:    dirty,
		Floors:    floors,
		AllowSlip: allowSlip,
	}
	next, err := a.Scheduler.Run(sreq)
	if err != nil {
		return nil, err
	}
	reg := a.regression(prior, next)
	if reg.Delta > reg.Tolerance {
		alt, err := a.retainPrior(sreq, priorByID)
		if err != nil {
			return nil, err
		}
		if alt != nil && alt.Score < next.Score {
			next = alt
			reg = a.regression(prior, next)
		}
	}
	next.ID, next.UserID, next.Version = prior.ID, prior.UserID, prior.Version

	return &Result{
		Graph:             g,
		Analysis:          analysis,
		Schedule:          next,
		Invalidated:       g.Sorted(dirty),
		Pinned:            g.Sorted(keys(pins)),
		CapacityConflicts: conflicts,
		Regression:        reg,
	}, nil
}

// retainPrior reschedules req.Subset while keeping every invalidated task's
// prior placement that still holds: same remaining effort, done by its new
// latest finish, not before its floor, after its predecessors, and in free
// time. It returns nil when nothing could be kept or the result fails Check.
func (a *Adapter) retainPrior(req schedule.Request, prior map[string]schedule.Assignment) (*schedule.Schedule, error) {
	g, an := req.Graph, req.Analysis
	ledger, err := calendar.NewLedger(req.Calendar, an.Horizon.Start, an.Horizon.End)
	if err != nil {
		return nil, fmt.Errorf("expand calendar: %w", err)
	}

	held := make(map[string]schedule.Assignment, len(req.Pinned))
	for _, id := range g.IDs() {
		pin, ok := req.Pinned[id]
		if !ok {
			continue
		}
		if ledger.Reserve(pin.Segments) != nil {
			return nil, nil
		}
		held[id] = pin
	}

	subset := make(map[string]bool, len(req.Subset))
	for id := range req.Subset {
		subset[id] = true
	}
	kept := 0
	for _, id := range an.Order {
		if !req.Subset[id] {
			continue
		}
		pa, ok := prior[id]
		if !ok {
			continue
		}
		task, _ := g.Task(id)
		w := an.Windows[id]
		if pa.Effort != task.Remaining() || pa.End.After(w.LF) || pa.Start.Before(req.Anchor) {
			continue
		}
		if floor, ok := req.Floors[id]; ok && pa.Start.Before(floor) {
			continue
		}
		if !predecessorsDone(g, id, pa.Start, held) {
			continue
		}
		if ledger.Reserve(pa.Segments) != nil {
			continue
		}
		c := pa.Clone()
		c.EarliestFinish, c.LatestFinish, c.Deadline = w.EF, w.LF, w.Deadline
		c.Priority = task.Priority
		held[id] = c
		delete(subset, id)
		kept++
	}
	if kept == 0 {
		return nil, nil
	}

	req.Pinned, req.Subset = held, subset
	out, err := a.Scheduler.Run(req)
	if err != nil {
		return nil, err
	}
	if len(out.Check(g, req.Calendar)) > 0 {
		return nil, nil
	}
	return out, nil
}

// predecessorsDone reports whether every predecessor of id is finished or held
// and ending by start.
func predecessorsDone(g *graph.TaskGraph, id string, start time.Time, held map[string]schedule.Assignment) bool {
	for _, pid := range g.Predecessors(id) {
		pt, _ := g.Task(pid)
		if pt.Status.IsComplete() {
			if pt.CompletedAt != nil && pt.CompletedAt.After(start) {
				return false
			}
			continue
		}
		pa, ok := held[pid]
		if !ok || pa.End.After(start) {
			return false
		}
	}
	return true
}

// closeOver marks seeds and their transitive dependents, keeping only open tasks.
func closeOver(g *graph.TaskGraph, seeds map[string]bool, open func(string) bool) map[string]bool {
	ids := make([]string, 0, len(seeds))
	for id := range seeds {
		ids = append(ids, id)
	}
	all := g.Dependents(ids...)
	out := make(map[string]bool, len(all))
	for id := range all {
		if open(id) {
			out[id] = true
		}
	}
	return out
}

// checkPins finds prior assignments the current calendar can no longer hold.
// Over-ceiling periods break every pin touching them; the rest must still sit
// in free time, in start order.
func (a *Adapter) checkPins(g *graph.TaskGraph, cal *calendar.Calendar, pins map[string]schedule.Assignment) ([]CapacityConflict, map[string]bool, error) {
	broken := make(map[string]bool)
	if len(pins) == 0 {
		return nil, broken, nil
	}

	fixed := make(map[string]feasibility.Interval, len(pins))
	for id, p := range pins {
		fixed[id] = feasibility.Interval{Start: p.Start, End: p.End}
	}
	horizon := a.Analyzer.Horizon(g, cal, feasibility.Options{Fixed: fixed})
	ledger, err := calendar.NewLedger(cal, horizon.Start, horizon.End)
	if err != nil {
		return nil, nil, fmt.Errorf("expand calendar: %w", err)
	}

	used := make(map[string]time.Duration)
	touching := make(map[string]map[string]bool)
	for id, p := range pins {
		for _, s := range p.Segments {
			used[s.Period] += s.Duration()
			if touching[s.Period] == nil {
				touching[s.Period] = make(map[string]bool)
			}
			touching[s.Period][id] = true
		}
	}

	var conflicts []CapacityConflict
	for _, period := range sortedKeys(used) {
		if used[period] <= ledger.Ceiling(period) {
			continue
		}
		ids := g.Sorted(touching[period])
		for _, id := range ids {
			broken[id] = true
		}
		conflicts = append(conflicts, CapacityConflict{Period: period, Used: used[period], Ceiling: ledger.Ceiling(period), TaskIDs: ids})
	}

	order := make([]string, 0, len(pins))
	for id := range pins {
		if !broken[id] {
			order = append(order, id)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		pi, pj := pins[order[i]], pins[order[j]]
		if !pi.Start.Equal(pj.Start) {
			return pi.Start.Before(pj.Start)
		}
		return order[i] < order[j]
	})
	for _, id := range order {
		p := pins[id]
		err := ledger.Reserve(p.Segments)
		if err == nil {
			continue
		}
		if !errors.Is(err, calendar.ErrOutsideAvailability) && !errors.Is(err, calendar.ErrCapacityExceeded) {
			return nil, nil, err
		}
		broken[id] = true
		period := ""
		if len(p.Segments) > 0 {
			period = p.Segments[0].Period
		}
		conflicts = append(conflicts, CapacityConflict{Period: period, Used: p.Effort, Ceiling: ledger.Ceiling(period), TaskIDs: []string{id}})
	}
	return conflicts, broken, nil
}

func (a *Adapter) regression(prior, next *schedule.Schedule) Regression {
	weights := next.Weights
	r := Regression{
		Prior:     weights.Score(prior),
		Score:     next.Score,
		Tolerance: a.Tolerance,
	}
	r.Delta = r.Score - r.Prior

	wasUnfit := make(map[string]bool)
	for _, u := range prior.Unschedulable {
		wasUnfit[u.TaskID] = true
	}
	wasSlipping := make(map[string]bool)
	for _, s := range prior.MustSlip {
		wasSlipping[s.TaskID] = true
	}
	for _, u := range next.Unschedulable {
		if !wasUnfit[u.TaskID] {
			r.NewlyUnfit = append(r.NewlyUnfit, u.TaskID)
		}
	}
	for _, s := range next.MustSlip {
		if !wasSlipping[s.TaskID] {
			r.NewlyUnfit = append(r.NewlyUnfit, s.TaskID)
		}
	}
	r.Explained = r.Delta <= r.Tolerance || len(r.NewlyUnfit) > 0
	return r
}

func keys[V any](m map[string]V) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
