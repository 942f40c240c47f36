package schedule

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/feasibility"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
)

// Request is a full scheduling call.
type Request struct {
	Graph    *graph.TaskGraph
	Analysis *feasibility.Analysis
	Calendar *calendar.Calendar
	// Anchor defaults to the analysis anchor.
	Anchor time.Time
	// Pinned assignments are copied unchanged and their time is reserved first.
	Pinned map[string]Assignment
	// Subset limits which analyzed tasks are placed. Nil places all of them.
	Subset map[string]bool
	Floors map[string]time.Time
	// AllowSlip lets a task finish past its latest finish, up to the horizon.
	// Tasks that end past their deadline are then reported in MustSlip.
	AllowSlip bool
}

// Scheduler does constraint-respecting list scheduling.
type Scheduler struct {
	Weights Weights
}

// NewScheduler returns a scheduler scoring with w, or the defaults if w is zero.
func NewScheduler(w Weights) *Scheduler {
	if w.IsZero() {
		w = DefaultWeights()
	}
	return &Scheduler{Weights: w}
}

// Schedule places every analyzed task of g in strict mode.
func (s *Scheduler) Schedule(g *graph.TaskGraph, analysis *feasibility.Analysis, cal *calendar.Calendar) (*Schedule, error) {
	return s.Run(Request{Graph: g, Analysis: analysis, Calendar: cal})
}

// Run places tasks one at a time. Among tasks whose predecessors are decided
// it picks the smallest slack, then the highest priority, then topological
// order, and gives it the earliest interval that fits free time and capacity.
// A task that does not fit is reported as unfit; the run continues.
func (s *Scheduler) Run(req Request) (*Schedule, error) {
	g, an := req.Graph, req.Analysis
	anchor := req.Anchor
	if anchor.IsZero() {
		anchor = an.Anchor
	}

	ledger, err := calendar.NewLedger(req.Calendar, an.Horizon.Start, an.Horizon.End)
	if err != nil {
		return nil, fmt.Errorf("expand calendar: %w", err)
	}

	out := &Schedule{GoalID: g.Goal.ID, Anchor: anchor, Weights: s.Weights}
	placed := make(map[string]Assignment)

	for _, id := range g.IDs() {
		pin, ok := req.Pinned[id]
		if !ok {
			continue
		}
		if err := ledger.Reserve(pin.Segments); err != nil {
			return nil, fmt.Errorf("reserve pinned task %s: %w", id, err)
		}
		pin = pin.Clone()
		placed[id] = pin
		out.Assignments = append(out.Assignments, pin)
		if pin.End.After(pin.Deadline) {
			out.MustSlip = append(out.MustSlip, Slip{TaskID: id, Deadline: pin.Deadline, Finish: pin.End, Extension: pin.End.Sub(pin.Deadline)})
		}
	}

	undecided := make(map[string]bool)
	for _, id := range an.Order {
		if _, pinned := req.Pinned[id]; pinned {
			continue
		}
		if req.Subset != nil && !req.Subset[id] {
			continue
		}
		undecided[id] = true
	}
	unfit := make(map[string]bool)

	for len(undecided) > 0 {
		id := s.next(g, an, undecided)
		if id == "" {
			break
		}
		delete(undecided, id)

		a, reason := s.place(req, ledger, anchor, id, placed, unfit)
		if reason != "" {
			unfit[id] = true
			out.Unschedulable = append(out.Unschedulable, Unfit{TaskID: id, Reason: reason})
			continue
		}
		placed[id] = a
		out.Assignments = append(out.Assignments, a)
		if req.AllowSlip && a.End.After(a.Deadline) {
			out.MustSlip = append(out.MustSlip, Slip{
				TaskID:    id,
				Deadline:  a.Deadline,
				Finish:    a.End,
				Extension: a.End.Sub(a.Deadline),
			})
		}
	}

	out.sortAssignments()
	out.Rescore()
	return out, nil
}

// next picks the best ready task. A task is ready when none of its
// predecessors is still undecided.
func (s *Scheduler) next(g *graph.TaskGraph, an *feasibility.Analysis, undecided map[string]bool) string {
	best, bestIdx := "", -1
	for id := range undecided {
		i, _ := g.Index(id)
		ready := true
		for _, p := range g.Nodes[i].Preds {
			if undecided[g.Nodes[p].Task.ID] {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if best == "" || s.before(g, an, i, bestIdx) {
			best, bestIdx = id, i
		}
	}
	return best
}

func (s *Scheduler) before(g *graph.TaskGraph, an *feasibility.Analysis, i, j int) bool {
	ti, tj := g.Nodes[i].Task, g.Nodes[j].Task
	wi, wj := an.Windows[ti.ID], an.Windows[tj.ID]
	if wi.Slack != wj.Slack {
		return wi.Slack < wj.Slack
	}
	if c := ti.Priority.Compare(tj.Priority); c != 0 {
		return c > 0
	}
	if g.Rank(i) != g.Rank(j) {
		return g.Rank(i) < g.Rank(j)
	}
	return ti.ID < tj.ID
}

func (s *Scheduler) place(req Request, ledger *calendar.Ledger, anchor time.Time, id string, placed map[string]Assignment, unfit map[string]bool) (Assignment, string) {
	g, an := req.Graph, req.Analysis
	i, _ := g.Index(id)
	task := g.Nodes[i].Task
	w := an.Windows[id]

	from := anchor
	if w.ES.After(from) {
		from = w.ES
	}
	if floor, ok := req.Floors[id]; ok && floor.After(from) {
		from = floor
	}
	for _, p := range g.Nodes[i].Preds {
		pid := g.Nodes[p].Task.ID
		if unfit[pid] {
			return Assignment{}, ReasonPredecessorUnfit
		}
		if pa, ok := placed[pid]; ok {
			if pa.End.After(from) {
				from = pa.End
			}
			continue
		}
		if _, open := an.Windows[pid]; open {
			return Assignment{}, ReasonPredecessorUnfit
		}
	}

	limit := w.LF
	if req.AllowSlip {
		limit = ledger.To()
	}
	p, ok := ledger.Probe(from, task.Remaining(), limit)
	if !ok {
		switch {
		case req.AllowSlip:
			return Assignment{}, ReasonNoAvailability
		case !w.Feasible():
			return Assignment{}, ReasonInfeasible
		default:
			return Assignment{}, ReasonNoWindow
		}
	}
	if err := ledger.Commit(p); err != nil {
		return Assignment{}, ReasonNoWindow
	}

	return Assignment{
		TaskID:         id,
		Start:          p.Start,
		End:            p.End,
		Segments:       p.Segments,
		Effort:         task.Remaining(),
		EarliestFinish: w.EF,
		LatestFinish:   w.LF,
		Deadline:       w.Deadline,
		Priority:       task.Priority,
	}, ""
}
