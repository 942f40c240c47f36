package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
)

// Violation kinds found by Check.
const (
	ViolationDependency = "dependency"
	ViolationCapacity   = "capacity"
	ViolationCalendar   = "calendar"
	ViolationDeadline   = "deadline"
	ViolationEffort     = "effort"
)

// Violation is a broken schedule invariant.
type Violation struct {
	Kind    string `json:"kind"`
	TaskID  string `json:"task_id,omitempty"`
	Period  string `json:"period,omitempty"`
	Message string `json:"message"`
}

// Check verifies s against g and cal: every task starts after its placed
// predecessors finish, no period is over capacity, all work sits in
// availability, and tasks not flagged as slipping meet their deadlines.
func (s *Schedule) Check(g *graph.TaskGraph, cal *calendar.Calendar) []Violation {
	var out []Violation
	byID := s.AssignmentMap()

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var segs []calendar.Segment
	used := make(map[string]time.Duration)
	for _, id := range ids {
		a := byID[id]
		for _, pred := range g.Predecessors(id) {
			if pa, ok := byID[pred]; ok && a.Start.Before(pa.End) {
				out = append(out, Violation{
					Kind:    ViolationDependency,
					TaskID:  id,
					Message: fmt.Sprintf("starts %s before %s finishes %s", a.Start.Format(time.RFC3339), pred, pa.End.Format(time.RFC3339)),
				})
			}
		}
		var total time.Duration
		for _, seg := range a.Segments {
			total += seg.Duration()
			used[seg.Period] += seg.Duration()
		}
		if total != a.Effort {
			out = append(out, Violation{Kind: ViolationEffort, TaskID: id, Message: fmt.Sprintf("segments hold %s of %s effort", total, a.Effort)})
		}
		if a.End.After(a.Deadline) {
			if _, slipping := s.SlipFor(id); !slipping {
				out = append(out, Violation{Kind: ViolationDeadline, TaskID: id, Message: fmt.Sprintf("ends %s after deadline %s", a.End.Format(time.RFC3339), a.Deadline.Format(time.RFC3339))})
			}
		}
		segs = append(segs, a.Segments...)
	}
	if len(segs) == 0 {
		return out
	}

	from, to := segs[0].Start, segs[0].End
	for _, seg := range segs {
		if seg.Start.Before(from) {
			from = seg.Start
		}
		if seg.End.After(to) {
			to = seg.End
		}
	}
	ledger, err := calendar.NewLedger(cal, cal.StartOfDay(from), cal.StartOfDay(to).AddDate(0, 0, 1))
	if err != nil {
		return append(out, Violation{Kind: ViolationCalendar, Message: err.Error()})
	}

	periods := make([]string, 0, len(used))
	for p := range used {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	for _, p := range periods {
		if used[p] > ledger.Ceiling(p) {
			out = append(out, Violation{Kind: ViolationCapacity, Period: p, Message: fmt.Sprintf("%s used over %s ceiling", used[p], ledger.Ceiling(p))})
		}
	}

	// Reserve only catches the first problem, but capacity is already
	// covered above; what remains is overlap and out-of-window work.
	if err := ledger.Reserve(segs); err != nil && !errors.Is(err, calendar.ErrCapacityExceeded) {
		out = append(out, Violation{Kind: ViolationCalendar, Message: err.Error()})
	}
	return out
}
