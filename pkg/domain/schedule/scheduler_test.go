package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/feasibility"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

func at(d, h int) time.Time {
	return time.Date(2026, 3, d, h, 0, 0, 0, time.UTC)
}

func morningCalendar() *calendar.Calendar {
	return calendar.Uniform(4*time.Hour, calendar.MustParseWindow("09:00-13:00"))
}

func plan(t *testing.T, deadline time.Time, drafts ...planning.DraftTask) (*graph.TaskGraph, *feasibility.Analysis) {
	t.Helper()
	goal := planning.Goal{ID: "g", Title: "goal", Deadline: deadline, CreatedAt: at(1, 9)}
	g, err := (&graph.Builder{}).Build(goal, drafts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	an, err := feasibility.NewAnalyzer().Analyze(g, morningCalendar(), feasibility.Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return g, an
}

func TestScheduleTwoTaskExample(t *testing.T) {
	g, an := plan(t, at(10, 23),
		planning.DraftTask{ID: "T1", Title: "T1", Estimate: "2h"},
		planning.DraftTask{ID: "T2", Title: "T2", Estimate: "3h", DependsOn: []string{"T1"}},
	)
	s, err := NewScheduler(Weights{}).Schedule(g, an, morningCalendar())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !s.Feasible() {
		t.Fatalf("expected a feasible schedule, got unfit=%v slip=%v", s.Unschedulable, s.MustSlip)
	}

	t1, _ := s.Assignment("T1")
	t2, _ := s.Assignment("T2")
	if !t1.Start.Equal(at(1, 9)) || !t1.End.Equal(at(1, 11)) {
		t.Errorf("T1 = %s..%s, want day 1 09:00..11:00", t1.Start, t1.End)
	}
	if !t2.Start.Equal(at(1, 11)) || !t2.End.Equal(at(2, 10)) {
		t.Errorf("T2 = %s..%s, want day 1 11:00..day 2 10:00", t2.Start, t2.End)
	}
	if len(t2.Segments) != 2 {
		t.Errorf("T2 should span two days: %+v", t2.Segments)
	}
	if t2.Spare() < 8*24*time.Hour {
		t.Errorf("spare = %s, want at least 8 days", t2.Spare())
	}
	if s.Score != 0 {
		t.Errorf("score = %v, want 0 for earliest placement", s.Score)
	}
	if v := s.Check(g, morningCalendar()); len(v) != 0 {
		t.Errorf("violations: %+v", v)
	}
}

func TestScheduleParallelTasksShareCapacity(t *testing.T) {
	var drafts []planning.DraftTask
	for i := 0; i < 6; i++ {
		drafts = append(drafts, planning.DraftTask{ID: fmt.Sprintf("p%d", i), Title: "p", Estimate: "3h"})
	}
	drafts = append(drafts, planning.DraftTask{ID: "join", Title: "join", Estimate: "2h", DependsOn: []string{"p0", "p3", "p5"}})
	g, an := plan(t, at(14, 23), drafts...)

	s, err := NewScheduler(DefaultWeights()).Schedule(g, an, morningCalendar())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(s.Assignments) != 7 {
		t.Fatalf("placed %d tasks, unfit %v", len(s.Assignments), s.Unschedulable)
	}
	if v := s.Check(g, morningCalendar()); len(v) != 0 {
		t.Errorf("violations: %+v", v)
	}
	used := map[string]time.Duration{}
	for _, a := range s.Assignments {
		for _, seg := range a.Segments {
			used[seg.Period] += seg.Duration()
		}
	}
	for period, d := range used {
		if d > 4*time.Hour {
			t.Errorf("%s over capacity: %s", period, d)
		}
	}
	if s.Score <= 0 {
		t.Error("contended tasks should consume slack")
	}
}

func TestScheduleMarksUnschedulableAndContinues(t *testing.T) {
	dl := at(1, 12)
	g, an := plan(t, at(10, 23),
		planning.DraftTask{ID: "tight", Title: "tight", Estimate: "4h", Deadline: &dl},
		planning.DraftTask{ID: "after", Title: "after", Estimate: "1h", DependsOn: []string{"tight"}},
		planning.DraftTask{ID: "free", Title: "free", Estimate: "1h"},
	)
	s, err := NewScheduler(DefaultWeights()).Schedule(g, an, morningCalendar())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !s.IsUnschedulable("tight") || !s.IsUnschedulable("after") {
		t.Fatalf("unschedulable = %+v", s.Unschedulable)
	}
	for _, u := range s.Unschedulable {
		if u.TaskID == "after" && u.Reason != ReasonPredecessorUnfit {
			t.Errorf("after reason = %s", u.Reason)
		}
		if u.TaskID == "tight" && u.Reason != ReasonInfeasible {
			t.Errorf("tight reason = %s", u.Reason)
		}
	}
	if _, ok := s.Assignment("free"); !ok {
		t.Error("independent task should still be scheduled")
	}
	if s.Score != 2000 {
		t.Errorf("score = %v, want 2000", s.Score)
	}
}

func TestScheduleSlipMode(t *testing.T) {
	g, an := plan(t, at(1, 12),
		planning.DraftTask{ID: "T1", Title: "T1", Estimate: "2h"},
		planning.DraftTask{ID: "T2", Title: "T2", Estimate: "3h", DependsOn: []string{"T1"}, Priority: "high"},
	)
	s, err := NewScheduler(DefaultWeights()).Run(feasibilityRequest(g, an, true))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(s.Unschedulable) != 0 {
		t.Fatalf("slip mode should place everything: %+v", s.Unschedulable)
	}
	sl, ok := s.SlipFor("T2")
	if !ok || sl.Extension != 22*time.Hour {
		t.Fatalf("T2 slip = %+v", sl)
	}
	// T2 ends 22h late at weight 4; T1 is on time.
	if want := 10 * 4 * 22.0; s.Score != want {
		t.Errorf("score = %v, want %v", s.Score, want)
	}
	if v := s.Check(g, morningCalendar()); len(v) != 0 {
		t.Errorf("violations: %+v", v)
	}
}

func feasibilityRequest(g *graph.TaskGraph, an *feasibility.Analysis, slip bool) Request {
	return Request{Graph: g, Analysis: an, Calendar: morningCalendar(), AllowSlip: slip}
}

func TestSchedulePrefersLowSlackThenPriority(t *testing.T) {
	urgent := at(2, 13)
	g, an := plan(t, at(10, 23),
		planning.DraftTask{ID: "relaxed", Title: "r", Estimate: "4h", Priority: "critical"},
		planning.DraftTask{ID: "urgent", Title: "u", Estimate: "4h", Deadline: &urgent},
		planning.DraftTask{ID: "low", Title: "l", Estimate: "1h", Priority: "low"},
		planning.DraftTask{ID: "high", Title: "h", Estimate: "1h", Priority: "high"},
	)
	s, err := NewScheduler(DefaultWeights()).Schedule(g, an, morningCalendar())
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	u, _ := s.Assignment("urgent")
	if !u.Start.Equal(at(1, 9)) {
		t.Errorf("smallest-slack task should go first, got %s", u.Start)
	}
	h, _ := s.Assignment("high")
	l, _ := s.Assignment("low")
	if !h.Start.Before(l.Start) {
		t.Errorf("high (%s) should precede low (%s)", h.Start, l.Start)
	}
}

func TestRunCopiesPinnedAssignments(t *testing.T) {
	g, an := plan(t, at(10, 23),
		planning.DraftTask{ID: "A", Title: "A", Estimate: "2h"},
		planning.DraftTask{ID: "B", Title: "B", Estimate: "2h"},
	)
	pin := Assignment{
		TaskID:         "A",
		Start:          at(1, 9),
		End:            at(1, 11),
		Segments:       []calendar.Segment{{Start: at(1, 9), End: at(1, 11), Period: "2026-03-01"}},
		Effort:         2 * time.Hour,
		EarliestFinish: at(1, 11),
		Deadline:       at(10, 23),
		Priority:       planning.PriorityMedium,
	}
	s, err := NewScheduler(DefaultWeights()).Run(Request{
		Graph: g, Analysis: an, Calendar: morningCalendar(),
		Pinned: map[string]Assignment{"A": pin},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	a, _ := s.Assignment("A")
	if !a.Start.Equal(pin.Start) || !a.End.Equal(pin.End) {
		t.Errorf("pinned task moved to %s..%s", a.Start, a.End)
	}
	b, _ := s.Assignment("B")
	if !b.Start.Equal(at(1, 11)) {
		t.Errorf("B should take the remaining morning, got %s", b.Start)
	}
}
