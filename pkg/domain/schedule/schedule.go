// Package schedule assigns concrete calendar time to tasks and scores the result.
package schedule

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

// Unfit reasons.
const (
	ReasonInfeasible       = "infeasible"
	ReasonNoWindow         = "no_window"
	ReasonPredecessorUnfit = "predecessor_unschedulable"
	ReasonNoAvailability   = "no_availability"
)

// Assignment places one task. It records the earliest finish and deadline it
// was placed against so the schedule can be scored on its own.
type Assignment struct {
	TaskID         string                `json:"task_id"`
	Start          time.Time             `json:"start"`
	End            time.Time             `json:"end"`
	Segments       []calendar.Segment    `json:"segments"`
	Effort         time.Duration         `json:"effort"`
	EarliestFinish time.Time             `json:"earliest_finish"`
	LatestFinish   time.Time             `json:"latest_finish"`
	Deadline       time.Time             `json:"deadline"`
	Priority       planning.TaskPriority `json:"priority"`
}

// SlackConsumed is how far past its earliest finish the task ends.
func (a Assignment) SlackConsumed() time.Duration {
	if d := a.End.Sub(a.EarliestFinish); d > 0 {
		return d
	}
	return 0
}

// Lateness is how far past its deadline the task ends.
func (a Assignment) Lateness() time.Duration {
	if d := a.End.Sub(a.Deadline); d > 0 {
		return d
	}
	return 0
}

// Spare is the buffer left between the end and the deadline.
func (a Assignment) Spare() time.Duration {
	return a.Deadline.Sub(a.End)
}

// Clone returns a deep copy.
func (a Assignment) Clone() Assignment {
	c := a
	c.Segments = append([]calendar.Segment(nil), a.Segments...)
	return c
}

// Unfit is a task that could not be placed, with the reason.
type Unfit struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// Slip is a task placed past its deadline and the extension that would cover it.
type Slip struct {
	TaskID    string        `json:"task_id"`
	Deadline  time.Time     `json:"deadline"`
	Finish    time.Time     `json:"finish"`
	Extension time.Duration `json:"extension"`
}

// Schedule maps tasks to time. Schedules are values: every engine call returns
// a new one.
type Schedule struct {
	ID            string       `json:"id,omitempty"`
	UserID        string       `json:"user_id,omitempty"`
	GoalID        string       `json:"goal_id"`
	Version       int          `json:"version"`
	Anchor        time.Time    `json:"anchor"`
	GeneratedAt   time.Time    `json:"generated_at,omitempty"`
	Assignments   []Assignment `json:"assignments"`
	Unschedulable []Unfit      `json:"unschedulable,omitempty"`
	MustSlip      []Slip       `json:"must_slip,omitempty"`
	Score         float64      `json:"score"`
	Weights       Weights      `json:"weights"`
}

// Assignment returns the assignment for a task.
func (s *Schedule) Assignment(id string) (Assignment, bool) {
	for _, a := range s.Assignments {
		if a.TaskID == id {
			return a, true
		}
	}
	return Assignment{}, false
}

// AssignmentMap indexes assignments by task id.
func (s *Schedule) AssignmentMap() map[string]Assignment {
	out := make(map[string]Assignment, len(s.Assignments))
	for _, a := range s.Assignments {
		out[a.TaskID] = a
	}
	return out
}

// IsUnschedulable reports whether a task is in the unschedulable list.
func (s *Schedule) IsUnschedulable(id string) bool {
	for _, u := range s.Unschedulable {
		if u.TaskID == id {
			return true
		}
	}
	return false
}

// SlipFor returns the slip record for a task.
func (s *Schedule) SlipFor(id string) (Slip, bool) {
	for _, sl := range s.MustSlip {
		if sl.TaskID == id {
			return sl, true
		}
	}
	return Slip{}, false
}

// Feasible reports whether every task was placed by its deadline.
func (s *Schedule) Feasible() bool {
	return len(s.Unschedulable) == 0 && len(s.MustSlip) == 0
}

// Finish returns the latest assignment end.
func (s *Schedule) Finish() time.Time {
	var end time.Time
	for _, a := range s.Assignments {
		if a.End.After(end) {
			end = a.End
		}
	}
	return end
}

// Rescore recomputes Score from the schedule's own weights.
func (s *Schedule) Rescore() {
	s.Score = s.Weights.Score(s)
}

// Clone returns a deep copy.
func (s *Schedule) Clone() *Schedule {
	c := *s
	c.Assignments = make([]Assignment, len(s.Assignments))
	for i, a := range s.Assignments {
		c.Assignments[i] = a.Clone()
	}
	c.Unschedulable = append([]Unfit(nil), s.Unschedulable...)
	c.MustSlip = append([]Slip(nil), s.MustSlip...)
	return &c
}

func (s *Schedule) sortAssignments() {
	sort.Slice(s.Assignments, func(i, j int) bool {
		a, b := s.Assignments[i], s.Assignments[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.TaskID < b.TaskID
	})
}
