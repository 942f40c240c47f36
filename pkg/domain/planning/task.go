package planning

import (
	"time"
)

// Task is a unit of work inside a goal. Title and Description are opaque to
// the scheduling engine.
type Task struct {
	ID          string       `json:"id" yaml:"id"`
	GoalID      string       `json:"goal_id" yaml:"goal_id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Effort      Estimate     `json:"effort" yaml:"effort"`
	Progress    Estimate     `json:"progress,omitempty" yaml:"progress,omitempty"` // logged effort so far
	Priority    TaskPriority `json:"priority" yaml:"priority"`
	DependsOn   []string     `json:"depends_on" yaml:"depends_on"`
	Deadline    *time.Time   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Status      TaskStatus   `json:"status" yaml:"status"`
	CompletedAt *time.Time   `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Remaining returns the effort still to be scheduled.
func (t Task) Remaining() time.Duration {
	left := t.Effort.Duration() - t.Progress.Duration()
	if left < 0 {
		return 0
	}
	return left
}

// DeadlineWithin returns the task's own deadline, or the goal deadline if unset.
func (t Task) DeadlineWithin(goal Goal) time.Time {
	if t.Deadline != nil && !t.Deadline.IsZero() {
		return *t.Deadline
	}
	return goal.Deadline
}

// HasOwnDeadline reports whether the task carries a deadline of its own.
func (t Task) HasOwnDeadline() bool {
	return t.Deadline != nil && !t.Deadline.IsZero()
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	if t.DependsOn != nil {
		c.DependsOn = append([]string(nil), t.DependsOn...)
	}
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return c
}

// DraftTask is the shape a decomposition collaborator proposes. Nothing in it
// is trusted until the graph builder has normalized it.
type DraftTask struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Estimate    string     `json:"estimate" yaml:"estimate"`
	Priority    string     `json:"priority,omitempty" yaml:"priority,omitempty"`
	DependsOn   []string   `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}
