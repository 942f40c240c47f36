package adapt

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

// Change kinds.
const (
	KindTaskAdded           = "task_added"
	KindTaskRemoved         = "task_removed"
	KindDeadlineChanged     = "deadline_changed"
	KindEffortReestimated   = "effort_reestimated"
	KindDependenciesChanged = "dependencies_changed"
	KindTaskMarkedOverdue   = "task_marked_overdue"
	KindTaskCompleted       = "task_completed"
)

// Change is one edit to a goal's tasks that may move the schedule.
type Change interface {
	Kind() string
}

// TaskAdded inserts a new task.
type TaskAdded struct {
	Task planning.Task
}

// TaskRemoved drops a task; its dependents lose that constraint.
type TaskRemoved struct {
	TaskID string
}

// DeadlineChanged moves a task's own deadline, or the goal deadline when
// TaskID is empty. A nil Deadline clears a task's own deadline.
type DeadlineChanged struct {
	TaskID   string
	Deadline *time.Time
}

// EffortReestimated replaces a task's total effort.
type EffortReestimated struct {
	TaskID string
	Effort planning.Estimate
}

// DependenciesChanged replaces a task's predecessor list.
type DependenciesChanged struct {
	TaskID    string
	DependsOn []string
}

// TaskMarkedOverdue records logged progress on a task that fell behind.
// Its remaining work may not start before At.
type TaskMarkedOverdue struct {
	TaskID   string
	Progress planning.Estimate
	At       time.Time
}

// TaskCompleted closes a task at At, early or late.
type TaskCompleted struct {
	TaskID string
	At     time.Time
}

func (TaskAdded) Kind() string           { return KindTaskAdded }
func (TaskRemoved) Kind() string         { return KindTaskRemoved }
func (DeadlineChanged) Kind() string     { return KindDeadlineChanged }
func (EffortReestimated) Kind() string   { return KindEffortReestimated }
func (DependenciesChanged) Kind() string { return KindDependenciesChanged }
func (TaskMarkedOverdue) Kind() string   { return KindTaskMarkedOverdue }
func (TaskCompleted) Kind() string       { return KindTaskCompleted }

// ChangeRecord is the serialized envelope of a Change, used by the CLI, MCP
// tools and event payloads.
type ChangeRecord struct {
	Kind      string         `json:"kind" yaml:"kind"`
	TaskID    string         `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Task      *planning.Task `json:"task,omitempty" yaml:"task,omitempty"`
	Deadline  *time.Time     `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Effort    string         `json:"effort,omitempty" yaml:"effort,omitempty"`
	DependsOn []string       `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Progress  string         `json:"progress,omitempty" yaml:"progress,omitempty"`
	At        *time.Time     `json:"at,omitempty" yaml:"at,omitempty"`
}

// Record converts a Change to its envelope.
func Record(c Change) (ChangeRecord, error) {
	switch v := c.(type) {
	case TaskAdded:
		t := v.Task.Clone()
		return ChangeRecord{Kind: KindTaskAdded, TaskID: t.ID, Task: &t}, nil
	case TaskRemoved:
		return ChangeRecord{Kind: KindTaskRemoved, TaskID: v.TaskID}, nil
	case DeadlineChanged:
		return ChangeRecord{Kind: KindDeadlineChanged, TaskID: v.TaskID, Deadline: v.Deadline}, nil
	case EffortReestimated:
		return ChangeRecord{Kind: KindEffortReestimated, TaskID: v.TaskID, Effort: v.Effort.String()}, nil
	case DependenciesChanged:
		return ChangeRecord{Kind: KindDependenciesChanged, TaskID: v.TaskID, DependsOn: v.DependsOn}, nil
	case TaskMarkedOverdue:
		at := v.At
		return ChangeRecord{Kind: KindTaskMarkedOverdue, TaskID: v.TaskID, Progress: v.Progress.String(), At: &at}, nil
	case TaskCompleted:
		at := v.At
		return ChangeRecord{Kind: KindTaskCompleted, TaskID: v.TaskID, At: &at}, nil
	default:
		return ChangeRecord{}, fmt.Errorf("%w: %T", ErrUnknownChange, c)
	}
}

// Change converts the envelope back to a typed Change.
func (r ChangeRecord) Change() (Change, error) {
	switch r.Kind {
	case KindTaskAdded:
		if r.Task == nil {
			return nil, fmt.Errorf("%w: %s needs a task", ErrInvalidChange, r.Kind)
		}
		return TaskAdded{Task: r.Task.Clone()}, nil
	case KindTaskRemoved:
		return TaskRemoved{TaskID: r.TaskID}, nil
	case KindDeadlineChanged:
		return DeadlineChanged{TaskID: r.TaskID, Deadline: r.Deadline}, nil
	case KindEffortReestimated:
		effort, err := planning.ParseEstimate(r.Effort)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidChange, err)
		}
		return EffortReestimated{TaskID: r.TaskID, Effort: effort}, nil
	case KindDependenciesChanged:
		return DependenciesChanged{TaskID: r.TaskID, DependsOn: r.DependsOn}, nil
	case KindTaskMarkedOverdue:
		progress, err := planning.ParseEstimate(r.Progress)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidChange, err)
		}
		c := TaskMarkedOverdue{TaskID: r.TaskID, Progress: progress}
		if r.At != nil {
			c.At = *r.At
		}
		return c, nil
	case KindTaskCompleted:
		c := TaskCompleted{TaskID: r.TaskID}
		if r.At != nil {
			c.At = *r.At
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChange, r.Kind)
	}
}

// Changes converts a list of envelopes.
func Changes(records []ChangeRecord) ([]Change, error) {
	out := make([]Change, 0, len(records))
	for i, r := range records {
		c, err := r.Change()
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
