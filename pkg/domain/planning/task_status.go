package planning

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusScheduled  TaskStatus = "scheduled"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusOverdue    TaskStatus = "overdue"
)

// Task lifecycle events.
const (
	EventSchedule   = "schedule"
	EventUnschedule = "unschedule"
	EventStart      = "start"
	EventComplete   = "complete"
	EventOverdue    = "overdue"
	EventReschedule = "reschedule"
)

// validTransitions maps currentStatus -> event -> targetStatus
var validTransitions = map[TaskStatus]map[string]TaskStatus{
	StatusPending: {
		EventSchedule: StatusScheduled,
		EventStart:    StatusInProgress,
		EventComplete: StatusCompleted,
	},
	StatusScheduled: {
		EventStart:      StatusInProgress,
		EventComplete:   StatusCompleted,
		EventOverdue:    StatusOverdue,
		EventUnschedule: StatusPending,
		EventSchedule:   StatusScheduled,
	},
	StatusInProgress: {
		EventComplete: StatusCompleted,
		EventOverdue:  StatusOverdue,
	},
	StatusOverdue: {
		EventReschedule: StatusScheduled,
		EventStart:      StatusInProgress,
		EventComplete:   StatusCompleted,
		EventUnschedule: StatusPending,
	},
	StatusCompleted: {},
}

// AllTaskStatuses returns all valid task statuses.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		StatusPending,
		StatusScheduled,
		StatusInProgress,
		StatusCompleted,
		StatusOverdue,
	}
}

// IsValid returns true if the status is a valid task status.
func (s TaskStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// CanTransitionWith returns true if the given event can trigger a transition from this status.
func (s TaskStatus) CanTransitionWith(event string) bool {
	_, ok := validTransitions[s][event]
	return ok
}

// TransitionWith returns the target status for a given event, or an error if not allowed.
func (s TaskStatus) TransitionWith(event string) (TaskStatus, error) {
	transitions, ok := validTransitions[s]
	if !ok {
		return s, fmt.Errorf("no transitions defined for status: %s", s)
	}

	target, ok := transitions[event]
	if !ok {
		return s, fmt.Errorf("event '%s' not allowed from status '%s'", event, s)
	}

	return target, nil
}

// ValidEvents returns the events that can be triggered from this status, sorted.
func (s TaskStatus) ValidEvents() []string {
	var events []string
	for event := range validTransitions[s] {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// IsComplete returns true if no work remains.
func (s TaskStatus) IsComplete() bool {
	return s == StatusCompleted
}

// IsSchedulable returns true if the engine should place the task.
func (s TaskStatus) IsSchedulable() bool {
	return s != StatusCompleted
}

// DisplayName returns a human-readable display name for the status.
func (s TaskStatus) DisplayName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusScheduled:
		return "Scheduled"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusOverdue:
		return "Overdue"
	default:
		return string(s)
	}
}

// ParseTaskStatus parses a string into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}

// MarshalJSON implements json.Marshaler interface.
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Accept empty string as pending for backward compatibility
	if str == "" {
		*s = StatusPending
		return nil
	}

	status, err := ParseTaskStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}
