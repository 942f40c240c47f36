package planning

import (
	"encoding/json"
	"fmt"
)

// TaskPriority is an ordered enum.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// priorityOrder defines the ordering of priorities (higher order = higher priority)
var priorityOrder = map[TaskPriority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityCritical: 4,
}

// AllTaskPriorities returns all valid task priorities, lowest first.
func AllTaskPriorities() []TaskPriority {
	return []TaskPriority{
		PriorityLow,
		PriorityMedium,
		PriorityHigh,
		PriorityCritical,
	}
}

// IsValid returns true if the priority is a valid task priority.
func (p TaskPriority) IsValid() bool {
	_, ok := priorityOrder[p]
	return ok
}

// String returns the string representation of the priority.
func (p TaskPriority) String() string {
	return string(p)
}

// Order returns the numeric order of the priority (higher = more important).
func (p TaskPriority) Order() int {
	if order, ok := priorityOrder[p]; ok {
		return order
	}
	return 0
}

// Weight is the lateness multiplier used by the schedule score: 1, 2, 4, 8.
func (p TaskPriority) Weight() float64 {
	order := p.Order()
	if order == 0 {
		order = PriorityMedium.Order()
	}
	return float64(int(1) << (order - 1))
}

// Compare returns -1 if p < other, 0 if equal, 1 if p > other.
func (p TaskPriority) Compare(other TaskPriority) int {
	thisOrder := p.Order()
	otherOrder := other.Order()

	switch {
	case thisOrder < otherOrder:
		return -1
	case thisOrder > otherOrder:
		return 1
	default:
		return 0
	}
}

// IsHigherThan returns true if this priority is higher than the other.
func (p TaskPriority) IsHigherThan(other TaskPriority) bool {
	return p.Compare(other) > 0
}

// DisplayName returns a human-readable display name for the priority.
func (p TaskPriority) DisplayName() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return string(p)
	}
}

// ParseTaskPriority parses a string into a TaskPriority. Empty input yields the default.
func ParseTaskPriority(s string) (TaskPriority, error) {
	if s == "" {
		return DefaultTaskPriority(), nil
	}
	priority := TaskPriority(s)
	if !priority.IsValid() {
		return "", fmt.Errorf("invalid task priority: %s", s)
	}
	return priority, nil
}

// DefaultTaskPriority returns the default priority for new tasks.
func DefaultTaskPriority() TaskPriority {
	return PriorityMedium
}

// MarshalJSON implements json.Marshaler interface.
func (p TaskPriority) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (p *TaskPriority) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	priority, err := ParseTaskPriority(str)
	if err != nil {
		return err
	}
	*p = priority
	return nil
}
