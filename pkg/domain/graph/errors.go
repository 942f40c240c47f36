package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Graph domain errors.
var (
	// ErrCyclicDependency indicates the declared dependencies contain a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrInvalidTask indicates one or more draft tasks failed normalization.
	ErrInvalidTask = errors.New("invalid task")
)

// CyclicDependencyError names the tasks forming a cycle, in dependency order.
type CyclicDependencyError struct {
	TaskIDs []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.TaskIDs) == 0 {
		return ErrCyclicDependency.Error()
	}
	path := append(append([]string(nil), e.TaskIDs...), e.TaskIDs[0])
	return "cyclic dependency: " + strings.Join(path, " -> ")
}

// Is allows errors.Is to work with CyclicDependencyError.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// Problem kinds reported by the builder.
const (
	ProblemMissingEffort     = "missing_effort"
	ProblemInvalidEffort     = "invalid_effort"
	ProblemInvalidPriority   = "invalid_priority"
	ProblemDeadlineTooEarly  = "deadline_too_early"
	ProblemNotActionable     = "not_actionable"
	ProblemUnknownDependency = "unknown_dependency"
	ProblemSelfDependency    = "self_dependency"
	ProblemDuplicateID       = "duplicate_id"
	ProblemTooManyTasks      = "too_many_tasks"
	ProblemMissingTitle      = "missing_title"
)

// Problem is one rejected aspect of one draft task.
type Problem struct {
	TaskID  string `json:"task_id,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.TaskID == "" {
		return p.Message
	}
	return p.TaskID + ": " + p.Message
}

// ValidationError collects every problem found in a draft task list.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.String())
	}
	return fmt.Sprintf("%d invalid task problem(s): %s", len(e.Problems), strings.Join(msgs, "; "))
}

// Is allows errors.Is to work with ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidTask
}

// TaskIDs returns the distinct task ids with problems, in report order.
func (e *ValidationError) TaskIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range e.Problems {
		if p.TaskID != "" && !seen[p.TaskID] {
			seen[p.TaskID] = true
			ids = append(ids, p.TaskID)
		}
	}
	return ids
}
