package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/pacer/pkg/application"
	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/recovery"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cli *CLIError
	if errors.As(err, &cli) {
		return err
	}

	var conflict *schedule.ConflictError
	if errors.As(err, &conflict) {
		return NewCLIError(
			"schedule changed while the command ran",
			fmt.Sprintf("Run 'pacer schedule show %s' and retry", conflict.GoalID),
			err,
		)
	}

	var cycle *graph.CyclicDependencyError
	if errors.As(err, &cycle) {
		return NewCLIError("cyclic dependency detected", "Review the depends_on fields of the listed tasks", err)
	}

	var transErr *planning.TransitionError
	if errors.As(err, &transErr) {
		return NewCLIError(
			transErr.Error(),
			fmt.Sprintf("Task '%s' is '%s', check it with 'pacer task list'", transErr.TaskID, transErr.From),
			err,
		)
	}

	switch {
	case errors.Is(err, application.ErrNotInitialized):
		return NewCLIError("workspace not initialized", "Run 'pacer init' first", err)
	case errors.Is(err, application.ErrNoSchedule):
		return NewCLIError("goal has no schedule", "Run 'pacer schedule generate <goal-id>' first", err)
	case errors.Is(err, application.ErrNoTasks):
		return NewCLIError("goal has no tasks", "Run 'pacer goal decompose' or 'pacer task import' first", err)
	case errors.Is(err, application.ErrDeadlinePassed):
		return NewCLIError("goal deadline must be in the future", "Pass a later --deadline", err)
	case errors.Is(err, application.ErrInvalidDraft):
		return NewCLIError("the AI provider returned an invalid task list", "Retry, or write the tasks yourself and run 'pacer task import'", err)
	case errors.Is(err, application.ErrAIUnavailable):
		return NewCLIError("no AI provider configured", "Set ai.provider in .pacer/config.yaml or PACER_AI_PROVIDER", err)
	case errors.Is(err, graph.ErrInvalidTask):
		return NewCLIError("task list rejected", "Fix the listed problems and retry", err)
	case errors.Is(err, adapt.ErrUnknownTask):
		return NewCLIError("unknown task", "Run 'pacer task list <goal-id>' to list task ids", err)
	case errors.Is(err, adapt.ErrInvalidChange), errors.Is(err, adapt.ErrUnknownChange):
		return NewCLIError("change rejected", "Check the change kind and its fields", err)
	case errors.Is(err, recovery.ErrTaskCompleted):
		return NewCLIError("completed tasks cannot be recovered", "Leave completed task ids out of 'pacer schedule recover'", err)
	case errors.Is(err, calendar.ErrInvalidWindow), errors.Is(err, calendar.ErrNoAvailability):
		return NewCLIError("calendar rejected", "Windows look like 09:00-17:00 and must not overlap", err)
	case errors.Is(err, domain.ErrInvalidID):
		return NewCLIError("invalid id", "Ids use letters, digits, '-' and '_'", err)
	case errors.Is(err, domain.ErrNotFound):
		return NewCLIError("not found", "Run 'pacer goal list' to list goal ids", err)
	}

	return err
}
