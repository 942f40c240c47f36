package application

import "errors"

var (
	// ErrNoTasks is returned when scheduling a goal that has no tasks yet.
	ErrNoTasks = errors.New("goal has no tasks")
	// ErrDeadlinePassed is returned when a new goal's deadline is not in the future.
	ErrDeadlinePassed = errors.New("goal deadline is not in the future")
	// ErrNoSchedule is returned when adjusting or recovering before a schedule exists.
	ErrNoSchedule = errors.New("goal has no schedule")
	// ErrNotInitialized is returned when the workspace has not been created.
	ErrNotInitialized = errors.New("workspace not initialized")
	// ErrAIUnavailable is returned when decomposition is requested without a provider.
	ErrAIUnavailable = errors.New("no AI provider configured")
	// ErrInvalidDraft is returned when the provider's answer is not a valid task list.
	ErrInvalidDraft = errors.New("invalid draft task list")
)
