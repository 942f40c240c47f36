package planning

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration.
// These must remain untyped string constants for statekit.StateID compatibility.
const (
	StatePending    = "pending"
	StateScheduled  = "scheduled"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateOverdue    = "overdue"
)

// init validates at startup that FSM state constants match TaskStatus values.
func init() {
	stateMap := map[string]TaskStatus{
		StatePending:    StatusPending,
		StateScheduled:  StatusScheduled,
		StateInProgress: StatusInProgress,
		StateCompleted:  StatusCompleted,
		StateOverdue:    StatusOverdue,
	}

	for fsmState, taskStatus := range stateMap {
		if fsmState != string(taskStatus) {
			panic(fmt.Sprintf("FSM state %q does not match TaskStatus %q - constants are out of sync", fsmState, taskStatus))
		}
	}
}

// TaskContext carries state data.
type TaskContext struct {
	TaskID string
	Guard  func(taskID string, event string) bool
}

// TaskStateMachine drives a single task through its lifecycle.
type TaskStateMachine struct {
	interpreter *statekit.Interpreter[TaskContext]
}

// NewTaskStateMachine builds a machine starting at initialState. The guard is
// consulted for start and complete; nil allows everything.
func NewTaskStateMachine(initialState string, taskID string, guard func(string, string) bool) (*TaskStateMachine, error) {
	if guard == nil {
		guard = func(string, string) bool { return true }
	}

	builder := statekit.NewMachine[TaskContext]("task-machine").
		WithInitial(statekit.StateID(initialState)).
		WithContext(TaskContext{
			TaskID: taskID,
			Guard:  guard,
		}).
		WithGuard("dependencyGuard", func(ctx TaskContext, e statekit.Event) bool {
			return ctx.Guard(ctx.TaskID, string(e.Type))
		})

	builder.State(StatePending).
		On(EventSchedule).Target(StateScheduled).
		On(EventStart).Target(StateInProgress).Guard("dependencyGuard").
		On(EventComplete).Target(StateCompleted).Guard("dependencyGuard").
		Done()

	builder.State(StateScheduled).
		On(EventStart).Target(StateInProgress).Guard("dependencyGuard").
		On(EventComplete).Target(StateCompleted).Guard("dependencyGuard").
		On(EventOverdue).Target(StateOverdue).
		On(EventUnschedule).Target(StatePending).
		Done()

	builder.State(StateInProgress).
		On(EventComplete).Target(StateCompleted).Guard("dependencyGuard").
		On(EventOverdue).Target(StateOverdue).
		Done()

	builder.State(StateOverdue).
		On(EventReschedule).Target(StateScheduled).
		On(EventStart).Target(StateInProgress).Guard("dependencyGuard").
		On(EventComplete).Target(StateCompleted).Guard("dependencyGuard").
		On(EventUnschedule).Target(StatePending).
		Done()

	builder.State(StateCompleted).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &TaskStateMachine{interpreter: interpreter}, nil
}

// Transition sends event to the machine. Re-scheduling an already scheduled
// task is a no-op rather than an error.
func (sm *TaskStateMachine) Transition(event string) error {
	before := sm.Current()
	if before == StateScheduled && event == EventSchedule {
		return nil
	}
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if sm.Current() != before {
		return nil
	}
	return fmt.Errorf("the action '%s' is not allowed while the task is in the '%s' state", event, before)
}

// Current returns the current state id.
func (sm *TaskStateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// CurrentStatus returns the current state as a TaskStatus value object.
func (sm *TaskStateMachine) CurrentStatus() TaskStatus {
	return TaskStatus(sm.Current())
}

// CanTransition checks if the given event is valid for the current state.
func (sm *TaskStateMachine) CanTransition(event string) bool {
	return sm.CurrentStatus().CanTransitionWith(event)
}

// Advance moves a task value through the machine and returns the new status.
func Advance(task Task, event string, guard func(string, string) bool) (TaskStatus, error) {
	status := task.Status
	if status == "" {
		status = StatusPending
	}
	fsm, err := NewTaskStateMachine(string(status), task.ID, guard)
	if err != nil {
		return status, err
	}
	if err := fsm.Transition(event); err != nil {
		return status, &TransitionError{TaskID: task.ID, From: status, Event: event}
	}
	return fsm.CurrentStatus(), nil
}

// TransitionError reports an event the task's current status does not accept.
type TransitionError struct {
	TaskID string
	From   TaskStatus
	Event  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("task %s: the action '%s' is not allowed while the task is in the '%s' state", e.TaskID, e.Event, e.From)
}
