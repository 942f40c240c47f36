package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/felixgeelhaar/pacer/pkg/engine"
)

// Env carries the collaborators every service shares. Build it once with
// WithDefaults and hand the same value to every service so they share locks.
type Env struct {
	Repo       domain.WorkspaceRepository
	Engine     *engine.Engine
	Locks      *UserLocks
	Dispatcher *events.Dispatcher
	Logger     *slog.Logger
	// Clock returns the current time; nil means time.Now.
	Clock func() time.Time
	// Actor is recorded on emitted events.
	Actor string
}

// WithDefaults fills unset collaborators.
func (e Env) WithDefaults() Env {
	if e.Engine == nil {
		e.Engine = engine.New(engine.DefaultConfig())
	}
	if e.Locks == nil {
		e.Locks = NewUserLocks()
	}
	if e.Dispatcher == nil {
		e.Dispatcher = events.NewDispatcher()
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.Clock == nil {
		e.Clock = time.Now
	}
	if e.Actor == "" {
		e.Actor = "cli"
	}
	return e
}

// now returns the clock reading in UTC, truncated to the minute.
func (e Env) now() time.Time {
	return e.Clock().UTC().Truncate(time.Minute)
}

func (e Env) event(eventType, userID, goalID string, payload map[string]any) *events.Event {
	ev := events.New(eventType, userID, goalID, e.Actor, payload)
	ev.Timestamp = e.Clock().UTC()
	return ev
}

func (e Env) emit(ctx context.Context, evs ...*events.Event) error {
	for _, ev := range evs {
		if err := e.Dispatcher.Dispatch(ctx, ev); err != nil {
			return fmt.Errorf("dispatch %s: %w", ev.Type, err)
		}
	}
	return nil
}

func (e Env) checkWorkspace() error {
	if !e.Repo.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

func checkIDs(userID, goalID string) error {
	if _, err := domain.NewUserID(userID); err != nil {
		return err
	}
	if goalID == "" {
		return nil
	}
	_, err := domain.NewGoalID(goalID)
	return err
}
