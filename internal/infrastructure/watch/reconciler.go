package watch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/pacer/pkg/application"
)

// Outcome is what a reconcile did to one goal.
type Outcome struct {
	UserID      string
	GoalID      string
	Invalidated []string
	Err         error
}

// Reconciler re-adapts a user's stored schedules after their calendar was
// edited on disk. It applies an empty change set, so only work whose pinned
// time no longer fits the new calendar moves.
type Reconciler struct {
	Goals     *application.GoalService
	Schedules *application.ScheduleService
	Logger    *slog.Logger
}

// Reconcile re-adapts every scheduled goal of userID. Goals without a
// schedule are skipped.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) []Outcome {
	goals, err := r.Goals.Goals(userID)
	if err != nil {
		return []Outcome{{UserID: userID, Err: err}}
	}
	var out []Outcome
	for _, g := range goals {
		res, err := r.Schedules.Adjust(ctx, userID, g.ID, nil)
		if errors.Is(err, application.ErrNoSchedule) {
			continue
		}
		o := Outcome{UserID: userID, GoalID: g.ID, Err: err}
		if err == nil {
			o.Invalidated = res.Invalidated
		}
		r.logger().InfoContext(ctx, "schedule reconciled after calendar change",
			"user_id", userID, "goal_id", g.ID, "invalidated", len(o.Invalidated), "error", err)
		out = append(out, o)
	}
	return out
}

// Handler returns a batch callback for FSWatcher that reconciles each user
// whose files under usersDir changed. report may be nil.
func (r *Reconciler) Handler(ctx context.Context, usersDir string, report func([]Outcome)) func([]ChangeEvent) {
	return func(evs []ChangeEvent) {
		for _, userID := range UsersIn(usersDir, evs) {
			outcomes := r.Reconcile(ctx, userID)
			if report != nil {
				report(outcomes)
			}
		}
	}
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
