package feasibility

import (
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
)

// Interval is a closed-open span of wall-clock time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Window holds the critical-path figures for one task. Slack is LF - EF.
type Window struct {
	TaskID   string        `json:"task_id"`
	ES       time.Time     `json:"earliest_start"`
	EF       time.Time     `json:"earliest_finish"`
	LS       time.Time     `json:"latest_start"`
	LF       time.Time     `json:"latest_finish"`
	Slack    time.Duration `json:"slack"`
	Effort   time.Duration `json:"effort"`
	Deadline time.Time     `json:"deadline"`
	Critical bool          `json:"critical"`
	Fixed    bool          `json:"fixed,omitempty"`
	// Unplaceable is set when the forward pass found no room before the
	// horizon; EF is then the horizon end and only a lower bound.
	Unplaceable bool `json:"unplaceable,omitempty"`
}

// Feasible reports whether the window admits a deadline-respecting placement.
func (w Window) Feasible() bool {
	return !w.Unplaceable && !w.EF.After(w.LF)
}

// Conflict is an infeasible task and the smallest deadline extension that
// would make its window non-empty. When the task found no room before the
// horizon, Unbounded is set and Extension is only a lower bound.
type Conflict struct {
	TaskID         string        `json:"task_id"`
	EarliestFinish time.Time     `json:"earliest_finish"`
	LatestFinish   time.Time     `json:"latest_finish"`
	Extension      time.Duration `json:"extension"`
	Unbounded      bool          `json:"unbounded,omitempty"`
}

// Options narrow or seed an analysis.
type Options struct {
	// Anchor is the earliest instant any work may start. Zero uses the graph anchor.
	Anchor time.Time
	// Floors raise individual tasks' earliest start.
	Floors map[string]time.Time
	// Fixed tasks keep the given interval instead of being placed.
	Fixed map[string]Interval
	// Reserved is capacity already held, typically by pinned assignments.
	Reserved []calendar.Segment
	// Subset restricts analysis to these tasks plus fixed ones. Nil means all.
	Subset map[string]bool
}

// Analysis is the output of a feasibility pass.
type Analysis struct {
	Windows      map[string]Window `json:"windows"`
	Conflicts    []Conflict        `json:"conflicts,omitempty"`
	CriticalPath []string          `json:"critical_path,omitempty"`
	Horizon      Interval          `json:"horizon"`
	Anchor       time.Time         `json:"anchor"`
	// Order lists analyzed task ids topologically.
	Order []string `json:"order"`
}

// Feasible reports whether no task is infeasible.
func (a *Analysis) Feasible() bool {
	return len(a.Conflicts) == 0
}

// Window returns a task's window.
func (a *Analysis) Window(id string) (Window, bool) {
	w, ok := a.Windows[id]
	return w, ok
}

// ConflictIDs lists the infeasible task ids.
func (a *Analysis) ConflictIDs() []string {
	out := make([]string, 0, len(a.Conflicts))
	for _, c := range a.Conflicts {
		out = append(out, c.TaskID)
	}
	return out
}
