// Package feasibility computes earliest and latest feasible windows for every
// task with the critical-path method, over real calendar availability.
package feasibility

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
)

// DefaultHorizonPadding extends the planning horizon past the latest deadline
// so late work can still be placed and measured.
const DefaultHorizonPadding = 30 * 24 * time.Hour

// Analyzer runs the forward and backward passes.
type Analyzer struct {
	HorizonPadding time.Duration
}

// NewAnalyzer returns an analyzer with the default horizon padding.
func NewAnalyzer() *Analyzer {
	return &Analyzer{HorizonPadding: DefaultHorizonPadding}
}

// Horizon returns the span the calendar is expanded over for g: from the start
// of the anchor's day (or of the earliest fixed work) to the latest deadline
// plus padding.
func (a *Analyzer) Horizon(g *graph.TaskGraph, cal *calendar.Calendar, opts Options) Interval {
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = g.Anchor
	}
	from, to := anchor, g.CriticalDeadline()
	if to.Before(anchor) {
		to = anchor
	}
	for _, fx := range opts.Fixed {
		if fx.Start.Before(from) {
			from = fx.Start
		}
		if fx.End.After(to) {
			to = fx.End
		}
	}
	for _, seg := range opts.Reserved {
		if seg.Start.Before(from) {
			from = seg.Start
		}
		if seg.End.After(to) {
			to = seg.End
		}
	}
	for _, floor := range opts.Floors {
		if floor.After(to) {
			to = floor
		}
	}
	padding := a.HorizonPadding
	if padding <= 0 {
		padding = DefaultHorizonPadding
	}
	return Interval{Start: cal.StartOfDay(from), End: cal.StartOfDay(to.Add(padding)).AddDate(0, 0, 1)}
}

// Analyze computes a Window for every open task in g. Infeasible tasks are
// returned as Conflicts, all of them, not as an error. Errors are reserved for
// unusable input: an invalid calendar or reservations that do not fit it.
func (a *Analyzer) Analyze(g *graph.TaskGraph, cal *calendar.Calendar, opts Options) (*Analysis, error) {
	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = g.Anchor
	}
	horizon := a.Horizon(g, cal, opts)

	ledger, err := calendar.NewLedger(cal, horizon.Start, horizon.End)
	if err != nil {
		return nil, fmt.Errorf("expand calendar: %w", err)
	}
	if err := ledger.Reserve(opts.Reserved); err != nil {
		return nil, fmt.Errorf("reserve pinned work: %w", err)
	}

	inScope := func(id string) bool {
		if opts.Subset == nil {
			return true
		}
		_, fixed := opts.Fixed[id]
		return opts.Subset[id] || fixed
	}

	out := &Analysis{
		Windows: make(map[string]Window),
		Horizon: horizon,
		Anchor:  anchor,
	}

	open := false
	for _, i := range g.Order {
		task := g.Nodes[i].Task
		if task.Status.IsComplete() || !inScope(task.ID) {
			continue
		}
		out.Order = append(out.Order, task.ID)
		if _, fixed := opts.Fixed[task.ID]; !fixed && task.Remaining() > 0 {
			open = true
		}
	}
	if open && len(ledger.Periods()) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", calendar.ErrNoAvailability,
			horizon.Start.Format(time.DateOnly), horizon.End.Format(time.DateOnly))
	}

	a.forward(g, ledger, anchor, opts, out)
	a.backward(g, ledger, horizon, out)

	for _, id := range out.Order {
		w := out.Windows[id]
		// An unplaceable window's EF is the horizon end, so it always lands here.
		if w.EF.After(w.LF) {
			out.Conflicts = append(out.Conflicts, Conflict{
				TaskID:         id,
				EarliestFinish: w.EF,
				LatestFinish:   w.LF,
				Extension:      w.EF.Sub(w.LF),
				Unbounded:      w.Unplaceable,
			})
		}
	}
	out.CriticalPath = criticalPath(g, anchor, opts, out)
	for _, id := range out.CriticalPath {
		w := out.Windows[id]
		w.Critical = true
		out.Windows[id] = w
	}
	return out, nil
}

func (a *Analyzer) forward(g *graph.TaskGraph, ledger *calendar.Ledger, anchor time.Time, opts Options, out *Analysis) {
	for _, id := range out.Order {
		i, _ := g.Index(id)
		task := g.Nodes[i].Task
		w := Window{
			TaskID:   id,
			Effort:   task.Remaining(),
			Deadline: g.Deadline(i),
		}

		if fx, ok := opts.Fixed[id]; ok {
			w.ES, w.EF, w.Fixed = fx.Start, fx.End, true
			out.Windows[id] = w
			continue
		}

		from := readyAt(g, i, anchor, opts.Floors, out.Windows)
		if p, ok := ledger.Probe(from, w.Effort, ledger.To()); ok {
			w.ES, w.EF = p.Start, p.End
		} else {
			w.ES, w.EF, w.Unplaceable = from, ledger.To(), true
		}
		out.Windows[id] = w
	}
}

func (a *Analyzer) backward(g *graph.TaskGraph, ledger *calendar.Ledger, horizon Interval, out *Analysis) {
	for k := len(out.Order) - 1; k >= 0; k-- {
		id := out.Order[k]
		i, _ := g.Index(id)
		w := out.Windows[id]

		lf := w.Deadline
		for _, s := range g.Nodes[i].Succs {
			if sw, ok := out.Windows[g.Nodes[s].Task.ID]; ok && sw.LS.Before(lf) {
				lf = sw.LS
			}
		}
		w.LF = lf

		if ls, ok := ledger.ProbeBackward(lf, w.Effort, horizon.Start); ok {
			w.LS = ls
		} else {
			w.LS = lf.Add(-w.Effort)
		}
		w.Slack = w.LF.Sub(w.EF)
		out.Windows[id] = w
	}
}

// readyAt is the earliest instant node i may start: the anchor, its floor, and
// every open predecessor's earliest finish.
func readyAt(g *graph.TaskGraph, i int, anchor time.Time, floors map[string]time.Time, windows map[string]Window) time.Time {
	from := anchor
	if floor, ok := floors[g.Nodes[i].Task.ID]; ok && floor.After(from) {
		from = floor
	}
	for _, p := range g.Nodes[i].Preds {
		if pw, ok := windows[g.Nodes[p].Task.ID]; ok && pw.EF.After(from) {
			from = pw.EF
		}
	}
	return from
}

// criticalPath follows binding predecessors back from the task that finishes
// last. A predecessor binds when its earliest finish is what held the task back.
func criticalPath(g *graph.TaskGraph, anchor time.Time, opts Options, out *Analysis) []string {
	last := ""
	for _, id := range out.Order {
		w := out.Windows[id]
		if last == "" || w.EF.After(out.Windows[last].EF) {
			last = id
		}
	}
	if last == "" {
		return nil
	}

	var rev []string
	for cur := last; cur != ""; {
		rev = append(rev, cur)
		i, _ := g.Index(cur)
		base := anchor
		if floor, ok := opts.Floors[cur]; ok && floor.After(base) {
			base = floor
		}
		next := ""
		var latest time.Time
		for _, p := range g.Nodes[i].Preds {
			pid := g.Nodes[p].Task.ID
			pw, ok := out.Windows[pid]
			if !ok || pw.EF.Before(base) {
				continue
			}
			if next == "" || pw.EF.After(latest) {
				next, latest = pid, pw.EF
			}
		}
		cur = next
	}

	path := make([]string, len(rev))
	for k, id := range rev {
		path[len(rev)-1-k] = id
	}
	return path
}
