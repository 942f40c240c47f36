package calendar

import (
	"fmt"
	"sort"
	"time"
)

// Placement is a candidate or committed run of segments for one piece of work.
type Placement struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Segments []Segment `json:"segments"`
}

// Effort sums the placed segments.
func (p Placement) Effort() time.Duration {
	var total time.Duration
	for _, s := range p.Segments {
		total += s.Duration()
	}
	return total
}

// Ledger tracks free calendar time and per-period usage over a horizon.
// Every placement goes through it, which keeps the capacity invariant local.
type Ledger struct {
	cal     *Calendar
	from    time.Time
	to      time.Time
	free    []Segment
	used    map[string]time.Duration
	ceiling map[string]time.Duration
}

// NewLedger expands the calendar over [from, to).
func NewLedger(cal *Calendar, from, to time.Time) (*Ledger, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: horizon %s to %s is empty", ErrNoAvailability, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	slots, ceilings, err := cal.Expand(from, to)
	if err != nil {
		return nil, err
	}
	free := make([]Segment, 0, len(slots))
	for _, s := range slots {
		free = append(free, Segment(s))
	}
	return &Ledger{
		cal:     cal,
		from:    from,
		to:      to,
		free:    free,
		used:    make(map[string]time.Duration),
		ceiling: ceilings,
	}, nil
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		cal:     l.cal,
		from:    l.from,
		to:      l.to,
		free:    append([]Segment(nil), l.free...),
		used:    make(map[string]time.Duration, len(l.used)),
		ceiling: make(map[string]time.Duration, len(l.ceiling)),
	}
	for k, v := range l.used {
		c.used[k] = v
	}
	for k, v := range l.ceiling {
		c.ceiling[k] = v
	}
	return c
}

// From returns the start of the ledger horizon.
func (l *Ledger) From() time.Time { return l.from }

// To returns the end of the ledger horizon.
func (l *Ledger) To() time.Time { return l.to }

// Calendar returns the calendar the ledger was expanded from.
func (l *Ledger) Calendar() *Calendar { return l.cal }

// Used returns the effort already reserved in a period.
func (l *Ledger) Used(period string) time.Duration { return l.used[period] }

// Ceiling returns a period's effort ceiling. Periods without availability have zero.
func (l *Ledger) Ceiling(period string) time.Duration { return l.ceiling[period] }

// Remaining returns the capacity still available in a period.
func (l *Ledger) Remaining(period string) time.Duration {
	r := l.ceiling[period] - l.used[period]
	if r < 0 {
		return 0
	}
	return r
}

// Periods lists every period with availability, in order.
func (l *Ledger) Periods() []string {
	out := make([]string, 0, len(l.ceiling))
	for p := range l.ceiling {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Reserve claims the given segments. Either all segments are applied or none:
// each must lie inside free time and their totals must fit every period's ceiling.
func (l *Ledger) Reserve(segs []Segment) error {
	if len(segs) == 0 {
		return nil
	}
	sorted := append([]Segment(nil), segs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	requested := make(map[string]time.Duration)
	for i, s := range sorted {
		if !s.Start.Before(s.End) {
			return fmt.Errorf("%w: empty segment at %s", ErrOutsideAvailability, s.Start.Format(time.RFC3339))
		}
		if i > 0 && s.Start.Before(sorted[i-1].End) {
			return fmt.Errorf("%w: segments overlap at %s", ErrOutsideAvailability, s.Start.Format(time.RFC3339))
		}
		if l.containing(s) < 0 {
			return fmt.Errorf("%w: %s to %s", ErrOutsideAvailability, s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
		}
		requested[s.Period] += s.Duration()
	}
	for period, req := range requested {
		if l.used[period]+req > l.ceiling[period] {
			return &CapacityError{Period: period, Used: l.used[period], Requested: req, Ceiling: l.ceiling[period]}
		}
	}

	for _, s := range sorted {
		l.carve(s)
		l.used[s.Period] += s.Duration()
	}
	return nil
}

// Commit reserves a placement produced by Probe.
func (l *Ledger) Commit(p Placement) error {
	return l.Reserve(p.Segments)
}

// Probe finds the earliest placement of effort starting no sooner than from
// and ending no later than until. Work may be split across windows and days.
// It does not modify the ledger.
func (l *Ledger) Probe(from time.Time, effort time.Duration, until time.Time) (Placement, bool) {
	if effort <= 0 {
		return Placement{Start: from, End: from}, !from.After(until)
	}

	pending := make(map[string]time.Duration)
	remaining := effort
	var segs []Segment
	for _, f := range l.free {
		if !f.End.After(from) {
			continue
		}
		if !f.Start.Before(until) {
			break
		}
		start := f.Start
		if start.Before(from) {
			start = from
		}
		avail := f.End.Sub(start)
		if capLeft := l.Remaining(f.Period) - pending[f.Period]; capLeft < avail {
			avail = capLeft
		}
		if avail <= 0 {
			continue
		}
		take := remaining
		if take > avail {
			take = avail
		}
		seg := Segment{Start: start, End: start.Add(take), Period: f.Period}
		if seg.End.After(until) {
			return Placement{}, false
		}
		segs = append(segs, seg)
		pending[f.Period] += take
		remaining -= take
		if remaining == 0 {
			return Placement{Start: segs[0].Start, End: seg.End, Segments: segs}, true
		}
	}
	return Placement{}, false
}

// ProbeBackward finds the latest start at which effort can run and still finish
// by until, without starting before notBefore. It does not modify the ledger.
func (l *Ledger) ProbeBackward(until time.Time, effort time.Duration, notBefore time.Time) (time.Time, bool) {
	if effort <= 0 {
		return until, !until.Before(notBefore)
	}

	pending := make(map[string]time.Duration)
	remaining := effort
	for i := len(l.free) - 1; i >= 0; i-- {
		f := l.free[i]
		if !f.Start.Before(until) {
			continue
		}
		if !f.End.After(notBefore) {
			break
		}
		end := f.End
		if end.After(until) {
			end = until
		}
		avail := end.Sub(f.Start)
		if capLeft := l.Remaining(f.Period) - pending[f.Period]; capLeft < avail {
			avail = capLeft
		}
		if avail <= 0 {
			continue
		}
		take := remaining
		if take > avail {
			take = avail
		}
		start := end.Add(-take)
		if start.Before(notBefore) {
			return time.Time{}, false
		}
		pending[f.Period] += take
		remaining -= take
		if remaining == 0 {
			return start, true
		}
	}
	return time.Time{}, false
}

// FreeWithin reports how much effort could still be placed in [from, until).
func (l *Ledger) FreeWithin(from, until time.Time) time.Duration {
	perPeriod := make(map[string]time.Duration)
	for _, f := range l.free {
		start, end := f.Start, f.End
		if start.Before(from) {
			start = from
		}
		if end.After(until) {
			end = until
		}
		if start.Before(end) {
			perPeriod[f.Period] += end.Sub(start)
		}
	}
	var total time.Duration
	for period, span := range perPeriod {
		if r := l.Remaining(period); r < span {
			span = r
		}
		total += span
	}
	return total
}

func (l *Ledger) containing(s Segment) int {
	i := sort.Search(len(l.free), func(i int) bool { return l.free[i].End.After(s.Start) })
	if i < len(l.free) && !l.free[i].Start.After(s.Start) && !l.free[i].End.Before(s.End) && l.free[i].Period == s.Period {
		return i
	}
	return -1
}

func (l *Ledger) carve(s Segment) {
	i := l.containing(s)
	if i < 0 {
		return
	}
	f := l.free[i]
	var repl []Segment
	if f.Start.Before(s.Start) {
		repl = append(repl, Segment{Start: f.Start, End: s.Start, Period: f.Period})
	}
	if s.End.Before(f.End) {
		repl = append(repl, Segment{Start: s.End, End: f.End, Period: f.Period})
	}
	next := make([]Segment, 0, len(l.free)+1)
	next = append(next, l.free[:i]...)
	next = append(next, repl...)
	next = append(next, l.free[i+1:]...)
	l.free = next
}
