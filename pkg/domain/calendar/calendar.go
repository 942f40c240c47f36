// Package calendar models when a user can work and how much effort a day can absorb.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

// PeriodLayout formats the capacity period key (one calendar day).
const PeriodLayout = "2006-01-02"

// DailyKey applies a window list to every weekday without its own entry.
const DailyKey = "daily"

var weekdayKeys = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Calendar is a user's availability: ordered, disjoint windows per weekday,
// dates off, and an effort ceiling per day. It is read-only input to every
// scheduling call.
type Calendar struct {
	Location      string              `json:"location,omitempty" yaml:"location,omitempty"`
	Weekly        map[string][]Window `json:"weekly" yaml:"weekly"`
	DaysOff       []string            `json:"days_off,omitempty" yaml:"days_off,omitempty"`
	DailyCapacity planning.Estimate   `json:"daily_capacity,omitempty" yaml:"daily_capacity,omitempty"`
}

// Uniform builds a calendar with the same windows every day.
func Uniform(capacity time.Duration, windows ...Window) *Calendar {
	return &Calendar{
		Location:      "UTC",
		Weekly:        map[string][]Window{DailyKey: windows},
		DailyCapacity: planning.EstimateOf(capacity),
	}
}

// Slot is one concrete availability window on a specific day.
type Slot struct {
	Start  time.Time
	End    time.Time
	Period string
}

// Segment is a piece of effort placed inside a slot.
type Segment struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Period string    `json:"period"`
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Loc resolves the calendar's time zone.
func (c *Calendar) Loc() (*time.Location, error) {
	if c.Location == "" || strings.EqualFold(c.Location, "utc") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("load calendar location %q: %w", c.Location, err)
	}
	return loc, nil
}

// Validate checks weekday keys, window ordering and disjointness, and days off.
func (c *Calendar) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: calendar is nil", ErrNoAvailability)
	}
	if _, err := c.Loc(); err != nil {
		return err
	}
	seen := make(map[string]string, len(c.Weekly))
	for _, key := range sortedKeys(c.Weekly) {
		windows := c.Weekly[key]
		k := strings.ToLower(key)
		if _, ok := weekdayKeys[k]; !ok && k != DailyKey {
			return fmt.Errorf("%w: unknown weekday key %q", ErrInvalidWindow, key)
		}
		if prev, dup := seen[k]; dup {
			return fmt.Errorf("%w: weekday keys %q and %q name the same day", ErrInvalidWindow, prev, key)
		}
		seen[k] = key
		for i, w := range windows {
			if w.End <= w.Start || w.End > MinutesPerDay {
				return fmt.Errorf("%w: %s window %s", ErrInvalidWindow, key, w)
			}
			if i > 0 && w.Start < windows[i-1].End {
				return fmt.Errorf("%w: %s windows %s and %s overlap or are unordered", ErrInvalidWindow, key, windows[i-1], w)
			}
		}
	}
	for _, d := range c.DaysOff {
		if _, err := time.Parse(PeriodLayout, d); err != nil {
			return fmt.Errorf("%w: day off %q: %v", ErrInvalidWindow, d, err)
		}
	}
	if c.DailyCapacity.Duration() < 0 {
		return fmt.Errorf("%w: negative daily capacity", ErrInvalidWindow)
	}
	return nil
}

// WindowsOn returns the windows that apply to the given weekday.
func (c *Calendar) WindowsOn(day time.Weekday) []Window {
	for key, windows := range c.Weekly {
		if wd, ok := weekdayKeys[strings.ToLower(key)]; ok && wd == day {
			return windows
		}
	}
	for key, windows := range c.Weekly {
		if strings.EqualFold(key, DailyKey) {
			return windows
		}
	}
	return nil
}

// Ceiling returns the effort ceiling for a day with the given windows.
func (c *Calendar) Ceiling(windows []Window) time.Duration {
	var total time.Duration
	for _, w := range windows {
		total += time.Duration(w.Minutes()) * time.Minute
	}
	if capacity := c.DailyCapacity.Duration(); capacity > 0 && capacity < total {
		return capacity
	}
	return total
}

// Expand materializes the calendar into slots covering [from, to), together
// with each period's ceiling.
func (c *Calendar) Expand(from, to time.Time) ([]Slot, map[string]time.Duration, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	loc, err := c.Loc()
	if err != nil {
		return nil, nil, err
	}

	off := make(map[string]bool, len(c.DaysOff))
	for _, d := range c.DaysOff {
		off[d] = true
	}

	var slots []Slot
	ceilings := make(map[string]time.Duration)

	local := from.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for day.Before(to) {
		period := day.Format(PeriodLayout)
		windows := c.WindowsOn(day.Weekday())
		if !off[period] && len(windows) > 0 {
			ceilings[period] = c.Ceiling(windows)
			for _, w := range windows {
				start := wallClock(day, w.Start)
				end := wallClock(day, w.End)
				if start.Before(from) {
					start = from
				}
				if end.After(to) {
					end = to
				}
				if !start.Before(end) {
					continue
				}
				slots = append(slots, Slot{Start: start, End: end, Period: period})
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, ceilings, nil
}

func sortedKeys(m map[string][]Window) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// wallClock is the instant at clock c on day in day's location. Clock 24:00
// is the next midnight. Days with a DST shift keep their wall-clock windows.
func wallClock(day time.Time, c Clock) time.Time {
	if c >= MinutesPerDay {
		return day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), int(c)/60, int(c)%60, 0, 0, day.Location())
}

// Period returns the capacity period key for an instant.
func (c *Calendar) Period(t time.Time) string {
	loc, err := c.Loc()
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format(PeriodLayout)
}

// StartOfDay truncates t to midnight in the calendar's location.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	loc, err := c.Loc()
	if err != nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}
