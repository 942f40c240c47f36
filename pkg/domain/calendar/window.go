package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay bounds a Clock.
const MinutesPerDay = 24 * 60

// Clock is a time of day in minutes since midnight. 24:00 is allowed as a window end.
type Clock int

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: clock %q is not HH:MM", ErrInvalidWindow, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: clock %q: %v", ErrInvalidWindow, s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: clock %q: %v", ErrInvalidWindow, s, err)
	}
	c := Clock(h*60 + m)
	if h < 0 || m < 0 || m > 59 || c > MinutesPerDay {
		return 0, fmt.Errorf("%w: clock %q out of range", ErrInvalidWindow, s)
	}
	return c, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a daily working interval [Start, End).
type Window struct {
	Start Clock
	End   Clock
}

// ParseWindow parses "09:00-12:30".
func ParseWindow(s string) (Window, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Window{}, fmt.Errorf("%w: %q is not HH:MM-HH:MM", ErrInvalidWindow, s)
	}
	start, err := ParseClock(from)
	if err != nil {
		return Window{}, err
	}
	end, err := ParseClock(to)
	if err != nil {
		return Window{}, err
	}
	w := Window{Start: start, End: end}
	if w.End <= w.Start {
		return Window{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidWindow, s)
	}
	return w, nil
}

// MustParseWindow parses a window or panics. Use only in tests.
func MustParseWindow(s string) Window {
	w, err := ParseWindow(s)
	if err != nil {
		panic(err)
	}
	return w
}

// Minutes returns the window length.
func (w Window) Minutes() int {
	return int(w.End - w.Start)
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// MarshalText implements encoding.TextMarshaler.
func (w Window) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Window) UnmarshalText(text []byte) error {
	parsed, err := ParseWindow(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
