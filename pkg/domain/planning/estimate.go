package planning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// estimatePattern matches effort strings like "4h", "2d", "1w", "30m", "1.5h"
var estimatePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(m|h|d|w)$`)

// Effort calendar used to convert day/week estimates into hours of work.
const (
	HoursPerDay = 8
	DaysPerWeek = 5
)

// Estimate is an amount of effort (not a wall-clock span).
type Estimate struct {
	raw      string
	duration time.Duration
}

// ParseEstimate parses "30m", "4h", "2d" or "1w". An empty string is a zero estimate.
func ParseEstimate(s string) (Estimate, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Estimate{}, nil
	}

	matches := estimatePattern.FindStringSubmatch(s)
	if matches == nil {
		return Estimate{}, fmt.Errorf("invalid estimate format: %s (expected: 30m, 4h, 2d, or 1w)", s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return Estimate{}, fmt.Errorf("invalid estimate value: %s", matches[1])
	}

	var unit time.Duration
	switch matches[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = HoursPerDay * time.Hour
	case "w":
		unit = DaysPerWeek * HoursPerDay * time.Hour
	}

	return Estimate{raw: s, duration: time.Duration(value * float64(unit))}, nil
}

// MustParseEstimate parses an estimate or panics. Use only in tests.
func MustParseEstimate(s string) Estimate {
	e, err := ParseEstimate(s)
	if err != nil {
		panic(err)
	}
	return e
}

// EstimateOf wraps a duration, rounded down to the minute.
func EstimateOf(d time.Duration) Estimate {
	if d <= 0 {
		return Estimate{}
	}
	d = d.Truncate(time.Minute)
	if d == 0 {
		return Estimate{}
	}
	if d%time.Hour == 0 {
		return Estimate{raw: fmt.Sprintf("%dh", int64(d/time.Hour)), duration: d}
	}
	return Estimate{raw: fmt.Sprintf("%dm", int64(d/time.Minute)), duration: d}
}

// String returns the textual form of the estimate.
func (e Estimate) String() string {
	return e.raw
}

// Duration returns the effort as a duration.
func (e Estimate) Duration() time.Duration {
	return e.duration
}

// Hours returns the effort in hours.
func (e Estimate) Hours() float64 {
	return e.duration.Hours()
}

// Days returns the effort in work days.
func (e Estimate) Days() float64 {
	return e.duration.Hours() / float64(HoursPerDay)
}

// IsZero returns true if no effort is recorded.
func (e Estimate) IsZero() bool {
	return e.duration == 0
}

// Add sums two estimates.
func (e Estimate) Add(other Estimate) Estimate {
	return EstimateOf(e.duration + other.duration)
}

// Compare returns -1, 0 or 1.
func (e Estimate) Compare(other Estimate) int {
	switch {
	case e.duration < other.duration:
		return -1
	case e.duration > other.duration:
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler so estimates round-trip as
// "4h" in both JSON and YAML.
func (e Estimate) MarshalText() ([]byte, error) {
	return []byte(e.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Estimate) UnmarshalText(text []byte) error {
	parsed, err := ParseEstimate(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
