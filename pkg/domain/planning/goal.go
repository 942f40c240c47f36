package planning

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ComplexityTier is a coarse sizing of a goal. It only shapes how many draft
// tasks the decomposition collaborator is asked for.
type ComplexityTier string

const (
	ComplexitySimple   ComplexityTier = "simple"
	ComplexityModerate ComplexityTier = "moderate"
	ComplexityComplex  ComplexityTier = "complex"
)

// IsValid returns true if the tier is known.
func (c ComplexityTier) IsValid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return true
	default:
		return false
	}
}

// TaskRange returns the suggested number of tasks for a goal of this tier.
func (c ComplexityTier) TaskRange() (min, max int) {
	switch c {
	case ComplexitySimple:
		return 2, 5
	case ComplexityComplex:
		return 8, 20
	default:
		return 4, 10
	}
}

// ParseComplexityTier parses a string into a ComplexityTier. Empty input yields moderate.
func ParseComplexityTier(s string) (ComplexityTier, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ComplexityModerate, nil
	}
	tier := ComplexityTier(s)
	if !tier.IsValid() {
		return "", fmt.Errorf("invalid complexity tier: %s", s)
	}
	return tier, nil
}

// Goal is the user-level outcome a task graph is built for.
// Only the deadline may change after tasks have been generated.
type Goal struct {
	ID         string         `json:"id" yaml:"id"`
	UserID     string         `json:"user_id" yaml:"user_id"`
	Title      string         `json:"title" yaml:"title"`
	Deadline   time.Time      `json:"deadline" yaml:"deadline"`
	Complexity ComplexityTier `json:"complexity" yaml:"complexity"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
}

// Validate checks the goal's required fields.
func (g *Goal) Validate() error {
	if g == nil {
		return errors.New("goal is nil")
	}
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("goal id is required")
	}
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("goal %s: title is required", g.ID)
	}
	if g.Deadline.IsZero() {
		return fmt.Errorf("goal %s: deadline is required", g.ID)
	}
	if g.Complexity != "" && !g.Complexity.IsValid() {
		return fmt.Errorf("goal %s: invalid complexity %q", g.ID, g.Complexity)
	}
	return nil
}
