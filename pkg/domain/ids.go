package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidID indicates an empty or unsafe user, goal or task id.
var ErrInvalidID = errors.New("invalid id")

// idPattern matches ids that are safe to use as path segments.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// UserID identifies the owner of calendars and goals.
type UserID struct {
	value string
}

// NewUserID validates value as a user id.
func NewUserID(value string) (UserID, error) {
	v, err := validateID("user", value)
	return UserID{value: v}, err
}

// MustUserID creates a UserID or panics if invalid. Use only in tests.
func MustUserID(value string) UserID {
	id, err := NewUserID(value)
	if err != nil {
		panic(err)
	}
	return id
}

func (id UserID) String() string { return id.value }

// IsZero returns true if the UserID is empty.
func (id UserID) IsZero() bool { return id.value == "" }

// GoalID identifies a goal within a user's workspace.
type GoalID struct {
	value string
}

// NewGoalID validates value as a goal id.
func NewGoalID(value string) (GoalID, error) {
	v, err := validateID("goal", value)
	return GoalID{value: v}, err
}

// GenerateGoalID returns a fresh random goal id.
func GenerateGoalID() GoalID {
	return GoalID{value: uuid.NewString()}
}

// MustGoalID creates a GoalID or panics if invalid. Use only in tests.
func MustGoalID(value string) GoalID {
	id, err := NewGoalID(value)
	if err != nil {
		panic(err)
	}
	return id
}

func (id GoalID) String() string { return id.value }

// IsZero returns true if the GoalID is empty.
func (id GoalID) IsZero() bool { return id.value == "" }

// GenerateTaskID returns a short random id for a task added to goalID.
func GenerateTaskID(goalID string) string {
	return fmt.Sprintf("%s-%s", goalID, strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// ValidateTaskID checks a task id with the same rules as user and goal ids.
func ValidateTaskID(value string) error {
	_, err := validateID("task", value)
	return err
}

func validateID(kind, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s ID cannot be empty", ErrInvalidID, kind)
	}
	if !idPattern.MatchString(value) {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidID, kind, value)
	}
	return value, nil
}
