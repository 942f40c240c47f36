package watch

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestPatternFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *PatternFilter
		path   string
		want   bool
	}{
		{"calendar", CalendarFilter(), "/w/.pacer/users/alice/calendar.yaml", true},
		{"temp file", CalendarFilter(), "/w/.pacer/users/alice/calendar.yaml.tmp", false},
		{"tasks", CalendarFilter(), "/w/.pacer/users/alice/goals/g1/tasks.yaml", false},
		{"hidden", NewPatternFilter(nil, []string{".*"}), "/w/.swp", false},
		{"no includes", NewPatternFilter(nil, nil), "/w/anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.path); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestUsersIn(t *testing.T) {
	usersDir := filepath.Join("/w", ".pacer", "users")
	evs := []ChangeEvent{
		{Path: filepath.Join(usersDir, "bob", "calendar.yaml")},
		{Path: filepath.Join(usersDir, "alice", "calendar.yaml")},
		{Path: filepath.Join(usersDir, "bob", "goals", "g1", "tasks.yaml")},
		{Path: filepath.Join(usersDir, "stray.yaml")},
		{Path: filepath.Join("/w", "other", "x", "calendar.yaml")},
	}
	got := UsersIn(usersDir, evs)
	if want := []string{"alice", "bob"}; !reflect.DeepEqual(got, want) {
		t.Errorf("UsersIn = %v, want %v", got, want)
	}
}
