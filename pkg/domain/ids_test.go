package domain_test

import (
	"strings"
	"testing"

	"github.com/felixgeelhaar/pacer/pkg/domain"
)

func TestNewUserID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid simple", "alice", false},
		{"valid hyphen", "user-1", false},
		{"valid leading digit", "42", false},
		{"trimmed", "  bob  ", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"traversal", "../etc", true},
		{"slash", "a/b", true},
		{"space inside", "a b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := domain.NewUserID(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewUserID(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && id.String() != strings.TrimSpace(tt.value) {
				t.Errorf("String() = %q", id.String())
			}
		})
	}
}

func TestGenerateIDs(t *testing.T) {
	g := domain.GenerateGoalID()
	if _, err := domain.NewGoalID(g.String()); err != nil {
		t.Errorf("generated goal id %q is invalid: %v", g, err)
	}
	task := domain.GenerateTaskID(g.String())
	if !strings.HasPrefix(task, g.String()+"-") {
		t.Errorf("task id %q should be prefixed with the goal id", task)
	}
	if err := domain.ValidateTaskID(task); err != nil {
		t.Errorf("generated task id invalid: %v", err)
	}
	if domain.GenerateTaskID("g") == domain.GenerateTaskID("g") {
		t.Error("task ids should differ")
	}
}

func TestZeroIDs(t *testing.T) {
	if !(domain.UserID{}).IsZero() || !(domain.GoalID{}).IsZero() {
		t.Error("zero values should report IsZero")
	}
	if domain.MustGoalID("g1").IsZero() {
		t.Error("g1 is not zero")
	}
}
