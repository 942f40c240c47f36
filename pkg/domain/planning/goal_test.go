package planning_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

func TestGoal_Validate(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		goal    *planning.Goal
		wantErr bool
	}{
		{"valid", &planning.Goal{ID: "g1", Title: "Ship v1", Deadline: deadline}, false},
		{"nil", nil, true},
		{"missing id", &planning.Goal{Title: "x", Deadline: deadline}, true},
		{"missing title", &planning.Goal{ID: "g1", Deadline: deadline}, true},
		{"missing deadline", &planning.Goal{ID: "g1", Title: "x"}, true},
		{"bad complexity", &planning.Goal{ID: "g1", Title: "x", Deadline: deadline, Complexity: "epic"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.goal.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseComplexityTier(t *testing.T) {
	tier, err := planning.ParseComplexityTier("")
	if err != nil || tier != planning.ComplexityModerate {
		t.Errorf("empty tier = %v, %v", tier, err)
	}
	tier, err = planning.ParseComplexityTier("Complex")
	if err != nil || tier != planning.ComplexityComplex {
		t.Errorf("Complex tier = %v, %v", tier, err)
	}
	min, max := tier.TaskRange()
	if min >= max {
		t.Errorf("TaskRange() = %d..%d", min, max)
	}
	if _, err := planning.ParseComplexityTier("huge"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
