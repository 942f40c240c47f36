package planning_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"gopkg.in/yaml.v3"
)

func TestParseEstimate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		wantHrs float64
	}{
		{"30 minutes", "30m", false, 0.5},
		{"4 hours", "4h", false, 4},
		{"1 day", "1d", false, 8},
		{"1 week", "1w", false, 40},
		{"empty", "", false, 0},
		{"with spaces", "  4h  ", false, 4},
		{"uppercase", "4H", false, 4},
		{"fraction", "1.5h", false, 1.5},
		{"invalid unit", "4x", true, 0},
		{"just number", "4", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := planning.ParseEstimate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseEstimate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && e.Hours() != tt.wantHrs {
				t.Errorf("Hours() = %v, want %v", e.Hours(), tt.wantHrs)
			}
		})
	}
}

func TestEstimateOf(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{3 * time.Hour, "3h"},
		{90 * time.Minute, "90m"},
		{0, ""},
		{-time.Hour, ""},
		{30 * time.Second, ""},
	}
	for _, tt := range tests {
		if got := planning.EstimateOf(tt.in).String(); got != tt.want {
			t.Errorf("EstimateOf(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEstimate_AddAndCompare(t *testing.T) {
	sum := planning.MustParseEstimate("1d").Add(planning.MustParseEstimate("2d"))
	if sum.Days() != 3 {
		t.Errorf("expected 3 days, got %v", sum.Days())
	}
	if planning.MustParseEstimate("1h").Compare(planning.MustParseEstimate("4h")) != -1 {
		t.Error("expected 1h < 4h")
	}
	if planning.MustParseEstimate("1d").Compare(planning.MustParseEstimate("8h")) != 0 {
		t.Error("expected 1d == 8h")
	}
}

func TestEstimate_TextRoundTrip(t *testing.T) {
	task := planning.Task{ID: "t1", Effort: planning.MustParseEstimate("2h")}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded planning.Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Effort.Duration() != 2*time.Hour {
		t.Errorf("json effort = %v, want 2h", decoded.Effort.Duration())
	}

	var fromYAML planning.Task
	if err := yaml.Unmarshal([]byte("id: t2\neffort: 1d\n"), &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if fromYAML.Effort.Hours() != 8 {
		t.Errorf("yaml effort = %v hours, want 8", fromYAML.Effort.Hours())
	}
}

func TestTask_Remaining(t *testing.T) {
	task := planning.Task{
		Effort:   planning.MustParseEstimate("3h"),
		Progress: planning.MustParseEstimate("1h"),
	}
	if task.Remaining() != 2*time.Hour {
		t.Errorf("Remaining() = %v, want 2h", task.Remaining())
	}

	task.Progress = planning.MustParseEstimate("5h")
	if task.Remaining() != 0 {
		t.Errorf("Remaining() = %v, want 0 when progress exceeds effort", task.Remaining())
	}
}

func TestTask_DeadlineWithin(t *testing.T) {
	goal := planning.Goal{Deadline: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)}
	task := planning.Task{}
	if !task.DeadlineWithin(goal).Equal(goal.Deadline) {
		t.Error("expected goal deadline when task has none")
	}

	own := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	task.Deadline = &own
	if !task.DeadlineWithin(goal).Equal(own) {
		t.Error("expected task's own deadline")
	}

	clone := task.Clone()
	*clone.Deadline = own.AddDate(0, 0, 1)
	if !task.Deadline.Equal(own) {
		t.Error("Clone must not share the deadline pointer")
	}
}

func TestMustParseEstimate_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for invalid estimate")
		}
	}()
	planning.MustParseEstimate("invalid")
}
