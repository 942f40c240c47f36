package planning

import (
	"encoding/json"
	"testing"
)

func TestTaskPriority_IsValid(t *testing.T) {
	tests := []struct {
		priority TaskPriority
		valid    bool
	}{
		{PriorityLow, true},
		{PriorityMedium, true},
		{PriorityHigh, true},
		{PriorityCritical, true},
		{TaskPriority("invalid"), false},
		{TaskPriority(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := tt.priority.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestTaskPriority_Weight(t *testing.T) {
	tests := []struct {
		priority TaskPriority
		weight   float64
	}{
		{PriorityLow, 1},
		{PriorityMedium, 2},
		{PriorityHigh, 4},
		{PriorityCritical, 8},
		{TaskPriority(""), 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := tt.priority.Weight(); got != tt.weight {
				t.Errorf("Weight() = %v, want %v", got, tt.weight)
			}
		})
	}
}

func TestTaskPriority_Compare(t *testing.T) {
	tests := []struct {
		p1       TaskPriority
		p2       TaskPriority
		expected int
	}{
		{PriorityLow, PriorityLow, 0},
		{PriorityLow, PriorityHigh, -1},
		{PriorityCritical, PriorityHigh, 1},
		{PriorityMedium, PriorityLow, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.p1)+"_vs_"+string(tt.p2), func(t *testing.T) {
			if got := tt.p1.Compare(tt.p2); got != tt.expected {
				t.Errorf("Compare() = %v, want %v", got, tt.expected)
			}
		})
	}
	if !PriorityHigh.IsHigherThan(PriorityMedium) {
		t.Error("high should be higher than medium")
	}
}

func TestParseTaskPriority(t *testing.T) {
	p, err := ParseTaskPriority("")
	if err != nil || p != PriorityMedium {
		t.Errorf("empty priority = %v, %v; want medium", p, err)
	}
	if _, err := ParseTaskPriority("urgent"); err == nil {
		t.Error("expected error for unknown priority")
	}
	p, err = ParseTaskPriority("critical")
	if err != nil || p != PriorityCritical {
		t.Errorf("critical priority = %v, %v", p, err)
	}
}

func TestTaskPriority_JSON(t *testing.T) {
	data, err := json.Marshal(PriorityHigh)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"high"` {
		t.Errorf("marshal = %s", data)
	}

	var p TaskPriority
	if err := json.Unmarshal([]byte(`""`), &p); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if p != PriorityMedium {
		t.Errorf("empty unmarshal = %v, want medium", p)
	}
	if err := json.Unmarshal([]byte(`"bogus"`), &p); err == nil {
		t.Error("expected error for invalid priority")
	}
}
