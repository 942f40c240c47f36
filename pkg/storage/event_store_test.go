package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/felixgeelhaar/pacer/pkg/domain/events"
)

func TestFileEventStore_AppendAndLoad(t *testing.T) {
	store := NewFileEventStore(t.TempDir())

	for i, goal := range []string{"g1", "g2", "g1"} {
		e := events.New(events.EventTypeScheduleGenerated, "alice", goal, "test", map[string]any{"version": i + 1})
		if err := store.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].PrevHash != "" || all[1].PrevHash != all[0].Hash {
		t.Error("events are not chained")
	}
	if events.VerifyChain(all) != -1 {
		t.Error("chain should verify after a round trip")
	}

	g1, err := store.LoadByGoal("alice", "g1")
	if err != nil {
		t.Fatalf("LoadByGoal: %v", err)
	}
	if len(g1) != 2 {
		t.Errorf("LoadByGoal = %d events, want 2", len(g1))
	}
}

func TestFileEventStore_ResumesChainAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	first := NewFileEventStore(dir)
	if err := first.Append(events.New(events.EventTypeGoalCreated, "u", "g", "test", nil)); err != nil {
		t.Fatal(err)
	}

	second := NewFileEventStore(dir)
	if err := second.Append(events.New(events.EventTypeScheduleGenerated, "u", "g", "test", nil)); err != nil {
		t.Fatal(err)
	}
	violations, err := second.VerifyIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 0 {
		t.Errorf("violations = %v", violations)
	}
}

func TestFileEventStore_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	store := NewFileEventStore(dir)
	for i := 0; i < 2; i++ {
		if err := store.Append(events.New(events.EventTypeTaskMustSlip, "u", "g", "test", map[string]any{"task_id": "t1"})); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"task_id":"t1"`, `"task_id":"t9"`, 1)
	if err := os.WriteFile(store.path, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	violations, err := store.VerifyIntegrity()
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 1 || !strings.Contains(violations[0], "Hash mismatch") {
		t.Errorf("violations = %v", violations)
	}
}

func TestFileEventStore_EmptyLoad(t *testing.T) {
	all, err := NewFileEventStore(t.TempDir()).LoadAll()
	if err != nil || len(all) != 0 {
		t.Errorf("LoadAll = %v, %v; want empty", all, err)
	}
}
