package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFSWatcher_BatchesMatchingChanges(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "alice")
	if err := os.MkdirAll(userDir, 0700); err != nil {
		t.Fatal(err)
	}
	calendar := filepath.Join(userDir, "calendar.yaml")
	if err := os.WriteFile(calendar, []byte("timezone: UTC\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var (
		mu      sync.Mutex
		batches [][]ChangeEvent
	)
	w, err := NewFSWatcher(50*time.Millisecond, CalendarFilter(), func(evs []ChangeEvent) {
		mu.Lock()
		batches = append(batches, evs)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WatchRecursive(dir); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Run(ctx)
	}()
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(calendar, []byte("timezone: UTC\n# edit\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(userDir, "notes.txt"), []byte("ignored"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(250 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("expected one debounced batch, got %d", len(batches))
	}
	for _, e := range batches[0] {
		if filepath.Base(e.Path) != "calendar.yaml" {
			t.Errorf("unfiltered change %+v", e)
		}
		if e.ChangeType == "" {
			t.Error("expected a non-empty change type")
		}
	}
}

func TestFSWatcher_StopsOnCancel(t *testing.T) {
	w, err := NewFSWatcher(0, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WatchRecursive(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != context.Canceled {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
