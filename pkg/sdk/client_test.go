package sdk

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

func TestTextResult(t *testing.T) {
	t.Run("extracts text", func(t *testing.T) {
		r := &client.ToolResult{
			Content: []client.ContentItem{{Type: "text", Text: "hello"}},
		}
		got, err := textResult(r)
		if err != nil || got != "hello" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		if _, err := textResult(&client.ToolResult{}); err != ErrNoContent {
			t.Fatalf("got %v, want ErrNoContent", err)
		}
	})
}

func TestMajorVersion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1.0.0", "1"},
		{"10.0.1", "10"},
		{"3", "3"},
	}
	for _, tt := range tests {
		if got := majorVersion(tt.input); got != tt.want {
			t.Errorf("majorVersion(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToolError(t *testing.T) {
	e := &ToolError{Tool: "pacer_sweep", Message: "bad"}
	if !strings.Contains(e.Error(), "pacer_sweep") {
		t.Fatalf("error should contain tool name: %s", e.Error())
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatal("go.mod not found")
	return ""
}

func TestIntegrationScheduleOverStdio(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	root := findRepoRoot(t)
	tempDir := t.TempDir()

	binPath := filepath.Join(tempDir, "pacer")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/pacer")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("build pacer: %v\n%s", err, out)
	}
	if out, err := exec.Command(binPath, "init", "--root", tempDir).CombinedOutput(); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}

	cmd := fmt.Sprintf("PACER_LOG_LEVEL=error '%s' mcp --root '%s' --transport stdio", binPath, tempDir)
	transport, err := client.NewStdioTransport("bash", "-lc", cmd)
	if err != nil {
		t.Fatalf("stdio transport: %v", err)
	}
	defer transport.Close()

	c := NewClient(transport, WithTimeout(60*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if _, err := c.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := c.Compatible(ctx); err != nil {
		t.Fatalf("compatible: %v", err)
	}

	goal, err := c.CreateGoal(ctx, CreateGoalRequest{UserID: "alice", Title: "Ship v1", Deadline: time.Now().AddDate(0, 0, 14)})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if _, err := c.SetCalendar(ctx, "alice", calendar.Uniform(8*time.Hour, calendar.MustParseWindow("09:00-17:00"))); err != nil {
		t.Fatalf("set calendar: %v", err)
	}
	_, err = c.ImportTasks(ctx, "alice", goal.ID, []planning.DraftTask{
		{ID: "t1", Title: "Write outline", Description: "Done when 5 sections exist", Estimate: "4h"},
		{ID: "t2", Title: "Draft chapter", Description: "Done when 3000 words exist", Estimate: "6h", DependsOn: []string{"t1"}},
	})
	if err != nil {
		t.Fatalf("import tasks: %v", err)
	}
	gen, err := c.GenerateSchedule(ctx, "alice", goal.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(gen.Schedule.Assignments) != 2 {
		t.Fatalf("assignments = %+v", gen.Schedule.Assignments)
	}
	adj, err := c.AdjustSchedule(ctx, "alice", goal.ID, []adapt.ChangeRecord{{Kind: adapt.KindEffortReestimated, TaskID: "t2", Effort: "2h"}})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if adj.Schedule.Version != 2 {
		t.Errorf("version = %d", adj.Schedule.Version)
	}
}
