package sdk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go/protocol"

	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

// mockTransport implements client.Transport and returns canned responses
// based on the method name in the request.
type mockTransport struct {
	closed    bool
	methods   []string
	responses map[string]any // method -> result for Response
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		responses: make(map[string]any),
	}
}

// setToolResponse configures the result of every tools/call request.
func (m *mockTransport) setToolResponse(text string, isError bool) {
	result := map[string]any{"content": []any{
		map[string]any{"type": "text", "text": text},
	}}
	if isError {
		result["isError"] = true
	}
	m.responses["tools/call"] = result
}

func (m *mockTransport) setResourceResponse(text string) {
	m.responses["resources/read"] = map[string]any{
		"contents": []any{
			map[string]any{"uri": schemaURI, "text": text},
		},
	}
}

func (m *mockTransport) Send(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
	m.methods = append(m.methods, req.Method)
	result, ok := m.responses[req.Method]
	if !ok {
		if req.Method == "initialize" {
			return protocol.NewResponse(req.ID, map[string]any{
				"serverInfo":      map[string]any{"name": "pacer", "version": "1.0.0"},
				"protocolVersion": "2024-11-05",
				"capabilities":    map[string]any{"tools": map[string]any{}},
			}), nil
		}
		if req.IsNotification() {
			return nil, nil
		}
		return protocol.NewResponse(req.ID, map[string]any{
			"content": []any{map[string]any{"type": "text", "text": "ok"}},
		}), nil
	}
	return protocol.NewResponse(req.ID, result), nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

func newTestClient(t *testing.T, mt *mockTransport) *Client {
	t.Helper()
	c := NewClient(mt, WithRetry(1, time.Millisecond))
	if _, err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func TestClient_CreateGoal(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`{"id":"g1","user_id":"alice","title":"Ship v1","deadline":"2026-03-06T17:00:00Z","complexity":"moderate"}`, false)
	c := newTestClient(t, mt)

	goal, err := c.CreateGoal(context.Background(), CreateGoalRequest{
		UserID: "alice", Title: "Ship v1", Deadline: time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if goal.ID != "g1" || goal.Complexity != planning.ComplexityModerate {
		t.Errorf("goal = %+v", goal)
	}
	if last := mt.methods[len(mt.methods)-1]; last != "tools/call" {
		t.Errorf("last method = %q", last)
	}
}

func TestClient_ListTasks(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`[{"id":"t1","goal_id":"g1","title":"Write outline","effort":"4h","priority":"medium","status":"scheduled","depends_on":[]}]`, false)
	c := newTestClient(t, mt)

	tasks, err := c.ListTasks(context.Background(), "alice", "g1")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Effort.Hours() != 4 || tasks[0].Status != planning.StatusScheduled {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestClient_GenerateSchedule(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`{"schedule":{"goal_id":"g1","version":1,"anchor":"2026-03-02T08:00:00Z","assignments":[{"task_id":"t1","start":"2026-03-02T09:00:00Z","end":"2026-03-02T13:00:00Z"}],"score":12,"weights":{"slack":1,"unschedulable":1000,"lateness":10}},"analysis":{"windows":{},"critical_path":["t1"],"horizon":{},"anchor":"2026-03-02T08:00:00Z","order":["t1"]}}`, false)
	c := newTestClient(t, mt)

	gen, err := c.GenerateSchedule(context.Background(), "alice", "g1")
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	a, ok := gen.Schedule.Assignment("t1")
	if !ok || a.End.Hour() != 13 {
		t.Errorf("assignment = %+v", a)
	}
	if gen.Analysis.CriticalPath[0] != "t1" {
		t.Errorf("critical path = %v", gen.Analysis.CriticalPath)
	}
}

func TestClient_AdjustSchedule(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`{"schedule":{"goal_id":"g1","version":2,"assignments":[]},"invalidated":["t1","t2"],"pinned":["t3"],"regression":{"explained":true}}`, false)
	c := newTestClient(t, mt)

	adj, err := c.AdjustSchedule(context.Background(), "alice", "g1", []adapt.ChangeRecord{
		{Kind: adapt.KindEffortReestimated, TaskID: "t1", Effort: "6h"},
	})
	if err != nil {
		t.Fatalf("AdjustSchedule: %v", err)
	}
	if adj.Schedule.Version != 2 || len(adj.Invalidated) != 2 || adj.Pinned[0] != "t3" {
		t.Errorf("adjusted = %+v", adj.Result)
	}
}

func TestClient_RecoverOverdue(t *testing.T) {
	t.Run("nothing overdue", func(t *testing.T) {
		mt := newMockTransport()
		mt.setToolResponse("Nothing is overdue.", false)
		c := newTestClient(t, mt)
		rec, err := c.RecoverOverdue(context.Background(), "alice", "g1")
		if err != nil || rec != nil {
			t.Errorf("got %+v, %v", rec, err)
		}
	})

	t.Run("recovered", func(t *testing.T) {
		mt := newMockTransport()
		mt.setToolResponse(`{"schedule":{"goal_id":"g1","version":3,"assignments":[]},"overdue":["t1"],"suggested_goal_deadline":"2026-03-09T17:00:00Z"}`, false)
		c := newTestClient(t, mt)
		rec, err := c.RecoverOverdue(context.Background(), "alice", "g1", "t1")
		if err != nil {
			t.Fatalf("RecoverOverdue: %v", err)
		}
		if rec.Overdue[0] != "t1" || rec.SuggestedGoalDeadline == nil || rec.Schedule.Version != 3 {
			t.Errorf("recovered = %+v", rec.Result)
		}
	})
}

func TestClient_Sweep(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse(`{"goals":[{"user_id":"alice","goal_id":"g1","overdue":["t1"]}],"failed":0}`, false)
	c := newTestClient(t, mt)

	report, err := c.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(report.Goals) != 1 || report.Goals[0].UserID != "alice" {
		t.Errorf("report = %+v", report)
	}
}

func TestClient_SetCalendar(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse("Calendar for alice saved", false)
	c := newTestClient(t, mt)

	msg, err := c.SetCalendar(context.Background(), "alice", nil)
	if err != nil || msg != "Calendar for alice saved" {
		t.Errorf("got %q, %v", msg, err)
	}
}

func TestClient_ToolError(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse("No schedule stored for this goal. Call pacer_generate_schedule first.", true)
	c := newTestClient(t, mt)

	_, err := c.GetSchedule(context.Background(), "alice", "g1")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %T: %v", err, err)
	}
	if toolErr.Tool != "pacer_get_schedule" {
		t.Errorf("tool = %q", toolErr.Tool)
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	mt := newMockTransport()
	mt.setToolResponse("not json", false)
	c := newTestClient(t, mt)

	if _, err := c.Analyze(context.Background(), "alice", "g1"); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestClient_GetSchema(t *testing.T) {
	mt := newMockTransport()
	mt.setResourceResponse(`{"schema_version":"1.2.0","server_version":"0.9.0","change_kinds":["task_added"],"tools":["pacer_sweep"]}`)
	c := newTestClient(t, mt)

	schema, err := c.GetSchema(context.Background())
	if err != nil {
		t.Fatalf("GetSchema: %v", err)
	}
	if schema.SchemaVersion != "1.2.0" || schema.Tools[0] != "pacer_sweep" {
		t.Errorf("schema = %+v", schema)
	}
	if err := c.Compatible(context.Background()); err != nil {
		t.Errorf("Compatible: %v", err)
	}
}

func TestClient_Compatible_Incompatible(t *testing.T) {
	mt := newMockTransport()
	mt.setResourceResponse(`{"schema_version":"2.0.0","server_version":"2.0.0"}`)
	c := newTestClient(t, mt)

	if err := c.Compatible(context.Background()); err == nil {
		t.Fatal("expected error for incompatible schema")
	}
}

func TestClient_Close(t *testing.T) {
	mt := newMockTransport()
	c := NewClient(mt)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !mt.closed {
		t.Error("expected transport to be closed")
	}
}

func TestNewClient_Options(t *testing.T) {
	c := NewClient(newMockTransport())
	if c.timeout != 30*time.Second || c.retryCfg.MaxAttempts != 3 {
		t.Errorf("defaults = %v, %d", c.timeout, c.retryCfg.MaxAttempts)
	}
	c = NewClient(newMockTransport(), WithTimeout(5*time.Second), WithRetry(5, time.Second))
	if c.timeout != 5*time.Second || c.retryCfg.MaxAttempts != 5 || c.retryCfg.InitialDelay != time.Second {
		t.Errorf("options = %v, %+v", c.timeout, c.retryCfg)
	}
}
