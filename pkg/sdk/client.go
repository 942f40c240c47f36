package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/felixgeelhaar/pacer/pkg/application"
	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/feasibility"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// SupportedSchemaMajor is the major schema version this SDK supports.
const SupportedSchemaMajor = "1"

const schemaURI = "pacer://schema"

// Client is a typed Go client for the pacer MCP server.
type Client struct {
	mcp      *client.Client
	retryCfg retry.Config
	timeout  time.Duration
}

type options struct {
	timeout      time.Duration
	maxAttempts  int
	initialDelay time.Duration
}

// Option configures the SDK client.
type Option func(*options)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry sets how often a failed transport call is attempted.
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		o.maxAttempts = maxAttempts
		o.initialDelay = initialDelay
	}
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := options{timeout: 30 * time.Second, maxAttempts: 3, initialDelay: 500 * time.Millisecond}
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:     client.New(transport, client.WithTimeout(o.timeout)),
		timeout: o.timeout,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry. Tool errors are not retried: the server
// already answered.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

// unmarshalText extracts Content[0].Text from a tool result and unmarshals it as JSON.
func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

func callJSON[T any](ctx context.Context, c *Client, tool string, args map[string]any) (*T, error) {
	res, err := c.call(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[T](res)
}

// --- Schema ---

// SchemaInfo is the content of the pacer://schema resource.
type SchemaInfo struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	ChangeKinds   []string `json:"change_kinds"`
	Tools         []string `json:"tools"`
}

// GetSchema reads the pacer://schema resource from the server.
func (c *Client) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, schemaURI)
	if err != nil {
		return nil, fmt.Errorf("read schema resource: %w", err)
	}
	var info SchemaInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &info, nil
}

// Compatible returns nil when the server's schema major version matches
// SupportedSchemaMajor.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	if major := majorVersion(info.SchemaVersion); major != SupportedSchemaMajor {
		return fmt.Errorf("incompatible schema: server=%s (major %s), sdk supports major %s",
			info.SchemaVersion, major, SupportedSchemaMajor)
	}
	return nil
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}

// --- Goals and tasks ---

// CreateGoalRequest holds the fields of a new goal.
type CreateGoalRequest struct {
	UserID     string
	Title      string
	Deadline   time.Time
	Complexity planning.ComplexityTier
}

// CreateGoal creates a goal.
func (c *Client) CreateGoal(ctx context.Context, req CreateGoalRequest) (*planning.Goal, error) {
	args := map[string]any{
		"user_id":  req.UserID,
		"title":    req.Title,
		"deadline": req.Deadline.Format(time.RFC3339),
	}
	if req.Complexity != "" {
		args["complexity"] = string(req.Complexity)
	}
	return callJSON[planning.Goal](ctx, c, "pacer_create_goal", args)
}

// ListGoals lists a user's goals.
func (c *Client) ListGoals(ctx context.Context, userID string) ([]planning.Goal, error) {
	goals, err := callJSON[[]planning.Goal](ctx, c, "pacer_list_goals", map[string]any{"user_id": userID})
	if err != nil {
		return nil, err
	}
	return *goals, nil
}

// DecomposeGoal asks the server's AI provider to break a goal into tasks.
func (c *Client) DecomposeGoal(ctx context.Context, userID, goalID, extraContext string) ([]planning.Task, error) {
	args := goalArgs(userID, goalID)
	if extraContext != "" {
		args["context"] = extraContext
	}
	return c.tasks(ctx, "pacer_decompose_goal", args)
}

// ImportTasks replaces a goal's tasks with drafts.
func (c *Client) ImportTasks(ctx context.Context, userID, goalID string, drafts []planning.DraftTask) ([]planning.Task, error) {
	args := goalArgs(userID, goalID)
	args["tasks"] = drafts
	return c.tasks(ctx, "pacer_import_tasks", args)
}

// ListTasks lists a goal's tasks.
func (c *Client) ListTasks(ctx context.Context, userID, goalID string) ([]planning.Task, error) {
	return c.tasks(ctx, "pacer_list_tasks", goalArgs(userID, goalID))
}

func (c *Client) tasks(ctx context.Context, tool string, args map[string]any) ([]planning.Task, error) {
	tasks, err := callJSON[[]planning.Task](ctx, c, tool, args)
	if err != nil {
		return nil, err
	}
	return *tasks, nil
}

// SetCalendar stores a user's availability.
func (c *Client) SetCalendar(ctx context.Context, userID string, cal *calendar.Calendar) (string, error) {
	res, err := c.call(ctx, "pacer_set_calendar", map[string]any{"user_id": userID, "calendar": cal})
	if err != nil {
		return "", err
	}
	return textResult(res)
}

// --- Schedules ---

// Analyze returns the feasibility analysis of a goal.
func (c *Client) Analyze(ctx context.Context, userID, goalID string) (*feasibility.Analysis, error) {
	return callJSON[feasibility.Analysis](ctx, c, "pacer_analyze", goalArgs(userID, goalID))
}

// GenerateSchedule builds a fresh schedule for a goal.
func (c *Client) GenerateSchedule(ctx context.Context, userID, goalID string) (*application.Generated, error) {
	return callJSON[application.Generated](ctx, c, "pacer_generate_schedule", goalArgs(userID, goalID))
}

// GetSchedule returns the stored schedule of a goal.
func (c *Client) GetSchedule(ctx context.Context, userID, goalID string) (*schedule.Schedule, error) {
	return callJSON[schedule.Schedule](ctx, c, "pacer_get_schedule", goalArgs(userID, goalID))
}

// AdjustSchedule applies changes to a goal's stored schedule.
func (c *Client) AdjustSchedule(ctx context.Context, userID, goalID string, changes []adapt.ChangeRecord) (*application.Adjusted, error) {
	args := goalArgs(userID, goalID)
	args["changes"] = changes
	return callJSON[application.Adjusted](ctx, c, "pacer_adjust_schedule", args)
}

// RecoverOverdue re-anchors overdue tasks. With no ids the server detects
// them. A nil result with a nil error means nothing was overdue.
func (c *Client) RecoverOverdue(ctx context.Context, userID, goalID string, taskIDs ...string) (*application.Recovered, error) {
	args := goalArgs(userID, goalID)
	if len(taskIDs) > 0 {
		args["task_ids"] = taskIDs
	}
	res, err := c.call(ctx, "pacer_recover_overdue", args)
	if err != nil {
		return nil, err
	}
	text, err := textResult(res)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.TrimSpace(text), "{") {
		return nil, nil
	}
	return unmarshalText[application.Recovered](res)
}

// Sweep recovers overdue work for every user of the server's workspace.
func (c *Client) Sweep(ctx context.Context) (*application.SweepReport, error) {
	return callJSON[application.SweepReport](ctx, c, "pacer_sweep", nil)
}

func goalArgs(userID, goalID string) map[string]any {
	return map[string]any{"user_id": userID, "goal_id": goalID}
}
