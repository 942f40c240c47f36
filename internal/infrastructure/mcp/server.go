package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/pacer/pkg/application"
	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/recovery"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

type Server struct {
	mcpServer *mcp.Server
	services  *wiring.AppServices
	root      string
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients.
// Internal details are omitted; only the friendly message is returned.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// toolErr turns a service error into the message a client can act on.
func toolErr(action string, err error) error {
	var conflict *schedule.ConflictError
	var graphErr *graph.ValidationError
	switch {
	case errors.Is(err, application.ErrNotInitialized):
		return mcpErr("Workspace is not initialized. Run 'pacer init' first.")
	case errors.Is(err, application.ErrDeadlinePassed):
		return mcpErr("The goal deadline must be in the future.")
	case errors.Is(err, application.ErrNoSchedule):
		return mcpErr("No schedule stored for this goal. Call pacer_generate_schedule first.")
	case errors.Is(err, application.ErrNoTasks):
		return mcpErr("The goal has no tasks. Call pacer_decompose_goal or pacer_import_tasks first.")
	case errors.Is(err, application.ErrInvalidDraft):
		return mcpErr("The model returned tasks that do not match the draft schema. Retry or import tasks directly.")
	case errors.Is(err, application.ErrAIUnavailable):
		return mcpErr("No AI provider is configured.")
	case errors.As(err, &conflict):
		return mcpErr("The schedule changed while this call ran. Reload it and retry.")
	case errors.As(err, &graphErr):
		return mcpErr("Tasks rejected: " + graphErr.Error())
	case errors.Is(err, adapt.ErrUnknownTask), errors.Is(err, adapt.ErrInvalidChange), errors.Is(err, adapt.ErrUnknownChange):
		return mcpErr("Change rejected: " + err.Error())
	case errors.Is(err, recovery.ErrTaskCompleted):
		return mcpErr("Completed tasks cannot be recovered.")
	case errors.Is(err, domain.ErrNotFound):
		return mcpErr("Not found. Check the user and goal ids.")
	case errors.Is(err, domain.ErrInvalidID):
		return mcpErr("Invalid id: use letters, digits, '-' and '_'.")
	}
	return mcpErr(fmt.Sprintf("Failed to %s.", action))
}

// NewServer wires the services of the workspace at root. Logs go to stderr so
// they never mix with the stdio transport.
func NewServer(root string) (*Server, error) {
	services, err := wiring.BuildAppServices(root, os.Stderr)
	if services == nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	if err != nil {
		services.Workspace.Logger.Warn("AI provider fallback", "error", err)
	}
	return NewServerWithServices(root, services), nil
}

// NewServerWithServices exposes already wired services.
func NewServerWithServices(root string, services *wiring.AppServices) *Server {
	info := mcp.ServerInfo{
		Name:    "pacer",
		Version: Version,
	}
	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Pacer MCP Server"),
			mcp.WithDescription("Pacer turns goals into dependency-aware task schedules that fit a personal calendar and adapts them as work changes."),
			mcp.WithWebsiteURL("https://github.com/felixgeelhaar/pacer"),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Create a goal, decompose or import tasks, set a calendar, then generate a schedule. Report changes with pacer_adjust_schedule and late work with pacer_recover_overdue."),
		),
		services: services,
		root:     root,
	}
	s.registerTools()
	s.registerSchemaResource()
	return s
}

type UserArgs struct {
	UserID string `json:"user_id" jsonschema:"required,description=The user whose data to use"`
}

type GoalArgs struct {
	UserID string `json:"user_id" jsonschema:"required,description=The user who owns the goal"`
	GoalID string `json:"goal_id" jsonschema:"required,description=The goal id"`
}

type CreateGoalArgs struct {
	UserID     string `json:"user_id" jsonschema:"required,description=The user who owns the goal"`
	Title      string `json:"title" jsonschema:"required,description=What the user wants to achieve"`
	Deadline   string `json:"deadline" jsonschema:"required,description=Goal deadline in RFC 3339"`
	Complexity string `json:"complexity,omitempty" jsonschema:"description=simple, moderate or complex"`
}

type DecomposeArgs struct {
	UserID  string `json:"user_id" jsonschema:"required,description=The user who owns the goal"`
	GoalID  string `json:"goal_id" jsonschema:"required,description=The goal to break down"`
	Context string `json:"context,omitempty" jsonschema:"description=Extra context for the decomposition"`
}

type ImportTasksArgs struct {
	UserID string               `json:"user_id" jsonschema:"required,description=The user who owns the goal"`
	GoalID string               `json:"goal_id" jsonschema:"required,description=The goal the tasks belong to"`
	Tasks  []planning.DraftTask `json:"tasks" jsonschema:"required,description=Draft tasks with id, title, description, estimate, priority and depends_on"`
}

type SetCalendarArgs struct {
	UserID   string            `json:"user_id" jsonschema:"required,description=The user whose availability to set"`
	Calendar calendar.Calendar `json:"calendar" jsonschema:"required,description=Time zone, weekly windows, daily capacity and overrides"`
}

type AdjustArgs struct {
	UserID  string               `json:"user_id" jsonschema:"required,description=The user who owns the goal"`
	GoalID  string               `json:"goal_id" jsonschema:"required,description=The goal whose schedule to adjust"`
	Changes []adapt.ChangeRecord `json:"changes" jsonschema:"required,description=Changes with kind task_added, task_removed, deadline_changed, effort_reestimated, dependencies_changed, task_marked_overdue or task_completed"`
}

type RecoverArgs struct {
	UserID  string   `json:"user_id" jsonschema:"required,description=The user who owns the goal"`
	GoalID  string   `json:"goal_id" jsonschema:"required,description=The goal to recover"`
	TaskIDs []string `json:"task_ids,omitempty" jsonschema:"description=Overdue task ids; empty detects them from the schedule"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("pacer_create_goal").
		Description("Create a goal with a deadline for a user").
		Handler(s.handleCreateGoal)

	s.mcpServer.Tool("pacer_list_goals").
		Description("List a user's goals").
		Handler(s.handleListGoals)

	s.mcpServer.Tool("pacer_decompose_goal").
		Description("Ask the configured AI provider to break a goal into tasks and store the validated task graph").
		Handler(s.handleDecompose)

	s.mcpServer.Tool("pacer_import_tasks").
		Description("Store draft tasks for a goal after validating dependencies, estimates and wording").
		Handler(s.handleImportTasks)

	s.mcpServer.Tool("pacer_list_tasks").
		Description("List a goal's tasks with status, effort and progress").
		Handler(s.handleListTasks)

	s.mcpServer.Tool("pacer_set_calendar").
		Description("Set a user's weekly availability windows and daily capacity").
		Handler(s.handleSetCalendar)

	s.mcpServer.Tool("pacer_analyze").
		Description("Run the feasibility analysis of a goal without saving anything").
		Handler(s.handleAnalyze)

	s.mcpServer.Tool("pacer_generate_schedule").
		Description("Generate a fresh schedule for a goal, replacing the stored one").
		Handler(s.handleGenerate)

	s.mcpServer.Tool("pacer_get_schedule").
		Description("Retrieve the stored schedule of a goal").
		Handler(s.handleGetSchedule)

	s.mcpServer.Tool("pacer_adjust_schedule").
		Description("Apply task changes and revise the schedule, moving only affected work").
		Handler(s.handleAdjust)

	s.mcpServer.Tool("pacer_recover_overdue").
		Description("Re-anchor overdue tasks at the current time and report deadline slips").
		Handler(s.handleRecover)

	s.mcpServer.Tool("pacer_sweep").
		Description("Recover overdue work for every user in the workspace").
		Handler(s.handleSweep)
}

func (s *Server) handleCreateGoal(ctx context.Context, args CreateGoalArgs) (any, error) {
	deadline, err := time.Parse(time.RFC3339, strings.TrimSpace(args.Deadline))
	if err != nil {
		return nil, mcpErr("Deadline must be an RFC 3339 timestamp such as 2026-03-06T17:00:00Z.")
	}
	var tier planning.ComplexityTier
	if args.Complexity != "" {
		tier, err = planning.ParseComplexityTier(args.Complexity)
		if err != nil {
			return nil, mcpErr("Complexity must be simple, moderate or complex.")
		}
	}
	goal, err := s.services.Goals.CreateGoal(ctx, args.UserID, args.Title, deadline, tier)
	if err != nil {
		return nil, toolErr("create goal", err)
	}
	return goal, nil
}

func (s *Server) handleListGoals(ctx context.Context, args UserArgs) (any, error) {
	goals, err := s.services.Goals.Goals(args.UserID)
	if err != nil {
		return nil, toolErr("list goals", err)
	}
	return goals, nil
}

func (s *Server) handleDecompose(ctx context.Context, args DecomposeArgs) (any, error) {
	g, err := s.services.Decompose.Decompose(ctx, args.UserID, args.GoalID, args.Context)
	if err != nil {
		return nil, toolErr("decompose goal", err)
	}
	return g.Tasks(), nil
}

func (s *Server) handleImportTasks(ctx context.Context, args ImportTasksArgs) (any, error) {
	g, err := s.services.Goals.ImportDrafts(ctx, args.UserID, args.GoalID, args.Tasks)
	if err != nil {
		return nil, toolErr("import tasks", err)
	}
	return g.Tasks(), nil
}

func (s *Server) handleListTasks(ctx context.Context, args GoalArgs) (any, error) {
	tasks, err := s.services.Goals.Tasks(args.UserID, args.GoalID)
	if err != nil {
		return nil, toolErr("list tasks", err)
	}
	return tasks, nil
}

func (s *Server) handleSetCalendar(ctx context.Context, args SetCalendarArgs) (string, error) {
	cal := args.Calendar
	if err := s.services.Goals.SetCalendar(args.UserID, &cal); err != nil {
		if errors.Is(err, calendar.ErrInvalidWindow) || errors.Is(err, calendar.ErrNoAvailability) {
			return "", mcpErr("Calendar rejected: " + err.Error())
		}
		return "", toolErr("save calendar", err)
	}
	return fmt.Sprintf("Calendar for %s saved", args.UserID), nil
}

func (s *Server) handleAnalyze(ctx context.Context, args GoalArgs) (any, error) {
	an, err := s.services.Schedules.Analyze(args.UserID, args.GoalID)
	if err != nil {
		return nil, toolErr("analyze goal", err)
	}
	return an, nil
}

func (s *Server) handleGenerate(ctx context.Context, args GoalArgs) (any, error) {
	out, err := s.services.Schedules.Generate(ctx, args.UserID, args.GoalID)
	if err != nil {
		return nil, toolErr("generate schedule", err)
	}
	return out, nil
}

func (s *Server) handleGetSchedule(ctx context.Context, args GoalArgs) (any, error) {
	sched, err := s.services.Schedules.Schedule(args.UserID, args.GoalID)
	if err != nil {
		return nil, toolErr("load schedule", err)
	}
	return sched, nil
}

func (s *Server) handleAdjust(ctx context.Context, args AdjustArgs) (any, error) {
	out, err := s.services.Schedules.Adjust(ctx, args.UserID, args.GoalID, args.Changes)
	if err != nil {
		return nil, toolErr("adjust schedule", err)
	}
	return out, nil
}

func (s *Server) handleRecover(ctx context.Context, args RecoverArgs) (any, error) {
	out, err := s.services.Schedules.Recover(ctx, args.UserID, args.GoalID, args.TaskIDs)
	if errors.Is(err, recovery.ErrNothingOverdue) {
		return "Nothing is overdue.", nil
	}
	if err != nil {
		return nil, toolErr("recover overdue tasks", err)
	}
	return out, nil
}

func (s *Server) handleSweep(ctx context.Context, args struct{}) (any, error) {
	report, err := s.services.Overdue.Sweep(ctx)
	if err != nil {
		return nil, toolErr("sweep overdue work", err)
	}
	return report, nil
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}
