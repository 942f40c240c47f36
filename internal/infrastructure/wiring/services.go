package wiring

import (
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/pacer/pkg/ai"
	"github.com/felixgeelhaar/pacer/pkg/application"
	domainai "github.com/felixgeelhaar/pacer/pkg/domain/ai"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/felixgeelhaar/pacer/pkg/engine"
)

// AppServices exposes the application services wired over one workspace.
// All of them share a single Env, so they share the per-user locks.
type AppServices struct {
	Workspace *Workspace
	Env       application.Env
	Goals     *application.GoalService
	Schedules *application.ScheduleService
	Overdue   *application.OverdueService
	Decompose *application.DecompositionService
	Provider  domainai.Provider
}

// BuildAppServices wires the services for a workspace root. A provider that
// cannot be built falls back to the default ollama one; the second return
// value then carries the reason and the services are still usable.
func BuildAppServices(root string, logOut io.Writer) (*AppServices, error) {
	return BuildAppServicesWithProvider(root, logOut, LoadAIProvider)
}

// BuildAppServicesWithProvider allows callers to supply a custom AI provider resolver.
func BuildAppServicesWithProvider(root string, logOut io.Writer, resolver func(config.AIConfig) (domainai.Provider, error)) (*AppServices, error) {
	workspace, err := NewWorkspace(root, logOut)
	if err != nil {
		return nil, err
	}
	cfg := workspace.Config

	var loadErr error
	provider, err := resolver(cfg.AI)
	if err != nil {
		loadErr = fmt.Errorf("AI provider config fallback: %w", err)
		provider, err = infraai.NewResilient("ollama", "llama3", infraai.DefaultResilienceConfig())
		if err != nil {
			return nil, fmt.Errorf("fallback AI provider failed: %w", err)
		}
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	dispatcher := events.NewDispatcher()
	dispatcher.Register(events.NewLoggingHandler(workspace.Logger).Registration())
	dispatcher.Register(events.NewSlipWarningHandler(workspace.Logger).Registration())
	dispatcher.Register(events.NewAuditHandler(workspace.Repo).Registration())

	env := application.Env{
		Repo:       workspace.Repo,
		Engine:     engine.New(engineCfg),
		Dispatcher: dispatcher,
		Logger:     workspace.Logger,
		Actor:      actor(),
	}.WithDefaults()

	goals := application.NewGoalService(env)
	schedules := application.NewScheduleService(env)
	overdue := application.NewOverdueService(schedules)
	if cfg.Daemon.Concurrency > 0 {
		overdue.Concurrency = cfg.Daemon.Concurrency
	}

	return &AppServices{
		Workspace: workspace,
		Env:       env,
		Goals:     goals,
		Schedules: schedules,
		Overdue:   overdue,
		Decompose: application.NewDecompositionService(env, goals, provider, NewAILimiter(cfg.AI)),
		Provider:  provider,
	}, loadErr
}

func actor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown-human"
}
