// Package engine is the pure entry point to scheduling: build a task graph,
// generate a schedule, adjust it after changes, and recover overdue work.
// Nothing here performs I/O or keeps state between calls; callers serialize
// calls per user.
package engine

import (
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/adapt"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/feasibility"
	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/recovery"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// Config tunes the engine.
type Config struct {
	Weights          schedule.Weights
	Tolerance        float64
	MaxTasks         int
	HorizonPadding   time.Duration
	AllowSlipOnAdapt bool
	Actionability    *graph.Actionability
	NewID            func(goalID string, n int) string
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	policy := graph.DefaultActionability()
	return Config{
		Weights:        schedule.DefaultWeights(),
		Tolerance:      adapt.DefaultTolerance,
		MaxTasks:       graph.DefaultMaxTasks,
		HorizonPadding: feasibility.DefaultHorizonPadding,
		Actionability:  &policy,
	}
}

// Engine wires the scheduling components together.
type Engine struct {
	builder   *graph.Builder
	analyzer  *feasibility.Analyzer
	scheduler *schedule.Scheduler
	adapter   *adapt.Adapter
	recoverer *recovery.Recoverer
}

// New builds an engine. Zero fields in cfg fall back to defaults, except a nil
// Actionability which disables the policy check.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Weights.IsZero() {
		cfg.Weights = def.Weights
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = def.MaxTasks
	}
	if cfg.HorizonPadding <= 0 {
		cfg.HorizonPadding = def.HorizonPadding
	}

	b := &graph.Builder{MaxTasks: cfg.MaxTasks, NewID: cfg.NewID}
	if cfg.Actionability != nil {
		b.Policy = *cfg.Actionability
	}
	an := &feasibility.Analyzer{HorizonPadding: cfg.HorizonPadding}
	sch := schedule.NewScheduler(cfg.Weights)
	ad := adapt.NewAdapter(b, an, sch)
	ad.Tolerance = cfg.Tolerance
	ad.AllowSlip = cfg.AllowSlipOnAdapt

	return &Engine{
		builder:   b,
		analyzer:  an,
		scheduler: sch,
		adapter:   ad,
		recoverer: recovery.NewRecoverer(ad),
	}
}

// Generated is an initial schedule with the analysis it was built from.
type Generated struct {
	Graph    *graph.TaskGraph      `json:"-"`
	Analysis *feasibility.Analysis `json:"analysis"`
	Schedule *schedule.Schedule    `json:"schedule"`
}

// BuildGraph validates decomposition drafts for goal.
func (e *Engine) BuildGraph(goal planning.Goal, drafts []planning.DraftTask) (*graph.TaskGraph, error) {
	return e.builder.Build(goal, drafts)
}

// Graph assembles stored tasks for goal, anchored at anchor.
func (e *Engine) Graph(goal planning.Goal, tasks []planning.Task, anchor time.Time) (*graph.TaskGraph, error) {
	return e.builder.Rebuild(goal, tasks, anchor)
}

// GenerateSchedule analyzes g and places every open task.
func (e *Engine) GenerateSchedule(g *graph.TaskGraph, cal *calendar.Calendar) (*Generated, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	an, err := e.analyzer.Analyze(g, cal, feasibility.Options{})
	if err != nil {
		return nil, err
	}
	s, err := e.scheduler.Schedule(g, an, cal)
	if err != nil {
		return nil, err
	}
	return &Generated{Graph: g, Analysis: an, Schedule: s}, nil
}

// Analyze runs only the feasibility pass.
func (e *Engine) Analyze(g *graph.TaskGraph, cal *calendar.Calendar) (*feasibility.Analysis, error) {
	return e.analyzer.Analyze(g, cal, feasibility.Options{})
}

// AdjustSchedule applies changes to g and revises prior. A non-zero now keeps
// re-timed work from starting in the past.
func (e *Engine) AdjustSchedule(g *graph.TaskGraph, prior *schedule.Schedule, changes []adapt.Change, cal *calendar.Calendar, now time.Time) (*adapt.Result, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return e.adapter.Run(adapt.Request{Graph: g, Prior: prior, Changes: changes, Calendar: cal, Now: now})
}

// RecoverOverdue re-anchors overdue tasks at now.
func (e *Engine) RecoverOverdue(g *graph.TaskGraph, prior *schedule.Schedule, overdue []string, now time.Time, cal *calendar.Calendar) (*recovery.Result, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return e.recoverer.RecoverOverdue(g, prior, overdue, now, cal)
}

// Weights returns the score weights in use.
func (e *Engine) Weights() schedule.Weights {
	return e.scheduler.Weights
}

// Actionability returns the wording policy applied to drafts.
func (e *Engine) Actionability() graph.Actionability {
	return e.builder.Policy
}
