// Package config loads workspace settings from .pacer/config.yaml with
// PACER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/pacer/pkg/domain/graph"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
	"github.com/felixgeelhaar/pacer/pkg/engine"
	"github.com/felixgeelhaar/pacer/pkg/storage"
)

// FileName is the config file inside the workspace directory.
const FileName = "config.yaml"

// DefaultSweepSpec runs the overdue sweep every fifteen minutes.
const DefaultSweepSpec = "*/15 * * * *"

// Config is the workspace configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	AI     AIConfig     `yaml:"ai"`
	Daemon DaemonConfig `yaml:"daemon"`
	Log    LogConfig    `yaml:"log"`
}

// EngineConfig tunes scheduling.
type EngineConfig struct {
	Weights          schedule.Weights `yaml:"weights"`
	Tolerance        float64          `yaml:"tolerance"`
	MaxTasks         int              `yaml:"max_tasks"`
	HorizonPadding   string           `yaml:"horizon_padding,omitempty"`
	AllowSlipOnAdapt bool             `yaml:"allow_slip_on_adapt"`
	// Actionability replaces the built-in title/description policy.
	Actionability *graph.Actionability `yaml:"actionability,omitempty"`
	// SkipActionability turns the policy check off.
	SkipActionability bool `yaml:"skip_actionability,omitempty"`
}

// AIConfig selects the decomposition provider.
type AIConfig struct {
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	MaxRetries        int     `yaml:"max_retries,omitempty"`
	RetryDelayMs      int     `yaml:"retry_delay_ms,omitempty"`
	TimeoutSec        int     `yaml:"timeout_sec,omitempty"`
	RequestsPerMinute float64 `yaml:"requests_per_minute,omitempty"`
}

// DaemonConfig drives the periodic overdue sweep.
type DaemonConfig struct {
	SweepSpec   string `yaml:"sweep_spec"`
	Timezone    string `yaml:"timezone,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Weights:   schedule.DefaultWeights(),
			Tolerance: engine.DefaultConfig().Tolerance,
			MaxTasks:  graph.DefaultMaxTasks,
		},
		AI:     AIConfig{Provider: "ollama", Model: "llama3", RequestsPerMinute: 30},
		Daemon: DaemonConfig{SweepSpec: DefaultSweepSpec, Timezone: "UTC"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file under root, fills defaults for missing fields
// and applies environment overrides. A missing file is not an error.
func Load(root string) (*Config, error) {
	cfg, err := LoadFile(root)
	if err != nil {
		return nil, err
	}
	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the config file only.
func LoadFile(root string) (*Config, error) {
	path, err := storage.NewFilesystemRepository(root).ResolvePath(FileName)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to the workspace.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	path, err := storage.NewFilesystemRepository(root).ResolvePath(FileName)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("engine.tolerance must not be negative"))
	}
	if c.Engine.MaxTasks < 0 {
		errs = append(errs, fmt.Errorf("engine.max_tasks must not be negative"))
	}
	if _, err := c.horizonPadding(); err != nil {
		errs = append(errs, err)
	}
	w := c.Engine.Weights
	if w.Slack < 0 || w.Unschedulable < 0 || w.Lateness < 0 {
		errs = append(errs, fmt.Errorf("engine.weights must not be negative"))
	}
	if c.AI.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("ai.requests_per_minute must not be negative"))
	}
	if c.Daemon.Timezone != "" {
		if _, err := time.LoadLocation(c.Daemon.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("daemon.timezone: %w", err))
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (c *Config) horizonPadding() (time.Duration, error) {
	if c.Engine.HorizonPadding == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Engine.HorizonPadding)
	if err != nil {
		return 0, fmt.Errorf("engine.horizon_padding: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("engine.horizon_padding must not be negative")
	}
	return d, nil
}

// EngineConfig converts the engine section. Zero values keep engine defaults.
func (c *Config) EngineConfig() (engine.Config, error) {
	padding, err := c.horizonPadding()
	if err != nil {
		return engine.Config{}, err
	}
	out := engine.Config{
		Weights:          c.Engine.Weights,
		Tolerance:        c.Engine.Tolerance,
		MaxTasks:         c.Engine.MaxTasks,
		HorizonPadding:   padding,
		AllowSlipOnAdapt: c.Engine.AllowSlipOnAdapt,
	}
	switch {
	case c.Engine.SkipActionability:
		out.Actionability = nil
	case c.Engine.Actionability != nil:
		policy := *c.Engine.Actionability
		out.Actionability = &policy
	default:
		policy := graph.DefaultActionability()
		out.Actionability = &policy
	}
	return out, nil
}

// Location returns the daemon's cron time zone.
func (c *Config) Location() *time.Location {
	if c.Daemon.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Daemon.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
