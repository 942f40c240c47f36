package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".pacer"), 0700); err != nil {
		t.Fatalf("mkdir .pacer: %v", err)
	}

	cfg, err := LoadFile(tempDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Daemon.SweepSpec != DefaultSweepSpec || cfg.AI.Provider != "ollama" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Engine.Weights.Unschedulable != 1000 {
		t.Errorf("weights = %+v", cfg.Engine.Weights)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".pacer"), 0700); err != nil {
		t.Fatalf("mkdir .pacer: %v", err)
	}

	input := Default()
	input.AI = AIConfig{Provider: "mock", Model: "test-model"}
	input.Engine.HorizonPadding = "240h"
	input.Engine.AllowSlipOnAdapt = true
	if err := Save(tempDir, input); err != nil {
		t.Fatalf("save config: %v", err)
	}

	cfg, err := LoadFile(tempDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AI.Provider != "mock" || cfg.AI.Model != "test-model" {
		t.Errorf("ai = %+v", cfg.AI)
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if ec.HorizonPadding != 240*time.Hour || !ec.AllowSlipOnAdapt || ec.Actionability == nil {
		t.Errorf("engine config = %+v", ec)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".pacer")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	data := []byte("engine:\n  tolerance: 2.5\n  skip_actionability: true\n")
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(tempDir)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Engine.Tolerance != 2.5 || cfg.Log.Level != "info" {
		t.Errorf("cfg = %+v", cfg)
	}
	ec, _ := cfg.EngineConfig()
	if ec.Actionability != nil {
		t.Error("skip_actionability should disable the policy")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "negative tolerance", mutate: func(c *Config) { c.Engine.Tolerance = -1 }, wantErr: true},
		{name: "bad padding", mutate: func(c *Config) { c.Engine.HorizonPadding = "a month" }, wantErr: true},
		{name: "negative weight", mutate: func(c *Config) { c.Engine.Weights.Slack = -1 }, wantErr: true},
		{name: "unknown zone", mutate: func(c *Config) { c.Daemon.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PACER_LOG_LEVEL", "debug")
	t.Setenv("PACER_AI_PROVIDER", "mock")
	t.Setenv("PACER_SWEEP_SPEC", "@hourly")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	cfg := Default()
	env.Apply(cfg)
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.Log.SlogLevel())
	}
	if cfg.AI.Provider != "mock" || cfg.AI.Model != "llama3" {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.Daemon.SweepSpec != "@hourly" {
		t.Errorf("sweep spec = %q", cfg.Daemon.SweepSpec)
	}
}

func TestEnvIgnoresUnprefixedNames(t *testing.T) {
	t.Setenv("ROOT", "/elsewhere")
	t.Setenv("USER", "someone")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AI_MODEL", "other")
	t.Setenv("PACER_LOG_FORMAT", "json")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.Root != "" || env.User != "" {
		t.Errorf("unprefixed root/user leaked in: %+v", env)
	}
	cfg := Default()
	env.Apply(cfg)
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("level = %v, want info", cfg.Log.SlogLevel())
	}
	if cfg.AI.Model != "llama3" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("format = %q", cfg.Log.Format)
	}
}

func TestSlogLevelFallback(t *testing.T) {
	if got := (LogConfig{Level: "loud"}).SlogLevel(); got != slog.LevelInfo {
		t.Errorf("SlogLevel = %v, want info", got)
	}
	if got := (LogConfig{Level: "WARN"}).SlogLevel(); got != slog.LevelWarn {
		t.Errorf("SlogLevel = %v, want warn", got)
	}
}
