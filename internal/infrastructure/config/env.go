package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

const namespace = "PACER"

// Env holds PACER_* overrides. Empty fields leave the file value alone.
// Keep names on split_words: an envconfig tag would also read the unprefixed
// variable (plain ROOT or USER).
type Env struct {
	Root       string `split_words:"true"`
	User       string `split_words:"true"`
	LogLevel   string `split_words:"true"`
	LogFormat  string `split_words:"true"`
	AIProvider string `split_words:"true"`
	AIModel    string `split_words:"true"`
	SweepSpec  string `split_words:"true"`
}

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// Apply copies the set overrides into c.
func (e *Env) Apply(c *Config) {
	if e == nil {
		return
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	if e.LogFormat != "" {
		c.Log.Format = e.LogFormat
	}
	if e.AIProvider != "" {
		c.AI.Provider = e.AIProvider
	}
	if e.AIModel != "" {
		c.AI.Model = e.AIModel
	}
	if e.SweepSpec != "" {
		c.Daemon.SweepSpec = e.SweepSpec
	}
}

// SlogLevel parses the configured level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
