package wiring

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/config"
	domainai "github.com/felixgeelhaar/pacer/pkg/domain/ai"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
)

func initWorkspace(t *testing.T, cfg *config.Config) string {
	t.Helper()
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".pacer"), 0700); err != nil {
		t.Fatalf("mkdir .pacer: %v", err)
	}
	if cfg != nil {
		if err := config.Save(tempDir, cfg); err != nil {
			t.Fatalf("save config: %v", err)
		}
	}
	return tempDir
}

func TestBuildAppServicesDefaults(t *testing.T) {
	t.Setenv("PACER_AI_PROVIDER", "")
	root := initWorkspace(t, nil)

	services, err := BuildAppServices(root, io.Discard)
	if err != nil {
		t.Fatalf("build services failed: %v", err)
	}
	if services.Goals == nil || services.Schedules == nil || services.Overdue == nil || services.Decompose == nil {
		t.Fatalf("expected non-nil services, got %+v", services)
	}
	if services.Provider.ID() != "ollama:llama3" {
		t.Fatalf("expected default provider id, got %s", services.Provider.ID())
	}
	if services.Env.Locks == nil || services.Env.Dispatcher.HandlerCount(events.EventTypeTaskMustSlip) != 3 {
		t.Errorf("env not wired: %+v", services.Env)
	}
}

func TestBuildAppServicesFallbackOnInvalidProvider(t *testing.T) {
	t.Setenv("PACER_AI_PROVIDER", "")
	cfg := config.Default()
	cfg.AI = config.AIConfig{Provider: "unknown", Model: "nope"}
	root := initWorkspace(t, cfg)

	services, err := BuildAppServices(root, io.Discard)
	if err == nil {
		t.Fatalf("expected error when provider is invalid")
	}
	if services == nil {
		t.Fatal("expected services even when fallback error occurs")
	}
	if services.Provider.ID() != "ollama:llama3" {
		t.Fatalf("expected fallback provider id, got %s", services.Provider.ID())
	}
}

type stubProvider struct{}

func (stubProvider) ID() string { return "stub:provider" }
func (stubProvider) Complete(_ context.Context, _ domainai.CompletionRequest) (*domainai.CompletionResponse, error) {
	return &domainai.CompletionResponse{Model: "stub"}, nil
}

func TestBuildAppServicesWithProvider(t *testing.T) {
	root := initWorkspace(t, nil)

	services, err := BuildAppServicesWithProvider(root, io.Discard, func(config.AIConfig) (domainai.Provider, error) {
		return stubProvider{}, nil
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if services.Provider.ID() != "stub:provider" {
		t.Errorf("provider = %s", services.Provider.ID())
	}

	_, err = BuildAppServicesWithProvider(root, io.Discard, func(config.AIConfig) (domainai.Provider, error) {
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Error("expected the resolver error to surface")
	}
}

func TestBuildAppServicesRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.HorizonPadding = "forever"
	root := initWorkspace(t, cfg)
	if _, err := BuildAppServices(root, io.Discard); err == nil {
		t.Error("expected config validation error")
	}
}
