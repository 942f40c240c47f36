package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	infraAI "github.com/felixgeelhaar/pacer/pkg/ai"
	"github.com/felixgeelhaar/pacer/pkg/domain/ai"
)

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) ID() string { return "flaky" }

func (f *flakyProvider) Complete(context.Context, ai.CompletionRequest) (*ai.CompletionResponse, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("temporary")
	}
	return &ai.CompletionResponse{Text: "ok"}, nil
}

func TestResilientProvider_Defaults(t *testing.T) {
	p := infraAI.NewResilientProviderWithConfig(&infraAI.MockProvider{Model: "m"}, infraAI.ResilienceConfig{})
	if p.ID() != "mock:m" {
		t.Errorf("ID = %q", p.ID())
	}
	if p.Config() != infraAI.DefaultResilienceConfig() {
		t.Errorf("Config = %+v, want defaults", p.Config())
	}
}

func TestResilientProvider_RetriesTransientFailure(t *testing.T) {
	inner := &flakyProvider{failures: 1}
	p := infraAI.NewResilientProviderWithConfig(inner, infraAI.ResilienceConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	})
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ok" || inner.calls != 2 {
		t.Errorf("text=%q calls=%d, want ok after 2 calls", resp.Text, inner.calls)
	}
}

func TestResilientProvider_GivesUp(t *testing.T) {
	inner := &flakyProvider{failures: 10}
	p := infraAI.NewResilientProviderWithConfig(inner, infraAI.ResilienceConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
	})
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error after retries")
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestMockProvider_ReplaysResponses(t *testing.T) {
	p := &infraAI.MockProvider{Responses: []string{"a", "b"}}
	var got []string
	for i := 0; i < 3; i++ {
		resp, _ := p.Complete(context.Background(), ai.CompletionRequest{Prompt: "p"})
		got = append(got, resp.Text)
	}
	if got[0] != "a" || got[1] != "b" || got[2] != "b" {
		t.Errorf("got %v", got)
	}
	if len(p.Calls()) != 3 {
		t.Errorf("Calls = %d", len(p.Calls()))
	}
}
