package ai

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/pacer/pkg/domain/ai"
)

// MockProvider replays canned answers. With no Responses it returns an empty
// JSON task list.
type MockProvider struct {
	Model     string
	Responses []string

	mu    sync.Mutex
	calls []ai.CompletionRequest
}

func (p *MockProvider) ID() string {
	return "mock:" + p.Model
}

func (p *MockProvider) Complete(_ context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)

	text := `{"tasks": []}`
	if n := len(p.Responses); n > 0 {
		i := len(p.calls) - 1
		if i >= n {
			i = n - 1
		}
		text = p.Responses[i]
	}
	return &ai.CompletionResponse{
		Text:  text,
		Model: p.Model,
		Usage: ai.TokenUsage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(text) / 4},
	}, nil
}

// Calls returns the requests seen so far.
func (p *MockProvider) Calls() []ai.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.CompletionRequest(nil), p.calls...)
}
