package ai

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	resp *CompletionResponse
	err  error
}

func (s *stubProvider) ID() string { return "stub" }
func (s *stubProvider) Complete(context.Context, CompletionRequest) (*CompletionResponse, error) {
	return s.resp, s.err
}

func TestProvider_Contract(t *testing.T) {
	var p Provider = &stubProvider{resp: &CompletionResponse{Text: "[]", Usage: TokenUsage{InputTokens: 10, OutputTokens: 5}}}
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "decompose", JSON: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Usage.Total() != 15 {
		t.Errorf("Total = %d, want 15", resp.Usage.Total())
	}

	p = &stubProvider{err: ErrNoContent}
	if _, err := p.Complete(context.Background(), CompletionRequest{}); !errors.Is(err, ErrNoContent) {
		t.Errorf("err = %v, want ErrNoContent", err)
	}
}
