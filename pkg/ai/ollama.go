package ai

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/pacer/pkg/domain/ai"
)

const ollamaURL = "http://localhost:11434/api/generate"

var safeModelName = regexp.MustCompile(`^[a-zA-Z0-9:._-]+$`)

// OllamaProvider talks to a local Ollama server.
type OllamaProvider struct {
	Model string
	ep    endpoint
}

func NewOllamaProvider(model string) *OllamaProvider {
	return NewOllamaProviderWithClient(model, "", nil)
}

// NewOllamaProviderWithClient creates a provider against a custom base URL.
func NewOllamaProviderWithClient(model, baseURL string, client *http.Client) *OllamaProvider {
	if model == "" {
		model = "llama3"
	}
	if baseURL == "" {
		baseURL = ollamaURL
	}
	return &OllamaProvider{Model: model, ep: endpoint{url: baseURL, client: client}}
}

func (p *OllamaProvider) ID() string {
	return "ollama:" + p.Model
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if !safeModelName.MatchString(p.Model) {
		return nil, fmt.Errorf("invalid model name: %s", p.Model)
	}
	if req.Temperature < 0 {
		return nil, fmt.Errorf("invalid temperature: %v", req.Temperature)
	}

	in := ollamaRequest{Model: p.Model, Prompt: req.Prompt, System: req.System}
	if req.JSON {
		in.Format = "json"
	}
	if req.Temperature > 0 {
		in.Options = map[string]any{"temperature": req.Temperature}
	}

	var out ollamaResponse
	if err := p.ep.post(ctx, "Ollama", in, &out); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return nil, fmt.Errorf("Ollama: %w", ai.ErrNoContent)
	}

	return &ai.CompletionResponse{
		Text:  text,
		Model: p.Model,
		Usage: ai.TokenUsage{InputTokens: out.PromptEvalCount, OutputTokens: out.EvalCount},
	}, nil
}
