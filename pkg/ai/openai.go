package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/pacer/pkg/domain/ai"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

type OpenAIProvider struct {
	Model  string
	APIKey string
	ep     endpoint
}

func NewOpenAIProvider(model string, apiKey string) *OpenAIProvider {
	return NewOpenAIProviderWithClient(model, apiKey, "", nil)
}

// NewOpenAIProviderWithClient creates a provider against a custom base URL.
func NewOpenAIProviderWithClient(model, apiKey, baseURL string, client *http.Client) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o"
	}
	if baseURL == "" {
		baseURL = openAIURL
	}
	return &OpenAIProvider{
		Model:  model,
		APIKey: apiKey,
		ep: endpoint{
			url:    baseURL,
			client: client,
			header: http.Header{"Authorization": {"Bearer " + apiKey}},
		},
	}
}

func (p *OpenAIProvider) ID() string {
	return "openai:" + p.Model
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float32         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY)")
	}

	in := openAIRequest{Model: p.Model, Temperature: req.Temperature, MaxTokens: req.MaxTokens}
	if req.System != "" {
		in.Messages = append(in.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	in.Messages = append(in.Messages, openAIMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		in.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	var out openAIResponse
	if err := p.ep.post(ctx, "OpenAI", in, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI: %w", ai.ErrNoContent)
	}

	return &ai.CompletionResponse{
		Text:  out.Choices[0].Message.Content,
		Model: p.Model,
		Usage: ai.TokenUsage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
		},
	}, nil
}
