package ai

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/pacer/pkg/domain/ai"
)

// NewProvider builds a bare backend by name. API keys come from the
// backend's usual environment variable.
func NewProvider(providerName, modelName string) (ai.Provider, error) {
	switch providerName {
	case "ollama", "":
		return NewOllamaProvider(modelName), nil
	case "mock":
		return &MockProvider{Model: modelName}, nil
	case "openai":
		return NewOpenAIProvider(modelName, os.Getenv("OPENAI_API_KEY")), nil
	case "anthropic":
		return NewAnthropicProvider(modelName, os.Getenv("ANTHROPIC_API_KEY")), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", providerName)
	}
}

// NewResilient builds a backend by name wrapped in a ResilientProvider.
func NewResilient(providerName, modelName string, cfg ResilienceConfig) (ai.Provider, error) {
	p, err := NewProvider(providerName, modelName)
	if err != nil {
		return nil, err
	}
	return NewResilientProviderWithConfig(p, cfg), nil
}
