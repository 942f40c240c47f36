package wiring

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/felixgeelhaar/pacer/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/pacer/pkg/ai"
	domainai "github.com/felixgeelhaar/pacer/pkg/domain/ai"
)

// LoadAIProvider builds the configured decomposition provider wrapped with
// retry and timeout.
func LoadAIProvider(cfg config.AIConfig) (domainai.Provider, error) {
	providerName := "ollama"
	modelName := "llama3"
	resilienceConfig := infraai.DefaultResilienceConfig()

	if cfg.Provider != "" {
		providerName = cfg.Provider
	}
	if cfg.Model != "" {
		modelName = cfg.Model
	}
	if cfg.MaxRetries > 0 {
		resilienceConfig.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelayMs > 0 {
		resilienceConfig.RetryDelay = time.Duration(cfg.RetryDelayMs) * time.Millisecond
	}
	if cfg.TimeoutSec > 0 {
		resilienceConfig.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return infraai.NewResilient(providerName, modelName, resilienceConfig)
}

// NewAILimiter paces provider calls. A zero rate returns nil, which the
// decomposition service replaces with its own default.
func NewAILimiter(cfg config.AIConfig) *rate.Limiter {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
}
