package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/config"
)

// NewClientFromConfig builds the provider client named by cfg.Provider and wraps it
// with retry and a circuit breaker.
func NewClientFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*CircuitBreakerClient, error) {
	clientCfg := &Config{
		Endpoint:  cfg.BaseURL,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
		JSONMode:  true,
	}

	var (
		inner LLMClient
		err   error
	)
	switch cfg.Provider {
	case "openai":
		inner, err = NewClient(clientCfg, logger)
	case "anthropic":
		inner, err = NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		ResetAfter: cfg.CircuitBreakerReset,
	})

	logger.Info("LLM client configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", inner.GetModel()),
		zap.String("endpoint", inner.GetEndpoint()))

	return NewCircuitBreakerClient(inner, breaker, nil, logger), nil
}
