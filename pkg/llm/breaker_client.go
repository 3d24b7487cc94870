package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/retry"
)

// CircuitBreakerClient wraps a provider client with transient-error retry and a circuit breaker.
type CircuitBreakerClient struct {
	inner    LLMClient
	breaker  *CircuitBreaker
	retryCfg *retry.Config
	logger   *zap.Logger
}

// DefaultRetryConfig keeps retries short: a chat request shares one watchdog deadline
// across every model call it makes.
func DefaultRetryConfig() *retry.Config {
	return &retry.Config{
		MaxRetries:       1,
		InitialDelay:     500 * time.Millisecond,
		MaxDelay:         2 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 2,
	}
}

// NewCircuitBreakerClient wraps inner. A nil retryCfg uses DefaultRetryConfig.
func NewCircuitBreakerClient(inner LLMClient, breaker *CircuitBreaker, retryCfg *retry.Config, logger *zap.Logger) *CircuitBreakerClient {
	if retryCfg == nil {
		retryCfg = DefaultRetryConfig()
	}
	return &CircuitBreakerClient{
		inner:    inner,
		breaker:  breaker,
		retryCfg: retryCfg,
		logger:   logger.Named("llm-breaker"),
	}
}

// GenerateResponse implements LLMClient.
func (c *CircuitBreakerClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	if ok, err := c.breaker.Allow(); !ok {
		return nil, NewError(ErrorTypeCircuitOpen, "provider unavailable", false, err).
			WithContext(c.inner.GetModel(), c.inner.GetEndpoint())
	}

	var result *GenerateResponseResult
	err := retry.DoIfRetryable(ctx, c.retryCfg, func() error {
		r, err := c.inner.GenerateResponse(ctx, prompt, systemMessage, temperature)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		classified := ClassifyError(err)
		if classified.Type == ErrorTypeCancelled || ctx.Err() != nil {
			c.breaker.ReleaseProbe()
			return nil, classified
		}
		c.breaker.RecordFailure()
		c.logger.Warn("LLM call failed",
			zap.String("error_type", string(classified.Type)),
			zap.String("circuit_state", c.breaker.State().String()),
			zap.Int("consecutive_failures", c.breaker.ConsecutiveFailures()),
			zap.Error(err))
		return nil, classified
	}

	c.breaker.RecordSuccess()
	return result, nil
}

// GetModel implements LLMClient.
func (c *CircuitBreakerClient) GetModel() string {
	return c.inner.GetModel()
}

// GetEndpoint implements LLMClient.
func (c *CircuitBreakerClient) GetEndpoint() string {
	return c.inner.GetEndpoint()
}

// Breaker exposes the underlying circuit breaker for health reporting.
func (c *CircuitBreakerClient) Breaker() *CircuitBreaker {
	return c.breaker
}
