package resilience

import (
	"context"
)

// Guard protects calls to one external backend with a circuit breaker
// around a bounded retry loop.
type Guard struct {
	breaker     *CircuitBreaker
	retry       *RetryConfig
	isRetryable IsRetryableError
}

// NewGuard creates a guard. A nil retry config means a single attempt.
func NewGuard(breaker *CircuitBreaker, retry *RetryConfig) *Guard {
	if retry == nil {
		retry = &RetryConfig{MaxAttempts: 1}
	}
	return &Guard{
		breaker:     breaker,
		retry:       retry,
		isRetryable: IsRetryableNetworkError,
	}
}

// Breaker returns the guard's circuit breaker
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// Do runs fn under the breaker; transient failures are retried within the same breaker slot
func (g *Guard) Do(ctx context.Context, fn RetryableFunc) error {
	call := func(ctx context.Context) error {
		return Retry(ctx, fn, g.retry, g.isRetryable)
	}
	if g.breaker == nil {
		return call(ctx)
	}
	return g.breaker.Call(ctx, call)
}
