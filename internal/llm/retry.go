package llm

import (
	"context"
	"math"
	"time"

	"github.com/prismis/prismis/internal/observability"
)

// defaultMaxRetries bounds the exponential backoff loop; exhaustion emits
// llm.retry{action=exhausted}.
const defaultMaxRetries = 3

// retryBase is the exponential backoff base (base^attempt seconds).
const retryBase = 2.0

// withRetry runs fn, retrying on transient errors with base^attempt second
// backoff up to maxRetries. Non-transient errors (quota, validation)
// re-raise immediately without retrying - quota errors are the circuit
// breaker's concern, not the retry loop's.
func withRetry(ctx context.Context, obs *observability.Logger, action string, maxRetries int, fn func() (any, error)) (any, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsTransientError(err) {
			return nil, err
		}
		if attempt == maxRetries {
			break
		}
		wait := time.Duration(math.Pow(retryBase, float64(attempt))) * time.Second
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if obs != nil {
		obs.LLMRetryExhausted(action, "exhausted")
	}
	return nil, lastErr
}
