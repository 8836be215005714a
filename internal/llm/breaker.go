package llm

import (
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/metrics"
	"github.com/prismis/prismis/internal/observability"
)

// quotaTripThreshold is the number of quota-class failures that open the
// breaker.
const quotaTripThreshold = 3

// recoveryTimeout is the window that must elapse before a HALF_OPEN probe
// is allowed.
const recoveryTimeout = time.Hour

var (
	breakerOnce sync.Once
	breaker     *gobreaker.CircuitBreaker[any]
)

// Breaker returns the process-wide circuit breaker singleton, constructing
// it on first use. It trips on *quota-class* failures
// specifically, tracked via a counts-based ReadyToTrip rather than a flat
// failure ratio, and emits to internal/observability instead of only
// logging.
func Breaker(obs *observability.Logger) *gobreaker.CircuitBreaker[any] {
	breakerOnce.Do(func() {
		breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        "llm-quota",
			MaxRequests: 1, // single HALF_OPEN probe after the recovery window
			Interval:    0, // counts never reset while closed; only quota failures matter
			Timeout:     recoveryTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= quotaTripThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.BreakerState.Set(stateToFloat(to))
				metrics.BreakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
				if obs != nil {
					obs.BreakerStateChange(from.String(), to.String())
				}
			},
		})
	})
	return breaker
}

// ResetBreakerForTest rebuilds the singleton breaker so tests can start
// from a CLOSED state.
func ResetBreakerForTest() {
	breakerOnce = sync.Once{}
	breaker = nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// guardQuota wraps fn with the circuit breaker: only quota-class errors
// count toward gobreaker's ConsecutiveFailures (and hence ReadyToTrip) -
// a non-quota failure is reported to gobreaker as a "success" carrying the
// real error alongside the result, so an ordinary run of transient/
// validation errors never trips the quota breaker. When the breaker is
// open, gobreaker's Execute rejects without calling fn at all - no I/O
// happens on a rejected call.
func guardQuota(obs *observability.Logger, fn func() (any, error)) (any, error) {
	b := Breaker(obs)
	raw, execErr := b.Execute(func() (any, error) {
		res, callErr := fn()
		if callErr != nil && !IsQuotaError(callErr) {
			return nonQuotaResult{res: res, err: callErr}, nil
		}
		return res, callErr
	})
	switch execErr {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return nil, apperr.ErrBreakerOpen
	}
	if execErr != nil {
		return nil, execErr // a genuine quota-class failure, counted toward tripping
	}
	if wrapped, ok := raw.(nonQuotaResult); ok {
		return wrapped.res, wrapped.err
	}
	return raw, nil
}

// nonQuotaResult carries a non-quota failure back out of gobreaker's
// Execute without it being counted as a breaker failure.
type nonQuotaResult struct {
	res any
	err error
}
