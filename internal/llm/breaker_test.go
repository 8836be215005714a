package llm

import (
	"testing"

	"github.com/prismis/prismis/internal/apperr"
)

// TestBreakerOpensAfterThreeQuotaFailures: the breaker opens after
// exactly three quota-class failures and
// rejects the next call without invoking fn at all.
func TestBreakerOpensAfterThreeQuotaFailures(t *testing.T) {
	ResetBreakerForTest()
	t.Cleanup(ResetBreakerForTest)

	quotaErr := apperr.New(apperr.KindQuota, "insufficient_quota")

	for i := 0; i < quotaTripThreshold; i++ {
		_, err := guardQuota(nil, func() (any, error) { return nil, quotaErr })
		if !apperr.Is(err, apperr.KindQuota) {
			t.Fatalf("failure %d: expected quota error, got %v", i, err)
		}
	}

	calls := 0
	_, err := guardQuota(nil, func() (any, error) {
		calls++
		return "should not run", nil
	})
	if calls != 0 {
		t.Fatalf("expected guardQuota to reject locally without calling fn, fn ran %d times", calls)
	}
	if !apperr.Is(err, apperr.KindQuota) {
		t.Fatalf("expected a quota-kind rejection once open, got %v", err)
	}
}

// TestBreakerIgnoresNonQuotaFailures covers the "ordinary validation/
// transient errors never count toward the breaker" behavior documented in
// guardQuota: three non-quota failures must never trip it.
func TestBreakerIgnoresNonQuotaFailures(t *testing.T) {
	ResetBreakerForTest()
	t.Cleanup(ResetBreakerForTest)

	transientErr := apperr.New(apperr.KindTransient, "timeout")
	for i := 0; i < quotaTripThreshold+2; i++ {
		_, err := guardQuota(nil, func() (any, error) { return nil, transientErr })
		if err == nil || apperr.Is(err, apperr.KindQuota) {
			t.Fatalf("iteration %d: expected the original transient error to pass through untouched, got %v", i, err)
		}
	}

	calls := 0
	_, err := guardQuota(nil, func() (any, error) {
		calls++
		return "ok", nil
	})
	if calls != 1 {
		t.Fatalf("breaker should still be closed after only non-quota failures, fn called %d times", calls)
	}
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
