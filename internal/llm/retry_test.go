package llm

import (
	"context"
	"testing"

	"github.com/prismis/prismis/internal/apperr"
)

func TestWithRetrySucceedsWithoutRetrying(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), nil, "summarize", 3, func() (any, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "ok" || calls != 1 {
		t.Fatalf("expected exactly one call on immediate success, got %d calls, result %v", calls, result)
	}
}

func TestWithRetryReraisesNonTransientImmediately(t *testing.T) {
	calls := 0
	validationErr := apperr.New(apperr.KindValidation, "bad request")
	_, err := withRetry(context.Background(), nil, "evaluate", 3, func() (any, error) {
		calls++
		return nil, validationErr
	})
	if calls != 1 {
		t.Fatalf("non-transient errors must not be retried, got %d calls", calls)
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error to pass through, got %v", err)
	}
}

func TestWithRetryExhaustsOnPersistentTransientError(t *testing.T) {
	calls := 0
	transientErr := apperr.New(apperr.KindTransient, "timeout")
	_, err := withRetry(context.Background(), nil, "embed", 1, func() (any, error) {
		calls++
		return nil, transientErr
	})
	if calls != 2 {
		t.Fatalf("maxRetries=1 should attempt the initial call plus one retry (2 total), got %d", calls)
	}
	if !apperr.Is(err, apperr.KindTransient) {
		t.Fatalf("expected the last transient error returned on exhaustion, got %v", err)
	}
}

func TestWithRetryRecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	transientErr := apperr.New(apperr.KindTransient, "503")
	result, err := withRetry(context.Background(), nil, "summarize", 2, func() (any, error) {
		calls++
		if calls == 1 {
			return nil, transientErr
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if result != "recovered" || calls != 2 {
		t.Fatalf("expected recovery on second attempt, got %d calls, result %v", calls, result)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	transientErr := apperr.New(apperr.KindTransient, "timeout")
	_, err := withRetry(ctx, nil, "embed", 3, func() (any, error) {
		calls++
		return nil, transientErr
	})
	if calls != 1 {
		t.Fatalf("expected exactly one attempt before the cancelled context aborts the backoff wait, got %d", calls)
	}
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
