package tourstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "put test", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on the third attempt, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("got %d calls, want 3", calls)
	}
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	transient := errors.New("service unavailable")
	err := withRetry(context.Background(), "put test", func() error {
		calls++
		return transient
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if !errors.Is(err, transient) {
		t.Fatalf("expected the last error wrapped, got %v", err)
	}
	if calls != maxAttempts {
		t.Fatalf("got %d calls, want %d", calls, maxAttempts)
	}
}

func TestWithRetryDoesNotRetryNotFound(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "get test", func() error {
		calls++
		return ErrTourNotFound
	})
	if !errors.Is(err, ErrTourNotFound) {
		t.Fatalf("expected the sentinel to pass through, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("not-found must not be retried, got %d calls", calls)
	}
}

func TestWithRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := withRetry(ctx, "put test", func() error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > retryBaseDelay {
		t.Fatalf("canceled context must short-circuit the backoff wait, took %v", elapsed)
	}
}

func TestObjectKeyLayout(t *testing.T) {
	cfg := &Config{BucketName: "tours"}
	if got := cfg.GetObjectKey(42, "abc-123"); got != "tours/42/abc-123.json" {
		t.Fatalf("GetObjectKey = %q", got)
	}
	if got := cfg.GetUserPrefix(42); got != "tours/42/" {
		t.Fatalf("GetUserPrefix = %q", got)
	}
}
