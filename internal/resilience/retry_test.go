package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	v, err := Retry(context.Background(), 3*time.Second, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	if attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", attempts)
	}
}

func TestRetryGivesUpAfterMaxElapsed(t *testing.T) {
	sentinel := errors.New("always fails")
	_, err := Retry(context.Background(), 20*time.Millisecond, func() (int, error) {
		return 0, sentinel
	})
	if err == nil {
		t.Fatalf("expected an error once max elapsed time passes")
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, time.Second, func() (int, error) {
		return 0, errors.New("fails")
	})
	if err == nil {
		t.Fatalf("expected an error when context is already cancelled")
	}
}
