// Package resilience provides retry helpers shared by the example services'
// own external-connection loops (NATS reconnects, bbolt snapshot flushes).
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
)

// Retry executes fn with an exponential backoff policy, stopping early on
// ctx cancellation, a successful call, or maxElapsed having passed.
func Retry[T any](ctx context.Context, maxElapsed time.Duration, fn func() (T, error)) (T, error) {
	var zero T

	meter := otel.Meter("svctree")
	attemptCounter, _ := meter.Int64Counter("svctree_resilience_retry_attempts_total")
	successCounter, _ := meter.Int64Counter("svctree_resilience_retry_success_total")
	failCounter, _ := meter.Int64Counter("svctree_resilience_retry_fail_total")

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed
	withCtx := backoff.WithContext(policy, ctx)

	var result T
	op := func() error {
		v, err := fn()
		attemptCounter.Add(ctx, 1)
		if err != nil {
			return err
		}
		result = v
		return nil
	}

	if err := backoff.Retry(op, withCtx); err != nil {
		failCounter.Add(ctx, 1)
		return zero, err
	}
	successCounter.Add(ctx, 1)
	return result, nil
}
