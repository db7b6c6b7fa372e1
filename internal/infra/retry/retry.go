package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const DefaultMaxRetries = 3

// transient is a private interface for checking retryable errors
// without importing the adapter package that produced them.
type transient interface {
	IsTransient()
}

// Invoker retries transient-classified operations with exponential backoff.
// It holds no mutable state besides its configuration and is safe for
// concurrent use by multiple logical callers.
type Invoker struct {
	logger     *slog.Logger
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a new retry invoker. maxRetries is the total number of
// attempts; values below 1 fall back to DefaultMaxRetries.
func New(logger *slog.Logger, maxRetries int) *Invoker {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	return &Invoker{
		logger:     logger,
		maxRetries: maxRetries,
		sleep:      sleepContext,
	}
}

// Do executes fn, retrying transient errors with delays of 2^attempt seconds
// (1s, 2s, 4s, ...). Non-transient errors are returned immediately. When all
// attempts fail the last cause is wrapped in ErrExhaustedRetries.
func Do[T any](ctx context.Context, inv *Invoker, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	var lastErr error

	for attempt := 0; attempt < inv.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt - 1)

			inv.logger.DebugContext(ctx, "retrying after transient error",
				"op", op,
				"attempt", attempt,
				"delay", delay,
				"reason", lastErr,
			)

			if err := inv.sleep(ctx, delay); err != nil {
				return zero, fmt.Errorf("%s: backoff wait: %w", op, err)
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		var target transient
		if !errors.As(err, &target) {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
	}

	return zero, fmt.Errorf("%s: %w: %w", op, ErrExhaustedRetries, lastErr)
}

// backoffDelay returns 2^attempt seconds, base attempt 0.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
