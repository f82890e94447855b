package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"time"
)

const MaxRetries = 3

// IsRetryable reports whether a storage error may succeed on another
// attempt. Cancellation and permission errors never do.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, fs.ErrPermission):
		return false
	}
	return true
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 5*time.Second {
		base = 5 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry runs fn up to MaxRetries times while it fails with a
// retryable error.
func withRetry[T any](ctx context.Context, log *slog.Logger, op string, backoff func(int) time.Duration, fn func() (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for attempt := range MaxRetries {
		v, err = fn()
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable storage error", "op", op, "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return v, ctx.Err()
		}
	}
	return v, err
}
