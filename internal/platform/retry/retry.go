// Package retry wraps dependency connection attempts in exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxElapsed bounds how long startup waits for a dependency.
const DefaultMaxElapsed = 30 * time.Second

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Connect runs op until it succeeds, returns a Permanent error, ctx ends, or
// maxElapsed passes. Each failed attempt is logged at warn.
func Connect(ctx context.Context, logger *slog.Logger, name string, maxElapsed time.Duration, op func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxElapsed

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return op(ctx)
		},
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			if logger != nil {
				logger.WarnContext(ctx, "dependency not ready, retrying",
					"dependency", name,
					"attempt", attempt,
					"retry_in", wait.String(),
					"error", err,
				)
			}
		},
	)
}
