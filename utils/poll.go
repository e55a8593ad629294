package utils

import (
	"context"
	"fmt"
	"time"
)

// Poll calls fetch every interval until it reports ready, fails, or timeout
// passes. It returns the value of the ready call. A timeout error wraps
// context.DeadlineExceeded.
func Poll[T any](ctx context.Context, timeout, interval time.Duration, fetch func(context.Context) (T, bool, error)) (T, error) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		v, ready, err := fetch(pctx)
		switch {
		case err != nil:
			var zero T
			return zero, err
		case ready:
			return v, nil
		}
		select {
		case <-pctx.Done():
			var zero T
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			return zero, fmt.Errorf("gave up after %s: %w", timeout, context.DeadlineExceeded)
		case <-ticker.C:
		}
	}
}
