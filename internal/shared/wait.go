package shared

import (
	"context"
	"fmt"
	"time"
)

// WaitFor polls check every interval until it succeeds, ctx ends, or ceiling elapses.
//
// The first check runs immediately. On timeout the last check error is wrapped with [ErrTimeout].
func WaitFor(ctx context.Context, interval, ceiling time.Duration, check func(context.Context) error) error {
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		if last = check(ctx); last == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w after %v: %v", ErrTimeout, ceiling, last)
		case <-ticker.C:
		}
	}
}
