package scenario

import (
	"context"
	"time"
)

// condition is evaluated repeatedly until it holds. observed describes the
// state seen on this attempt and is reported when the wait times out.
type condition func(ctx context.Context) (ok bool, observed string, err error)

// waitFor polls cond every interval until it holds or timeout elapses. Errors
// returned by cond are treated as "not yet" (the page may be mid-navigation)
// and only surface inside the TimeoutError.
func waitFor(ctx context.Context, timeout, interval time.Duration, expected string, cond condition) error {
	deadline := time.Now().Add(timeout)

	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var observed string
	var lastErr error
	for {
		ok, obs, err := cond(waitCtx)
		if err == nil && ok {
			return nil
		}
		if obs != "" {
			observed = obs
		}
		if err != nil && waitCtx.Err() == nil {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil && time.Now().Before(deadline) {
				// Parent cancelled before our own bound expired
				return ctx.Err()
			}
			return &TimeoutError{
				Expected: expected,
				Observed: observed,
				Timeout:  timeout,
				LastErr:  lastErr,
			}
		case <-time.After(interval):
		}
	}
}
