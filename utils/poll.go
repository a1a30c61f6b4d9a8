package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollTimeout is wrapped by WaitFor when the timeout elapses.
var ErrPollTimeout = errors.New("poll timeout")

// WaitFor sleeps interval, then calls check, repeating until check returns
// (true, nil), returns a non-nil error, or the timeout/context expires.
// A zero timeout polls until done or cancelled.
func WaitFor(ctx context.Context, timeout, interval time.Duration, check func() (done bool, err error)) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrPollTimeout, timeout)
		}
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
