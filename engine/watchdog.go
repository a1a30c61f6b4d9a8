package engine

import (
	"context"
	"os"
	"time"
)

// watchdog cancels its context with os.ErrDeadlineExceeded when Kick is
// not called within timeout. A zero timeout never fires.
type watchdog struct {
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration
}

func newWatchdog(parent context.Context, timeout time.Duration) (context.Context, watchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			cancel(os.ErrDeadlineExceeded)
		})
	}
	return ctx, watchdog{cancel: cancel, timer: timer, timeout: timeout}
}

func (wd *watchdog) Kick() {
	if wd.timer != nil {
		wd.timer.Reset(wd.timeout)
	}
}

func (wd *watchdog) Cancel() {
	if wd.timer != nil {
		wd.timer.Stop()
	}
	wd.cancel(nil)
}
