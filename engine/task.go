package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/apkfetch/progress"
	engineProgress "github.com/projecteru2/apkfetch/progress/engine"
)

// Task is one destination being downloaded by an Engine. A paused task can
// be resumed; each resume is a new run over the same partial file.
type Task struct {
	ID   string
	URL  string
	Path string

	engine  *Engine
	tracker progress.Tracker

	soFar atomic.Int64
	total atomic.Int64

	mu     sync.Mutex
	cancel context.CancelCauseFunc
	done   chan struct{}
	err    error
}

// Wait blocks until the current run ends. Returns nil when the file is
// complete, ErrPaused when paused, or the transfer error.
func (t *Task) Wait() error {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	<-done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the current run ends.
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Pause stops the current run and keeps the partial file.
func (t *Task) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel(ErrPaused)
	}
}

// Resume starts a new run after a pause or failure. It is a no-op while a
// run is active and returns ErrTaskRunning when another task took the
// destination in the meantime.
func (t *Task) Resume(ctx context.Context) error {
	select {
	case <-t.Done():
	default:
		return nil
	}
	if _, ok := t.engine.register(t); !ok {
		return ErrTaskRunning
	}
	t.launch(ctx)
	return nil
}

// Progress returns the last observed byte counts.
func (t *Task) Progress() (soFar, total int64) {
	return t.soFar.Load(), t.total.Load()
}

func (t *Task) launch(ctx context.Context) {
	runCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.err = nil
	t.mu.Unlock()
	t.total.Store(-1)

	go func() {
		defer close(done)
		defer t.engine.forget(t)
		err := t.engine.transfer(runCtx, t)
		t.finish(runCtx, err)
		cancel(nil)
	}()
}

func (t *Task) finish(runCtx context.Context, err error) {
	logger := log.WithFunc("engine.finish")
	ev := engineProgress.Event{TaskID: t.ID, Path: t.Path, SoFar: t.soFar.Load(), Total: t.total.Load()}
	switch {
	case err == nil:
		ev.Kind = engineProgress.KindCompleted
		logger.Infof(runCtx, "download complete: %s -> %s", t.URL, t.Path)
	case pausedBy(runCtx):
		ev.Kind = engineProgress.KindPaused
		err = ErrPaused
		logger.Infof(runCtx, "download paused at %d bytes: %s", ev.SoFar, t.Path)
	default:
		ev.Kind = engineProgress.KindError
		ev.Err = err
		logger.Warnf(runCtx, "download %s failed: %v", t.URL, err)
	}
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.tracker.OnEvent(ev)
}

// pausedBy reports whether the run ended because of Pause or a cancelled
// parent context, as opposed to a deadline or the inactivity watchdog.
func pausedBy(runCtx context.Context) bool {
	if runCtx.Err() == nil {
		return false
	}
	cause := context.Cause(runCtx)
	return errors.Is(cause, ErrPaused) || errors.Is(cause, context.Canceled)
}

func (t *Task) emit(kind engineProgress.Kind) {
	t.tracker.OnEvent(engineProgress.Event{
		Kind:   kind,
		TaskID: t.ID,
		Path:   t.Path,
		SoFar:  t.soFar.Load(),
		Total:  t.total.Load(),
	})
}
