package orchestrator

import (
	"context"
	"errors"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/apkfetch/engine"
	"github.com/projecteru2/apkfetch/progress"
	engineProgress "github.com/projecteru2/apkfetch/progress/engine"
	"github.com/projecteru2/apkfetch/types"
)

var errNoEngine = errors.New("embedded engine not configured")

// DownloadWithEngine downloads url into dest through the embedded engine
// and blocks until the transfer completes, pauses or fails. Cancelling ctx
// pauses the transfer and keeps the partial file; the call then returns
// engine.ErrPaused. Failures are returned as *EngineError.
func (o *Orchestrator) DownloadWithEngine(ctx context.Context, url, dest string) error {
	a := o.begin(ctx)
	defer a.end()
	if o.opts.Engine == nil {
		a.set(types.Failed(errNoEngine.Error()))
		return errNoEngine
	}

	// Buffered so the engine goroutine never blocks on the final event.
	terminal := make(chan engineProgress.Event, 1)
	tracker := progress.NewTracker(func(ev engineProgress.Event) {
		if s, ok := engineStatus(ev); ok {
			a.set(s)
		}
		switch ev.Kind {
		case engineProgress.KindCompleted, engineProgress.KindPaused, engineProgress.KindError:
			select {
			case terminal <- ev:
			default:
			}
		}
	})

	if _, err := o.opts.Engine.Start(a.ctx, url, dest, tracker); err != nil {
		failure := &EngineError{Cause: err}
		a.set(types.Failed(failure.Error()))
		return failure
	}

	ev := <-terminal
	switch ev.Kind {
	case engineProgress.KindCompleted:
		return nil
	case engineProgress.KindPaused:
		log.WithFunc("orchestrator.DownloadWithEngine").Infof(ctx, "download of %s paused at %d bytes", url, ev.SoFar)
		return engine.ErrPaused
	default:
		return &EngineError{Cause: ev.Err}
	}
}

// engineStatus maps one engine event to a status. Warn events carry no
// status change.
func engineStatus(ev engineProgress.Event) (types.Status, bool) {
	switch ev.Kind {
	case engineProgress.KindPending:
		return types.Downloading(0), true
	case engineProgress.KindProgress:
		return types.DownloadingBytes(ev.SoFar, ev.Total), true
	case engineProgress.KindPaused:
		return types.Paused(), true
	case engineProgress.KindCompleted:
		return types.Succeeded(ev.Path), true
	case engineProgress.KindError:
		return types.Failed(errorText(ev.Err)), true
	default:
		return types.Status{}, false
	}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
