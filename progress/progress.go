// Package progress carries transfer events from the engine to whoever
// renders or records them: the CLI progress line, the manager index.
package progress

// Tracker receives events from a running transfer. The engine calls it from
// the transfer goroutine, and one Tracker may serve several transfers at once,
// so implementations must be safe for concurrent use.
type Tracker interface {
	OnEvent(any)
}

// NewTracker creates a Tracker from a typed callback function.
// Events of any other type are ignored, so one backend may emit several
// event types to trackers that only care about one.
func NewTracker[E any](fn func(E)) Tracker {
	return funcTracker(func(v any) {
		if e, ok := v.(E); ok {
			fn(e)
		}
	})
}

type funcTracker func(any)

func (f funcTracker) OnEvent(e any) { f(e) }

// Nop is a no-op tracker for callers that don't need progress.
var Nop Tracker = funcTracker(func(any) {})
