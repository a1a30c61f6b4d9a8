package orchestrator

import (
	"errors"
	"fmt"

	"github.com/projecteru2/apkfetch/handoff"
)

var (
	// ErrNoHandler is returned by the browser path when nothing can open the URL.
	ErrNoHandler = handoff.ErrNoHandler
	// ErrOffline is returned by CheckOnline while the connectivity gate is closed.
	ErrOffline = errors.New("network unavailable")
)

// EngineError wraps a failure reported by the embedded engine.
type EngineError struct {
	Cause error
}

func (e *EngineError) Error() string { return fmt.Sprintf("engine download failed: %v", e.Cause) }
func (e *EngineError) Unwrap() error { return e.Cause }

// ManagerFailure carries the reason code of a FAILED manager download.
type ManagerFailure struct {
	ID     int64
	Reason string
}

func (e *ManagerFailure) Error() string {
	return fmt.Sprintf("download %d failed: %s", e.ID, e.Reason)
}
