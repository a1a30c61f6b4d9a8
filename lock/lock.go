// Package lock serializes access to state shared between apkfetch
// processes: the download manager index, the prefs file and the GC pass.
package lock

import "context"

// Locker guards one on-disk resource. Holders may live in different
// goroutines or in separate CLI invocations, so a Lock call can wait on
// another process; ctx bounds that wait.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	// TryLock reports false instead of waiting when the resource is busy.
	// GC uses it to skip a module another process is writing.
	TryLock(ctx context.Context) (bool, error)
}

// WithLock runs fn while holding l. The lock is released even when fn
// fails; fn's error is returned.
func WithLock(ctx context.Context, l Locker, fn func() error) error {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer l.Unlock(ctx) //nolint:errcheck
	return fn()
}
