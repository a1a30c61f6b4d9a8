package flock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/projecteru2/apkfetch/lock"
)

const retryDelay = 100 * time.Millisecond

// compile-time interface check.
var _ lock.Locker = (*Lock)(nil)

// Lock combines an in-process token with flock(2) on a lock file.
//
// The token is a size-1 buffered channel: sending acquires it, receiving
// releases it. Unlike sync.Mutex it lets Lock honour ctx and TryLock
// return without blocking. The flock uses a fresh fd per acquisition so
// goroutines sharing one Lock still exclude each other, and separate
// apkfetch processes exclude each other through the file.
type Lock struct {
	path string
	ch   chan struct{}
	// fl is the active flock fd, non-nil while the lock is held.
	fl *flock.Flock
}

// New creates a Lock for the given path. The parent directory is created
// on first acquisition.
func New(path string) *Lock {
	return &Lock{path: path, ch: make(chan struct{}, 1)}
}

// Lock acquires the lock, blocking until available or ctx is cancelled.
func (l *Lock) Lock(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock %s: %w", l.path, ctx.Err())
	}
	ok, err := l.acquire(func(fl *flock.Flock) (bool, error) {
		return fl.TryLockContext(ctx, retryDelay)
	})
	if err != nil {
		return fmt.Errorf("acquire flock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("acquire flock %s: %w", l.path, ctx.Err())
	}
	return nil
}

// TryLock attempts a non-blocking acquisition.
// Returns (false, nil) if the lock is currently held by another caller.
func (l *Lock) TryLock(_ context.Context) (bool, error) {
	select {
	case l.ch <- struct{}{}:
	default:
		return false, nil
	}
	return l.acquire(func(fl *flock.Flock) (bool, error) {
		return fl.TryLock()
	})
}

// Unlock releases the lock. Unlocking an unheld Lock is a no-op.
func (l *Lock) Unlock(_ context.Context) error {
	fl := l.fl
	l.fl = nil
	var err error
	if fl != nil {
		err = fl.Unlock()
	}
	select {
	case <-l.ch:
	default:
	}
	if err != nil {
		return fmt.Errorf("release flock %s: %w", l.path, err)
	}
	return nil
}

// acquire runs take on a fresh flock fd while holding the in-process token.
// On failure the token is handed back so every successful Lock/TryLock is
// paired with exactly one Unlock.
func (l *Lock) acquire(take func(*flock.Flock) (bool, error)) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		<-l.ch
		return false, err
	}
	fl := flock.New(l.path)
	locked, err := take(fl)
	if err != nil || !locked {
		<-l.ch
		return false, err
	}
	l.fl = fl
	return true, nil
}
