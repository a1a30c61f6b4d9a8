package storage

import (
	"context"
)

// Initer is optionally implemented by *T to fill zero-value fields (nil
// maps, sentinel defaults) after loading or when nothing is stored yet.
type Initer interface {
	Init()
}

// Store gives locked read/modify/write access to one persisted document T.
type Store[T any] interface {
	// With loads T under the lock and passes it to fn. Changes are discarded.
	With(ctx context.Context, fn func(*T) error) error
	// Update loads T under the lock and persists it if fn returns nil.
	Update(ctx context.Context, fn func(*T) error) error

	// Read and Write behave like With and Update without locking.
	// The caller must hold the lock through TryLock (GC does this).
	Read(fn func(*T) error) error
	Write(fn func(*T) error) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}
