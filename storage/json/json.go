package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/projecteru2/apkfetch/lock"
	"github.com/projecteru2/apkfetch/storage"
	"github.com/projecteru2/apkfetch/utils"
)

// compile-time interface check.
var _ storage.Store[struct{}] = (*Store[struct{}])(nil)

// Store keeps T as an indented JSON file guarded by a lock.Locker.
// A missing file reads as a zero T. If *T implements storage.Initer, Init()
// runs after every load.
type Store[T any] struct {
	filePath string
	locker   lock.Locker
}

// New creates a Store for filePath guarded by locker. Share the locker with
// other components (GC) that must coordinate with this store.
func New[T any](filePath string, locker lock.Locker) *Store[T] {
	return &Store[T]{filePath: filePath, locker: locker}
}

// With loads the file under the lock and passes the data to fn.
func (s *Store[T]) With(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, s.locker, func() error {
		return s.Read(fn)
	})
}

// Update performs a read-modify-write under the lock.
func (s *Store[T]) Update(ctx context.Context, fn func(*T) error) error {
	return lock.WithLock(ctx, s.locker, func() error {
		return s.Write(fn)
	})
}

// Read loads the file without locking.
func (s *Store[T]) Read(fn func(*T) error) error {
	data, err := s.load()
	if err != nil {
		return err
	}
	return fn(data)
}

// Write loads the file, applies fn and atomically writes the result,
// without locking.
func (s *Store[T]) Write(fn func(*T) error) error {
	data, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return utils.AtomicWriteJSON(s.filePath, data)
}

func (s *Store[T]) TryLock(ctx context.Context) (bool, error) { return s.locker.TryLock(ctx) }
func (s *Store[T]) Unlock(ctx context.Context) error          { return s.locker.Unlock(ctx) }

func (s *Store[T]) load() (*T, error) {
	var data T
	raw, err := os.ReadFile(s.filePath) //nolint:gosec // internal metadata
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", s.filePath, err)
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.filePath, err)
		}
	}
	if initer, ok := any(&data).(storage.Initer); ok {
		initer.Init()
	}
	return &data, nil
}
