// Package prefs persists the few scalars apkfetch keeps across runs.
package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecteru2/apkfetch/config"
	"github.com/projecteru2/apkfetch/lock/flock"
	"github.com/projecteru2/apkfetch/storage"
	storejson "github.com/projecteru2/apkfetch/storage/json"
	"github.com/projecteru2/apkfetch/types"
)

// document is the top-level structure of prefs.json.
type document struct {
	LastDownloadID *int64 `json:"last_download_id,omitempty"`
}

// Init implements storage.Initer.
func (d *document) Init() {
	if d.LastDownloadID == nil {
		id := types.NoDownloadID
		d.LastDownloadID = &id
	}
}

// Store holds the most recent manager download id. Writes are
// last-writer-wins; the flock only makes each read-modify-write atomic.
type Store struct {
	store storage.Store[document]
}

// New opens the preferences store under conf.RootDir.
func New(conf *config.Config) (*Store, error) {
	if err := conf.EnsurePrefsDirs(); err != nil {
		return nil, fmt.Errorf("ensure dirs: %w", err)
	}
	return &Store{store: storejson.New[document](conf.PrefsFile(), flock.New(conf.PrefsLock()))}, nil
}

// SetLastDownloadID overwrites the recorded id.
func (s *Store) SetLastDownloadID(ctx context.Context, id int64) error {
	return s.store.Update(ctx, func(d *document) error {
		d.LastDownloadID = &id
		return nil
	})
}

// LastDownloadID peeks at the recorded id without consuming it.
func (s *Store) LastDownloadID(ctx context.Context) (id int64, ok bool, err error) {
	err = s.store.With(ctx, func(d *document) error {
		id = *d.LastDownloadID
		return nil
	})
	return id, err == nil && id != types.NoDownloadID, err
}

// TakeLastDownloadID returns the recorded id and resets it, so each id is
// consumed at most once. ok is false when nothing was recorded.
func (s *Store) TakeLastDownloadID(ctx context.Context) (id int64, ok bool, err error) {
	err = s.store.Update(ctx, func(d *document) error {
		id = *d.LastDownloadID
		if id == types.NoDownloadID {
			return errNothing
		}
		reset := types.NoDownloadID
		d.LastDownloadID = &reset
		return nil
	})
	if errors.Is(err, errNothing) {
		return types.NoDownloadID, false, nil
	}
	if err != nil {
		return types.NoDownloadID, false, err
	}
	return id, true, nil
}

// errNothing aborts the Update without writing when there is nothing to take.
var errNothing = errors.New("no download id recorded")
