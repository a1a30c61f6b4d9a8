package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/projecteru2/apkfetch/gc"
	"github.com/projecteru2/apkfetch/utils"
)

const (
	jobTargetPrefix  = "job:"
	tempTargetPrefix = "tmp:"
)

type managerSnapshot struct {
	expired    []int64  // finished jobs past retention
	staleTemps []string // leftover atomic-write temp files in the DB dir
}

// GCModule prunes finished jobs older than Manager.Retention and stale
// temp files left by interrupted index writes. Downloaded files are kept.
func (m *Manager) GCModule() gc.Module[managerSnapshot] {
	return gc.Module[managerSnapshot]{
		Name:   typ,
		Locker: m.locker,
		ReadDB: func(_ context.Context) (managerSnapshot, error) {
			var snap managerSnapshot
			cutoff := m.retentionCutoff()
			if err := m.store.Read(func(idx *jobIndex) error {
				for id, j := range idx.Jobs {
					if j != nil && j.Status.Finished() && j.UpdatedAt.Before(cutoff) {
						snap.expired = append(snap.expired, id)
					}
				}
				return nil
			}); err != nil {
				return snap, err
			}
			entries, err := os.ReadDir(m.conf.ManagerDBDir())
			if err != nil && !os.IsNotExist(err) {
				return snap, fmt.Errorf("read %s: %w", m.conf.ManagerDBDir(), err)
			}
			for _, e := range entries {
				if utils.IsStaleTemp(e) {
					snap.staleTemps = append(snap.staleTemps, e.Name())
				}
			}
			return snap, nil
		},
		Resolve: func(snap managerSnapshot, _ map[string]any) []string {
			var ids []string
			for _, id := range snap.expired {
				ids = append(ids, jobTargetPrefix+strconv.FormatInt(id, 10))
			}
			for _, name := range snap.staleTemps {
				ids = append(ids, tempTargetPrefix+name)
			}
			return ids
		},
		Collect: func(ctx context.Context, ids []string) error {
			var (
				jobs  = make(map[int64]struct{})
				temps = make(map[string]struct{})
			)
			for _, id := range ids {
				if name, ok := strings.CutPrefix(id, tempTargetPrefix); ok {
					temps[name] = struct{}{}
					continue
				}
				if raw, ok := strings.CutPrefix(id, jobTargetPrefix); ok {
					if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
						jobs[n] = struct{}{}
					}
				}
			}
			var errs []error
			if len(jobs) > 0 {
				if err := m.pruneJobs(jobs); err != nil {
					errs = append(errs, err)
				}
			}
			if len(temps) > 0 {
				errs = append(errs, utils.RemoveMatching(ctx, m.conf.ManagerDBDir(), func(e os.DirEntry) bool {
					_, ok := temps[e.Name()]
					return ok && utils.IsStaleTemp(e)
				})...)
			}
			return errors.Join(errs...)
		},
	}
}

// RegisterGC registers the manager GC module with the given Orchestrator.
func (m *Manager) RegisterGC(orch *gc.Orchestrator) {
	gc.Register(orch, m.GCModule())
}

// pruneJobs deletes the selected rows. Rows that changed since the
// snapshot are skipped. Caller holds the lock.
func (m *Manager) pruneJobs(ids map[int64]struct{}) error {
	cutoff := m.retentionCutoff()
	return m.store.Write(func(idx *jobIndex) error {
		for id := range ids {
			j := idx.Jobs[id]
			if j == nil || !j.Status.Finished() || j.UpdatedAt.After(cutoff) {
				continue
			}
			delete(idx.Jobs, id)
		}
		return nil
	})
}

func (m *Manager) retentionCutoff() time.Time {
	return time.Now().Add(-m.conf.Manager.Retention)
}
