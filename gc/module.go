package gc

import (
	"context"

	"github.com/projecteru2/apkfetch/lock"
)

// Module describes one store that takes part in garbage collection.
// S is the module's snapshot type.
type Module[S any] struct {
	Name string

	// Locker coordinates GC with active operations on the same store.
	// GC only proceeds when TryLock succeeds.
	Locker lock.Locker

	// ReadDB builds a snapshot. Called with the lock held; must not re-acquire it.
	ReadDB func(ctx context.Context) (S, error)

	// Resolve picks the IDs to delete. others holds every module's snapshot
	// keyed by Name, for cross-module checks.
	Resolve func(snap S, others map[string]any) []string

	// Collect deletes the given IDs. Called with the lock held.
	Collect func(ctx context.Context, ids []string) error
}

// runner lets Orchestrator hold Module[S] values of different S.
type runner interface {
	getName() string
	getLocker() lock.Locker
	readSnapshot(ctx context.Context) (any, error)
	resolveTargets(snap any, others map[string]any) []string
	collect(ctx context.Context, ids []string) error
}

func (m Module[S]) getName() string        { return m.Name }
func (m Module[S]) getLocker() lock.Locker { return m.Locker }

func (m Module[S]) readSnapshot(ctx context.Context) (any, error) {
	return m.ReadDB(ctx)
}

func (m Module[S]) resolveTargets(snap any, others map[string]any) []string {
	if m.Resolve == nil {
		return nil
	}
	s, _ := snap.(S)
	return m.Resolve(s, others)
}

func (m Module[S]) collect(ctx context.Context, ids []string) error {
	if m.Collect == nil {
		return nil
	}
	return m.Collect(ctx, ids)
}
