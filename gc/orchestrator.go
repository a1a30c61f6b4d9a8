package gc

import (
	"context"
	"fmt"
	"strings"

	"github.com/projecteru2/core/log"
)

// Orchestrator runs GC across all registered modules.
type Orchestrator struct {
	modules []runner
}

// New creates an empty Orchestrator.
func New() *Orchestrator { return &Orchestrator{} }

// Register adds a typed Module. It is a function because methods cannot
// have type parameters.
func Register[S any](o *Orchestrator, m Module[S]) {
	o.modules = append(o.modules, m)
}

// Run executes one GC cycle. Every module lock is taken with TryLock and
// held until the cycle ends, so snapshot, resolve and collect see one
// consistent view. A busy lock aborts the whole cycle: a module resolving
// without its peers' snapshots could delete something they still use.
func (o *Orchestrator) Run(ctx context.Context) error {
	logger := log.WithFunc("gc.Run")

	locked, skipped := o.lockAll(ctx)
	defer func() {
		for _, m := range locked {
			m.getLocker().Unlock(ctx) //nolint:errcheck,gosec
		}
	}()
	if len(skipped) > 0 {
		return fmt.Errorf("gc aborted: modules skipped (lock busy): %s", strings.Join(skipped, ", "))
	}

	snapshots := make(map[string]any, len(locked))
	for _, m := range locked {
		snap, err := m.readSnapshot(ctx)
		if err != nil {
			return fmt.Errorf("gc aborted: snapshot %s: %w", m.getName(), err)
		}
		snapshots[m.getName()] = snap
	}

	var errs []string
	for _, m := range locked {
		ids := m.resolveTargets(snapshots[m.getName()], snapshots)
		if len(ids) == 0 {
			logger.Debugf(ctx, "%s: nothing to collect", m.getName())
			continue
		}
		logger.Infof(ctx, "%s: collecting %d targets", m.getName(), len(ids))
		if err := m.collect(ctx, ids); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", m.getName(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("gc errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// lockAll try-locks every module. Locked modules must be unlocked by the
// caller even when some were skipped.
func (o *Orchestrator) lockAll(ctx context.Context) (locked []runner, skipped []string) {
	logger := log.WithFunc("gc.lockAll")
	for _, m := range o.modules {
		ok, err := m.getLocker().TryLock(ctx)
		switch {
		case err != nil:
			logger.Warnf(ctx, "skip %s: TryLock error: %v", m.getName(), err)
		case !ok:
			logger.Warnf(ctx, "skip %s: lock held by another operation", m.getName())
		default:
			locked = append(locked, m)
			continue
		}
		skipped = append(skipped, m.getName())
	}
	return locked, skipped
}
