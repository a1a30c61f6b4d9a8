// Package orchestrator runs one download attempt at a time through the
// embedded engine, the download manager or a browser handoff, and folds
// whatever that path reports into a single observable status.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/projecteru2/apkfetch/engine"
	"github.com/projecteru2/apkfetch/progress"
	"github.com/projecteru2/apkfetch/types"
	"github.com/projecteru2/apkfetch/watch"
)

// Engine starts in-process transfers. *engine.Engine implements it.
type Engine interface {
	Start(ctx context.Context, url, dest string, tracker progress.Tracker) (*engine.Task, error)
}

// Manager is a poll-based download service. *manager.Manager implements it.
type Manager interface {
	Enqueue(ctx context.Context, req types.Request) (int64, error)
	Query(ctx context.Context, id int64) (types.Row, bool, error)
}

// Opener hands URLs and files to other applications. *handoff.Chooser
// implements it.
type Opener interface {
	Open(ctx context.Context, target string) error
	Install(ctx context.Context, path string) error
}

// Prefs keeps the last manager download id across runs. *prefs.Store
// implements it.
type Prefs interface {
	SetLastDownloadID(ctx context.Context, id int64) error
	TakeLastDownloadID(ctx context.Context) (int64, bool, error)
}

// Gate reports whether downloads should be offered. *connectivity.Monitor
// implements it.
type Gate interface {
	Current() bool
}

// Options wires an Orchestrator. Any backend may be nil when the
// corresponding path is not used.
type Options struct {
	Engine  Engine
	Manager Manager
	Opener  Opener
	Prefs   Prefs
	Gate    Gate

	// DownloadDir is where manager downloads land. Empty lets the manager pick.
	DownloadDir string
	// PollInterval is the sleep between two manager queries.
	PollInterval time.Duration
	// PollTimeout bounds the manager poll loop. Zero polls until a terminal status.
	PollTimeout time.Duration
}

// Orchestrator owns the status of the current download attempt.
type Orchestrator struct {
	opts   Options
	status *watch.Value[types.Status]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Orchestrator in the Idle status.
func New(opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond //nolint:mnd
	}
	return &Orchestrator{opts: opts, status: watch.New(types.Idle())}
}

// Status returns the current status.
func (o *Orchestrator) Status() types.Status { return o.status.Load() }

// Watch subscribes to status changes. The channel is primed with the
// current status; intermediate values may be skipped by slow readers.
func (o *Orchestrator) Watch() (<-chan types.Status, func()) { return o.status.Subscribe() }

// Enabled reports whether the connectivity gate is open. Without a gate
// downloads are always enabled.
func (o *Orchestrator) Enabled() bool {
	return o.opts.Gate == nil || o.opts.Gate.Current()
}

// CheckOnline returns ErrOffline while Enabled is false.
func (o *Orchestrator) CheckOnline() error {
	if !o.Enabled() {
		return ErrOffline
	}
	return nil
}

// attempt is one download operation. Its status updates are dropped once
// a newer attempt has begun.
type attempt struct {
	o      *Orchestrator
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// begin resets the status to Idle and opens a new attempt. The previous
// attempt is cancelled and waited for first, so its transfer has stopped
// before the new one starts.
func (o *Orchestrator) begin(ctx context.Context) *attempt {
	actx, cancel := context.WithCancel(ctx)
	a := &attempt{o: o, ctx: actx, cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	prevCancel, prevDone := o.cancel, o.done
	o.gen++
	a.gen = o.gen
	o.cancel, o.done = cancel, a.done
	o.status.Store(types.Idle())
	o.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}
	return a
}

// set publishes s if a is still the current attempt.
func (a *attempt) set(s types.Status) {
	a.o.mu.Lock()
	defer a.o.mu.Unlock()
	if a.gen == a.o.gen {
		a.o.status.Store(s)
	}
}

func (a *attempt) end() {
	a.cancel()
	a.o.mu.Lock()
	if a.o.gen == a.gen {
		a.o.cancel, a.o.done = nil, nil
	}
	a.o.mu.Unlock()
	close(a.done)
}
