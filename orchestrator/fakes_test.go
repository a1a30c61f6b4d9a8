package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/projecteru2/apkfetch/engine"
	"github.com/projecteru2/apkfetch/progress"
	engineProgress "github.com/projecteru2/apkfetch/progress/engine"
	"github.com/projecteru2/apkfetch/types"
)

// fakeEngine runs script on its own goroutine, like the real engine's
// transfer goroutine.
type fakeEngine struct {
	startErr error
	script   func(ctx context.Context, dest string, emit func(engineProgress.Event))
}

func (f *fakeEngine) Start(ctx context.Context, _, dest string, tracker progress.Tracker) (*engine.Task, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	go f.script(ctx, dest, func(ev engineProgress.Event) {
		ev.Path = dest
		tracker.OnEvent(ev)
	})
	return nil, nil
}

type queryResult struct {
	row types.Row
	ok  bool
	err error
}

// fakeManager answers Query through next, which gets the 0-based call index.
type fakeManager struct {
	id         int64
	enqueueErr error
	onEnqueue  func(types.Request)
	next       func(call int) queryResult

	calls atomic.Int32
}

func (f *fakeManager) Enqueue(_ context.Context, req types.Request) (int64, error) {
	if f.onEnqueue != nil {
		f.onEnqueue(req)
	}
	if f.enqueueErr != nil {
		return types.NoDownloadID, f.enqueueErr
	}
	return f.id, nil
}

func (f *fakeManager) Query(_ context.Context, id int64) (types.Row, bool, error) {
	call := int(f.calls.Add(1)) - 1
	res := f.next(call)
	res.row.ID = id
	return res.row, res.ok, res.err
}

// sequence returns the results in order and repeats the last one.
func sequence(results ...queryResult) func(int) queryResult {
	return func(call int) queryResult {
		if call >= len(results) {
			return results[len(results)-1]
		}
		return results[call]
	}
}

func found(status types.ManagerStatus, soFar, total int64) queryResult {
	return queryResult{row: types.Row{Status: status, BytesSoFar: soFar, TotalBytes: total}, ok: true}
}

type fakeOpener struct {
	mu        sync.Mutex
	err       error
	opened    []string
	installed []string
}

func (f *fakeOpener) Open(_ context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.opened = append(f.opened, target)
	return nil
}

func (f *fakeOpener) Install(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.installed = append(f.installed, path)
	return nil
}

type fakePrefs struct {
	mu sync.Mutex
	id int64
}

func newFakePrefs() *fakePrefs { return &fakePrefs{id: types.NoDownloadID} }

func (f *fakePrefs) SetLastDownloadID(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = id
	return nil
}

func (f *fakePrefs) TakeLastDownloadID(_ context.Context) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id
	f.id = types.NoDownloadID
	return id, id != types.NoDownloadID, nil
}

type fakeGate bool

func (g fakeGate) Current() bool { return bool(g) }

var errBoom = errors.New("boom")
