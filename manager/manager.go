package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/apkfetch/config"
	"github.com/projecteru2/apkfetch/engine"
	"github.com/projecteru2/apkfetch/lock"
	"github.com/projecteru2/apkfetch/lock/flock"
	"github.com/projecteru2/apkfetch/progress"
	engineProgress "github.com/projecteru2/apkfetch/progress/engine"
	"github.com/projecteru2/apkfetch/storage"
	storejson "github.com/projecteru2/apkfetch/storage/json"
	"github.com/projecteru2/apkfetch/types"
	"github.com/projecteru2/apkfetch/utils"
)

const typ = "manager"

var (
	// ErrNotFound is returned when a download id does not exist in the index.
	ErrNotFound = errors.New("download not found")
	// ErrFinished is returned when an operation needs an unfinished download.
	ErrFinished = errors.New("download already finished")

	// ErrFileInUse is returned by Remove when another transfer still writes
	// the destination file, which is then kept.
	ErrFileInUse = errors.New("file in use by another download")

	errUnchanged = errors.New("unchanged")
)

// Manager owns downloads on behalf of its callers. Jobs are persisted in a
// flock-protected JSON index and transferred by the embedded engine on an
// ants pool, so callers only enqueue and then poll rows by id.
type Manager struct {
	conf   *config.Config
	engine *engine.Engine
	store  storage.Store[jobIndex]
	locker lock.Locker
	pool   *ants.Pool

	// ctx scopes every transfer. Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	tasks map[int64]*engine.Task
}

// New creates a Manager. Transfers are detached from ctx and only stop on
// Pause, Remove or Close.
func New(ctx context.Context, conf *config.Config, eng *engine.Engine) (*Manager, error) {
	if err := conf.EnsureManagerDirs(); err != nil {
		return nil, fmt.Errorf("ensure dirs: %w", err)
	}
	pool, err := ants.NewPool(conf.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create ants pool: %w", err)
	}
	locker := flock.New(conf.ManagerIndexLock())
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	log.WithFunc("manager.New").Infof(ctx, "download manager initialized, pool size: %d", conf.PoolSize)
	return &Manager{
		conf:   conf,
		engine: eng,
		store:  storejson.New[jobIndex](conf.ManagerIndexFile(), locker),
		locker: locker,
		pool:   pool,
		ctx:    runCtx,
		cancel: cancel,
		tasks:  make(map[int64]*engine.Task),
	}, nil
}

// Enqueue persists req as a PENDING job and schedules it. An empty Dest
// downloads into the configured downloads directory under a name derived
// from the URL.
func (m *Manager) Enqueue(ctx context.Context, req types.Request) (int64, error) {
	if _, err := utils.ParseHTTPURL(req.URL); err != nil {
		return types.NoDownloadID, err
	}
	dest := req.Dest
	if dest == "" {
		dest = filepath.Join(m.conf.DownloadsDir(), utils.GuessFileName(req.URL, req.MimeType))
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return types.NoDownloadID, fmt.Errorf("resolve destination %s: %w", dest, err)
	}

	now := time.Now()
	j := &job{
		Row: types.Row{
			URL:        req.URL,
			Title:      req.Title,
			Status:     types.ManagerPending,
			TotalBytes: -1,
			UpdatedAt:  now,
		},
		Dest:        abs,
		MimeType:    req.MimeType,
		Description: req.Description,
		CreatedAt:   now,
	}
	id := types.NoDownloadID
	if err := m.store.Update(ctx, func(idx *jobIndex) error {
		id = idx.allocate(j)
		return nil
	}); err != nil {
		return types.NoDownloadID, fmt.Errorf("enqueue %s: %w", req.URL, err)
	}
	log.WithFunc("manager.Enqueue").Infof(ctx, "download %d queued: %s -> %s", id, req.URL, abs)
	m.submit(id)
	return id, nil
}

// Query returns the row for id. ok is false when the id is unknown.
func (m *Manager) Query(ctx context.Context, id int64) (types.Row, bool, error) {
	var row types.Row
	err := m.store.With(ctx, func(idx *jobIndex) error {
		var ok bool
		row, ok = idx.row(id)
		if !ok {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return types.Row{}, false, nil
	}
	if err != nil {
		return types.Row{}, false, err
	}
	return row, true, nil
}

// List returns every row ordered by id.
func (m *Manager) List(ctx context.Context) ([]types.Row, error) {
	var rows []types.Row
	if err := m.store.With(ctx, func(idx *jobIndex) error {
		for _, j := range idx.Jobs {
			if j != nil {
				rows = append(rows, j.Row)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, k int) bool { return rows[i].ID < rows[k].ID })
	return rows, nil
}

// Pause stops a running or queued download. The partial file is kept.
// The row is PAUSED before Pause returns, even while a local transfer is
// still winding down.
func (m *Manager) Pause(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.update(ctx, id, func(j *job) error {
		switch {
		case j.Status.Finished():
			return ErrFinished
		case j.Status == types.ManagerPaused:
			return errUnchanged
		}
		j.Status = types.ManagerPaused
		j.Reason = ReasonPausedByApp
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return err
	}
	if task := m.tasks[id]; task != nil {
		task.Pause()
	}
	return nil
}

// Resume re-queues a PAUSED or FAILED download. The engine continues from
// the partial file when the server supports ranges. A local transfer that
// is still stopping after Pause or a failure is waited for first, so the
// new run can claim the destination.
func (m *Manager) Resume(ctx context.Context, id int64) error {
	m.mu.Lock()
	task := m.tasks[id]
	m.mu.Unlock()
	if task != nil {
		row, ok, err := m.Query(ctx, id)
		if err != nil {
			return err
		}
		if ok && (row.Status == types.ManagerPaused || row.Status == types.ManagerFailed) {
			select {
			case <-task.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	err := m.update(ctx, id, func(j *job) error {
		switch j.Status {
		case types.ManagerPaused, types.ManagerFailed:
		case types.ManagerSuccessful:
			return ErrFinished
		default:
			return errUnchanged
		}
		j.Status = types.ManagerPending
		j.Reason = ""
		return nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		return nil
	case err != nil:
		return err
	}
	m.submit(id)
	return nil
}

// ResumePending schedules jobs left PENDING or RUNNING by an earlier
// process. Returns the ids that were scheduled.
func (m *Manager) ResumePending(ctx context.Context) ([]int64, error) {
	var ids []int64
	m.mu.Lock()
	err := m.store.Update(ctx, func(idx *jobIndex) error {
		for id, j := range idx.Jobs {
			if j == nil || m.tasks[id] != nil {
				continue
			}
			if j.Status != types.ManagerPending && j.Status != types.ManagerRunning {
				continue
			}
			j.Status = types.ManagerPending
			j.UpdatedAt = time.Now()
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return errUnchanged
		}
		return nil
	})
	m.mu.Unlock()
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, err
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
	for _, id := range ids {
		m.submit(id)
	}
	if len(ids) > 0 {
		log.WithFunc("manager.ResumePending").Infof(ctx, "resumed %d downloads", len(ids))
	}
	return ids, nil
}

// Remove forgets a download, stopping it first. With deleteFile the
// destination file is removed too, unless another download is writing it.
func (m *Manager) Remove(ctx context.Context, id int64, deleteFile bool) error {
	var dest string
	m.mu.Lock()
	task := m.tasks[id]
	err := m.store.Update(ctx, func(idx *jobIndex) error {
		j := idx.Jobs[id]
		if j == nil {
			return ErrNotFound
		}
		dest = j.Dest
		delete(idx.Jobs, id)
		return nil
	})
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if task != nil {
		task.Pause()
		<-task.Done()
	}
	if deleteFile {
		if other, busy := m.engine.Running(dest); busy {
			return fmt.Errorf("remove %s: %w (task %s)", dest, ErrFileInUse, other.ID)
		}
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", dest, err)
		}
	}
	log.WithFunc("manager.Remove").Infof(ctx, "download %d removed", id)
	return nil
}

// Close stops all transfers, leaving them PENDING for ResumePending, and
// releases the worker pool.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
	m.pool.Release()
}

// submit hands id to the pool. Submit blocks while every worker is busy,
// so it runs on its own goroutine.
func (m *Manager) submit(id int64) {
	m.wg.Add(1)
	go func() {
		if err := m.pool.Submit(func() {
			defer m.wg.Done()
			m.run(id)
		}); err != nil {
			defer m.wg.Done()
			log.WithFunc("manager.submit").Warnf(m.ctx, "schedule download %d: %v", id, err)
			m.finish(id, err)
		}
	}()
}

// run starts the engine transfer for id and blocks until it ends.
func (m *Manager) run(id int64) {
	logger := log.WithFunc("manager.run")
	ctx := m.ctx
	var url, dest string

	m.mu.Lock()
	err := m.update(ctx, id, func(j *job) error {
		if j.Status != types.ManagerPending {
			return errUnchanged
		}
		j.Status = types.ManagerRunning
		url, dest = j.URL, j.Dest
		return nil
	})
	if err != nil {
		m.mu.Unlock()
		if !errors.Is(err, errUnchanged) && !errors.Is(err, ErrNotFound) {
			logger.Warnf(ctx, "start download %d: %v", id, err)
		}
		return
	}
	tracker := progress.NewTracker(func(ev engineProgress.Event) { m.onEvent(id, ev) })
	task, err := m.engine.Start(ctx, url, dest, tracker)
	if err != nil {
		m.mu.Unlock()
		m.finish(id, err)
		return
	}
	m.tasks[id] = task
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		// A Resume may already have started the next run for id.
		if m.tasks[id] == task {
			delete(m.tasks, id)
		}
		m.mu.Unlock()
	}()
	_ = task.Wait()
}

// onEvent folds one engine event into the job row.
func (m *Manager) onEvent(id int64, ev engineProgress.Event) {
	var (
		fn      func(*job) error
		stopped bool
	)
	switch ev.Kind {
	case engineProgress.KindPending, engineProgress.KindProgress:
		fn = func(j *job) error {
			// Paused through the index, possibly by another process.
			if j.Status == types.ManagerPaused {
				stopped = true
				return errUnchanged
			}
			j.Status = types.ManagerRunning
			j.BytesSoFar, j.TotalBytes = ev.SoFar, ev.Total
			return nil
		}
	case engineProgress.KindCompleted:
		fn = func(j *job) error {
			j.Status = types.ManagerSuccessful
			j.BytesSoFar, j.TotalBytes = ev.SoFar, ev.Total
			j.Reason = ""
			j.LocalURI = utils.FileURI(ev.Path)
			return nil
		}
	case engineProgress.KindPaused:
		closing := m.ctx.Err() != nil
		fn = func(j *job) error {
			j.BytesSoFar = ev.SoFar
			if closing {
				j.Status, j.Reason = types.ManagerPending, ""
				return nil
			}
			// Re-queued by Resume while this run was stopping.
			if j.Status == types.ManagerPending {
				return errUnchanged
			}
			j.Status, j.Reason = types.ManagerPaused, ReasonPausedByApp
			return nil
		}
	case engineProgress.KindError:
		m.finish(id, ev.Err)
		return
	default:
		return
	}
	// Transfers outlive a cancelled m.ctx, so their final rows still get written.
	err := m.update(context.WithoutCancel(m.ctx), id, fn)
	switch {
	case errors.Is(err, ErrNotFound):
		stopped = true
	case err != nil && !errors.Is(err, errUnchanged):
		log.WithFunc("manager.onEvent").Warnf(m.ctx, "update download %d on %s: %v", id, ev.Kind, err)
	}
	if stopped {
		m.pauseLocal(id)
	}
}

// pauseLocal pauses the in-process transfer for id, if any.
func (m *Manager) pauseLocal(id int64) {
	m.mu.Lock()
	task := m.tasks[id]
	m.mu.Unlock()
	if task != nil {
		task.Pause()
	}
}

// finish marks id FAILED with the reason derived from err.
func (m *Manager) finish(id int64, err error) {
	reason := Reason(err)
	if uerr := m.update(context.WithoutCancel(m.ctx), id, func(j *job) error {
		j.Status = types.ManagerFailed
		j.Reason = reason
		return nil
	}); uerr != nil && !errors.Is(uerr, ErrNotFound) {
		log.WithFunc("manager.finish").Warnf(m.ctx, "update download %d: %v", id, uerr)
	}
	log.WithFunc("manager.finish").Warnf(m.ctx, "download %d failed (%s): %v", id, reason, err)
}

// update applies fn to the job under the store lock. fn may return
// errUnchanged to skip the write; update then returns errUnchanged.
func (m *Manager) update(ctx context.Context, id int64, fn func(*job) error) error {
	return m.store.Update(ctx, func(idx *jobIndex) error {
		j := idx.Jobs[id]
		if j == nil {
			return ErrNotFound
		}
		if err := fn(j); err != nil {
			return err
		}
		j.UpdatedAt = time.Now()
		return nil
	})
}
