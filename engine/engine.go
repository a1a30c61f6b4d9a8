package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"github.com/projecteru2/apkfetch/config"
	"github.com/projecteru2/apkfetch/progress"
	engineProgress "github.com/projecteru2/apkfetch/progress/engine"
	"github.com/projecteru2/apkfetch/utils"
)

const maxRedirects = 10

var (
	// ErrPaused is returned by Task.Wait when the transfer was paused or
	// its context was cancelled. The partial file is kept.
	ErrPaused = errors.New("download paused")
	// ErrTaskRunning is returned by Start when a task for the same
	// destination is already running.
	ErrTaskRunning = errors.New("download already running for destination")
	// ErrTooManyRedirects is returned when the redirect chain exceeds maxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrTooLarge is returned when the remote file exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("download exceeds max size")
	// ErrCannotResume is returned when the server rejects the resume range.
	ErrCannotResume = errors.New("server cannot resume download")
	// ErrShortBody is returned when the body ends before the expected size.
	ErrShortBody = errors.New("short body")
)

// HTTPStatusError carries an unexpected HTTP status code.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Options configures an Engine.
type Options struct {
	// Client performs requests. Nil builds one with Timeout and a redirect cap.
	Client *http.Client
	// ProgressInterval is the number of bytes between progress events.
	ProgressInterval int64
	// Timeout bounds one transfer run. Zero disables it.
	Timeout time.Duration
	// InactivityTimeout cancels a run that receives no bytes for this long.
	InactivityTimeout time.Duration
	// MaxBytes rejects larger files. Zero disables the limit.
	MaxBytes int64
	// Resume continues shorter local files with a Range request.
	Resume bool
	// UserAgent is sent on every request when set.
	UserAgent string
}

// OptionsFromConfig converts the engine section of the config.
func OptionsFromConfig(c config.EngineConfig) (Options, error) {
	maxBytes, err := c.MaxBytes()
	if err != nil {
		return Options{}, err
	}
	return Options{
		ProgressInterval:  c.ProgressInterval,
		Timeout:           c.Timeout,
		InactivityTimeout: c.InactivityTimeout,
		MaxBytes:          maxBytes,
		Resume:            c.Resume,
		UserAgent:         c.UserAgent,
	}, nil
}

// Engine runs in-process resumable HTTP transfers and reports their
// lifecycle through engine progress events.
type Engine struct {
	opts   Options
	client *http.Client

	mu    sync.Mutex
	tasks map[string]*Task // keyed by absolute destination path
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 256 << 10 //nolint:mnd
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}
				return nil
			},
		}
	}
	return &Engine{opts: opts, client: client, tasks: make(map[string]*Task)}
}

// Start launches a transfer of url into dest and returns immediately.
// Events are delivered to tracker from the transfer goroutine. The transfer
// is paused when ctx is cancelled.
//
// If a task for dest is already running a KindWarn event is emitted and
// the running task is returned together with ErrTaskRunning.
func (e *Engine) Start(ctx context.Context, url, dest string, tracker progress.Tracker) (*Task, error) {
	if _, err := utils.ParseHTTPURL(url); err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = progress.Nop
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination %s: %w", dest, err)
	}
	if err := utils.EnsureDirs(filepath.Dir(abs)); err != nil {
		return nil, err
	}

	t := &Task{ID: uuid.NewString(), URL: url, Path: abs, engine: e, tracker: tracker}
	if running, ok := e.register(t); !ok {
		log.WithFunc("engine.Start").Warnf(ctx, "task %s already downloading %s", running.ID, abs)
		tracker.OnEvent(engineProgress.Event{Kind: engineProgress.KindWarn, TaskID: running.ID, Path: abs})
		return running, ErrTaskRunning
	}
	t.launch(ctx)
	return t, nil
}

// Running returns the running task for dest, if any.
func (e *Engine) Running(dest string) (*Task, bool) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[abs]
	return t, ok
}

// register claims t.Path. Returns the task holding it when already claimed.
func (e *Engine) register(t *Task) (*Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if running := e.tasks[t.Path]; running != nil {
		return running, false
	}
	e.tasks[t.Path] = t
	return t, true
}

func (e *Engine) forget(t *Task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tasks[t.Path] == t {
		delete(e.tasks, t.Path)
	}
}
