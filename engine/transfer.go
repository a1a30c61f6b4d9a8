package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/projecteru2/core/log"

	engineProgress "github.com/projecteru2/apkfetch/progress/engine"
	"github.com/projecteru2/apkfetch/utils"
)

// remoteInfo is what a HEAD probe tells us about the server copy.
type remoteInfo struct {
	size      int64 // -1 if unknown
	canResume bool
}

// transfer runs one download pass for t:
//
//  1. HEAD the URL for size and range support (best effort).
//  2. Decide between skip (local file complete), resume and restart.
//  3. GET the body (with Range when resuming) and stream it to disk.
func (e *Engine) transfer(ctx context.Context, t *Task) error {
	logger := log.WithFunc("engine.transfer")
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	localSize := utils.FileSize(t.Path)
	remote, err := e.head(ctx, t.URL)
	if err != nil {
		return err
	}
	t.total.Store(remote.size)

	if e.opts.MaxBytes > 0 && remote.size > e.opts.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, remote.size, e.opts.MaxBytes)
	}

	var offset int64
	if e.opts.Resume && localSize > 0 {
		switch {
		case remote.size >= 0 && localSize == remote.size:
			logger.Infof(ctx, "%s already complete (%d bytes), skipping", t.Path, localSize)
			t.soFar.Store(localSize)
			t.emit(engineProgress.KindPending)
			return nil
		case remote.canResume && localSize < remote.size:
			offset = localSize
		}
	}
	t.soFar.Store(offset)
	t.emit(engineProgress.KindPending)

	ctx, wd := newWatchdog(ctx, e.opts.InactivityTimeout)
	defer wd.Cancel()

	req, err := e.newRequest(ctx, http.MethodGet, t.URL)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", t.URL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	flags := os.O_WRONLY | os.O_CREATE
	switch {
	case offset > 0 && resp.StatusCode == http.StatusPartialContent:
		flags |= os.O_APPEND
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		return fmt.Errorf("%w: %s", ErrCannotResume, t.URL)
	case resp.StatusCode == http.StatusOK:
		// Full body: either a fresh download or the server ignored Range.
		offset = 0
		flags |= os.O_TRUNC
	default:
		return &HTTPStatusError{URL: t.URL, StatusCode: resp.StatusCode}
	}
	t.soFar.Store(offset)
	if resp.ContentLength >= 0 {
		t.total.Store(offset + resp.ContentLength)
	}

	out, err := os.OpenFile(t.Path, flags, 0o644) //nolint:gosec // destination chosen by caller
	if err != nil {
		return fmt.Errorf("open %s: %w", t.Path, err)
	}
	defer out.Close() //nolint:errcheck

	var body io.Reader = resp.Body
	if e.opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, e.opts.MaxBytes-offset+1)
	}
	pw := &progressWriter{w: out, task: t, interval: e.opts.ProgressInterval, wd: &wd}
	if _, err := io.Copy(pw, body); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("download %s: %w", t.URL, context.Cause(ctx))
		}
		return fmt.Errorf("download %s: %w", t.URL, err)
	}
	if e.opts.MaxBytes > 0 && t.soFar.Load() > e.opts.MaxBytes {
		return fmt.Errorf("%w: %s", ErrTooLarge, t.URL)
	}
	pw.flush()

	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", t.Path, err)
	}
	if total := t.total.Load(); total >= 0 && t.soFar.Load() != total {
		return fmt.Errorf("download %s: %w, got %d of %d bytes", t.URL, ErrShortBody, t.soFar.Load(), total)
	}
	if t.total.Load() < 0 {
		t.total.Store(t.soFar.Load())
	}
	return nil
}

// head probes the server. Transport errors fail the run; an HTTP error
// status only means "unknown", since some servers reject HEAD but serve GET.
func (e *Engine) head(ctx context.Context, url string) (remoteInfo, error) {
	info := remoteInfo{size: -1}
	req, err := e.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return info, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return info, fmt.Errorf("HEAD %s: %w", url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithFunc("engine.head").Debugf(ctx, "HEAD %s: status %d, continuing without size", url, resp.StatusCode)
		return info, nil
	}
	info.size = resp.ContentLength
	info.canResume = strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes") && info.size >= 0
	return info, nil
}

func (e *Engine) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	if e.opts.UserAgent != "" {
		req.Header.Set("User-Agent", e.opts.UserAgent)
	}
	return req, nil
}

// progressWriter wraps the destination file, kicks the watchdog on every
// write and emits a progress event every interval bytes.
type progressWriter struct {
	w          io.Writer
	task       *Task
	interval   int64
	lastReport int64
	wd         *watchdog
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.wd.Kick()
	written := pw.task.soFar.Add(int64(n))
	if written-pw.lastReport >= pw.interval {
		pw.lastReport = written
		pw.task.emit(engineProgress.KindProgress)
	}
	return n, err
}

// flush reports the tail that did not reach a full interval.
func (pw *progressWriter) flush() {
	if pw.task.soFar.Load() != pw.lastReport {
		pw.lastReport = pw.task.soFar.Load()
		pw.task.emit(engineProgress.KindProgress)
	}
}
