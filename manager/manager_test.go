package manager

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/apkfetch/config"
	"github.com/projecteru2/apkfetch/engine"
	"github.com/projecteru2/apkfetch/types"
	"github.com/projecteru2/apkfetch/utils"
)

func newTestManager(t *testing.T) (*Manager, *config.Config) {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RootDir = t.TempDir()
	conf.PoolSize = 2
	m, err := New(context.Background(), conf, engine.New(engine.Options{Resume: true}))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, conf
}

func waitStatus(t *testing.T, m *Manager, id int64, want types.ManagerStatus) types.Row {
	t.Helper()
	var row types.Row
	require.Eventually(t, func() bool {
		r, ok, err := m.Query(context.Background(), id)
		if err != nil || !ok {
			return false
		}
		row = r
		return r.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return row
}

func fileServer(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "app.apk", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// blockingServer stalls every GET after half the body until release is
// closed. Once released it serves the full content with range support.
func blockingServer(t *testing.T, data []byte, release <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		released := false
		select {
		case <-release:
			released = true
		default:
		}
		if r.Method == http.MethodHead || released {
			http.ServeContent(w, r, "app.apk", time.Time{}, bytes.NewReader(data))
			return
		}
		w.Header().Set("Content-Length", "8192")
		_, _ = w.Write(data[:4096])
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnqueueSucceeds(t *testing.T) {
	data := bytes.Repeat([]byte("apk"), 10000)
	srv := fileServer(t, data)
	m, conf := newTestManager(t)
	ctx := context.Background()

	id, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/files/app.apk", Title: "app.apk"})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	row := waitStatus(t, m, id, types.ManagerSuccessful)
	require.Equal(t, int64(len(data)), row.BytesSoFar)
	require.Equal(t, int64(len(data)), row.TotalBytes)
	require.Empty(t, row.Reason)
	require.Equal(t, "app.apk", row.Title)

	path, err := utils.PathFromLocation(row.LocalURI)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(conf.DownloadsDir(), "app.apk"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, got)

	id2, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/files/other.apk"})
	require.NoError(t, err)
	require.Equal(t, int64(2), id2)
	waitStatus(t, m, id2, types.ManagerSuccessful)

	rows, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, id, rows[0].ID)
	require.Equal(t, id2, rows[1].ID)
}

func TestEnqueueRejectsBadURL(t *testing.T) {
	m, _ := newTestManager(t)
	id, err := m.Enqueue(context.Background(), types.Request{URL: "not a url"})
	require.Error(t, err)
	require.Equal(t, types.NoDownloadID, id)
}

func TestQueryUnknownID(t *testing.T) {
	m, _ := newTestManager(t)
	_, ok, err := m.Query(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFailedDownloadReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	m, _ := newTestManager(t)

	id, err := m.Enqueue(context.Background(), types.Request{URL: srv.URL + "/app.apk"})
	require.NoError(t, err)
	row := waitStatus(t, m, id, types.ManagerFailed)
	require.Equal(t, ReasonUnhandledHTTPCode, row.Reason)
}

func TestPauseAndResume(t *testing.T) {
	data := bytes.Repeat([]byte{7}, 8192)
	release := make(chan struct{})
	srv := blockingServer(t, data, release)
	m, _ := newTestManager(t)
	ctx := context.Background()

	id, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/app.apk"})
	require.NoError(t, err)
	waitStatus(t, m, id, types.ManagerRunning)

	require.NoError(t, m.Pause(ctx, id))
	row := waitStatus(t, m, id, types.ManagerPaused)
	require.Equal(t, ReasonPausedByApp, row.Reason)

	close(release)
	require.NoError(t, m.Resume(ctx, id))
	waitStatus(t, m, id, types.ManagerSuccessful)
	require.ErrorIs(t, m.Pause(ctx, id), ErrFinished)
}

func TestResumeRightAfterPause(t *testing.T) {
	data := bytes.Repeat([]byte{9}, 8192)
	release := make(chan struct{})
	srv := blockingServer(t, data, release)
	m, conf := newTestManager(t)
	ctx := context.Background()

	id, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/app.apk"})
	require.NoError(t, err)
	waitStatus(t, m, id, types.ManagerRunning)

	require.NoError(t, m.Pause(ctx, id))
	close(release)
	row, ok, err := m.Query(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.ManagerPaused, row.Status)

	// No wait for the stopping transfer in between.
	require.NoError(t, m.Resume(ctx, id))
	row = waitStatus(t, m, id, types.ManagerSuccessful)
	require.Empty(t, row.Reason)

	got, err := os.ReadFile(filepath.Join(conf.DownloadsDir(), "app.apk"))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestRemove(t *testing.T) {
	data := bytes.Repeat([]byte{1}, 8192)
	release := make(chan struct{})
	defer close(release)
	srv := blockingServer(t, data, release)
	m, _ := newTestManager(t)
	ctx := context.Background()

	id, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/app.apk"})
	require.NoError(t, err)
	waitStatus(t, m, id, types.ManagerRunning)

	require.NoError(t, m.Remove(ctx, id, true))
	_, ok, err := m.Query(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, m.Remove(ctx, id, false), ErrNotFound)
}

func TestRemoveKeepsFileOfOtherDownload(t *testing.T) {
	data := bytes.Repeat([]byte{3}, 8192)
	release := make(chan struct{})
	defer close(release)
	srv := blockingServer(t, data, release)
	m, _ := newTestManager(t)
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "app.apk")

	first, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/app.apk", Dest: dest})
	require.NoError(t, err)
	waitStatus(t, m, first, types.ManagerRunning)

	second, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/app.apk", Dest: dest})
	require.NoError(t, err)
	row := waitStatus(t, m, second, types.ManagerFailed)
	require.Equal(t, ReasonFileAlreadyExists, row.Reason)

	require.ErrorIs(t, m.Remove(ctx, second, true), ErrFileInUse)
	_, err = os.Stat(dest)
	require.NoError(t, err)
	waitStatus(t, m, first, types.ManagerRunning)
}

func TestCloseLeavesJobsPending(t *testing.T) {
	data := bytes.Repeat([]byte{2}, 8192)
	release := make(chan struct{})
	defer close(release)
	srv := blockingServer(t, data, release)

	conf := config.DefaultConfig()
	conf.RootDir = t.TempDir()
	conf.PoolSize = 1
	ctx := context.Background()

	m, err := New(ctx, conf, engine.New(engine.Options{Resume: true}))
	require.NoError(t, err)
	id, err := m.Enqueue(ctx, types.Request{URL: srv.URL + "/app.apk"})
	require.NoError(t, err)
	waitStatus(t, m, id, types.ManagerRunning)
	m.Close()

	m2, err := New(ctx, conf, engine.New(engine.Options{Resume: true}))
	require.NoError(t, err)
	defer m2.Close()
	row, ok, err := m2.Query(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.ManagerPending, row.Status)

	ids, err := m2.ResumePending(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{id}, ids)
}
