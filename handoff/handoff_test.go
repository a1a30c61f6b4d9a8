package handoff

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func newTestChooser(installed map[string]bool, runErr error) (*Chooser, *[]call) {
	var calls []call
	c := New([]string{"xdg-open", "gio open"})
	c.lookPath = func(name string) (string, error) {
		if installed[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
	c.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: args})
		if runErr != nil {
			return []byte("cannot open\n"), runErr
		}
		return nil, nil
	}
	return c, &calls
}

func TestOpenUsesFirstInstalled(t *testing.T) {
	c, calls := newTestChooser(map[string]bool{"gio": true}, nil)
	require.NoError(t, c.Open(context.Background(), "https://example.com/app.apk"))
	require.Equal(t, []call{{name: "/usr/bin/gio", args: []string{"open", "https://example.com/app.apk"}}}, *calls)
}

func TestOpenNoHandler(t *testing.T) {
	c, calls := newTestChooser(nil, nil)
	require.ErrorIs(t, c.Open(context.Background(), "https://example.com"), ErrNoHandler)
	require.Empty(t, *calls)
}

func TestOpenFailureNotRetried(t *testing.T) {
	boom := errors.New("exit status 4")
	c, calls := newTestChooser(map[string]bool{"xdg-open": true, "gio": true}, boom)
	err := c.Open(context.Background(), "https://example.com")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "cannot open")
	require.Len(t, *calls, 1)
}

func TestInstallRequiresFile(t *testing.T) {
	c, calls := newTestChooser(map[string]bool{"xdg-open": true}, nil)
	dir := t.TempDir()

	require.Error(t, c.Install(context.Background(), filepath.Join(dir, "missing.apk")))
	empty := filepath.Join(dir, "empty.apk")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	require.Error(t, c.Install(context.Background(), empty))
	require.Empty(t, *calls)

	apk := filepath.Join(dir, "app.apk")
	require.NoError(t, os.WriteFile(apk, []byte("PK"), 0o600))
	require.NoError(t, c.Install(context.Background(), apk))
	require.Equal(t, []string{apk}, (*calls)[0].args)
}

func TestNewDefaults(t *testing.T) {
	c := New(nil)
	require.Len(t, c.candidates, len(DefaultOpeners()))
	c = New([]string{"  ", "open -a Browser"})
	require.Equal(t, [][]string{{"open", "-a", "Browser"}}, c.candidates)
}
