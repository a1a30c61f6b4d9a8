package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomicWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, AtomicWriteJSON(path, map[string]int{"n": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n  \"n\": 1\n}\n", string(data))
}

func TestAtomicWriteFailureKeepsOldContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	boom := errors.New("boom")
	err := AtomicWrite(path, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
