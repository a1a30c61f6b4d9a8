package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// tempPattern names the temp files AtomicWrite leaves behind on a crash.
// IsStaleTemp matches it.
const tempPattern = ".tmp-*"

// AtomicWrite replaces path with whatever write produces. The content goes
// to a temp file in the same directory, is fsynced and renamed over path,
// then the directory is fsynced. Readers see the old or the new content,
// never a partial one.
func AtomicWrite(path string, perm os.FileMode, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true
	return syncDir(dir)
}

// AtomicWriteJSON encodes v as indented JSON into path through AtomicWrite.
func AtomicWriteJSON(path string, v any) error {
	return AtomicWrite(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// syncDir makes a rename inside dir durable. Filesystems without
// directory fsync are accepted as is.
func syncDir(dir string) error {
	d, err := os.Open(dir) //nolint:gosec // parent of a managed file
	if err != nil {
		return fmt.Errorf("open dir %s: %w", dir, err)
	}
	defer d.Close() //nolint:errcheck

	err = d.Sync()
	switch {
	case err == nil, errors.Is(err, syscall.EINVAL), errors.Is(err, syscall.ENOTSUP), errors.Is(err, syscall.EBADF):
		return nil
	default:
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
}
