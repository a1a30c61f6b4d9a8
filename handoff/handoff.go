// Package handoff delegates URLs and files to the platform opener, the
// desktop equivalent of a "view" intent with an app chooser.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/apkfetch/utils"
)

// ErrNoHandler is returned when no opener binary is installed.
var ErrNoHandler = errors.New("no application available to handle the request")

// DefaultOpeners returns the opener commands tried on this platform.
func DefaultOpeners() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"open"}
	case "windows":
		return []string{"explorer"}
	default:
		return []string{"xdg-open", "gio open", "sensible-browser"}
	}
}

// Chooser runs the first available opener from an ordered candidate list.
type Chooser struct {
	candidates [][]string

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a Chooser. Each candidate is a command line such as
// "gio open"; the target is appended as the last argument. An empty list
// selects DefaultOpeners.
func New(candidates []string) *Chooser {
	if len(candidates) == 0 {
		candidates = DefaultOpeners()
	}
	c := &Chooser{lookPath: exec.LookPath, run: runCommand}
	for _, cand := range candidates {
		if fields := strings.Fields(cand); len(fields) > 0 {
			c.candidates = append(c.candidates, fields)
		}
	}
	return c
}

// Open hands target (a URL or a local path) to the first installed opener.
// Returns ErrNoHandler when none is installed. A failing opener is not
// retried with the next candidate.
func (c *Chooser) Open(ctx context.Context, target string) error {
	logger := log.WithFunc("handoff.Open")
	for _, cand := range c.candidates {
		bin, err := c.lookPath(cand[0])
		if err != nil {
			logger.Debugf(ctx, "opener %s not available: %v", cand[0], err)
			continue
		}
		args := append(append([]string{}, cand[1:]...), target)
		if out, err := c.run(ctx, bin, args...); err != nil {
			return fmt.Errorf("%s %s: %s: %w", cand[0], target, strings.TrimSpace(string(out)), err)
		}
		logger.Infof(ctx, "handed %s to %s", target, cand[0])
		return nil
	}
	return ErrNoHandler
}

// Install hands a downloaded package to the platform's installer, which is
// whatever the opener associates with its MIME type.
func (c *Chooser) Install(ctx context.Context, path string) error {
	if !utils.ValidFile(path) {
		return fmt.Errorf("install %s: not a readable non-empty file", path)
	}
	return c.Open(ctx, path)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // opener from config
}
