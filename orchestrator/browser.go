package orchestrator

import (
	"context"
	"fmt"

	"github.com/projecteru2/apkfetch/types"
	"github.com/projecteru2/apkfetch/utils"
)

// DownloadWithBrowser hands url to the platform chooser. Nothing is
// tracked after a successful handoff and the status stays Idle. Returns
// ErrNoHandler when no application can open it.
func (o *Orchestrator) DownloadWithBrowser(ctx context.Context, url string) error {
	a := o.begin(ctx)
	defer a.end()
	if _, err := utils.ParseHTTPURL(url); err != nil {
		a.set(types.Failed(err.Error()))
		return err
	}
	if o.opts.Opener == nil {
		a.set(types.Failed(ErrNoHandler.Error()))
		return ErrNoHandler
	}
	if err := o.opts.Opener.Open(a.ctx, url); err != nil {
		a.set(types.Failed(err.Error()))
		return err
	}
	return nil
}

// Install hands a downloaded file, given as a file:// URI or a path, to
// the platform installer.
func (o *Orchestrator) Install(ctx context.Context, location string) error {
	path, err := utils.PathFromLocation(location)
	if err != nil {
		return err
	}
	if !utils.Readable(path) {
		return fmt.Errorf("install %s: file not readable", path)
	}
	if o.opts.Opener == nil {
		return ErrNoHandler
	}
	if err := o.opts.Opener.Install(ctx, path); err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}
	return nil
}
