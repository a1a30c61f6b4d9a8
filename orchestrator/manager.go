package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/apkfetch/types"
	"github.com/projecteru2/apkfetch/utils"
)

var errNoManager = errors.New("download manager not configured")

// DownloadWithManager enqueues url with the download manager, records the
// returned id and polls until the download succeeds or fails. Query errors
// and missing rows are skipped for that tick. A FAILED row is returned as
// *ManagerFailure. Cancelling ctx stops polling only; the manager keeps
// the transfer.
func (o *Orchestrator) DownloadWithManager(ctx context.Context, url string) (int64, error) {
	logger := log.WithFunc("orchestrator.DownloadWithManager")
	a := o.begin(ctx)
	defer a.end()
	if o.opts.Manager == nil {
		a.set(types.Failed(errNoManager.Error()))
		return types.NoDownloadID, errNoManager
	}

	mimeType := utils.MimeTypeFromURL(url)
	name := utils.GuessFileName(url, mimeType)
	req := types.Request{
		URL:         url,
		Title:       name,
		Description: "Downloading " + name,
		MimeType:    mimeType,
	}
	if o.opts.DownloadDir != "" {
		req.Dest = filepath.Join(o.opts.DownloadDir, name)
	}
	id, err := o.opts.Manager.Enqueue(a.ctx, req)
	if err != nil {
		err = fmt.Errorf("enqueue %s: %w", url, err)
		a.set(types.Failed(err.Error()))
		return types.NoDownloadID, err
	}
	if o.opts.Prefs != nil {
		if err := o.opts.Prefs.SetLastDownloadID(a.ctx, id); err != nil {
			logger.Warnf(ctx, "record download id %d: %v", id, err)
		}
	}

	err = utils.WaitFor(a.ctx, o.opts.PollTimeout, o.opts.PollInterval, func() (bool, error) {
		row, ok, qerr := o.opts.Manager.Query(a.ctx, id)
		if qerr != nil {
			logger.Debugf(ctx, "query download %d: %v", id, qerr)
			return false, nil
		}
		if !ok {
			return false, nil
		}
		if s, known := managerStatus(row); known {
			a.set(s)
		}
		switch row.Status {
		case types.ManagerSuccessful:
			return true, nil
		case types.ManagerFailed:
			return true, &ManagerFailure{ID: id, Reason: row.Reason}
		}
		return false, nil
	})
	if errors.Is(err, utils.ErrPollTimeout) {
		a.set(types.Failed(err.Error()))
	}
	return id, err
}

// managerStatus maps a manager row to a status. Unknown codes carry no
// status change.
func managerStatus(row types.Row) (types.Status, bool) {
	switch row.Status {
	case types.ManagerPending:
		return types.Downloading(0), true
	case types.ManagerRunning:
		return types.DownloadingBytes(row.BytesSoFar, row.TotalBytes), true
	case types.ManagerPaused:
		return types.Paused(), true
	case types.ManagerSuccessful:
		return types.Succeeded(row.LocalURI), true
	case types.ManagerFailed:
		return types.Failed(row.Reason), true
	default:
		return types.Status{}, false
	}
}

// Recover consumes the recorded manager id and returns the local location
// of that download when it succeeded and the file is still readable. Each
// recorded id is offered at most once.
func (o *Orchestrator) Recover(ctx context.Context) (string, bool, error) {
	if o.opts.Prefs == nil || o.opts.Manager == nil {
		return "", false, nil
	}
	id, ok, err := o.opts.Prefs.TakeLastDownloadID(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	row, ok, err := o.opts.Manager.Query(ctx, id)
	if err != nil || !ok || row.Status != types.ManagerSuccessful {
		return "", false, err
	}
	path, err := utils.PathFromLocation(row.LocalURI)
	if err != nil || !utils.Readable(path) {
		log.WithFunc("orchestrator.Recover").Debugf(ctx, "download %d at %q is gone", id, row.LocalURI)
		return "", false, nil
	}
	return row.LocalURI, true, nil
}
