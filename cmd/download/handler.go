package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cmdcore "github.com/projecteru2/apkfetch/cmd/core"
	"github.com/projecteru2/apkfetch/config"
	"github.com/projecteru2/apkfetch/engine"
	"github.com/projecteru2/apkfetch/orchestrator"
	"github.com/projecteru2/apkfetch/types"
	"github.com/projecteru2/apkfetch/utils"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Engine(cmd *cobra.Command, args []string) error {
	ctx, conf, b, err := h.init(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	url := args[0]
	dest, _ := cmd.Flags().GetString("dest")
	if dest == "" {
		dest = filepath.Join(conf.EngineCacheDir(), utils.GuessFileName(url, utils.MimeTypeFromURL(url)))
	}
	err = h.run(ctx, cmd, b.Orchestrator, func(ctx context.Context) error {
		return b.Orchestrator.DownloadWithEngine(ctx, url, dest)
	})
	if errors.Is(err, engine.ErrPaused) {
		fmt.Fprintf(cmd.OutOrStdout(), "Paused. Run the same command again to resume into %s\n", dest)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", dest)
	return nil
}

func (h Handler) Manager(cmd *cobra.Command, args []string) error {
	ctx, _, b, err := h.init(cmd)
	if err != nil {
		return err
	}
	defer b.Close()
	b.ResumePending(ctx)

	id := types.NoDownloadID
	err = h.run(ctx, cmd, b.Orchestrator, func(ctx context.Context) error {
		var derr error
		id, derr = b.Orchestrator.DownloadWithManager(ctx, args[0])
		return derr
	})
	switch {
	case errors.Is(err, context.Canceled) && id >= 0:
		fmt.Fprintf(cmd.OutOrStdout(), "Stopped watching download %d; it resumes on the next apkfetch run\n", id)
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Download %d saved: %s\n", id, b.Orchestrator.Status().Location)
	return nil
}

func (h Handler) Browser(cmd *cobra.Command, args []string) error {
	ctx, _, b, err := h.init(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Orchestrator.DownloadWithBrowser(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Opened %s in the browser\n", args[0])
	return nil
}

// init wires the backends and applies the connectivity gate.
func (h Handler) init(cmd *cobra.Command) (context.Context, *config.Config, *cmdcore.Backends, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := cmdcore.InitOrchestrator(ctx, conf)
	if err != nil {
		return nil, nil, nil, err
	}
	if ignore, _ := cmd.Flags().GetBool("ignore-network"); !ignore {
		b.Monitor.Refresh(ctx)
		if err := b.Orchestrator.CheckOnline(); err != nil {
			b.Close()
			return nil, nil, nil, fmt.Errorf("%w (pass --ignore-network to try anyway)", err)
		}
	}
	return ctx, conf, b, nil
}

// run executes op while rendering the orchestrator status.
func (h Handler) run(ctx context.Context, cmd *cobra.Command, orch *orchestrator.Orchestrator, op func(context.Context) error) error {
	statuses, cancel := orch.Watch()
	defer cancel()

	quiet, _ := cmd.Flags().GetBool("quiet")
	r := newRenderer(cmd.OutOrStdout(), quiet)
	done := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		return op(ctx)
	})
	g.Go(func() error {
		r.loop(statuses, done, orch.Status)
		return nil
	})
	err := g.Wait()
	if err != nil {
		log.WithFunc("cmd.download").Debugf(ctx, "download ended: %v", err)
	}
	return err
}
