package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/apkfetch/cmd/core"
	"github.com/projecteru2/apkfetch/config"
	"github.com/projecteru2/apkfetch/manager"
	"github.com/projecteru2/apkfetch/prefs"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) initManager(cmd *cobra.Command) (context.Context, *manager.Manager, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, nil, err
	}
	m, err := cmdcore.InitManager(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	return ctx, m, nil
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	ctx, m, err := h.initManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	rows, err := m.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No downloads found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tREASON\tTITLE\tUPDATED")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s / %s\t%s\t%s\t%s\n",
			row.ID,
			row.Status,
			cmdcore.FormatSize(row.BytesSoFar),
			cmdcore.FormatSize(row.TotalBytes),
			row.Reason,
			row.Title,
			row.UpdatedAt.Local().Format(time.DateTime),
		)
	}
	return w.Flush()
}

func (h Handler) Status(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	id, err := h.statusID(ctx, conf, args)
	if err != nil {
		return err
	}
	m, err := cmdcore.InitManager(ctx, conf)
	if err != nil {
		return err
	}
	defer m.Close()

	row, ok, err := m.Query(ctx, id)
	if err != nil {
		return fmt.Errorf("query %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("query %d: %w", id, manager.ErrNotFound)
	}
	data, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func (h Handler) Pause(cmd *cobra.Command, args []string) error {
	return h.batch(cmd, args, "paused", func(ctx context.Context, m *manager.Manager, id int64) error {
		return m.Pause(ctx, id)
	})
}

func (h Handler) Resume(cmd *cobra.Command, args []string) error {
	return h.batch(cmd, args, "queued", func(ctx context.Context, m *manager.Manager, id int64) error {
		return m.Resume(ctx, id)
	})
}

func (h Handler) Remove(cmd *cobra.Command, args []string) error {
	deleteFile, _ := cmd.Flags().GetBool("delete-file")
	return h.batch(cmd, args, "removed", func(ctx context.Context, m *manager.Manager, id int64) error {
		return m.Remove(ctx, id, deleteFile)
	})
}

func (h Handler) Recover(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	b, err := cmdcore.InitOrchestrator(ctx, conf)
	if err != nil {
		return err
	}
	defer b.Close()

	location, ok, err := b.Orchestrator.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	if !ok {
		fmt.Println("Nothing to recover.")
		return nil
	}
	fmt.Printf("Recovered: %s\n", location)
	if install, _ := cmd.Flags().GetBool("install"); install {
		return b.Orchestrator.Install(ctx, location)
	}
	return nil
}

func (h Handler) Install(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	b, err := cmdcore.InitOrchestrator(ctx, conf)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Orchestrator.Install(ctx, args[0]); err != nil {
		return err
	}
	log.WithFunc("cmd.install").Infof(ctx, "install handed off: %s", args[0])
	return nil
}

// batch applies fn to every id and reports the ones that succeeded. The
// first failure is returned after all ids were tried.
func (h Handler) batch(cmd *cobra.Command, args []string, pastTense string, fn func(context.Context, *manager.Manager, int64) error) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	ctx, m, err := h.initManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	logger := log.WithFunc("cmd.jobs")
	var firstErr error
	for _, id := range ids {
		if err := fn(ctx, m, id); err != nil {
			logger.Warnf(ctx, "download %d: %v", id, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("download %d: %w", id, err)
			}
			continue
		}
		fmt.Printf("%s: %d\n", pastTense, id)
	}
	return firstErr
}

// statusID is the id given on the command line, or else the last recorded
// manager download, which is peeked without being consumed.
func (h Handler) statusID(ctx context.Context, conf *config.Config, args []string) (int64, error) {
	if len(args) > 0 {
		return parseID(args[0])
	}
	store, err := prefs.New(conf)
	if err != nil {
		return 0, fmt.Errorf("init prefs: %w", err)
	}
	id, ok, err := store.LastDownloadID(ctx)
	if err != nil {
		return 0, fmt.Errorf("read last download id: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("no download recorded, pass an ID")
	}
	return id, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid download id %q", s)
	}
	return id, nil
}
