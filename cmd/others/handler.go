package others

import (
	"fmt"
	"time"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/apkfetch/cmd/core"
	"github.com/projecteru2/apkfetch/gc"
	"github.com/projecteru2/apkfetch/version"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) GC(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	m, err := cmdcore.InitManager(ctx, conf)
	if err != nil {
		return err
	}
	defer m.Close()

	o := gc.New()
	m.RegisterGC(o)
	if err := o.Run(ctx); err != nil {
		return err
	}
	log.WithFunc("cmd.gc").Infof(ctx, "GC completed")
	return nil
}

func (h Handler) Version(_ *cobra.Command, _ []string) error {
	fmt.Print(version.String())
	return nil
}

func (h Handler) NetWatch(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	monitor, err := cmdcore.InitMonitor(conf)
	if err != nil {
		return err
	}
	signal, cancel := monitor.Subscribe(ctx)
	defer cancel()
	if !monitor.Active() {
		log.WithFunc("cmd.net").Warnf(ctx, "%s source not registered, reporting network lost", conf.Connectivity.Source)
	}

	once, _ := cmd.Flags().GetBool("once")
	for {
		select {
		case <-ctx.Done():
			return nil
		case available, ok := <-signal:
			if !ok {
				return nil
			}
			fmt.Printf("%s\tnetwork %s\n", time.Now().Format(time.DateTime), availability(available))
			if once {
				return nil
			}
		}
	}
}

func availability(available bool) string {
	if available {
		return "available"
	}
	return "lost"
}
