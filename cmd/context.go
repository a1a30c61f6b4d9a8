package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/apkfetch/cmd/core"
)

// newCommandContext returns a context cancelled on SIGINT or SIGTERM.
// A cancelled download pauses and keeps its partial file.
func newCommandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func commandContext(cmd *cobra.Command) context.Context {
	return cmdcore.CommandContext(cmd)
}
