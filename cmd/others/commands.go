package others

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Actions defines cross-cutting system operations.
type Actions interface {
	GC(cmd *cobra.Command, args []string) error
	Version(cmd *cobra.Command, args []string) error
	NetWatch(cmd *cobra.Command, args []string) error
}

// Commands builds system command set (gc, version, net, completion).
func Commands(h Actions) []*cobra.Command {
	netCmd := &cobra.Command{
		Use:   "net",
		Short: "Inspect network connectivity",
	}
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the connectivity signal on every change until interrupted",
		RunE:  h.NetWatch,
	}
	watchCmd.Flags().Bool("once", false, "print the current value and exit")
	netCmd.AddCommand(watchCmd)

	return []*cobra.Command{
		{
			Use:   "gc",
			Short: "Prune old finished downloads and stale temp files",
			RunE:  h.GC,
		},
		{
			Use:   "version",
			Short: "Show version, git revision, and build timestamp",
			RunE:  h.Version,
		},
		netCmd,
		{
			Use:       "completion [bash|zsh|fish|powershell]",
			Short:     "Generate shell completion script",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
			RunE: func(cmd *cobra.Command, args []string) error {
				root := cmd.Root()
				switch args[0] {
				case "bash":
					return root.GenBashCompletion(os.Stdout)
				case "zsh":
					return root.GenZshCompletion(os.Stdout)
				case "fish":
					return root.GenFishCompletion(os.Stdout, true)
				case "powershell":
					return root.GenPowerShellCompletionWithDesc(os.Stdout)
				default:
					return fmt.Errorf("unsupported shell: %s", args[0])
				}
			},
		},
	}
}
