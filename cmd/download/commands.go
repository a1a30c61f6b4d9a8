package download

import "github.com/spf13/cobra"

// Actions defines the three download paths.
type Actions interface {
	Engine(cmd *cobra.Command, args []string) error
	Manager(cmd *cobra.Command, args []string) error
	Browser(cmd *cobra.Command, args []string) error
}

// Command builds the "download" parent command with one subcommand per path.
func Command(h Actions) *cobra.Command {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download a file through the engine, the download manager or the browser",
	}
	downloadCmd.PersistentFlags().Bool("ignore-network", false, "start even when the host looks offline")
	downloadCmd.PersistentFlags().BoolP("quiet", "q", false, "do not render progress")

	engineCmd := &cobra.Command{
		Use:   "engine [flags] URL",
		Short: "Download in-process with the resumable engine (Ctrl-C pauses)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Engine,
	}
	engineCmd.Flags().StringP("dest", "o", "", "destination path (default: cache dir + name from URL)")

	managerCmd := &cobra.Command{
		Use:   "manager URL",
		Short: "Enqueue with the download manager and poll until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Manager,
	}

	browserCmd := &cobra.Command{
		Use:   "browser URL",
		Short: "Hand the URL to the default browser",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Browser,
	}

	downloadCmd.AddCommand(engineCmd, managerCmd, browserCmd)
	return downloadCmd
}
