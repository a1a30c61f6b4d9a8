package jobs

import "github.com/spf13/cobra"

// Actions defines operations on download manager jobs and their results.
type Actions interface {
	List(cmd *cobra.Command, args []string) error
	Status(cmd *cobra.Command, args []string) error
	Pause(cmd *cobra.Command, args []string) error
	Resume(cmd *cobra.Command, args []string) error
	Remove(cmd *cobra.Command, args []string) error
	Recover(cmd *cobra.Command, args []string) error
	Install(cmd *cobra.Command, args []string) error
}

// Commands builds the job command set.
func Commands(h Actions) []*cobra.Command {
	rmCmd := &cobra.Command{
		Use:     "remove [flags] ID [ID...]",
		Aliases: []string{"rm"},
		Short:   "Forget download(s), stopping them first",
		Args:    cobra.MinimumNArgs(1),
		RunE:    h.Remove,
	}
	rmCmd.Flags().Bool("delete-file", false, "also delete the downloaded file")

	recoverCmd := &cobra.Command{
		Use:   "recover",
		Short: "Offer the last manager download for install if it finished",
		RunE:  h.Recover,
	}
	recoverCmd.Flags().Bool("install", false, "install the recovered file right away")

	return []*cobra.Command{
		{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List download manager jobs",
			RunE:    h.List,
		},
		{
			Use:   "status [ID]",
			Short: "Show one download manager job (JSON), the last one by default",
			Args:  cobra.MaximumNArgs(1),
			RunE:  h.Status,
		},
		{
			Use:   "pause ID [ID...]",
			Short: "Pause download(s), keeping partial files",
			Args:  cobra.MinimumNArgs(1),
			RunE:  h.Pause,
		},
		{
			Use:   "resume ID [ID...]",
			Short: "Resume paused or failed download(s)",
			Args:  cobra.MinimumNArgs(1),
			RunE:  h.Resume,
		},
		rmCmd,
		recoverCmd,
		{
			Use:   "install LOCATION",
			Short: "Hand a downloaded package (path or file:// URI) to the installer",
			Args:  cobra.ExactArgs(1),
			RunE:  h.Install,
		},
	}
}
