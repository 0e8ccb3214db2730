package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "irccd version %s\n", rootOpts.Build.Version)
			fmt.Fprintf(out, "Built: %s\n", rootOpts.Build.BuildDate)
			fmt.Fprintf(out, "Commit: %s\n", rootOpts.Build.GitCommit)
		},
	}
}
