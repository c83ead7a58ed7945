// Package cli implements the resident command line.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X resident/internal/cli.Version=...".
var Version = "dev"

var flagConfig string

// NewRootCmd creates the root cobra command for the resident CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "resident",
		Short:        "Run cron-driven loopers and self-paced workers",
		Long:         "resident runs background batch producers and queue drainers against SQLite, PostgreSQL or Redis.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "./resident.json", "path to config (json or yaml)")

	root.AddCommand(
		newRunCmd(),
		newScheduleCmd(),
		newEnqueueCmd(),
		newAccountCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("resident", Version)
		},
	}
}
