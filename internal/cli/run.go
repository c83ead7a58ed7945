package cli

import (
	"github.com/spf13/cobra"

	"resident/internal/app"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start every configured loop and block until SIGINT/SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context(), flagConfig)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}
