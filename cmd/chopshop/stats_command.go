package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show public service statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := app.ensureStats()
			if err != nil {
				return err
			}

			overview, err := uc.Overview(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Creations:      %d\n", overview.TotalCreations)
			fmt.Fprintf(out, "Users:          %d\n", overview.TotalUsers)
			fmt.Fprintf(out, "Archived here:  %d\n", overview.ArchivedJobs)
			return nil
		},
	}
}
