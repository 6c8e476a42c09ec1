package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chopshop/internal/domain/model"
)

func newJobsCommand(app *appContext) *cobra.Command {
	var (
		local bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List transformation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := app.ensureLifecycle()
			if err != nil {
				return err
			}

			var jobs []*model.Job
			if local {
				jobs, err = uc.LocalHistory(cmd.Context(), limit)
			} else {
				if err := app.requireSession(); err != nil {
					return err
				}
				jobs, err = uc.History(cmd.Context())
				if err == nil && limit > 0 && len(jobs) > limit {
					jobs = jobs[:limit]
				}
			}
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs yet. Submit one with `chopshop submit`.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					string(job.Type),
					string(job.Status),
					formatTime(job.CreatedAt),
					jobResult(job),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Status", "Created", "Result"},
				rows,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Read the local archive instead of the backend")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show (0 for all)")
	return cmd
}

func jobResult(job *model.Job) string {
	switch job.Status {
	case model.JobStatusCompleted:
		return job.OutputURL
	case model.JobStatusFailed:
		return job.Error
	default:
		return ""
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
