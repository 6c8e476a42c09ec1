package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chopshop/internal/domain"
	"chopshop/internal/domain/model"
	"chopshop/internal/infra/staging"
	"chopshop/internal/usecase"
)

func newSubmitCommand(app *appContext) *cobra.Command {
	var (
		sourcePath string
		targetPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "submit <type>",
		Short: "Submit a transformation job",
		Long: "Submit a transformation job. Available types:\n\n" +
			catalogHelp() +
			"\nWith --watch the command stays attached and reports status until the job finishes.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			uc, err := app.ensureLifecycle()
			if err != nil {
				return err
			}
			cfg, _ := app.ensureConfig()

			req := usecase.SubmitRequest{Type: model.TransformationType(args[0])}

			if sourcePath != "" {
				src, err := staging.Load(sourcePath, cfg.Staging.MaxBytes)
				if err != nil {
					return err
				}
				req.SourceImage = src.DataURL
			}
			if targetPath != "" {
				tgt, err := staging.Load(targetPath, cfg.Staging.MaxBytes)
				if err != nil {
					return err
				}
				req.TargetImage = tgt.DataURL
			}

			job, err := uc.Submit(cmd.Context(), req)
			if err != nil {
				var submitErr *domain.SubmissionError
				if errors.As(err, &submitErr) {
					return fmt.Errorf("submission rejected: %s", submitErr.Message)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s submitted (%s), %d credits remaining\n", job.ID, job.Type, uc.Credits())

			if !watch {
				fmt.Fprintf(out, "Track it with: chopshop jobs\n")
				return nil
			}
			return watchJob(cmd, uc)
		},
	}

	cmd.Flags().StringVarP(&sourcePath, "source", "s", "", "Source image file")
	cmd.Flags().StringVarP(&targetPath, "target", "t", "", "Target image file (face-swap only)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", true, "Stay attached until the job reaches a terminal state")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

// watchJob consumes lifecycle events until the tracked job goes terminal,
// then reports the outcome the same way Wait would.
func watchJob(cmd *cobra.Command, uc usecase.JobLifecycle) error {
	out := cmd.OutOrStdout()
	lastStatus := model.JobStatus("")

	for {
		select {
		case <-cmd.Context().Done():
			fmt.Fprintln(out, "Detaching; the job keeps running on the backend.")
			return cmd.Context().Err()
		case ev := <-uc.Events():
			switch ev.Kind {
			case usecase.EventJobUpdated:
				if ev.Job.Status != lastStatus {
					fmt.Fprintf(out, "  status: %s\n", ev.Job.Status)
					lastStatus = ev.Job.Status
				}
			case usecase.EventJobCompleted:
				fmt.Fprintf(out, "Done! Result: %s\n", ev.Job.OutputURL)
				return nil
			case usecase.EventJobFailed:
				if errors.Is(ev.Err, domain.ErrPollTimeout) {
					return fmt.Errorf("gave up waiting for job %s; check `chopshop jobs` later", ev.Job.ID)
				}
				var failed *domain.JobFailedError
				if errors.As(ev.Err, &failed) {
					return fmt.Errorf("job %s failed: %s", failed.JobID, failed.Reason)
				}
				return ev.Err
			}
		}
	}
}

func catalogHelp() string {
	var b strings.Builder
	for _, tr := range model.Catalog {
		fmt.Fprintf(&b, "  %-15s %s (%d credits", tr.Type, tr.Description, tr.Credits)
		if tr.RequiresTarget {
			b.WriteString(", needs --target")
		}
		b.WriteString(")\n")
	}
	return b.String()
}
