package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreditsCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "credits",
		Short: "Show the authoritative credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			uc, err := app.ensureLifecycle()
			if err != nil {
				return err
			}

			balance, err := uc.RefreshCredits(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d credits\n", balance)
			return nil
		},
	}
}
