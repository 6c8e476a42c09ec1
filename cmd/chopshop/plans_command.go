package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlansCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List credit packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := app.ensurePlans()
			if err != nil {
				return err
			}

			plans, err := uc.List(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(plans))
			for _, plan := range plans {
				rows = append(rows, []string{
					plan.ID,
					plan.Name,
					fmt.Sprintf("%d", plan.Credits),
					fmt.Sprintf("$%.2f", plan.PriceUSD),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Credits", "Price"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.AddCommand(newPlansCheckoutCommand(app))
	return cmd
}

func newPlansCheckoutCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <plan-id>",
		Short: "Start a checkout session for a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			uc, err := app.ensurePlans()
			if err != nil {
				return err
			}

			url, err := uc.Checkout(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this link to complete the purchase:")
			fmt.Fprintln(out, url)
			return nil
		},
	}
}
