package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var devFlag bool

	app := newAppContext(&configFlag, &devFlag)

	rootCmd := &cobra.Command{
		Use:           "chopshop",
		Short:         "ChopShop image transformation client",
		Long:          "Command line client for the FaceShot ChopShop service: submit face swap, avatar and image-to-video jobs, watch them complete, and manage your credit balance.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&devFlag, "dev", false, "Developer mode: console logs, unredacted identifiers")

	rootCmd.AddCommand(newLoginCommand(app))
	rootCmd.AddCommand(newSignupCommand(app))
	rootCmd.AddCommand(newLogoutCommand(app))
	rootCmd.AddCommand(newWhoamiCommand(app))
	rootCmd.AddCommand(newSubmitCommand(app))
	rootCmd.AddCommand(newJobsCommand(app))
	rootCmd.AddCommand(newCreditsCommand(app))
	rootCmd.AddCommand(newPlansCommand(app))
	rootCmd.AddCommand(newStatsCommand(app))

	return rootCmd
}
