package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chopshop/internal/infra/logging"
	"chopshop/internal/infra/session"
)

func newLoginCommand(app *appContext) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, _, err := app.ensureAuth()
			if err != nil {
				return err
			}
			email, password, err = promptCredentials(email, password)
			if err != nil {
				return err
			}

			user, err := auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%d credits)\n", user.Email, user.Credits)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	return cmd
}

func newSignupCommand(app *appContext) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, _, err := app.ensureAuth()
			if err != nil {
				return err
			}
			email, password, err = promptCredentials(email, password)
			if err != nil {
				return err
			}

			user, err := auth.Signup(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome %s! Your account starts with %d credits.\n", user.Email, user.Credits)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	return cmd
}

func newLogoutCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, _, err := app.ensureAuth()
			if err != nil {
				return err
			}
			if err := auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(app *appContext) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			auth, store, err := app.ensureAuth()
			if err != nil {
				return err
			}

			user := auth.CurrentUser()
			if refresh || user == nil {
				user, err = auth.RefreshUser(cmd.Context())
				if err != nil {
					return err
				}
			}

			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Email:   %s\n", user.Email)
			fmt.Fprintf(out, "Credits: %d\n", user.Credits)
			fmt.Fprintf(out, "Token:   %s\n", logging.Redact(store.Token(), cfg.Runtime.Dev))
			if exp, err := session.TokenExpiry(store.Token()); err == nil {
				fmt.Fprintf(out, "Session: valid until %s\n", exp.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch a fresh snapshot from the backend")
	return cmd
}

func promptCredentials(email, password string) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Fprint(os.Stderr, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password are required")
	}
	return email, password, nil
}
