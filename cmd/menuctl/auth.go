package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"menuforge/internal/client"
)

func newLoginCmd(a *app) *cobra.Command {
	return authCmd(a, "login", "Log in and save the session", func(c *client.Client, cmd *cobra.Command, user, pass string) (*client.Session, error) {
		return c.Login(cmd.Context(), user, pass)
	})
}

func newRegisterCmd(a *app) *cobra.Command {
	return authCmd(a, "register", "Create an account and save the session", func(c *client.Client, cmd *cobra.Command, user, pass string) (*client.Session, error) {
		return c.Register(cmd.Context(), user, pass)
	})
}

type authFunc func(c *client.Client, cmd *cobra.Command, username, password string) (*client.Session, error)

func authCmd(a *app, use, short string, fn authFunc) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:     use + " <username>",
		Short:   short,
		GroupID: "remote",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			c := client.New(a.server, "")
			s, err := fn(c, cmd, args[0], pass)
			if err != nil {
				return err
			}
			if err := saveSession(a.sessionFile(), session{
				Server:   a.server,
				Token:    s.Token,
				UserID:   s.User.ID,
				Username: s.User.Username,
				Role:     s.User.Role,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", s.User.Username, s.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (env MENUCTL_PASSWORD, prompted otherwise)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Forget the saved session",
		GroupID: "remote",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := removeSession(a.sessionFile()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Show the user behind the current session",
		GroupID: "remote",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			u, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
}
