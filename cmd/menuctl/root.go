package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"menuforge/internal/client"
)

const defaultServer = "http://localhost:8080"

// app carries the settings shared by every subcommand.
type app struct {
	server      string
	token       string
	sessionPath string
}

func newApp() *app {
	return &app{
		server: envOr("MENUCTL_SERVER", defaultServer),
		token:  os.Getenv("MENUCTL_TOKEN"),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "menuctl",
		Short:         "Manage menuforge menus, templates and exports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&a.server, "server", a.server, "API base URL (env MENUCTL_SERVER)")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", a.sessionPath, "session file (default ~/.config/menuctl/session.json)")

	root.AddGroup(
		&cobra.Group{ID: "remote", Title: "Server Commands:"},
		&cobra.Group{ID: "local", Title: "Local File Commands:"},
	)

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newMenusCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newPublishCmd(a),
		newTemplatesCmd(a),
		newTreeCmd(),
	)
	return root
}

// client builds an API client from the flags, MENUCTL_TOKEN or the saved
// session. A 401 removes the saved session.
func (a *app) client() (*client.Client, error) {
	token := a.token
	server := a.server
	if token == "" {
		s, err := loadSession(a.sessionFile())
		if err != nil {
			return nil, err
		}
		if s != nil {
			token = s.Token
			if server == defaultServer && s.Server != "" {
				server = s.Server
			}
		}
	}

	c := client.New(server, token)
	c.OnUnauthorized = func() {
		if a.token != "" {
			return
		}
		if err := removeSession(a.sessionFile()); err == nil {
			fmt.Fprintln(os.Stderr, "session expired or invalid; run `menuctl login`")
		}
	}
	return c, nil
}

func (a *app) sessionFile() string {
	if a.sessionPath != "" {
		return a.sessionPath
	}
	return defaultSessionPath()
}

// readPassword returns the --password flag, MENUCTL_PASSWORD, or a line read
// from in.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv("MENUCTL_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required")
	}
	return line, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
