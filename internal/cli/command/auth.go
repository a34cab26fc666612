package command

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/internal/core/querycache"
	"github.com/mulligan-golf/mulligan-go/pkg/token"
)

// keyProfile caches the signed-in user's profile.
var keyProfile = querycache.K("profile")

// AuthCommand returns the auth subcommand group.
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in and out of the Mulligan API",
		Subcommands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with a username and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username",
						EnvVars: []string{"MULLIGAN_USERNAME"},
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (prompted when omitted)",
						EnvVars: []string{"MULLIGAN_PASSWORD"},
					},
				},
				Action: authLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored token",
				Action: authLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the session state",
				Action: authStatus,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in user's profile",
				Action: authWhoami,
			},
		},
	}
}

func authLogin(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	if view := rt.Session.View(); view.Authenticated() {
		return fmt.Errorf("already logged in as %s; run 'auth logout' first", view.User.DisplayName())
	}

	in := bufio.NewReader(c.App.Reader)
	username := c.String("username")
	if username == "" {
		if username, err = prompt(c, in, "Username: "); err != nil {
			return err
		}
	}
	password := c.String("password")
	if password == "" {
		if password, err = prompt(c, in, "Password: "); err != nil {
			return err
		}
	}
	if username == "" || password == "" {
		return domain.ErrValidation.WithDetails("username and password are required")
	}

	cred, err := rt.Session.Login(c.Context, username, password)
	if err != nil {
		return err
	}
	rt.Cache.Clear()

	fmt.Fprintf(c.App.Writer, "Logged in as %s.\n", cred.Profile.DisplayName())
	return nil
}

func prompt(c *cli.Context, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(c.App.ErrWriter, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func authLogout(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	if !rt.Session.View().Authenticated() {
		fmt.Fprintln(c.App.Writer, "Not logged in.")
		return nil
	}
	rt.Session.Logout(c.Context)
	fmt.Fprintln(c.App.Writer, "Logged out.")
	return nil
}

type statusView struct {
	Status    domain.SessionStatus `json:"status" yaml:"status"`
	User      string               `json:"user,omitempty" yaml:"user,omitempty"`
	Token     string               `json:"token,omitempty" yaml:"token,omitempty"`
	APIURL    string               `json:"api_url" yaml:"api_url"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Error     string               `json:"error,omitempty" yaml:"error,omitempty"`
}

func authStatus(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}

	view := rt.Session.View()
	st := statusView{
		Status: view.Status,
		User:   view.User.Username(),
		APIURL: rt.Transport.BaseURL(),
		Error:  view.Error,
	}
	if cred := rt.Session.Credential(); cred != nil {
		st.Token = token.Fingerprint(cred.Token)
		if exp, ok := cred.ExpiresAt(); ok {
			st.ExpiresAt = &exp
		}
	}
	return render(c, st)
}

func authWhoami(c *cli.Context) error {
	rt, err := requireAuth(c)
	if err != nil {
		return err
	}

	data, err := rt.read(c.Context, keyProfile, func(ctx context.Context) (any, error) {
		return rt.Client.Profile(ctx)
	})
	if err != nil {
		return err
	}
	return render(c, data)
}
