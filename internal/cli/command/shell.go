package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/mulligan-golf/mulligan-go/internal/cli/config"
	"github.com/mulligan-golf/mulligan-go/internal/cli/repl"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Start an interactive shell that keeps the session and query cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "History file (default ~/.mulligan/history, empty string disables)",
				Value: filepath.Join(config.DefaultDir(), "history"),
			},
		},
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	rt.SetInteractive(true)
	defer rt.SetInteractive(false)

	history := repl.NewHistory(c.String("history"), repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		rt.Log.Warn("failed to load shell history", "error", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			rt.Log.Warn("failed to save shell history", "error", err)
		}
	}()

	var shell *repl.REPL
	exec := func(ctx context.Context, args []string) error {
		if len(args) > 0 && args[0] == "shell" {
			return errors.New("already in the shell")
		}
		app := App(WithRuntime(rt), WithIO(shell.Input(), c.App.Writer, c.App.ErrWriter))
		return app.RunContext(ctx, append([]string{app.Name}, args...))
	}

	shell = repl.New(exec,
		repl.WithIO(c.App.Reader, c.App.Writer),
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandPaths("", c.App.Commands))),
		repl.WithPrompt(func() string { return shellPrompt(rt) }),
	)

	fmt.Fprintf(c.App.Writer, "Connected to %s. Type 'help' for commands, 'exit' to leave.\n", rt.Transport.BaseURL())
	return shell.Run(c.Context)
}

func shellPrompt(rt *Runtime) string {
	if view := rt.Session.View(); view.Authenticated() {
		if name := view.User.Username(); name != "" {
			return fmt.Sprintf("mulligan(%s)> ", name)
		}
	}
	return "mulligan> "
}

// commandPaths lists every command path below cmds, such as
// "tournament list".
func commandPaths(prefix string, cmds []*cli.Command) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden || cmd.Name == "shell" || cmd.Name == "help" {
			continue
		}
		path := cmd.Name
		if prefix != "" {
			path = prefix + " " + cmd.Name
		}
		paths = append(paths, path)
		paths = append(paths, commandPaths(path, cmd.Subcommands)...)
	}
	return paths
}
