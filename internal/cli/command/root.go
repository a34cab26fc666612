package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mulligan-golf/mulligan-go/internal/cli/config"
	"github.com/mulligan-golf/mulligan-go/internal/cli/output"
	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/internal/infra/buildinfo"
	"github.com/mulligan-golf/mulligan-go/internal/infra/shutdown"
	"github.com/mulligan-golf/mulligan-go/internal/storage"
)

// Metadata keys on cli.App.
const (
	metaRuntime   = "runtime"
	metaConfigErr = "configErr"
	metaShutdown  = "shutdown"
	metaStore     = "storeOverride"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitAuth      = 2
	ExitForbidden = 3
	ExitRateLimit = 4
	ExitNetwork   = 5
)

// AppOption configures the application.
type AppOption func(*cli.App)

// WithRuntime makes the app reuse rt instead of building its own.
func WithRuntime(rt *Runtime) AppOption {
	return func(app *cli.App) {
		app.Metadata[metaRuntime] = rt
	}
}

// WithShutdown registers the runtime cleanup with h.
func WithShutdown(h *shutdown.Handler) AppOption {
	return func(app *cli.App) {
		app.Metadata[metaShutdown] = h
	}
}

type storeOverride struct {
	store storage.TokenStore
}

// WithStore replaces the configured token store.
func WithStore(s storage.TokenStore) AppOption {
	return func(app *cli.App) {
		app.Metadata[metaStore] = storeOverride{store: s}
	}
}

// WithIO sets the input and output streams.
func WithIO(in io.Reader, out, errOut io.Writer) AppOption {
	return func(app *cli.App) {
		app.Reader = in
		app.Writer = out
		app.ErrWriter = errOut
	}
}

// App creates the CLI application.
func App(opts ...AppOption) *cli.App {
	app := &cli.App{
		Name:                 buildinfo.ProductName,
		Usage:                "Mulligan golf tournament command-line client",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			AuthCommand(),
			TournamentCommand(),
			ParticipantCommand(),
			ResultCommand(),
			PointsCommand(),
			ClubCommand(),
			GolferCommand(),
			UserCommand(),
			ConfigCommand(),
			ShellCommand(),
			VersionCommand(),
			MetricsCommand(),
		},
		Metadata:       map[string]any{},
		Before:         before,
		ExitErrHandler: func(*cli.Context, error) {},
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-url",
			Aliases: []string{"a"},
			Usage:   "Mulligan API base URL (default from config, http://localhost:8001/api)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log requests and cache activity to stderr",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.mulligan/cli.yaml)",
			EnvVars: []string{"MULLIGAN_CONFIG"},
		},
		&cli.BoolFlag{
			Name:  "no-persist",
			Usage: "Keep the login token in memory only",
		},
	}
}

// before loads the configuration and assembles the Runtime. Failures are
// kept and reported by the first command that needs the Runtime, so
// "config set" can still repair a broken file.
func before(c *cli.Context) error {
	if _, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return nil
	}

	overrides := map[string]any{}
	if c.IsSet("api-url") {
		overrides["api.url"] = c.String("api-url")
	}
	if c.IsSet("output") {
		overrides["output.format"] = c.String("output")
	}
	if c.Bool("verbose") {
		overrides["log.level"] = "debug"
	}

	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		c.App.Metadata[metaConfigErr] = err
		return nil
	}

	opts := RuntimeOptions{
		NoPersist: c.Bool("no-persist"),
		Stdout:    c.App.Writer,
		Stderr:    c.App.ErrWriter,
	}
	if s, ok := c.App.Metadata[metaStore].(storeOverride); ok {
		opts.Store = s.store
	}
	rt, err := NewRuntime(cfg, opts)
	if err != nil {
		c.App.Metadata[metaConfigErr] = err
		return nil
	}
	c.App.Metadata[metaRuntime] = rt
	if h, ok := c.App.Metadata[metaShutdown].(*shutdown.Handler); ok {
		h.OnShutdown("runtime", rt.Close)
	}
	return nil
}

// loadRuntime returns the Runtime with its session settled.
func loadRuntime(c *cli.Context) (*Runtime, error) {
	rt, err := idleRuntime(c)
	if err != nil {
		return nil, err
	}
	if err := rt.Start(c.Context); err != nil {
		return nil, err
	}
	return rt, nil
}

// idleRuntime returns the Runtime without touching the session.
func idleRuntime(c *cli.Context) (*Runtime, error) {
	if rt, ok := c.App.Metadata[metaRuntime].(*Runtime); ok {
		return rt, nil
	}
	if err, ok := c.App.Metadata[metaConfigErr].(error); ok {
		return nil, fmt.Errorf("config: %w", err)
	}
	return nil, errors.New("runtime not initialized")
}

// requireAuth fails with ErrNotAuthenticated unless the session is signed in.
func requireAuth(c *cli.Context) (*Runtime, error) {
	rt, err := loadRuntime(c)
	if err != nil {
		return nil, err
	}
	if !rt.Session.View().Authenticated() {
		return nil, domain.ErrNotAuthenticated.WithDetails("run 'auth login' first")
	}
	return rt, nil
}

// outputFormat resolves the format from the flag, then the config.
func outputFormat(c *cli.Context) (output.Format, error) {
	if c.IsSet("output") {
		return output.ParseFormat(c.String("output"))
	}
	if rt, err := idleRuntime(c); err == nil {
		return output.ParseFormat(rt.Config.Output.Format)
	}
	return output.FormatTable, nil
}

// render writes data to stdout in the selected format.
func render(c *cli.Context, data any) error {
	format, err := outputFormat(c)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, c.Bool("wide")).Format(c.App.Writer, data)
}

// isTable reports whether results are rendered for people.
func isTable(c *cli.Context) bool {
	format, err := outputFormat(c)
	return err == nil && format == output.FormatTable
}

// notice prints a human-oriented line when the output is a table. JSON and
// YAML output stay machine readable.
func notice(c *cli.Context, format string, args ...any) {
	if isTable(c) {
		fmt.Fprintf(c.App.Writer, format+"\n", args...)
	}
}

// parseID parses the positional ID argument at index i.
func parseID(c *cli.Context, i int, what string) (int64, error) {
	arg := c.Args().Get(i)
	if arg == "" {
		return 0, domain.ErrValidation.WithDetails(what + " ID is required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation.WithDetails(fmt.Sprintf("invalid %s ID %q", what, arg))
	}
	return id, nil
}

// confirm asks a yes/no question on stdin unless --force was given.
func confirm(c *cli.Context, question string) bool {
	if c.Bool("force") {
		return true
	}
	fmt.Fprintf(c.App.ErrWriter, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(c.App.Reader).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// forceFlag skips confirmation prompts.
var forceFlag = &cli.BoolFlag{
	Name:    "force",
	Aliases: []string{"f"},
	Usage:   "Skip confirmation",
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	var exitErr cli.ExitCoder
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	case errors.Is(err, domain.ErrAuth),
		errors.Is(err, domain.ErrLoginFailed),
		errors.Is(err, domain.ErrNotAuthenticated):
		return ExitAuth
	case errors.Is(err, domain.ErrForbidden):
		return ExitForbidden
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrLoginTooSoon):
		return ExitRateLimit
	case errors.Is(err, domain.ErrNetwork):
		return ExitNetwork
	default:
		return ExitError
	}
}

// PrintError prints err the way every command reports failures.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}
