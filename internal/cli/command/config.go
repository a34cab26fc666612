package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/mulligan-golf/mulligan-go/internal/cli/config"
	"github.com/mulligan-golf/mulligan-go/internal/cli/output"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/logger"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show and edit the CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "set",
				Usage:     "Write one key to the config file",
				ArgsUsage: "KEY VALUE",
				Action:    configSet,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
		},
	}
}

func configFile(c *cli.Context) string {
	if p := c.String("config"); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}

func configShow(c *cli.Context) error {
	rt, err := idleRuntime(c)
	if err != nil {
		return err
	}

	values := rt.Config.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	shown := make(map[string]any, len(values))
	table := &output.Table{Headers: []string{"KEY", "VALUE"}}
	for _, k := range keys {
		v := values[k]
		if s := fmt.Sprint(v); logger.IsSensitiveKey(k) && s != "" {
			v = "***"
		}
		shown[k] = v
		table.AddRow(k, fmt.Sprint(v))
	}

	if isTable(c) {
		return render(c, table)
	}
	return render(c, shown)
}

func configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: config set KEY VALUE", ExitError)
	}
	path := configFile(c)
	if err := config.Set(path, c.Args().Get(0), c.Args().Get(1)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Set %s in %s.\n", c.Args().Get(0), path)
	return nil
}

func configPath(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, configFile(c))
	return nil
}
