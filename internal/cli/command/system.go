package command

import (
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"

	"github.com/mulligan-golf/mulligan-go/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return render(c, buildinfo.Get())
		},
	}
}

// MetricsCommand returns the metrics command.
func MetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Dump the client metrics of this process",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "prometheus",
				Usage: "Write the Prometheus text exposition format",
			},
		},
		Action: metricsDump,
	}
}

func metricsDump(c *cli.Context) error {
	rt, err := idleRuntime(c)
	if err != nil {
		return err
	}

	if c.Bool("prometheus") {
		families, err := rt.Metrics.Gatherer().Gather()
		if err != nil {
			return err
		}
		enc := expfmt.NewEncoder(c.App.Writer, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return err
			}
		}
		return nil
	}

	samples, err := rt.Metrics.Snapshot()
	if err != nil {
		return err
	}
	return render(c, samples)
}
