package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/cli/reader"
	"github.com/justapithecus/knotfold/cli/render"
	"github.com/justapithecus/knotfold/lode"
)

// StatsCommand returns the stats command.
// Stats shows the metrics snapshot persisted at the end of a run.
func StatsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Metrics for this run (default: latest)",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "Only metrics with this source partition",
		},
	}
	flags = append(flags, ReadOnlyFlags()...)
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show run metrics from storage",
		Flags:  append(flags, StorageFlags()...),
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	rd, err := openReader(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	snap, err := rd.StatsMetrics(c.Context, reader.MetricsOptions{
		RunID:  c.String("run-id"),
		Source: c.String("source"),
	})
	if errors.Is(err, lode.ErrNoMetricsFound) {
		return cli.Exit("no metrics found", 1)
	}
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_metrics", snap)
	}
	return r.Render(snap)
}
