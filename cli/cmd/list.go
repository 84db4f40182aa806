package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/cli/reader"
	"github.com/justapithecus/knotfold/cli/render"
)

// ListCommand returns the list command.
// List shows committed runs, newest first.
func ListCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Only runs with this source partition",
		},
		&cli.StringFlag{
			Name:  "outcome",
			Usage: "Only runs with this outcome (success, no_structure, ...)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum runs to show (0 = all)",
			Value: 20,
		},
	}
	flags = append(flags, ReadOnlyFlags()...)
	return &cli.Command{
		Name:   "list",
		Usage:  "List recorded predictions",
		Flags:  append(flags, StorageFlags()...),
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for list
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list command", 1)
	}

	rd, err := openReader(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	runs, err := rd.ListRuns(c.Context, reader.ListRunsOptions{
		Source:  c.String("source"),
		Outcome: c.String("outcome"),
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(runs)
}
