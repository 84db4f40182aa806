package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/cli/reader"
	"github.com/justapithecus/knotfold/cli/render"
	"github.com/justapithecus/knotfold/lode"
)

// InspectCommand returns the inspect command.
// Inspect shows one prediction, from Lode storage or from an archive file.
func InspectCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run to load from storage",
		},
		&cli.StringFlag{
			Name:  "archive",
			Usage: "Archive file written by predict --archive",
		},
	}
	flags = append(flags, ReadOnlyFlags()...)
	return &cli.Command{
		Name:   "inspect",
		Usage:  "Inspect one prediction (--run-id with storage flags, or --archive)",
		Flags:  append(flags, StorageFlags()...),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	runID, archivePath := c.String("run-id"), c.String("archive")
	if (runID == "") == (archivePath == "") {
		return cli.Exit("exactly one of --run-id or --archive is required", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	var (
		detail   *reader.RunDetail
		viewType string
	)
	if archivePath != "" {
		viewType = "inspect_archive"
		detail, err = reader.InspectArchive(archivePath)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	} else {
		viewType = "inspect_run"
		rd, err := openReader(c)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		detail, err = rd.InspectRun(c.Context, runID)
		if errors.Is(err, lode.ErrRunNotFound) {
			return cli.Exit("run not found: "+runID, 1)
		}
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	if c.Bool("tui") {
		return r.RenderTUI(viewType, detail)
	}
	return r.Render(detail)
}

// openReader opens the dataset named by the storage flags.
func openReader(c *cli.Context) (reader.Reader, error) {
	return reader.Open(reader.StorageOptions{
		Dataset:   c.String("storage-dataset"),
		Backend:   c.String("storage-backend"),
		Path:      c.String("storage-path"),
		Region:    c.String("storage-region"),
		Endpoint:  c.String("storage-endpoint"),
		PathStyle: c.Bool("storage-s3-path-style"),
	})
}
