package cmd

import (
	"runtime/debug"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/cli/render"
	"github.com/justapithecus/knotfold/types"
)

// VersionResponse is the version payload. ArchiveVersion is the format
// written by --archive; readers reject other versions.
type VersionResponse struct {
	Version        string `json:"version" yaml:"version"`
	ArchiveVersion string `json:"archive_version" yaml:"archive_version"`
	Commit         string `json:"commit" yaml:"commit"`
	GoVersion      string `json:"go_version,omitempty" yaml:"go_version,omitempty"`
}

func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: ReadOnlyFlags(),
		Action: func(c *cli.Context) error {
			if c.Bool("tui") {
				return cli.Exit("--tui is not supported for version command", 1)
			}
			r, err := render.NewRenderer(c)
			if err != nil {
				return err
			}
			return r.Render(newVersionResponse(commit))
		},
	}
}

func newVersionResponse(commit string) VersionResponse {
	v := VersionResponse{
		Version:        types.Version,
		ArchiveVersion: types.ArchiveVersion,
		Commit:         commit,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		v.GoVersion = info.GoVersion
	}
	return v
}
