// Package cmd provides CLI commands for the knotfold binary.
package cmd

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/lode"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for select read-only commands (inspect, stats).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// StorageFlags returns the flags that locate a Lode dataset.
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "storage-dataset",
			Usage: "Lode dataset ID",
			Value: lode.DefaultDataset,
		},
		&cli.StringFlag{
			Name:  "storage-backend",
			Usage: "Storage backend: fs or s3",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "storage-path",
			Usage: "Storage path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "storage-region",
			Usage: "AWS region for S3 backend (uses default chain if not set)",
		},
		&cli.StringFlag{
			Name:  "storage-endpoint",
			Usage: "Custom S3 endpoint URL (for R2, MinIO, etc.)",
		},
		&cli.BoolFlag{
			Name:  "storage-s3-path-style",
			Usage: "Force path-style addressing for S3 (required by R2, MinIO)",
		},
	}
}

// predictionFlags are shared by predict and batch.
func predictionFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to knotfold.yaml with default settings",
		},
		&cli.StringFlag{Name: "source", Usage: "Partition key for where sequences come from"},
		&cli.StringFlag{Name: "category", Usage: "Partition key for the kind of molecule or study"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},

		// Folding model
		&cli.StringFlag{Name: "alphabet", Usage: "Sequence alphabet: rna or dna"},
		&cli.BoolFlag{Name: "dna", Usage: "Shorthand for --alphabet dna"},
		&cli.Float64Flag{Name: "temperature", Aliases: []string{"T"}, Usage: "Folding temperature in Kelvin"},
		&cli.Float64Flag{Name: "p1", Usage: "Pseudoknot penalty constant P1 (kcal/mol)"},
		&cli.Float64Flag{Name: "p2", Usage: "Pseudoknot penalty constant P2 (kcal/mol per nucleotide)"},

		// Candidate search
		&cli.Float64Flag{Name: "threshold", Usage: "Minimum pair stability fraction for helix candidates"},
		&cli.IntFlag{Name: "min-helix", Usage: "Minimum candidate helix length"},
		&cli.IntFlag{Name: "max-helix", Usage: "Maximum candidate helix length"},
		&cli.IntFlag{Name: "max-candidates", Usage: "Maximum candidate helices kept after reduction"},
		&cli.IntFlag{Name: "max-tracebacks", Usage: "Suboptimal structures per refinement trial"},
		&cli.Float64Flag{Name: "percent", Usage: "Energy window for refinement tracebacks (percent)"},
		&cli.IntFlag{Name: "window", Usage: "Traceback window size"},
		&cli.IntFlag{Name: "parallel", Usage: "Concurrent refinement trials"},

		// Probing
		&cli.StringFlag{Name: "shape", Usage: "SHAPE reactivity file"},
		&cli.Float64Flag{Name: "shape-slope", Usage: "SHAPE pseudo-energy slope (kcal/mol)"},
		&cli.Float64Flag{Name: "shape-intercept", Usage: "SHAPE pseudo-energy intercept (kcal/mol)"},
		&cli.StringFlag{Name: "dms", Usage: "DMS reactivity file"},
		&cli.Float64Flag{Name: "dms-slope", Usage: "DMS pseudo-energy slope (kcal/mol)"},
		&cli.Float64Flag{Name: "dms-intercept", Usage: "DMS pseudo-energy intercept (kcal/mol)"},
		&cli.StringFlag{Name: "dshape", Usage: "Differential SHAPE reactivity file"},
		&cli.Float64Flag{Name: "dshape-slope", Usage: "Differential SHAPE slope (kcal/mol)"},
		&cli.Float64Flag{Name: "dshape-intercept", Usage: "Differential SHAPE intercept (kcal/mol)"},
		&cli.StringFlag{Name: "offsets", Usage: "Per-nucleotide free energy offsets file"},

		// Output
		&cli.IntFlag{Name: "max-structures", Usage: "Maximum structures in the aggregate"},
		&cli.Float64Flag{Name: "output-percent", Usage: "Energy window above the lowest aggregate entry (percent)"},
		&cli.IntFlag{Name: "output-window", Usage: "Drop entries whose pairs all lie this close to a kept entry"},

		// Policy
		&cli.StringFlag{Name: "policy", Usage: "Persistence policy: strict, buffered or noop"},
		&cli.StringFlag{Name: "flush-mode", Usage: "Buffered flush mode: at_least_once or two_phase"},
		&cli.IntFlag{Name: "buffer-records", Usage: "Buffered policy capacity in records"},
		&cli.IntFlag{Name: "flush-count", Usage: "Buffered policy auto-flush threshold"},

		// Adapter
		&cli.StringFlag{Name: "adapter", Usage: "Completion notifier: redis or webhook"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Notifier URL (redis:// or https://)"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
		&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as 'Name: value' (repeatable)"},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-attempt notifier timeout"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Notifier retries after the first failure"},

		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress the run summary"},
		FormatFlag,
		NoColorFlag,
	}
	return append(flags, StorageFlags()...)
}

// cutHeader splits "Name: value".
func cutHeader(s string) (name, value string, ok bool) {
	name, value, ok = strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}
