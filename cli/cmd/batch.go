package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/justapithecus/knotfold/lode"
	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/runtime"
	"github.com/justapithecus/knotfold/types"
)

// BatchCommand returns the batch command.
func BatchCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "job-id",
			Usage: "Job identifier shared by every run (default: random UUID)",
		},
		&cli.IntFlag{
			Name:  "parallel-runs",
			Usage: "Concurrent predictions",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "max-runs",
			Usage: "Maximum predictions to run (0 = no cap)",
		},
		&cli.StringFlag{
			Name:  "out-dir",
			Usage: "Directory for per-sequence CT files and archives",
		},
	}

	return &cli.Command{
		Name:      "batch",
		Usage:     "Predict structures for every sequence in a FASTA file",
		ArgsUsage: "<fasta-file>",
		Description: `Runs one prediction per FASTA record. Identical sequences run once.
Every run shares the job ID and gets its own run ID and storage partition.
The exit code is the worst exit code of any run.`,
		Flags:  append(flags, predictionFlags()...),
		Action: batchAction,
	}
}

func batchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("batch requires exactly one FASTA file", runtime.ExitCodeInvalidInput)
	}

	s, err := resolveSettings(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	if err := validatePolicyConfig(s.policy, c.App.ErrWriter); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	if err := validateStorage(s.storage); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	seqs, err := rna.LoadAll(c.Args().First(), s.alphabet)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	outDir := c.String("out-dir")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return cli.Exit(fmt.Sprintf("failed to create out-dir: %v", err), runtime.ExitCodeFailure)
		}
	}

	jobID := c.String("job-id")
	if jobID == "" {
		jobID = uuid.NewString()
	}

	// Runs log concurrently to one writer.
	logOut := zapcore.Lock(zapcore.AddSync(c.App.ErrWriter))
	runner := batchRunner(s, jobID, outDir, logOut)
	op := runtime.NewOperator(runtime.BatchConfig{
		Parallel: c.Int("parallel-runs"),
		MaxRuns:  c.Int("max-runs"),
	}, runner)

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	result := op.Run(ctx, seqs)
	if !c.Bool("quiet") {
		runtime.PrintBatchSummary(c.App.Writer, result)
	}

	if code := result.ExitCode(); code != runtime.ExitCodeSuccess {
		return cli.Exit("", code)
	}
	return nil
}

// batchRunner returns the per-sequence runner. Each run gets its own
// partition, policy and collector; setup errors become invalid-input
// results so one bad record does not read as a crash.
func batchRunner(s *settings, jobID, outDir string, logOut io.Writer) runtime.PredictionRunner {
	return func(ctx context.Context, item runtime.WorkItem) (*runtime.PredictionResult, error) {
		seq := item.Sequence
		if err := seq.SetTemperature(s.temperature); err != nil {
			return setupFailure(item, jobID, err), nil
		}
		job := jobID
		meta := &types.RunMeta{RunID: item.RunID, JobID: &job, Attempt: 1}

		runSettings := *s
		runSettings.ct, runSettings.archive, runSettings.report = "", "", ""
		if outDir != "" {
			runSettings.archive = filepath.Join(outDir, archiveFilename(seq.Label, item.Position))
		}

		run, err := prepareRun(&runSettings, seq, meta, logOut, time.Now())
		if err != nil {
			return setupFailure(item, jobID, err), nil
		}
		defer func() { _ = run.Close() }()

		orchestrator, err := runtime.NewPredictionOrchestrator(run.config)
		if err != nil {
			return nil, err
		}
		result, err := orchestrator.Execute(ctx)
		if err != nil {
			return nil, err
		}

		if outDir != "" && result.Prediction != nil {
			path := filepath.Join(outDir, ctFilename(seq.Label, item.Position))
			if err := writeLocalCT(path, seq, result); err != nil {
				fmt.Fprintf(logOut, "Warning: %v\n", err)
			}
		}
		return result, nil
	}
}

// setupFailure reports a run that could not be wired.
func setupFailure(item runtime.WorkItem, jobID string, err error) *runtime.PredictionResult {
	outcome := runtime.DetermineOutcome(err)
	if outcome.Status != types.OutcomeInvalidInput {
		outcome = &types.RunOutcome{Status: types.OutcomeStorageFailure, Message: err.Error()}
	}
	return &runtime.PredictionResult{
		RunMeta:   &types.RunMeta{RunID: item.RunID, JobID: &jobID, Attempt: 1},
		Label:     item.Sequence.Label,
		Outcome:   outcome,
		Completed: time.Now(),
	}
}

// ctFilename names a batch CT file. The record position keeps unlabeled
// or repeated labels apart.
func ctFilename(label string, position int) string {
	return fmt.Sprintf("%03d_%s", position, lode.CTFilename(label))
}

func archiveFilename(label string, position int) string {
	return strings.TrimSuffix(ctFilename(label, position), ".ct") + ".kfa"
}
