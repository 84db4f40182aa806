package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/cli/render"
	"github.com/justapithecus/knotfold/iox"
	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/runtime"
	"github.com/justapithecus/knotfold/types"
)

// PredictCommand returns the predict command.
func PredictCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run identifier (default: random UUID)",
		},
		&cli.IntFlag{
			Name:  "attempt",
			Usage: "Attempt number (starts at 1)",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "job-id",
			Usage: "Job identifier grouping related runs",
		},
		&cli.StringFlag{
			Name:  "parent-run-id",
			Usage: "Run this attempt repeats (required if attempt > 1)",
		},
		&cli.StringFlag{
			Name:  "ct",
			Usage: "Write the aggregate as a local CT file",
		},
		&cli.StringFlag{
			Name:  "archive",
			Usage: "Write the aggregate as a msgpack archive",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON run report to this path ('-' for stderr)",
		},
	}

	return &cli.Command{
		Name:      "predict",
		Usage:     "Predict pseudoknotted structures for one sequence",
		ArgsUsage: "<sequence-file>",
		Description: `Folds the first sequence in a FASTA or plain sequence file, searches
for pseudoknot-forming helices and refines each candidate by constrained
refolding. The aggregate is persisted through the selected policy.

Exit codes:
  0  aggregate persisted
  1  no structure, storage failure or canceled
  2  internal error
  3  invalid sequence, probing data or configuration`,
		Flags:  append(flags, predictionFlags()...),
		Action: predictAction,
	}
}

func predictAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("predict requires exactly one sequence file", runtime.ExitCodeInvalidInput)
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

	meta, err := runMetaFromFlags(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	seq, err := rna.Load(c.Args().First(), s.alphabet)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	if err := seq.SetTemperature(s.temperature); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}

	startTime := time.Now()
	run, err := prepareRun(s, seq, meta, c.App.ErrWriter, startTime)
	if err != nil {
		return cli.Exit(err.Error(), setupExitCode(err))
	}
	defer func() { _ = run.Close() }()

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	orchestrator, err := runtime.NewPredictionOrchestrator(run.config)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
	}
	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("prediction failed: %v", err), runtime.ExitCodeCrash)
	}

	exitCode := runtime.ExitCode(result.Outcome.Status)
	if s.ct != "" && result.Prediction != nil {
		if err := writeLocalCT(s.ct, seq, result); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", err)
		}
	}

	report := runtime.BuildRunReport(result, run.config.Collector.Snapshot(), s.policy.name, exitCode)
	if s.report != "" {
		if err := runtime.WriteRunReport(report, s.report); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Warning: failed to write report: %v\n", err)
		}
	}

	if !c.Bool("quiet") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeInvalidInput)
		}
		if err := r.Render(newPredictSummary(result, s.policy.name)); err != nil {
			return err
		}
	}

	if exitCode != runtime.ExitCodeSuccess {
		return cli.Exit("", exitCode)
	}
	return nil
}

// runMetaFromFlags builds and validates run lineage.
func runMetaFromFlags(c *cli.Context) (*types.RunMeta, error) {
	meta := &types.RunMeta{
		RunID:   c.String("run-id"),
		Attempt: c.Int("attempt"),
	}
	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if v := c.String("job-id"); v != "" {
		meta.JobID = &v
	}
	if v := c.String("parent-run-id"); v != "" {
		meta.ParentRunID = &v
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	return meta, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// setupExitCode maps a wiring error to an exit code.
func setupExitCode(err error) int {
	if runtime.DetermineOutcome(err).Status == types.OutcomeInvalidInput {
		return runtime.ExitCodeInvalidInput
	}
	return runtime.ExitCodeFailure
}

// writeLocalCT writes every aggregate entry to path in CT format.
func writeLocalCT(path string, seq *rna.Sequence, result *runtime.PredictionResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create CT file: %w", err)
	}
	defer iox.CloseInto(&err, f)

	structures := make([]types.Structure, 0, result.Structures())
	for _, e := range result.Prediction.Aggregate.Entries {
		structures = append(structures, e.Structure)
	}
	if err := rna.WriteCT(f, seq, structures); err != nil {
		return fmt.Errorf("write CT file: %w", err)
	}
	return nil
}

// predictSummary is the rendered result of one prediction.
type predictSummary struct {
	RunID         string  `json:"run_id" yaml:"run_id"`
	Label         string  `json:"label" yaml:"label"`
	Outcome       string  `json:"outcome" yaml:"outcome"`
	Message       string  `json:"message" yaml:"message"`
	E0Kcal        float64 `json:"e0_kcal" yaml:"e0_kcal"`
	Structures    int     `json:"structures" yaml:"structures"`
	Pseudoknotted int     `json:"pseudoknotted" yaml:"pseudoknotted"`
	Policy        string  `json:"policy" yaml:"policy"`
	Persisted     int64   `json:"records_persisted" yaml:"records_persisted"`
	Dropped       int64   `json:"records_dropped" yaml:"records_dropped"`
	DurationMs    int64   `json:"duration_ms" yaml:"duration_ms"`
}

func newPredictSummary(result *runtime.PredictionResult, policyName string) predictSummary {
	return predictSummary{
		RunID:         result.RunMeta.RunID,
		Label:         result.Label,
		Outcome:       string(result.Outcome.Status),
		Message:       result.Outcome.Message,
		E0Kcal:        result.E0().Kcal(),
		Structures:    result.Structures(),
		Pseudoknotted: result.Pseudoknotted(),
		Policy:        policyName,
		Persisted:     result.PolicyStats.RecordsPersisted,
		Dropped:       result.PolicyStats.RecordsDropped,
		DurationMs:    result.Duration.Milliseconds(),
	}
}
