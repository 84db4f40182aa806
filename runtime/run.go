// Package runtime drives predictions end to end: engine, persistence
// policy, sidecar files, metrics and completion notifications.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/knotfold/adapter"
	"github.com/justapithecus/knotfold/archive"
	"github.com/justapithecus/knotfold/knot"
	"github.com/justapithecus/knotfold/lode"
	"github.com/justapithecus/knotfold/log"
	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/policy"
	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// flushTimeout bounds the best-effort flush on termination paths.
const flushTimeout = 30 * time.Second

// PredictionConfig configures a single prediction run.
type PredictionConfig struct {
	// RunMeta is the run identity and lineage metadata.
	RunMeta *types.RunMeta
	// Sequence is the sequence to fold.
	Sequence *rna.Sequence
	// Folder is the Fold Service handed to the engine.
	Folder knot.Folder
	// Engine configures candidate search and refinement.
	Engine knot.Config
	// Policy is the persistence policy. Required.
	Policy policy.Policy
	// FileWriter receives the CT sidecar. If nil, no sidecar is written.
	FileWriter lode.FileWriter
	// MetricsWriter persists the metrics snapshot after the run.
	// If nil, metrics are only kept in memory.
	MetricsWriter lode.MetricsWriter
	// Adapter publishes the completion event. If nil, nothing is published.
	Adapter adapter.Adapter
	// ArchivePath, when set, receives a msgpack archive of the aggregate.
	ArchivePath string
	// StoragePath is reported in the completion event.
	StoragePath string
	// Source and Category are the partition keys, for logging.
	Source   string
	Category string
	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Logger overrides the default run logger.
	Logger *log.Logger
}

// PredictionResult represents the result of a prediction run.
type PredictionResult struct {
	// RunMeta is the run identity and lineage.
	RunMeta *types.RunMeta
	// Label is the sequence label.
	Label string
	// Outcome is the run outcome.
	Outcome *types.RunOutcome
	// Duration is the total run duration.
	Duration time.Duration
	// PolicyStats is the policy statistics.
	PolicyStats policy.Stats
	// Prediction is the engine output. Nil when the engine did not finish.
	Prediction *knot.Prediction
	// Completed is when the run finished.
	Completed time.Time
}

// E0 returns the baseline energy, or zero without a prediction.
func (r *PredictionResult) E0() types.Energy {
	if r.Prediction == nil {
		return 0
	}
	return r.Prediction.E0()
}

// Structures returns the number of aggregate entries.
func (r *PredictionResult) Structures() int {
	if r.Prediction == nil {
		return 0
	}
	return r.Prediction.Aggregate.Len()
}

// Pseudoknotted returns the number of pseudoknotted aggregate entries.
func (r *PredictionResult) Pseudoknotted() int {
	if r.Prediction == nil {
		return 0
	}
	return r.Prediction.Aggregate.PseudoknotCount()
}

// PredictionOrchestrator orchestrates a single prediction.
type PredictionOrchestrator struct {
	config    *PredictionConfig
	logger    *log.Logger
	startTime time.Time
}

// NewPredictionOrchestrator creates a new prediction orchestrator.
// Returns error if run metadata is invalid or a required collaborator is
// missing.
func NewPredictionOrchestrator(config *PredictionConfig) (*PredictionOrchestrator, error) {
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	if config.Sequence == nil {
		return nil, types.NewError(types.CodeInvalidSequence, "runtime", "sequence is required")
	}
	if config.Folder == nil {
		return nil, types.NewError(types.CodeConfig, "runtime", "folder is required")
	}
	if config.Policy == nil {
		return nil, types.NewError(types.CodeConfig, "runtime", "policy is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.RunMeta)
	}

	return &PredictionOrchestrator{
		config: config,
		logger: logger,
	}, nil
}

// Execute runs the prediction end to end.
//
// Execution flow:
//  1. Build the engine and predict
//  2. Ingest structure then trial records through the policy
//  3. Ingest the run record last, as the commit marker
//  4. Flush the policy (best effort on failure paths)
//  5. Write sidecars, metrics and the completion event
//  6. Return result
//
// Execute only returns an error for failures outside the prediction
// itself; every prediction outcome is reported in the result.
func (o *PredictionOrchestrator) Execute(ctx context.Context) (*PredictionResult, error) {
	o.startTime = time.Now()
	cfg := o.config
	cfg.Collector.IncRunStarted()

	o.logger.Info("starting prediction", map[string]any{
		"label":    cfg.Sequence.Label,
		"length":   cfg.Sequence.Len(),
		"alphabet": string(cfg.Sequence.Alphabet()),
		"source":   cfg.Source,
		"category": cfg.Category,
	})

	engine, err := knot.NewEngine(cfg.Folder, cfg.Engine,
		knot.WithLogger(o.logger),
		knot.WithCollector(cfg.Collector),
	)
	if err != nil {
		return o.finish(ctx, nil, DetermineOutcome(err)), nil
	}

	pred, err := engine.Predict(ctx, cfg.Sequence)
	if err != nil {
		o.logger.Error("prediction failed", map[string]any{
			"error": err.Error(),
		})
		return o.finish(ctx, nil, DetermineOutcome(err)), nil
	}

	if err := o.ingest(ctx, pred); err != nil {
		o.logger.Error("persistence failed", map[string]any{
			"error": err.Error(),
		})
		return o.finish(ctx, pred, storageFailure("persist records", err)), nil
	}

	return o.finish(ctx, pred, DetermineOutcome(nil)), nil
}

// ingest pushes every structure and trial record through the policy.
func (o *PredictionOrchestrator) ingest(ctx context.Context, pred *knot.Prediction) error {
	runID := o.config.RunMeta.RunID
	for i, entry := range pred.Aggregate.Entries {
		rec := &types.StructureRecord{
			RunID:      runID,
			Index:      i,
			Entry:      entry,
			DotBracket: rna.DotBracket(entry.Structure),
		}
		if err := o.config.Policy.IngestStructure(ctx, rec); err != nil {
			return fmt.Errorf("structure %d: %w", i, err)
		}
	}
	for _, t := range pred.Trials {
		if err := o.config.Policy.IngestTrial(ctx, trialRecord(runID, t)); err != nil {
			return fmt.Errorf("trial %d: %w", t.Index, err)
		}
	}
	return nil
}

func trialRecord(runID string, t knot.Trial) *types.TrialRecord {
	rec := &types.TrialRecord{
		RunID:   runID,
		Index:   t.Index,
		Helix:   t.Candidate,
		Outcome: string(t.Outcome),
		Unused:  t.Unused,
	}
	if t.Outcome != knot.OutcomeFailed {
		rec.Energy = t.Structure.Energy
	}
	if t.Err != nil {
		rec.Error = t.Err.Error()
	}
	return rec
}

// finish writes the run record, flushes the policy and runs the
// post-prediction side effects. The outcome may be downgraded to a
// storage failure if the commit marker cannot be persisted.
func (o *PredictionOrchestrator) finish(ctx context.Context, pred *knot.Prediction, outcome *types.RunOutcome) *PredictionResult {
	cfg := o.config

	// The commit marker is written even for canceled runs.
	persistCtx := context.WithoutCancel(ctx)

	if outcome.Status != types.OutcomeStorageFailure {
		if err := cfg.Policy.IngestRun(persistCtx, o.runRecord(pred, outcome)); err != nil {
			o.logger.Error("run record write failed", map[string]any{
				"error": err.Error(),
			})
			outcome = storageFailure("persist run record", err)
		}
	}

	flushCtx, flushCancel := context.WithTimeout(persistCtx, flushTimeout)
	flushErr := cfg.Policy.Flush(flushCtx)
	flushCancel()
	if flushErr != nil {
		o.logger.Warn("policy flush failed", map[string]any{
			"error": flushErr.Error(),
		})
		if outcome.Status == types.OutcomeSuccess {
			outcome = storageFailure("policy flush", flushErr)
		}
	}

	if pred != nil && outcome.Status == types.OutcomeSuccess {
		if err := o.writeSidecars(ctx, pred); err != nil {
			o.logger.Error("sidecar write failed", map[string]any{
				"error": err.Error(),
			})
			outcome = storageFailure("write sidecars", err)
		}
	}

	result := o.buildResult(pred, outcome)
	o.writeMetrics(ctx, result)
	o.publish(ctx, result)

	o.logger.Info("prediction finished", map[string]any{
		"outcome":     outcome.Status,
		"structures":  result.Structures(),
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result
}

// runRecord summarises the run. Counts are zero when the engine did not
// finish.
func (o *PredictionOrchestrator) runRecord(pred *knot.Prediction, outcome *types.RunOutcome) *types.RunRecord {
	meta := o.config.RunMeta
	seq := o.config.Sequence
	rec := &types.RunRecord{
		RunID:       meta.RunID,
		JobID:       meta.JobID,
		ParentRunID: meta.ParentRunID,
		Attempt:     meta.Attempt,
		Label:       seq.Label,
		Length:      seq.Len(),
		Alphabet:    string(seq.Alphabet()),
		Temperature: seq.Temperature(),
		Outcome:     outcome.Status,
		Message:     outcome.Message,
		Version:     types.Version,
		Timestamp:   time.Now().UTC(),
		DurationMs:  time.Since(o.startTime).Milliseconds(),
	}
	if pred != nil {
		rec.E0 = pred.E0()
		rec.Candidates = pred.Stats.Candidates
		rec.Reduced = pred.Stats.Reduced
		rec.Accepted = pred.Stats.Accepted
		rec.Rejected = pred.Stats.Rejected
		rec.Failed = pred.Stats.Failed
		rec.Duplicates = pred.Stats.Duplicates
		rec.Structures = pred.Aggregate.Len()
		rec.Pseudoknotted = pred.Stats.Pseudoknotted
	}
	return rec
}

// writeSidecars writes the CT file and the local archive when configured.
func (o *PredictionOrchestrator) writeSidecars(ctx context.Context, pred *knot.Prediction) error {
	cfg := o.config
	seq := cfg.Sequence

	if cfg.FileWriter != nil {
		structures := make([]types.Structure, 0, pred.Aggregate.Len())
		for _, e := range pred.Aggregate.Entries {
			structures = append(structures, e.Structure)
		}
		var buf bytes.Buffer
		if err := rna.WriteCT(&buf, seq, structures); err != nil {
			return fmt.Errorf("render CT: %w", err)
		}
		name := lode.CTFilename(seq.Label)
		if err := cfg.FileWriter.PutFile(ctx, name, lode.CTContentType, buf.Bytes()); err != nil {
			return err
		}
		o.logger.Debug("CT sidecar written", map[string]any{
			"filename": name,
			"bytes":    buf.Len(),
		})
	}

	if cfg.ArchivePath != "" {
		h := archive.Header{
			RunID:       cfg.RunMeta.RunID,
			Label:       seq.Label,
			Sequence:    seq.String(),
			Alphabet:    string(seq.Alphabet()),
			Temperature: seq.Temperature(),
			E0:          pred.E0(),
		}
		if err := archive.WriteFile(cfg.ArchivePath, h, &pred.Aggregate); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
	}
	return nil
}

// writeMetrics persists the metrics snapshot. Failures are logged only.
func (o *PredictionOrchestrator) writeMetrics(ctx context.Context, result *PredictionResult) {
	if o.config.MetricsWriter == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	snap := o.config.Collector.Snapshot()
	if err := o.config.MetricsWriter.WriteMetrics(writeCtx, snap, result.Completed); err != nil {
		o.logger.Warn("metrics write failed", map[string]any{
			"error": err.Error(),
		})
	}
}

// publish sends the completion event. Failures are logged only.
func (o *PredictionOrchestrator) publish(ctx context.Context, result *PredictionResult) {
	if o.config.Adapter == nil {
		return
	}
	event := &adapter.PredictionCompletedEvent{
		ContractVersion: adapter.ContractVersion,
		EventType:       adapter.EventTypePredictionCompleted,
		RunID:           result.RunMeta.RunID,
		Label:           result.Label,
		Outcome:         string(result.Outcome.Status),
		E0:              result.E0().Kcal(),
		Structures:      result.Structures(),
		Pseudoknotted:   result.Pseudoknotted(),
		StoragePath:     o.config.StoragePath,
		Timestamp:       result.Completed.UTC().Format(time.RFC3339Nano),
		Attempt:         result.RunMeta.Attempt,
		DurationMs:      result.Duration.Milliseconds(),
	}
	if result.RunMeta.JobID != nil {
		event.JobID = *result.RunMeta.JobID
	}

	if err := o.config.Adapter.Publish(context.WithoutCancel(ctx), event); err != nil {
		o.config.Collector.IncNotifyFailure()
		o.logger.Warn("completion event publish failed", map[string]any{
			"error": err.Error(),
		})
		return
	}
	o.config.Collector.IncNotifySuccess()
}

// buildResult constructs the final result and records the outcome metrics.
func (o *PredictionOrchestrator) buildResult(pred *knot.Prediction, outcome *types.RunOutcome) *PredictionResult {
	result := &PredictionResult{
		RunMeta:     o.config.RunMeta,
		Label:       o.config.Sequence.Label,
		Outcome:     outcome,
		Duration:    time.Since(o.startTime),
		PolicyStats: o.config.Policy.Stats(),
		Prediction:  pred,
		Completed:   time.Now(),
	}

	switch outcome.Status {
	case types.OutcomeSuccess:
		o.config.Collector.IncRunCompleted()
	case types.OutcomeCanceled:
		o.config.Collector.IncRunCanceled()
	default:
		o.config.Collector.IncRunFailed()
	}

	ps := result.PolicyStats
	o.config.Collector.AbsorbPolicyStats(
		ps.TotalRecords,
		ps.RecordsPersisted,
		ps.RecordsDropped,
		ps.DroppedByKindStrings(),
		ps.FlushTriggerStrings(),
	)

	return result
}
