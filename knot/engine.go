package knot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/knotfold/log"
	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// Stats summarises one prediction.
type Stats struct {
	Candidates    int `json:"candidates"`
	Reduced       int `json:"reduced"`
	Accepted      int `json:"accepted"`
	Rejected      int `json:"rejected"`
	Failed        int `json:"failed"`
	Duplicates    int `json:"duplicates"`
	Filtered      int `json:"filtered"`
	Pseudoknotted int `json:"pseudoknotted"`
	NeedsReview   int `json:"needs_review"`
	// UnusedTracebacks sums Trial.Unused. Non-zero means MaxTracebacks
	// asked for suboptimals that refinement never looked at.
	UnusedTracebacks int           `json:"unused_tracebacks"`
	Duration         time.Duration `json:"duration"`
}

// Prediction is the outcome of Engine.Predict.
type Prediction struct {
	Aggregate types.Aggregate
	Baseline  types.Structure
	// Candidates is the raw extractor output, in discovery order.
	Candidates types.HelixList
	// Reduced is the candidate list actually refined.
	Reduced types.HelixList
	Trials  []Trial
	Stats   Stats
}

// E0 returns the baseline MFE energy.
func (p *Prediction) E0() types.Energy {
	return p.Baseline.Energy
}

// Engine runs the fold, extract, reduce, refine and aggregate pipeline.
type Engine struct {
	folder    Folder
	config    Config
	logger    *log.Logger
	collector *metrics.Collector
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a structured logger. Nil disables logging.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithCollector attaches a metrics collector. Nil disables collection.
func WithCollector(c *metrics.Collector) EngineOption {
	return func(e *Engine) { e.collector = c }
}

// NewEngine validates cfg and returns an engine bound to folder.
func NewEngine(folder Folder, cfg Config, opts ...EngineOption) (*Engine, error) {
	if folder == nil {
		return nil, types.NewError(types.CodeConfig, "engine", "folder is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{folder: folder, config: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Predict folds seq, searches for a single pseudoknotted helix that lowers
// the MFE and returns the aggregate of accepted structures.
func (e *Engine) Predict(ctx context.Context, seq *rna.Sequence) (*Prediction, error) {
	start := time.Now()
	cfg := e.config

	base, err := e.folder.Fold(ctx, FoldRequest{
		Sequence:      seq,
		MaxTracebacks: cfg.MaxTracebacks,
		Percent:       cfg.Percent,
		Window:        cfg.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("baseline fold: %w", err)
	}
	if base == nil || len(base.Structures) == 0 {
		return nil, types.NewError(types.CodeNoStructure, seq.Label, "baseline fold returned no structure")
	}
	baseline := base.Structures[0]
	e0 := baseline.Energy
	e.info("baseline folded", map[string]any{
		"label":  seq.Label,
		"length": seq.Len(),
		"e0":     e0.String(),
	})

	raw := Extract(base.Matrix, e0, cfg)
	reduced := Reduce(raw, baseline, cfg.MaxCandidates)
	e.collector.AddCandidatesExtracted(len(raw))
	e.collector.AddCandidatesReduced(len(reduced))
	e.debug("candidates selected", map[string]any{
		"extracted": len(raw),
		"reduced":   len(reduced),
	})

	trials, err := Refine(ctx, e.folder, seq, e0, reduced, cfg)
	if err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}

	pred := &Prediction{
		Baseline:   baseline,
		Candidates: raw,
		Reduced:    reduced,
		Trials:     trials,
	}
	pred.Stats.Candidates = len(raw)
	pred.Stats.Reduced = len(reduced)

	agg := NewAggregator(baseline)
	for _, t := range trials {
		e.commit(agg, t, &pred.Stats)
	}

	full := agg.Aggregate()
	pred.Aggregate = cfg.Output.Apply(full)
	pred.Stats.Filtered = full.Len() - pred.Aggregate.Len()
	for _, entry := range pred.Aggregate.Entries {
		if entry.Pseudoknotted {
			pred.Stats.Pseudoknotted++
		}
		if entry.NeedsReview {
			pred.Stats.NeedsReview++
		}
	}
	pred.Stats.Duration = time.Since(start)

	e.info("prediction complete", map[string]any{
		"label":         seq.Label,
		"structures":    pred.Aggregate.Len(),
		"accepted":      pred.Stats.Accepted,
		"rejected":      pred.Stats.Rejected,
		"failed":        pred.Stats.Failed,
		"pseudoknotted": pred.Stats.Pseudoknotted,
		"duration_ms":   pred.Stats.Duration.Milliseconds(),
	})
	if pred.Stats.UnusedTracebacks > 0 {
		e.warn("constrained folds returned unused tracebacks", map[string]any{
			"unused":         pred.Stats.UnusedTracebacks,
			"max_tracebacks": cfg.MaxTracebacks,
		})
	}
	return pred, nil
}

// commit records one trial. Trials arrive in candidate order.
func (e *Engine) commit(agg *Aggregator, t Trial, stats *Stats) {
	stats.UnusedTracebacks += t.Unused
	switch t.Outcome {
	case OutcomeFailed:
		stats.Failed++
		e.collector.IncTrialFailed()
		fields := map[string]any{"index": t.Index, "helix": t.Candidate.String()}
		if t.Err != nil {
			fields["error"] = t.Err.Error()
		}
		if errors.Is(t.Err, errEmptyFold) {
			e.debug("trial produced no structure", fields)
		} else {
			e.warn("trial failed", fields)
		}
	case OutcomeRejected:
		stats.Rejected++
		e.collector.IncTrialRejected()
	case OutcomeAccepted:
		stats.Accepted++
		e.collector.IncTrialAccepted()
		if !agg.Add(t.Structure, t.Candidate) {
			stats.Duplicates++
			e.collector.IncDuplicateDropped()
			return
		}
		e.debug("trial accepted", map[string]any{
			"index":  t.Index,
			"helix":  t.Candidate.String(),
			"energy": t.Structure.Energy.String(),
		})
	}
}

func (e *Engine) debug(msg string, fields map[string]any) {
	if e.logger != nil {
		e.logger.Debug(msg, fields)
	}
}

func (e *Engine) info(msg string, fields map[string]any) {
	if e.logger != nil {
		e.logger.Info(msg, fields)
	}
}

func (e *Engine) warn(msg string, fields map[string]any) {
	if e.logger != nil {
		e.logger.Warn(msg, fields)
	}
}
