package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// BatchConfig configures the batch operator.
type BatchConfig struct {
	// Parallel is the maximum concurrent predictions (default 1).
	Parallel int
	// MaxRuns caps the number of predictions. Zero means no cap.
	MaxRuns int
}

// BatchResult aggregates batch execution statistics.
type BatchResult struct {
	// RunsTotal is the number of predictions executed.
	RunsTotal int64
	// RunsSucceeded is the number of predictions that completed successfully.
	RunsSucceeded int64
	// RunsFailed is the number of predictions that failed.
	RunsFailed int64
	// RunsErrored is the number of predictions that returned no result.
	RunsErrored int64
	// Received is the number of sequences submitted.
	Received int64
	// Deduped is the number of sequences skipped as exact repeats.
	Deduped int64
	// Skipped is the number of sequences skipped by the MaxRuns cap.
	Skipped int64
	// Results holds the result of each prediction, keyed by run_id.
	Results map[string]*PredictionResult
	// Order lists run IDs in submission order.
	Order []string
}

// WorkItem is one sequence scheduled for prediction.
type WorkItem struct {
	// Sequence is the sequence to fold.
	Sequence *rna.Sequence
	// Position is the zero-based position of the record in its file.
	Position int
	// DedupKey is the precomputed dedup key.
	DedupKey string
	// RunID is the assigned run_id.
	RunID string
}

// PredictionRunner builds and executes one prediction for a work item.
type PredictionRunner func(ctx context.Context, item WorkItem) (*PredictionResult, error)

// Operator runs a batch of sequences through a bounded worker pool.
// Identical sequences (same alphabet and bases) run once.
type Operator struct {
	config BatchConfig
	runner PredictionRunner

	seen map[string]struct{}
	mu   sync.Mutex

	runsFinished atomic.Int64
	succeeded    atomic.Int64
	failed       atomic.Int64
	errored      atomic.Int64
	received     atomic.Int64
	deduped      atomic.Int64
	skipped      atomic.Int64

	resultsMu sync.Mutex
	results   map[string]*PredictionResult
	order     []string
}

// NewOperator creates a new batch operator.
func NewOperator(config BatchConfig, runner PredictionRunner) *Operator {
	if config.Parallel < 1 {
		config.Parallel = 1
	}
	return &Operator{
		config:  config,
		runner:  runner,
		seen:    make(map[string]struct{}),
		results: make(map[string]*PredictionResult),
	}
}

// plan assigns run IDs and filters repeats and over-cap sequences.
func (s *Operator) plan(seqs []*rna.Sequence) []WorkItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []WorkItem
	for pos, seq := range seqs {
		s.received.Add(1)

		key := computeDedupKey(seq)
		if _, exists := s.seen[key]; exists {
			s.deduped.Add(1)
			continue
		}
		if s.config.MaxRuns > 0 && len(items) >= s.config.MaxRuns {
			s.skipped.Add(1)
			continue
		}
		s.seen[key] = struct{}{}
		items = append(items, WorkItem{
			Sequence: seq,
			Position: pos,
			DedupKey: key,
			RunID:    uuid.New().String(),
		})
	}
	return items
}

// Run executes every planned item and blocks until all workers finish or
// ctx is canceled. Items not yet dispatched at cancellation are not run.
func (s *Operator) Run(ctx context.Context, seqs []*rna.Sequence) BatchResult {
	items := s.plan(seqs)

	s.resultsMu.Lock()
	for _, item := range items {
		s.order = append(s.order, item.RunID)
	}
	s.resultsMu.Unlock()

	sem := make(chan struct{}, s.config.Parallel)
	var wg sync.WaitGroup

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return s.Results()
		}

		wg.Add(1)
		go func(wi WorkItem) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := s.runner(ctx, wi)
			s.runsFinished.Add(1)

			s.resultsMu.Lock()
			defer s.resultsMu.Unlock()
			if err != nil || result == nil {
				s.errored.Add(1)
				s.failed.Add(1)
				return
			}
			s.results[wi.RunID] = result
			if result.Outcome.Status != types.OutcomeSuccess {
				s.failed.Add(1)
				return
			}
			s.succeeded.Add(1)
		}(item)
	}

	wg.Wait()
	return s.Results()
}

// Results returns the aggregate batch statistics.
func (s *Operator) Results() BatchResult {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()

	return BatchResult{
		RunsTotal:     s.runsFinished.Load(),
		RunsSucceeded: s.succeeded.Load(),
		RunsFailed:    s.failed.Load(),
		RunsErrored:   s.errored.Load(),
		Received:      s.received.Load(),
		Deduped:       s.deduped.Load(),
		Skipped:       s.skipped.Load(),
		Results:       maps.Clone(s.results),
		Order:         slices.Clone(s.order),
	}
}

// computeDedupKey produces a deterministic key from the alphabet and bases.
// Labels are not part of the identity: the same sequence under two names
// folds identically.
func computeDedupKey(seq *rna.Sequence) string {
	h := sha256.New()
	h.Write([]byte(seq.Alphabet()))
	h.Write([]byte{0x00})
	h.Write([]byte(seq.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// ExitCode returns the batch exit code: the worst per-run code, with
// crashes outranking failures and failures outranking invalid input.
func (r BatchResult) ExitCode() int {
	code := ExitCodeSuccess
	for _, res := range r.Results {
		c := ExitCode(res.Outcome.Status)
		if exitRank(c) > exitRank(code) {
			code = c
		}
	}
	if r.RunsErrored > 0 {
		code = ExitCodeCrash
	}
	return code
}

func exitRank(code int) int {
	switch code {
	case ExitCodeSuccess:
		return 0
	case ExitCodeInvalidInput:
		return 1
	case ExitCodeFailure:
		return 2
	default:
		return 3
	}
}

// PrintBatchSummary writes a human-readable batch summary.
func PrintBatchSummary(w io.Writer, result BatchResult) {
	fmt.Fprintf(w, "\n=== Batch Summary ===\n")
	fmt.Fprintf(w, "Predictions:      %d total, %d succeeded, %d failed\n",
		result.RunsTotal, result.RunsSucceeded, result.RunsFailed)
	fmt.Fprintf(w, "Sequences:        %d received, %d deduped, %d skipped\n",
		result.Received, result.Deduped, result.Skipped)

	if len(result.Results) > 0 {
		fmt.Fprintf(w, "\n--- Prediction Results ---\n")
		for _, runID := range result.Order {
			res, ok := result.Results[runID]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %s (%s): outcome=%s, structures=%d, pseudoknotted=%d, duration=%s\n",
				runID, res.Label, res.Outcome.Status, res.Structures(), res.Pseudoknotted(), res.Duration)
		}
	}
}
