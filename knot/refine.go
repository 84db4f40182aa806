package knot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

// Outcome classifies a refinement trial.
type Outcome string

const (
	// OutcomeAccepted means the reinserted structure beat the baseline.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected means it did not.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means the fold or evaluation errored. Counts as no improvement.
	OutcomeFailed Outcome = "failed"
)

// Trial is the result of testing one candidate helix.
type Trial struct {
	Index     int
	Candidate types.Helix
	Outcome   Outcome
	// Structure is the refolded structure with the candidate reinserted.
	// Empty for failed trials.
	Structure types.Structure
	// Unused counts tracebacks the fold returned beyond the first.
	Unused int
	Err    error
}

// errEmptyFold is recorded when a constrained fold returns no structure.
var errEmptyFold = errors.New("constrained fold returned no structure")

// Refine tests each candidate in order: the helix is forced single-stranded,
// the sequence refolded, the helix paired back in and the whole structure
// re-evaluated. A trial is accepted when its energy is strictly below e0.
//
// Only the lowest traceback of each constrained fold is used. Further
// suboptimals are counted in Trial.Unused and otherwise ignored.
//
// With cfg.Parallel > 1 trials run concurrently on a bounded pool. Results
// are buffered by index, so the returned slice is identical to a sequential
// run. Cancellation stops scheduling new trials and returns ctx.Err().
func Refine(ctx context.Context, folder Folder, seq *rna.Sequence, e0 types.Energy, candidates types.HelixList, cfg Config) ([]Trial, error) {
	trials := make([]Trial, len(candidates))
	if cfg.Parallel <= 1 {
		for idx, h := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			trials[idx] = runTrial(ctx, folder, seq, e0, idx, h, cfg)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return trials, nil
	}

	sem := make(chan struct{}, cfg.Parallel)
	var wg sync.WaitGroup
schedule:
	for idx, h := range candidates {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break schedule
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			trials[idx] = runTrial(ctx, folder, seq, e0, idx, h, cfg)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return trials, nil
}

func runTrial(ctx context.Context, folder Folder, seq *rna.Sequence, e0 types.Energy, idx int, h types.Helix, cfg Config) Trial {
	trial := Trial{Index: idx, Candidate: h, Outcome: OutcomeFailed}

	res, err := folder.Fold(ctx, FoldRequest{
		Sequence:      seq,
		Constraint:    types.UnpairedHelix(h),
		MaxTracebacks: cfg.MaxTracebacks,
		Percent:       cfg.Percent,
		Window:        cfg.Window,
	})
	if err != nil {
		trial.Err = fmt.Errorf("fold with %s unpaired: %w", h, err)
		return trial
	}
	if res == nil || len(res.Structures) == 0 {
		trial.Err = errEmptyFold
		return trial
	}

	trial.Unused = len(res.Structures) - 1

	s, err := reinsert(res.Structures[0], h)
	if err != nil {
		trial.Err = err
		return trial
	}
	energy, err := folder.Evaluate(seq, s)
	if err != nil {
		trial.Err = fmt.Errorf("evaluate with %s: %w", h, err)
		return trial
	}
	s.Energy = energy
	s.Rank = 0
	trial.Structure = s

	if energy < e0 {
		trial.Outcome = OutcomeAccepted
	} else {
		trial.Outcome = OutcomeRejected
	}
	return trial
}

// reinsert pairs h into a copy of s, clearing any partner its positions had.
func reinsert(s types.Structure, h types.Helix) (types.Structure, error) {
	out := s.Clone()
	if h.JEnd > out.Len() {
		return types.Structure{}, fmt.Errorf("helix %s exceeds structure length %d", h, out.Len())
	}
	for _, p := range h.Positions() {
		out.Unpair(p)
	}
	for _, pr := range h.Pairs() {
		if err := out.Pair(pr[0], pr[1]); err != nil {
			return types.Structure{}, err
		}
	}
	return out, nil
}
