package knot

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/types"
)

func mustSequence(t *testing.T, text string) *rna.Sequence {
	t.Helper()
	seq, err := rna.NewSequence("test", text, rna.AlphabetRNA)
	if err != nil {
		t.Fatalf("NewSequence failed: %v", err)
	}
	return seq
}

func TestRefine_AcceptsOnlyStrictlyLower(t *testing.T) {
	seq := mustSequence(t, polyA(40))
	folder := &stubFolder{
		baseline: types.NewStructure(40),
		evaluate: func(s types.Structure) (types.Energy, error) {
			if s.Pairs[5] == 30 {
				return -100, nil
			}
			return -101, nil
		},
	}
	candidates := types.HelixList{
		types.NewHelix(5, 30, 3, -90),
		types.NewHelix(10, 25, 2, -80),
	}

	trials, err := Refine(t.Context(), folder, seq, -100, candidates, DefaultConfig())
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if trials[0].Outcome != OutcomeRejected {
		t.Errorf("trial 0 = %s, want rejected (equal to E0)", trials[0].Outcome)
	}
	if trials[1].Outcome != OutcomeAccepted {
		t.Errorf("trial 1 = %s, want accepted", trials[1].Outcome)
	}
	if trials[1].Structure.Energy != -101 {
		t.Errorf("trial 1 energy = %d, want -101", trials[1].Structure.Energy)
	}
}

func TestRefine_UsesLowestTracebackOnly(t *testing.T) {
	seq := mustSequence(t, polyA(40))
	lowest := types.NewStructure(40)
	lowest.Energy = -50
	suboptimal := types.NewStructure(40)
	suboptimal.Energy = -200
	folder := &stubFolder{
		fold: func(FoldRequest) (*FoldResult, error) {
			return &FoldResult{Structures: []types.Structure{lowest, suboptimal, suboptimal}}, nil
		},
	}
	cfg := DefaultConfig()
	cfg.MaxTracebacks = 3

	trials, err := Refine(t.Context(), folder, seq, -100, types.HelixList{types.NewHelix(5, 30, 3, -90)}, cfg)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if trials[0].Outcome != OutcomeRejected {
		t.Errorf("outcome = %s, want rejected from the first traceback", trials[0].Outcome)
	}
	if trials[0].Unused != 2 {
		t.Errorf("unused = %d, want 2", trials[0].Unused)
	}
}

func TestRefine_ReinsertsHelix(t *testing.T) {
	seq := mustSequence(t, polyA(40))
	// The refold pairs two helix positions elsewhere.
	refolded := mustPairs(t, 40, [2]int{5, 12}, [2]int{30, 35}, [2]int{1, 40})
	folder := &stubFolder{
		fold: func(FoldRequest) (*FoldResult, error) {
			return &FoldResult{Structures: []types.Structure{refolded}}, nil
		},
		evaluate: func(types.Structure) (types.Energy, error) { return -120, nil },
	}
	h := types.NewHelix(5, 30, 3, -90)

	trials, err := Refine(t.Context(), folder, seq, -100, types.HelixList{h}, DefaultConfig())
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	s := trials[0].Structure
	for _, p := range h.Pairs() {
		if s.Pairs[p[0]] != p[1] {
			t.Errorf("pair %d-%d missing after reinsertion", p[0], p[1])
		}
	}
	if s.Pairs[12] != 0 || s.Pairs[35] != 0 {
		t.Errorf("stale partners kept: 12->%d 35->%d", s.Pairs[12], s.Pairs[35])
	}
	if s.Pairs[1] != 40 {
		t.Error("unrelated pair 1-40 lost")
	}
	if refolded.Pairs[5] != 12 {
		t.Error("fold result was mutated")
	}
}

func TestRefine_PassesConstraint(t *testing.T) {
	seq := mustSequence(t, polyA(40))
	folder := &stubFolder{baseline: types.NewStructure(40)}
	cfg := DefaultConfig()
	cfg.MaxTracebacks = 3
	cfg.Percent = 20
	cfg.Window = 2
	h := types.NewHelix(5, 30, 3, -90)

	if _, err := Refine(t.Context(), folder, seq, -100, types.HelixList{h}, cfg); err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	req := folder.requests[0]
	if !slices.Equal(req.Constraint.Unpaired, h.Positions()) {
		t.Errorf("constraint = %v, want %v", req.Constraint.Unpaired, h.Positions())
	}
	if req.MaxTracebacks != 3 || req.Percent != 20 || req.Window != 2 {
		t.Errorf("suboptimal settings not forwarded: %+v", req)
	}
}

func TestRefine_FailuresDoNotAbort(t *testing.T) {
	seq := mustSequence(t, polyA(60))
	foldErr := errors.New("fold exploded")
	evalErr := errors.New("bad structure")

	folder := &stubFolder{
		fold: func(req FoldRequest) (*FoldResult, error) {
			switch {
			case req.Constraint.Contains(5):
				return nil, foldErr
			case req.Constraint.Contains(10):
				return &FoldResult{}, nil
			}
			return &FoldResult{Structures: []types.Structure{types.NewStructure(60)}}, nil
		},
		evaluate: func(s types.Structure) (types.Energy, error) {
			if s.Pairs[15] != 0 {
				return 0, evalErr
			}
			return -150, nil
		},
	}
	candidates := types.HelixList{
		types.NewHelix(5, 50, 2, -90),
		types.NewHelix(10, 45, 2, -90),
		types.NewHelix(15, 40, 2, -90),
		types.NewHelix(20, 35, 2, -90),
	}

	trials, err := Refine(t.Context(), folder, seq, -100, candidates, DefaultConfig())
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}

	wantOutcome := []Outcome{OutcomeFailed, OutcomeFailed, OutcomeFailed, OutcomeAccepted}
	for k, tr := range trials {
		if tr.Outcome != wantOutcome[k] {
			t.Errorf("trial %d outcome = %s, want %s", k, tr.Outcome, wantOutcome[k])
		}
		if tr.Index != k {
			t.Errorf("trial %d index = %d", k, tr.Index)
		}
	}
	if !errors.Is(trials[0].Err, foldErr) {
		t.Errorf("trial 0 err = %v, want fold error", trials[0].Err)
	}
	if !errors.Is(trials[1].Err, errEmptyFold) {
		t.Errorf("trial 1 err = %v, want empty fold", trials[1].Err)
	}
	if !errors.Is(trials[2].Err, evalErr) {
		t.Errorf("trial 2 err = %v, want evaluate error", trials[2].Err)
	}
}

func TestRefine_ParallelMatchesSequential(t *testing.T) {
	seq := mustSequence(t, polyA(120))
	folder := &stubFolder{
		fold: func(req FoldRequest) (*FoldResult, error) {
			// Finish out of order.
			time.Sleep(time.Duration(req.Constraint.Unpaired[0]%3) * time.Millisecond)
			return &FoldResult{Structures: []types.Structure{types.NewStructure(120)}}, nil
		},
		evaluate: func(s types.Structure) (types.Energy, error) {
			first := s.PairList()[0][0]
			return types.Energy(-99 - first%3), nil
		},
	}
	var candidates types.HelixList
	for k := range 40 {
		candidates = append(candidates, types.NewHelix(1+k, 120-k, 2, types.Energy(-90+k%4)))
	}

	cfg := DefaultConfig()
	seqTrials, err := Refine(t.Context(), folder, seq, -100, candidates, cfg)
	if err != nil {
		t.Fatalf("sequential Refine failed: %v", err)
	}
	cfg.Parallel = 8
	parTrials, err := Refine(t.Context(), folder, seq, -100, candidates, cfg)
	if err != nil {
		t.Fatalf("parallel Refine failed: %v", err)
	}

	if len(seqTrials) != len(parTrials) {
		t.Fatalf("trial counts differ: %d vs %d", len(seqTrials), len(parTrials))
	}
	for k := range seqTrials {
		a, b := seqTrials[k], parTrials[k]
		if a.Index != b.Index || a.Outcome != b.Outcome || a.Candidate != b.Candidate ||
			a.Structure.Key() != b.Structure.Key() || a.Structure.Energy != b.Structure.Energy {
			t.Errorf("trial %d differs: %+v vs %+v", k, a, b)
		}
	}
}

func TestRefine_Canceled(t *testing.T) {
	seq := mustSequence(t, polyA(40))
	folder := &stubFolder{baseline: types.NewStructure(40)}
	candidates := types.HelixList{types.NewHelix(5, 30, 3, -90), types.NewHelix(10, 25, 2, -80)}

	for _, parallel := range []int{1, 4} {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		cfg := DefaultConfig()
		cfg.Parallel = parallel
		_, err := Refine(ctx, folder, seq, -100, candidates, cfg)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("parallel=%d: err = %v, want context.Canceled", parallel, err)
		}
	}
}
