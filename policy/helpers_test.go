package policy_test

import (
	"testing"

	"github.com/justapithecus/knotfold/policy"
	"github.com/justapithecus/knotfold/types"
)

func structureRec(idx int) *types.StructureRecord {
	return &types.StructureRecord{
		RunID:      "run-1",
		Index:      idx,
		Entry:      types.Entry{Structure: types.NewStructure(10), Baseline: idx == 0},
		DotBracket: "..........",
	}
}

func trialRec(idx int) *types.TrialRecord {
	return &types.TrialRecord{
		RunID:   "run-1",
		Index:   idx,
		Helix:   types.NewHelix(1, 10, 2, -30),
		Outcome: "rejected",
	}
}

func runRec() *types.RunRecord {
	return &types.RunRecord{RunID: "run-1", Attempt: 1, Outcome: types.OutcomeSuccess}
}

func mustNewBufferedPolicy(t *testing.T, sink policy.Sink, config policy.BufferedConfig) *policy.BufferedPolicy {
	t.Helper()
	pol, err := policy.NewBufferedPolicy(sink, config)
	if err != nil {
		t.Fatalf("NewBufferedPolicy failed: %v", err)
	}
	return pol
}
