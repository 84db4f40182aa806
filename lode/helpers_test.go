package lode

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/knotfold/types"
)

// sharedFactory returns a StoreFactory that always returns the given store,
// so write and read datasets share the same in-memory state.
func sharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

func testConfig(runID string) Config {
	return Config{
		Dataset:  DefaultDataset,
		Source:   "test-source",
		Category: "riboswitch",
		Day:      "2026-03-14",
		RunID:    runID,
		Policy:   "strict",
	}
}

func newTestClient(t *testing.T, cfg Config, factory lode.StoreFactory) *LodeClient {
	t.Helper()
	client, err := NewLodeClientWithFactory(cfg, factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}
	return client
}

func structureRecord(runID string, index int, energy types.Energy, source *types.Helix) *types.StructureRecord {
	s, _ := types.StructureFromPairs(20, [2]int{1, 20}, [2]int{2, 19})
	s.Energy = energy
	return &types.StructureRecord{
		RunID: runID,
		Index: index,
		Entry: types.Entry{
			Structure: s,
			Source:    source,
			Baseline:  index == 0,
		},
		DotBracket: "((................))",
	}
}

func runRecord(runID string) *types.RunRecord {
	job := "job-1"
	return &types.RunRecord{
		RunID:       runID,
		JobID:       &job,
		Attempt:     1,
		Label:       "kissing",
		Length:      20,
		Alphabet:    "rna",
		Temperature: 310.15,
		E0:          -42,
		Candidates:  7,
		Reduced:     5,
		Accepted:    1,
		Rejected:    3,
		Failed:      1,
		Structures:  2,
		Outcome:     types.OutcomeSuccess,
		Version:     types.Version,
		Timestamp:   time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC),
		DurationMs:  1200,
	}
}

// FailingStore is a lode.Store that returns configurable errors.
type FailingStore struct {
	PutErr  error
	GetErr  error
	ListErr error

	PutCalls int
	PutPaths []string
}

func (s *FailingStore) Put(_ context.Context, path string, _ io.Reader) error {
	s.PutCalls++
	s.PutPaths = append(s.PutPaths, path)
	return s.PutErr
}

func (s *FailingStore) Get(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, s.GetErr
}

func (s *FailingStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *FailingStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, s.ListErr
}

func (s *FailingStore) Delete(_ context.Context, _ string) error {
	return nil
}

func (s *FailingStore) ReadRange(_ context.Context, _ string, _, _ int64) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *FailingStore) ReaderAt(_ context.Context, _ string) (io.ReaderAt, error) {
	return nil, errors.New("not implemented")
}

var _ lode.Store = (*FailingStore)(nil)
