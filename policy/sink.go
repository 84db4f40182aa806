package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/knotfold/types"
)

// Sink abstracts persistence for policies.
// Implementations may write to storage or stub for testing.
//
// Methods are batch-oriented to support both strict (batch of 1) and
// buffered policies.
type Sink interface {
	// WriteStructures persists a batch of aggregate entries in order.
	WriteStructures(ctx context.Context, recs []*types.StructureRecord) error

	// WriteTrials persists a batch of trial diagnostics in order.
	WriteTrials(ctx context.Context, recs []*types.TrialRecord) error

	// WriteRun persists the run summary.
	WriteRun(ctx context.Context, rec *types.RunRecord) error

	// Close releases any resources held by the sink.
	Close() error
}

// DiscardSink accepts every write and keeps nothing. It stands in for
// storage when none is configured, so the chosen policy still runs.
type DiscardSink struct{}

func (DiscardSink) WriteStructures(context.Context, []*types.StructureRecord) error { return nil }
func (DiscardSink) WriteTrials(context.Context, []*types.TrialRecord) error         { return nil }
func (DiscardSink) WriteRun(context.Context, *types.RunRecord) error                { return nil }
func (DiscardSink) Close() error                                                    { return nil }

// WriteOp records one sink call for ordering assertions.
type WriteOp struct {
	Kind  types.RecordKind
	Count int
}

// StubSink is a test sink that accepts writes without persisting.
type StubSink struct {
	mu sync.Mutex

	Structures []*types.StructureRecord
	Trials     []*types.TrialRecord
	Runs       []*types.RunRecord

	// WriteOrder tracks sink calls in order.
	WriteOrder []WriteOp
	Closed     bool

	// ErrorOnWrite, if non-nil, is returned by every write.
	ErrorOnWrite error
	// ErrorOn, if set, fails only writes of that kind.
	ErrorOn types.RecordKind
}

// NewStubSink creates a new stub sink for testing.
func NewStubSink() *StubSink {
	return &StubSink{}
}

func (s *StubSink) fail(kind types.RecordKind) error {
	if s.ErrorOnWrite != nil && (s.ErrorOn == "" || s.ErrorOn == kind) {
		return s.ErrorOnWrite
	}
	return nil
}

// WriteStructures records the batch.
func (s *StubSink) WriteStructures(_ context.Context, recs []*types.StructureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(types.RecordKindStructure); err != nil {
		return err
	}
	s.Structures = append(s.Structures, recs...)
	s.WriteOrder = append(s.WriteOrder, WriteOp{Kind: types.RecordKindStructure, Count: len(recs)})
	return nil
}

// WriteTrials records the batch.
func (s *StubSink) WriteTrials(_ context.Context, recs []*types.TrialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(types.RecordKindTrial); err != nil {
		return err
	}
	s.Trials = append(s.Trials, recs...)
	s.WriteOrder = append(s.WriteOrder, WriteOp{Kind: types.RecordKindTrial, Count: len(recs)})
	return nil
}

// WriteRun records the summary.
func (s *StubSink) WriteRun(_ context.Context, rec *types.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(types.RecordKindRun); err != nil {
		return err
	}
	s.Runs = append(s.Runs, rec)
	s.WriteOrder = append(s.WriteOrder, WriteOp{Kind: types.RecordKindRun, Count: 1})
	return nil
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Ops returns a copy of the recorded write order.
func (s *StubSink) Ops() []WriteOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WriteOp, len(s.WriteOrder))
	copy(out, s.WriteOrder)
	return out
}
