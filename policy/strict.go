package policy

import (
	"context"

	"github.com/justapithecus/knotfold/types"
)

// StrictPolicy implements synchronous, unbuffered persistence.
//
//   - No buffering: each record is written immediately
//   - No drops: trial records are persisted too
//   - Backpressure: caller blocks on sink latency
//   - Sink errors fail the run
type StrictPolicy struct {
	sink  Sink
	stats *statsRecorder
}

// NewStrictPolicy creates a new strict policy writing to the given sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink, stats: newStatsRecorder(false)}
}

// IngestStructure writes the record immediately (batch of 1).
func (p *StrictPolicy) IngestStructure(ctx context.Context, rec *types.StructureRecord) error {
	return p.write(func() error {
		return p.sink.WriteStructures(ctx, []*types.StructureRecord{rec})
	})
}

// IngestTrial writes the record immediately (batch of 1).
func (p *StrictPolicy) IngestTrial(ctx context.Context, rec *types.TrialRecord) error {
	return p.write(func() error {
		return p.sink.WriteTrials(ctx, []*types.TrialRecord{rec})
	})
}

// IngestRun writes the summary immediately.
func (p *StrictPolicy) IngestRun(ctx context.Context, rec *types.RunRecord) error {
	return p.write(func() error {
		return p.sink.WriteRun(ctx, rec)
	})
}

func (p *StrictPolicy) write(fn func() error) error {
	p.stats.incTotal()
	if err := fn(); err != nil {
		p.stats.incErrors()
		return err
	}
	p.stats.incPersisted(1)
	return nil
}

// Flush is a no-op for strict policy (nothing is buffered).
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.stats.incFlush()
	return nil
}

// Close closes the underlying sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	return p.stats.snapshot()
}
