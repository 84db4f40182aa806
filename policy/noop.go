package policy

import (
	"context"

	"github.com/justapithecus/knotfold/types"
)

// NoopPolicy accepts records without persisting them. Used when no
// storage is configured.
//
// Stats keep the droppable distinction: trial records count as dropped,
// structure and run records count as persisted.
type NoopPolicy struct {
	stats *statsRecorder
}

// NewNoopPolicy creates a new no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: newStatsRecorder(false)}
}

// IngestStructure accepts the record.
func (p *NoopPolicy) IngestStructure(_ context.Context, _ *types.StructureRecord) error {
	p.accept(types.RecordKindStructure)
	return nil
}

// IngestTrial accepts the record.
func (p *NoopPolicy) IngestTrial(_ context.Context, _ *types.TrialRecord) error {
	p.accept(types.RecordKindTrial)
	return nil
}

// IngestRun accepts the record.
func (p *NoopPolicy) IngestRun(_ context.Context, _ *types.RunRecord) error {
	p.accept(types.RecordKindRun)
	return nil
}

func (p *NoopPolicy) accept(kind types.RecordKind) {
	p.stats.incTotal()
	if kind.Droppable() {
		p.stats.incDropped(kind)
		return
	}
	p.stats.incPersisted(1)
}

// Flush is a no-op.
func (p *NoopPolicy) Flush(_ context.Context) error {
	p.stats.incFlush()
	return nil
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}

// Stats returns the policy statistics.
func (p *NoopPolicy) Stats() Stats {
	return p.stats.snapshot()
}
