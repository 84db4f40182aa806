package lode

import (
	"context"

	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/policy"
	"github.com/justapithecus/knotfold/types"
)

// InstrumentedSink wraps a policy.Sink and counts each write call as a
// lode_write_success or lode_write_failure on the collector.
type InstrumentedSink struct {
	inner     policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteStructures delegates to the inner sink.
func (s *InstrumentedSink) WriteStructures(ctx context.Context, recs []*types.StructureRecord) error {
	return s.record(s.inner.WriteStructures(ctx, recs))
}

// WriteTrials delegates to the inner sink.
func (s *InstrumentedSink) WriteTrials(ctx context.Context, recs []*types.TrialRecord) error {
	return s.record(s.inner.WriteTrials(ctx, recs))
}

// WriteRun delegates to the inner sink.
func (s *InstrumentedSink) WriteRun(ctx context.Context, rec *types.RunRecord) error {
	return s.record(s.inner.WriteRun(ctx, rec))
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

func (s *InstrumentedSink) record(err error) error {
	if err != nil {
		s.collector.IncLodeWriteFailure()
	} else {
		s.collector.IncLodeWriteSuccess()
	}
	return err
}

var _ policy.Sink = (*InstrumentedSink)(nil)
