package reader

import (
	"context"

	"github.com/justapithecus/knotfold/lode"
)

// StubReader serves canned data. Tests use it in place of a dataset.
type StubReader struct {
	Runs    RunList
	Details map[string]*RunDetail
	Metrics *MetricsSnapshot
	// Err is returned by every method when set.
	Err error
}

// InspectRun implements Reader.
func (r *StubReader) InspectRun(_ context.Context, runID string) (*RunDetail, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	d, ok := r.Details[runID]
	if !ok {
		return nil, lode.ErrRunNotFound
	}
	return d, nil
}

// ListRuns implements Reader.
func (r *StubReader) ListRuns(_ context.Context, opts ListRunsOptions) (RunList, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	out := RunList{}
	for _, s := range r.Runs {
		if opts.Source != "" && s.Source != opts.Source {
			continue
		}
		if opts.Outcome != "" && s.Outcome != opts.Outcome {
			continue
		}
		out = append(out, s)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// StatsMetrics implements Reader.
func (r *StubReader) StatsMetrics(context.Context, MetricsOptions) (*MetricsSnapshot, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Metrics == nil {
		return nil, lode.ErrNoMetricsFound
	}
	return r.Metrics, nil
}
