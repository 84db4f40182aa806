// Package reader provides the read side of the knotfold CLI: run and
// metrics views backed by Lode, and structure views read from archives.
package reader

import "context"

// Reader abstracts read-only data access for CLI commands.
type Reader interface {
	// InspectRun returns everything persisted for one run.
	InspectRun(ctx context.Context, runID string) (*RunDetail, error)
	// ListRuns returns committed runs, newest first.
	ListRuns(ctx context.Context, opts ListRunsOptions) (RunList, error)
	// StatsMetrics returns the latest matching metrics record.
	StatsMetrics(ctx context.Context, opts MetricsOptions) (*MetricsSnapshot, error)
}
