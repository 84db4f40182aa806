package reader

import (
	"context"
	"fmt"

	lodelibrary "github.com/justapithecus/lode/lode"

	"github.com/justapithecus/knotfold/lode"
)

// StorageOptions locates a Lode dataset.
type StorageOptions struct {
	Dataset  string
	Backend  string
	Path     string
	Region   string
	Endpoint string
	// PathStyle is passed through to S3-compatible providers.
	PathStyle bool
}

// LodeReader reads runs and metrics from a Lode dataset.
type LodeReader struct {
	ds lodelibrary.Dataset
}

// NewLodeReader wraps an open dataset.
func NewLodeReader(ds lodelibrary.Dataset) *LodeReader {
	return &LodeReader{ds: ds}
}

// Open builds a LodeReader for the fs or s3 backend.
func Open(opts StorageOptions) (*LodeReader, error) {
	dataset := opts.Dataset
	if dataset == "" {
		dataset = lode.DefaultDataset
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	var (
		ds  lodelibrary.Dataset
		err error
	)
	switch opts.Backend {
	case "fs":
		ds, err = lode.NewReadDatasetFS(dataset, opts.Path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(opts.Path)
		ds, err = lode.NewReadDatasetS3(dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       opts.Region,
			Endpoint:     opts.Endpoint,
			UsePathStyle: opts.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q (must be fs or s3)", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewLodeReader(ds), nil
}

// InspectRun implements Reader.
func (r *LodeReader) InspectRun(ctx context.Context, runID string) (*RunDetail, error) {
	recs, err := lode.QueryRun(ctx, r.ds, runID)
	if err != nil {
		return nil, err
	}
	return ParseRunRecords(recs)
}

// ListRuns implements Reader. The outcome filter is applied after the
// limit-free scan so Limit counts matching runs.
func (r *LodeReader) ListRuns(ctx context.Context, opts ListRunsOptions) (RunList, error) {
	limit := opts.Limit
	if opts.Outcome != "" {
		limit = 0
	}
	records, err := lode.ListRuns(ctx, r.ds, opts.Source, limit)
	if err != nil {
		return nil, err
	}

	out := make(RunList, 0, len(records))
	for _, rec := range records {
		s, err := ParseRunRecord(rec)
		if err != nil {
			return nil, err
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
func (r *LodeReader) StatsMetrics(ctx context.Context, opts MetricsOptions) (*MetricsSnapshot, error) {
	record, err := lode.QueryLatestMetrics(ctx, r.ds, opts.RunID, opts.Source)
	if err != nil {
		return nil, err
	}
	return ParseMetricsRecord(record)
}
