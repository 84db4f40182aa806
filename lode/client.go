package lode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/types"
)

// LodeClient is the Lode-backed implementation of Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	// Sidecar files bypass the dataset and go straight to the store.
	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error

	mu sync.Mutex // serialises dataset writes
}

// NewLodeClient creates a client over filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a client over a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return newClient(ds, cfg, factory), nil
}

func newClient(ds lode.Dataset, cfg Config, factory lode.StoreFactory) *LodeClient {
	return &LodeClient{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}
}

// WriteStructures writes aggregate entries to the structure partition.
func (c *LodeClient) WriteStructures(ctx context.Context, recs []*types.StructureRecord) error {
	if len(recs) == 0 {
		return nil
	}
	records := make([]any, 0, len(recs))
	for _, r := range recs {
		records = append(records, toStructureRecordMap(r, c.config))
	}
	return c.write(ctx, RecordKindStructure, records)
}

// WriteTrials writes trial diagnostics to the trial partition.
func (c *LodeClient) WriteTrials(ctx context.Context, recs []*types.TrialRecord) error {
	if len(recs) == 0 {
		return nil
	}
	records := make([]any, 0, len(recs))
	for _, r := range recs {
		records = append(records, toTrialRecordMap(r, c.config))
	}
	return c.write(ctx, RecordKindTrial, records)
}

// WriteRun writes the run summary. A run is only listed once this
// record exists, so callers write it after every structure.
func (c *LodeClient) WriteRun(ctx context.Context, rec *types.RunRecord) error {
	if rec == nil {
		return nil
	}
	return c.write(ctx, RecordKindRun, []any{toRunRecordMap(rec, c.config)})
}

// WriteMetrics writes a metrics snapshot to the metrics partition.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	return c.write(ctx, RecordKindMetrics, []any{toMetricsRecordMap(snap, c.config, completedAt)})
}

func (c *LodeClient) write(ctx context.Context, kind string, records []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.partitionPath(kind))
	}
	return nil
}

// runPartition is the Hive path shared by every record and sidecar of
// the run.
func (c *LodeClient) runPartition() string {
	return fmt.Sprintf("source=%s/category=%s/day=%s/run_id=%s",
		c.config.Source, c.config.Category, c.config.Day, c.config.RunID)
}

// partitionPath names where a record kind lands, for error messages.
func (c *LodeClient) partitionPath(kind string) string {
	return c.config.Dataset + "/" + c.runPartition() + "/record_kind=" + kind
}

// Close is a no-op; Lode datasets hold no open handles.
func (c *LodeClient) Close() error {
	return nil
}

var (
	_ Client        = (*LodeClient)(nil)
	_ MetricsWriter = (*LodeClient)(nil)
)
