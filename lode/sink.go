// Package lode persists prediction runs to a Lode dataset.
//
// Records land in a Hive-partitioned layout keyed by
// source/category/day/run_id/record_kind. Structure and trial records are
// written as the persistence policy flushes them; the run record is written
// last and marks the run as committed.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/policy"
	"github.com/justapithecus/knotfold/types"
)

// DefaultDataset is the Lode dataset every knotfold run writes to.
const DefaultDataset = "knotfold"

// DeriveDay computes the partition day from run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds the partition keys of one run.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition key for where sequences come from
	// (a lab, a database export, a batch file).
	Source string
	// Category is the partition key for the kind of molecule or study.
	Category string
	// Day is derived from run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the run identifier partition key.
	RunID string
	// Policy is the persistence policy name, recorded on every record.
	Policy string
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteStructures writes aggregate entries. Must preserve batch order.
	WriteStructures(ctx context.Context, recs []*types.StructureRecord) error
	// WriteTrials writes refinement trial diagnostics.
	WriteTrials(ctx context.Context, recs []*types.TrialRecord) error
	// WriteRun writes the run summary.
	WriteRun(ctx context.Context, rec *types.RunRecord) error
	// Close releases client resources.
	Close() error
}

// MetricsWriter persists a run's metrics snapshot.
type MetricsWriter interface {
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error
}

// Sink is a Lode-backed implementation of policy.Sink.
type Sink struct {
	client Client
}

// NewSink creates a new Lode sink.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteStructures implements policy.Sink.
func (s *Sink) WriteStructures(ctx context.Context, recs []*types.StructureRecord) error {
	return s.client.WriteStructures(ctx, recs)
}

// WriteTrials implements policy.Sink.
func (s *Sink) WriteTrials(ctx context.Context, recs []*types.TrialRecord) error {
	return s.client.WriteTrials(ctx, recs)
}

// WriteRun implements policy.Sink.
func (s *Sink) WriteRun(ctx context.Context, rec *types.RunRecord) error {
	return s.client.WriteRun(ctx, rec)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

var _ policy.Sink = (*Sink)(nil)

// StubClient records writes in memory for tests.
type StubClient struct {
	mu         sync.Mutex
	Structures []*types.StructureRecord
	Trials     []*types.TrialRecord
	Runs       []*types.RunRecord
	Closed     bool
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteStructures implements Client.
func (c *StubClient) WriteStructures(_ context.Context, recs []*types.StructureRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Structures = append(c.Structures, recs...)
	return nil
}

// WriteTrials implements Client.
func (c *StubClient) WriteTrials(_ context.Context, recs []*types.TrialRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Trials = append(c.Trials, recs...)
	return nil
}

// WriteRun implements Client.
func (c *StubClient) WriteRun(_ context.Context, rec *types.RunRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Runs = append(c.Runs, rec)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

var _ Client = (*StubClient)(nil)
