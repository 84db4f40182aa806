// Package policy defines how prediction records reach storage.
//
// A Policy sits between the runtime and a Sink. It decides whether records
// are written immediately, buffered, or discarded, and keeps statistics
// that the run absorbs into its metrics.
package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/knotfold/types"
)

// Policy defines the persistence policy interface.
//
// Rules every policy follows:
//   - May drop: trial records
//   - Must NOT drop: structure and run records
//   - The run record is written after every structure record it summarises
//   - Policy failure fails the run
type Policy interface {
	// IngestStructure handles one aggregate entry.
	// Must not drop; return error to fail the run.
	IngestStructure(ctx context.Context, rec *types.StructureRecord) error

	// IngestTrial handles one trial diagnostic. May be dropped.
	IngestTrial(ctx context.Context, rec *types.TrialRecord) error

	// IngestRun handles the run summary. Must not drop.
	IngestRun(ctx context.Context, rec *types.RunRecord) error

	// Flush writes any buffered records.
	Flush(ctx context.Context) error

	// Close flushes and releases policy resources.
	Close() error

	// Stats returns an atomic snapshot of policy counters.
	Stats() Stats
}

// Stats represents policy observability counters.
type Stats struct {
	// TotalRecords is the number of records received, run records included.
	TotalRecords int64
	// RecordsPersisted is the number of records written to the sink.
	RecordsPersisted int64
	// RecordsDropped is the number of records discarded.
	RecordsDropped int64
	// DroppedByKind maps record kinds to drop counts.
	DroppedByKind map[types.RecordKind]int64
	// BufferSize is the number of records currently buffered.
	BufferSize int64
	// FlushCount is the number of flush operations.
	FlushCount int64
	// FlushTriggers maps flush triggers to counts. Nil for unbuffered policies.
	FlushTriggers map[FlushTrigger]int64
	// Errors is the count of sink errors encountered.
	Errors int64
}

// FlushTrigger identifies what caused a flush.
type FlushTrigger string

const (
	// FlushTriggerCount indicates the buffer reached its flush threshold.
	FlushTriggerCount FlushTrigger = "count"
	// FlushTriggerExplicit indicates a direct Flush call.
	FlushTriggerExplicit FlushTrigger = "explicit"
	// FlushTriggerClose indicates the final flush on Close.
	FlushTriggerClose FlushTrigger = "close"
)

// DroppedByKindStrings converts the drop map to string keys for metrics.
func (s Stats) DroppedByKindStrings() map[string]int64 {
	out := make(map[string]int64, len(s.DroppedByKind))
	for k, v := range s.DroppedByKind {
		out[string(k)] = v
	}
	return out
}

// FlushTriggerStrings converts the trigger map to string keys for metrics.
// Returns nil when the policy does not track triggers.
func (s Stats) FlushTriggerStrings() map[string]int64 {
	if s.FlushTriggers == nil {
		return nil
	}
	out := make(map[string]int64, len(s.FlushTriggers))
	for k, v := range s.FlushTriggers {
		out[string(k)] = v
	}
	return out
}

// statsRecorder is an internal helper for thread-safe stats management.
// Policies call explicit methods to record mutations; the recorder does not
// infer any policy decisions.
//
// Lock discipline:
//   - StrictPolicy and NoopPolicy use the locking methods
//   - BufferedPolicy uses the Locked methods only while holding its own mu,
//     keeping buffer state and counters consistent
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder(trackTriggers bool) *statsRecorder {
	r := &statsRecorder{
		stats: Stats{DroppedByKind: make(map[types.RecordKind]int64)},
	}
	if trackTriggers {
		r.stats.FlushTriggers = make(map[FlushTrigger]int64)
	}
	return r
}

func (r *statsRecorder) incTotal() {
	r.mu.Lock()
	r.incTotalLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) incPersisted(n int64) {
	r.mu.Lock()
	r.incPersistedLocked(n)
	r.mu.Unlock()
}

func (r *statsRecorder) incDropped(kind types.RecordKind) {
	r.mu.Lock()
	r.incDroppedLocked(kind)
	r.mu.Unlock()
}

func (r *statsRecorder) incErrors() {
	r.mu.Lock()
	r.incErrorsLocked()
	r.mu.Unlock()
}

func (r *statsRecorder) incFlush() {
	r.mu.Lock()
	r.stats.FlushCount++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(r.stats.BufferSize)
}

// --- Locked methods for BufferedPolicy ---
// Caller must hold BufferedPolicy.mu.

func (r *statsRecorder) incTotalLocked() {
	r.stats.TotalRecords++
}

func (r *statsRecorder) incPersistedLocked(n int64) {
	r.stats.RecordsPersisted += n
}

func (r *statsRecorder) incDroppedLocked(kind types.RecordKind) {
	r.stats.RecordsDropped++
	r.stats.DroppedByKind[kind]++
}

func (r *statsRecorder) incErrorsLocked() {
	r.stats.Errors++
}

func (r *statsRecorder) incFlushLocked(trigger FlushTrigger) {
	r.stats.FlushCount++
	if r.stats.FlushTriggers != nil {
		r.stats.FlushTriggers[trigger]++
	}
}

// snapshotLocked returns a deep copy of the stats with the given buffer size.
func (r *statsRecorder) snapshotLocked(bufferSize int64) Stats {
	s := r.stats
	s.BufferSize = bufferSize
	s.DroppedByKind = make(map[types.RecordKind]int64, len(r.stats.DroppedByKind))
	for k, v := range r.stats.DroppedByKind {
		s.DroppedByKind[k] = v
	}
	if r.stats.FlushTriggers != nil {
		s.FlushTriggers = make(map[FlushTrigger]int64, len(r.stats.FlushTriggers))
		for k, v := range r.stats.FlushTriggers {
			s.FlushTriggers[k] = v
		}
	}
	return s
}
