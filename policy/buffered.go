package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/justapithecus/knotfold/log"
	"github.com/justapithecus/knotfold/types"
)

// FlushMode controls flush failure semantics for BufferedPolicy.
type FlushMode string

const (
	// FlushAtLeastOnce preserves all buffers on any failure.
	// May rewrite structure records on retry, but never loses one.
	// This is the default and safest mode.
	FlushAtLeastOnce FlushMode = "at_least_once"

	// FlushTwoPhase remembers which buffers were written so a retry after
	// a partial failure does not rewrite them.
	FlushTwoPhase FlushMode = "two_phase"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxBufferRecords bounds structure and trial records held at once.
	MaxBufferRecords int

	// FlushCount flushes automatically once this many records are
	// buffered. Zero disables count-triggered flushes.
	FlushCount int

	// FlushMode controls flush failure semantics.
	// Default is FlushAtLeastOnce.
	FlushMode FlushMode

	// Logger is an optional logger for policy observability.
	// If nil, no logging is emitted.
	Logger *log.Logger
}

// DefaultBufferedConfig returns sensible defaults for buffered policy.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxBufferRecords: 1000,
		FlushMode:        FlushAtLeastOnce,
	}
}

// ErrBufferFull is returned when the buffer is full and the record is non-droppable.
var ErrBufferFull = errors.New("buffer full: cannot accept non-droppable record")

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: MaxBufferRecords must be set")

// ErrInvalidFlushMode is returned when FlushMode is unknown.
var ErrInvalidFlushMode = errors.New("invalid flush mode")

// BufferedPolicy implements buffered persistence with drop rules.
//
//   - Bounded buffer with an explicit record limit
//   - May drop: trial records
//   - Must NOT drop: structure and run records
//   - Batch writes on flush: structures, then trials, then the run record
//
// Flush holds the buffer lock for the duration of the sink writes, so
// ingestion blocks while a flush is in progress.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu         sync.Mutex
	structures []*types.StructureRecord
	trials     []*types.TrialRecord
	run        *types.RunRecord
	// TwoPhase: leading records already written by a failed flush.
	structuresWritten int
	trialsWritten     int
	stats             *statsRecorder
}

// NewBufferedPolicy creates a new buffered policy.
// Returns error if config is invalid.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferRecords <= 0 {
		return nil, ErrInvalidConfig
	}
	if config.FlushMode == "" {
		config.FlushMode = FlushAtLeastOnce
	}
	switch config.FlushMode {
	case FlushAtLeastOnce, FlushTwoPhase:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFlushMode, config.FlushMode)
	}

	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		stats:  newStatsRecorder(true),
	}, nil
}

// IngestStructure buffers the record. When the buffer is full the oldest
// trial record is evicted to make room; with no trial left the run fails.
func (p *BufferedPolicy) IngestStructure(ctx context.Context, rec *types.StructureRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalLocked()

	if !p.hasRoom() && !p.dropOldestTrial() {
		p.stats.incErrorsLocked()
		p.logBufferOverflow(types.RecordKindStructure)
		return ErrBufferFull
	}
	p.structures = append(p.structures, rec)
	return p.maybeFlushLocked(ctx)
}

// IngestTrial buffers the record, or drops it when the buffer is full.
func (p *BufferedPolicy) IngestTrial(ctx context.Context, rec *types.TrialRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalLocked()

	if !p.hasRoom() {
		p.stats.incDroppedLocked(types.RecordKindTrial)
		p.logDrop(types.RecordKindTrial, "buffer_full")
		return nil
	}
	p.trials = append(p.trials, rec)
	return p.maybeFlushLocked(ctx)
}

// IngestRun holds the summary until the next flush, where it is written
// after every buffered record.
func (p *BufferedPolicy) IngestRun(_ context.Context, rec *types.RunRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.incTotalLocked()
	p.run = rec
	return nil
}

// Flush writes all buffered records to the sink.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(ctx, FlushTriggerExplicit)
}

func (p *BufferedPolicy) maybeFlushLocked(ctx context.Context) error {
	if p.config.FlushCount > 0 && p.buffered() >= p.config.FlushCount {
		return p.flushLocked(ctx, FlushTriggerCount)
	}
	return nil
}

// flushLocked writes structures, trials and the run record in that order.
// Buffers are cleared only after every write succeeds. Caller must hold mu.
func (p *BufferedPolicy) flushLocked(ctx context.Context, trigger FlushTrigger) error {
	p.stats.incFlushLocked(trigger)
	twoPhase := p.config.FlushMode == FlushTwoPhase

	if pending := p.structures[p.structuresWritten:]; len(pending) > 0 {
		if err := p.sink.WriteStructures(ctx, pending); err != nil {
			return p.flushFailed(types.RecordKindStructure, err)
		}
		p.stats.incPersistedLocked(int64(len(pending)))
		if twoPhase {
			p.structuresWritten = len(p.structures)
		}
	}

	if pending := p.trials[p.trialsWritten:]; len(pending) > 0 {
		if err := p.sink.WriteTrials(ctx, pending); err != nil {
			return p.flushFailed(types.RecordKindTrial, err)
		}
		p.stats.incPersistedLocked(int64(len(pending)))
		if twoPhase {
			p.trialsWritten = len(p.trials)
		}
	}

	if p.run != nil {
		if err := p.sink.WriteRun(ctx, p.run); err != nil {
			return p.flushFailed(types.RecordKindRun, err)
		}
		p.stats.incPersistedLocked(1)
	}

	p.structures = nil
	p.trials = nil
	p.run = nil
	p.structuresWritten = 0
	p.trialsWritten = 0
	return nil
}

func (p *BufferedPolicy) flushFailed(kind types.RecordKind, err error) error {
	p.stats.incErrorsLocked()
	p.logFlushFailure(kind, err)
	return err
}

// Close flushes remaining records and closes the sink. A flush failure is
// returned after the sink is closed.
func (p *BufferedPolicy) Close() error {
	p.mu.Lock()
	flushErr := p.flushLocked(context.Background(), FlushTriggerClose)
	p.mu.Unlock()

	if err := p.sink.Close(); err != nil {
		return err
	}
	return flushErr
}

// Stats returns an atomic snapshot of policy statistics.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshotLocked(int64(p.buffered()))
}

func (p *BufferedPolicy) buffered() int {
	return len(p.structures) + len(p.trials)
}

func (p *BufferedPolicy) hasRoom() bool {
	return p.buffered() < p.config.MaxBufferRecords
}

// dropOldestTrial evicts the oldest unwritten trial record. Caller must hold mu.
func (p *BufferedPolicy) dropOldestTrial() bool {
	if len(p.trials) <= p.trialsWritten {
		return false
	}
	p.trials = append(p.trials[:p.trialsWritten], p.trials[p.trialsWritten+1:]...)
	p.stats.incDroppedLocked(types.RecordKindTrial)
	p.logDrop(types.RecordKindTrial, "evicted_for_non_droppable")
	return true
}

// --- Logging helpers ---

func (p *BufferedPolicy) logDrop(kind types.RecordKind, reason string) {
	if p.logger == nil {
		return
	}
	p.logger.Warn("record dropped", map[string]any{
		"record_kind": string(kind),
		"reason":      reason,
		"policy":      "buffered",
	})
}

func (p *BufferedPolicy) logBufferOverflow(kind types.RecordKind) {
	if p.logger == nil {
		return
	}
	p.logger.Error("buffer overflow", map[string]any{
		"record_kind": string(kind),
		"policy":      "buffered",
	})
}

func (p *BufferedPolicy) logFlushFailure(kind types.RecordKind, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Error("flush failed", map[string]any{
		"record_kind": string(kind),
		"error":       err.Error(),
		"policy":      "buffered",
	})
}
