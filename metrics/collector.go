// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single prediction run. It is a
// leaf package with no internal dependencies. Persistence policy counters are
// absorbed from policy.Stats at run completion rather than recorded live,
// avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsCanceled  int64

	// Candidate search
	CandidatesExtracted int64
	CandidatesReduced   int64

	// Refinement
	TrialsAccepted    int64
	TrialsRejected    int64
	TrialsFailed      int64
	DuplicatesDropped int64

	// Persistence (absorbed from policy.Stats at run completion)
	RecordsReceived  int64
	RecordsPersisted int64
	RecordsDropped   int64
	DroppedByKind    map[string]int64
	FlushTriggers    map[string]int64

	// Lode / Storage
	LodeWriteSuccess int64
	LodeWriteFailure int64

	// Completion notifications
	NotifySuccess int64
	NotifyFailure int64

	// Dimensions (informational, set at construction)
	Policy         string
	Alphabet       string
	StorageBackend string
	RunID          string
	JobID          string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsCompleted int64
	runsFailed    int64
	runsCanceled  int64

	candidatesExtracted int64
	candidatesReduced   int64

	trialsAccepted    int64
	trialsRejected    int64
	trialsFailed      int64
	duplicatesDropped int64

	lodeWriteSuccess int64
	lodeWriteFailure int64

	notifySuccess int64
	notifyFailure int64

	// Set once via AbsorbPolicyStats
	recordsReceived  int64
	recordsPersisted int64
	recordsDropped   int64
	droppedByKind    map[string]int64
	flushTriggers    map[string]int64

	policy         string
	alphabet       string
	storageBackend string
	runID          string
	jobID          string
}

// NewCollector creates a Collector with dimension labels.
// runID and jobID are optional dimensions.
func NewCollector(policy, alphabet, storageBackend, runID, jobID string) *Collector {
	return &Collector{
		droppedByKind:  make(map[string]int64),
		policy:         policy,
		alphabet:       alphabet,
		storageBackend: storageBackend,
		runID:          runID,
		jobID:          jobID,
	}
}

func (c *Collector) add(counter *int64, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*counter += n
	c.mu.Unlock()
}

// --- Run lifecycle ---

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.add(&c.runsStarted, 1)
}

// IncRunCompleted records a successful run completion.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.add(&c.runsCompleted, 1)
}

// IncRunFailed records a run that ended with a non-success outcome.
func (c *Collector) IncRunFailed() {
	if c == nil {
		return
	}
	c.add(&c.runsFailed, 1)
}

// IncRunCanceled records a run stopped by context cancellation.
func (c *Collector) IncRunCanceled() {
	if c == nil {
		return
	}
	c.add(&c.runsCanceled, 1)
}

// --- Candidate search ---

// AddCandidatesExtracted records helices found by the extractor.
func (c *Collector) AddCandidatesExtracted(n int) {
	if c == nil {
		return
	}
	c.add(&c.candidatesExtracted, int64(n))
}

// AddCandidatesReduced records helices that survived reduction.
func (c *Collector) AddCandidatesReduced(n int) {
	if c == nil {
		return
	}
	c.add(&c.candidatesReduced, int64(n))
}

// --- Refinement ---

// IncTrialAccepted records a trial whose structure beat the baseline.
func (c *Collector) IncTrialAccepted() {
	if c == nil {
		return
	}
	c.add(&c.trialsAccepted, 1)
}

// IncTrialRejected records a trial that did not beat the baseline.
func (c *Collector) IncTrialRejected() {
	if c == nil {
		return
	}
	c.add(&c.trialsRejected, 1)
}

// IncTrialFailed records a trial whose fold or evaluation failed.
func (c *Collector) IncTrialFailed() {
	if c == nil {
		return
	}
	c.add(&c.trialsFailed, 1)
}

// IncDuplicateDropped records an accepted structure already in the aggregate.
func (c *Collector) IncDuplicateDropped() {
	if c == nil {
		return
	}
	c.add(&c.duplicatesDropped, 1)
}

// --- Lode / Storage ---
// Lode counters are per-call, not per-record. A single write of N
// structure records counts as 1 success. Per-record granularity is tracked
// separately by policy.Stats.

// IncLodeWriteSuccess records a successful Lode write operation (per-call).
func (c *Collector) IncLodeWriteSuccess() {
	if c == nil {
		return
	}
	c.add(&c.lodeWriteSuccess, 1)
}

// IncLodeWriteFailure records a failed Lode write operation (per-call).
func (c *Collector) IncLodeWriteFailure() {
	if c == nil {
		return
	}
	c.add(&c.lodeWriteFailure, 1)
}

// --- Notification ---

// IncNotifySuccess records a delivered completion event.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.add(&c.notifySuccess, 1)
}

// IncNotifyFailure records a completion event that could not be delivered.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.add(&c.notifyFailure, 1)
}

// --- Persistence (absorbed from policy.Stats) ---

// AbsorbPolicyStats copies persistence counters from policy.Stats into the
// collector. Called once after run completion with the final policy stats.
// Map keys are string-typed record kinds to keep this package free of
// dependencies on the types package. flushTriggers may be nil for policies
// that never batch.
func (c *Collector) AbsorbPolicyStats(total, persisted, dropped int64, droppedByKind, flushTriggers map[string]int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsReceived = total
	c.recordsPersisted = persisted
	c.recordsDropped = dropped
	c.droppedByKind = copyCounts(droppedByKind)
	if flushTriggers != nil {
		c.flushTriggers = copyCounts(flushTriggers)
	} else {
		c.flushTriggers = nil
	}
	c.mu.Unlock()
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var triggers map[string]int64
	if c.flushTriggers != nil {
		triggers = copyCounts(c.flushTriggers)
	}

	return Snapshot{
		RunsStarted:   c.runsStarted,
		RunsCompleted: c.runsCompleted,
		RunsFailed:    c.runsFailed,
		RunsCanceled:  c.runsCanceled,

		CandidatesExtracted: c.candidatesExtracted,
		CandidatesReduced:   c.candidatesReduced,

		TrialsAccepted:    c.trialsAccepted,
		TrialsRejected:    c.trialsRejected,
		TrialsFailed:      c.trialsFailed,
		DuplicatesDropped: c.duplicatesDropped,

		RecordsReceived:  c.recordsReceived,
		RecordsPersisted: c.recordsPersisted,
		RecordsDropped:   c.recordsDropped,
		DroppedByKind:    copyCounts(c.droppedByKind),
		FlushTriggers:    triggers,

		LodeWriteSuccess: c.lodeWriteSuccess,
		LodeWriteFailure: c.lodeWriteFailure,

		NotifySuccess: c.notifySuccess,
		NotifyFailure: c.notifyFailure,

		Policy:         c.policy,
		Alphabet:       c.alphabet,
		StorageBackend: c.storageBackend,
		RunID:          c.runID,
		JobID:          c.jobID,
	}
}
