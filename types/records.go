package types

import "time"

// RecordKind identifies a persisted record.
type RecordKind string

const (
	// RecordKindRun is the per-run summary. Written last; it commits the run.
	RecordKindRun RecordKind = "run"
	// RecordKindStructure is one aggregate entry.
	RecordKindStructure RecordKind = "structure"
	// RecordKindTrial is one refinement trial. Diagnostic only.
	RecordKindTrial RecordKind = "trial"
	// RecordKindMetrics is the run metrics snapshot.
	RecordKindMetrics RecordKind = "metrics"
)

// Droppable reports whether a persistence policy may drop records of
// this kind under pressure. Only trial diagnostics may be dropped.
func (k RecordKind) Droppable() bool {
	return k == RecordKindTrial
}

// StructureRecord is an aggregate entry bound to its run.
type StructureRecord struct {
	RunID string
	// Index is the aggregate position; 0 is the baseline.
	Index      int
	Entry      Entry
	DotBracket string
}

// TrialRecord is the outcome of one refinement trial.
type TrialRecord struct {
	RunID   string
	Index   int
	Helix   Helix
	Outcome string
	// Energy is the re-evaluated energy; zero for failed trials.
	Energy Energy
	Error  string
	// Unused counts tracebacks returned beyond the one refinement used.
	Unused int
}

// RunRecord summarises a finished prediction run.
type RunRecord struct {
	RunID       string
	JobID       *string
	ParentRunID *string
	Attempt     int

	Label       string
	Length      int
	Alphabet    string
	Temperature float64

	E0            Energy
	Candidates    int
	Reduced       int
	Accepted      int
	Rejected      int
	Failed        int
	Duplicates    int
	Structures    int
	Pseudoknotted int

	Outcome OutcomeStatus
	Message string
	Version string

	Timestamp  time.Time
	DurationMs int64
}
