package lode

import (
	"maps"
	"time"

	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/types"
)

// Record kind discriminators. Each doubles as the record_kind partition value.
const (
	RecordKindRun       = string(types.RecordKindRun)
	RecordKindStructure = string(types.RecordKindStructure)
	RecordKindTrial     = string(types.RecordKindTrial)
	RecordKindMetrics   = string(types.RecordKindMetrics)
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "category", "day", "run_id", "record_kind"}

// baseRecord carries the partition keys every record needs.
// Lode HiveLayout requires records as map[string]any.
func baseRecord(kind string, cfg Config) map[string]any {
	return map[string]any{
		"record_kind": kind,
		"source":      cfg.Source,
		"category":    cfg.Category,
		"day":         cfg.Day,
		"run_id":      cfg.RunID,
		"policy":      cfg.Policy,
	}
}

func toStructureRecordMap(rec *types.StructureRecord, cfg Config) map[string]any {
	m := baseRecord(RecordKindStructure, cfg)
	e := rec.Entry
	m["rank"] = rec.Index
	m["energy"] = int64(e.Structure.Energy)
	m["energy_kcal"] = e.Structure.Energy.Kcal()
	m["pairs"] = e.Structure.Pairs
	m["dot_bracket"] = rec.DotBracket
	m["baseline"] = e.Baseline
	m["pseudoknotted"] = e.Pseudoknotted
	m["needs_review"] = e.NeedsReview
	if h := e.Source; h != nil {
		m["i_start"] = h.IStart
		m["i_end"] = h.IEnd
		m["j_start"] = h.JStart
		m["j_end"] = h.JEnd
		m["length"] = h.Length
		m["helix_energy"] = int64(h.Energy)
	}
	return m
}

func toTrialRecordMap(rec *types.TrialRecord, cfg Config) map[string]any {
	m := baseRecord(RecordKindTrial, cfg)
	m["index"] = rec.Index
	m["helix"] = rec.Helix.String()
	m["i_start"] = rec.Helix.IStart
	m["j_end"] = rec.Helix.JEnd
	m["length"] = rec.Helix.Length
	m["helix_energy"] = int64(rec.Helix.Energy)
	m["outcome"] = rec.Outcome
	m["energy"] = int64(rec.Energy)
	if rec.Unused > 0 {
		m["unused_tracebacks"] = int64(rec.Unused)
	}
	if rec.Error != "" {
		m["error"] = rec.Error
	}
	return m
}

func toRunRecordMap(rec *types.RunRecord, cfg Config) map[string]any {
	m := baseRecord(RecordKindRun, cfg)
	m["attempt"] = rec.Attempt
	m["label"] = rec.Label
	m["length"] = rec.Length
	m["alphabet"] = rec.Alphabet
	m["temperature"] = rec.Temperature
	m["e0"] = int64(rec.E0)
	m["e0_kcal"] = rec.E0.Kcal()
	m["candidates_raw"] = rec.Candidates
	m["candidates_reduced"] = rec.Reduced
	m["trials"] = rec.Accepted + rec.Rejected + rec.Failed
	m["accepted"] = rec.Accepted
	m["rejected"] = rec.Rejected
	m["failed"] = rec.Failed
	m["duplicates"] = rec.Duplicates
	m["structures"] = rec.Structures
	m["pseudoknotted"] = rec.Pseudoknotted
	m["outcome"] = string(rec.Outcome)
	m["version"] = rec.Version
	m["ts"] = rec.Timestamp.UTC().Format(time.RFC3339Nano)
	m["duration_ms"] = rec.DurationMs
	if rec.Message != "" {
		m["message"] = rec.Message
	}
	if rec.JobID != nil {
		m["job_id"] = *rec.JobID
	}
	if rec.ParentRunID != nil {
		m["parent_run_id"] = *rec.ParentRunID
	}
	return m
}

// toMetricsRecordMap flattens a metrics snapshot. Counter names carry a
// _total suffix; dimensions are stored as plain strings.
func toMetricsRecordMap(snap metrics.Snapshot, cfg Config, completedAt time.Time) map[string]any {
	m := baseRecord(RecordKindMetrics, cfg)
	m["ts"] = completedAt.UTC().Format(time.RFC3339Nano)

	m["runs_started_total"] = snap.RunsStarted
	m["runs_completed_total"] = snap.RunsCompleted
	m["runs_failed_total"] = snap.RunsFailed
	m["runs_canceled_total"] = snap.RunsCanceled

	m["candidates_extracted_total"] = snap.CandidatesExtracted
	m["candidates_reduced_total"] = snap.CandidatesReduced
	m["trials_accepted_total"] = snap.TrialsAccepted
	m["trials_rejected_total"] = snap.TrialsRejected
	m["trials_failed_total"] = snap.TrialsFailed
	m["duplicates_dropped_total"] = snap.DuplicatesDropped

	m["records_received_total"] = snap.RecordsReceived
	m["records_persisted_total"] = snap.RecordsPersisted
	m["records_dropped_total"] = snap.RecordsDropped
	m["dropped_by_kind"] = cloneCounts(snap.DroppedByKind)
	m["flush_triggers"] = cloneCounts(snap.FlushTriggers)

	m["lode_write_success_total"] = snap.LodeWriteSuccess
	m["lode_write_failure_total"] = snap.LodeWriteFailure
	m["notify_success_total"] = snap.NotifySuccess
	m["notify_failure_total"] = snap.NotifyFailure

	m["alphabet"] = snap.Alphabet
	m["storage_backend"] = snap.StorageBackend
	if snap.Policy != "" {
		m["policy"] = snap.Policy
	}
	if snap.JobID != "" {
		m["job_id"] = snap.JobID
	}
	return m
}

func cloneCounts(in map[string]int64) map[string]int64 {
	if in == nil {
		return map[string]int64{}
	}
	return maps.Clone(in)
}
