package reader

import (
	"errors"

	"github.com/justapithecus/knotfold/lode"
	"github.com/justapithecus/knotfold/types"
)

// ParseRunRecord converts a Lode run record to a RunSummary.
func ParseRunRecord(record map[string]any) (RunSummary, error) {
	if record == nil {
		return RunSummary{}, errors.New("nil record")
	}
	s := RunSummary{
		RunID:         lode.StringField(record, "run_id"),
		Label:         lode.StringField(record, "label"),
		Outcome:       lode.StringField(record, "outcome"),
		Attempt:       lode.Int64Field(record, "attempt"),
		Length:        lode.Int64Field(record, "length"),
		E0Kcal:        kcal(record, "e0"),
		Structures:    lode.Int64Field(record, "structures"),
		Pseudoknotted: lode.Int64Field(record, "pseudoknotted"),
		Source:        lode.StringField(record, "source"),
		Category:      lode.StringField(record, "category"),
		Ts:            lode.StringField(record, "ts"),
	}
	if s.RunID == "" {
		return RunSummary{}, errors.New("run record missing required field: run_id")
	}
	if s.Outcome == "" {
		return RunSummary{}, errors.New("run record missing required field: outcome")
	}
	return s, nil
}

// ParseRunRecords assembles a RunDetail from everything Lode holds for a run.
func ParseRunRecords(recs *lode.RunRecords) (*RunDetail, error) {
	if recs == nil {
		return nil, errors.New("nil run records")
	}
	summary, err := ParseRunRecord(recs.Run)
	if err != nil {
		return nil, err
	}

	run := recs.Run
	d := &RunDetail{
		RunID:       summary.RunID,
		JobID:       lode.StringField(run, "job_id"),
		Label:       summary.Label,
		Outcome:     summary.Outcome,
		Message:     lode.StringField(run, "message"),
		Attempt:     summary.Attempt,
		Alphabet:    lode.StringField(run, "alphabet"),
		Length:      summary.Length,
		Temperature: toFloat64(run["temperature"]),
		E0Kcal:      summary.E0Kcal,
		Candidates:  lode.Int64Field(run, "candidates_raw"),
		Reduced:     lode.Int64Field(run, "candidates_reduced"),
		Accepted:    lode.Int64Field(run, "accepted"),
		Rejected:    lode.Int64Field(run, "rejected"),
		Failed:      lode.Int64Field(run, "failed"),
		Duplicates:  lode.Int64Field(run, "duplicates"),
		Version:     lode.StringField(run, "version"),
		Ts:          summary.Ts,
		Structures:  make([]StructureView, 0, len(recs.Structures)),
	}
	for _, rec := range recs.Structures {
		d.Structures = append(d.Structures, ParseStructureRecord(rec))
	}
	for _, rec := range recs.Trials {
		d.Trials = append(d.Trials, ParseTrialRecord(rec))
	}
	return d, nil
}

// ParseStructureRecord converts a Lode structure record.
func ParseStructureRecord(record map[string]any) StructureView {
	v := StructureView{
		Rank:          int(lode.Int64Field(record, "rank")),
		EnergyKcal:    kcal(record, "energy"),
		Baseline:      toBool(record["baseline"]),
		Pseudoknotted: toBool(record["pseudoknotted"]),
		NeedsReview:   toBool(record["needs_review"]),
		DotBracket:    lode.StringField(record, "dot_bracket"),
	}
	if _, ok := record["length"]; ok && !v.Baseline {
		v.Helix = types.Helix{
			IStart: int(lode.Int64Field(record, "i_start")),
			IEnd:   int(lode.Int64Field(record, "i_end")),
			JStart: int(lode.Int64Field(record, "j_start")),
			JEnd:   int(lode.Int64Field(record, "j_end")),
			Length: int(lode.Int64Field(record, "length")),
		}.String()
	}
	return v
}

// ParseTrialRecord converts a Lode trial record.
func ParseTrialRecord(record map[string]any) TrialView {
	return TrialView{
		Index:      int(lode.Int64Field(record, "index")),
		Helix:      lode.StringField(record, "helix"),
		Outcome:    lode.StringField(record, "outcome"),
		EnergyKcal: kcal(record, "energy"),
		Error:      lode.StringField(record, "error"),
	}
}

// ParseMetricsRecord converts a Lode metrics record to a MetricsSnapshot.
func ParseMetricsRecord(record map[string]any) (*MetricsSnapshot, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	snap := &MetricsSnapshot{
		Ts: lode.StringField(record, "ts"),

		RunsStarted:   lode.Int64Field(record, "runs_started_total"),
		RunsCompleted: lode.Int64Field(record, "runs_completed_total"),
		RunsFailed:    lode.Int64Field(record, "runs_failed_total"),
		RunsCanceled:  lode.Int64Field(record, "runs_canceled_total"),

		CandidatesExtracted: lode.Int64Field(record, "candidates_extracted_total"),
		CandidatesReduced:   lode.Int64Field(record, "candidates_reduced_total"),
		TrialsAccepted:      lode.Int64Field(record, "trials_accepted_total"),
		TrialsRejected:      lode.Int64Field(record, "trials_rejected_total"),
		TrialsFailed:        lode.Int64Field(record, "trials_failed_total"),
		DuplicatesDropped:   lode.Int64Field(record, "duplicates_dropped_total"),

		RecordsReceived:  lode.Int64Field(record, "records_received_total"),
		RecordsPersisted: lode.Int64Field(record, "records_persisted_total"),
		RecordsDropped:   lode.Int64Field(record, "records_dropped_total"),
		DroppedByKind:    parseCounts(record["dropped_by_kind"]),
		FlushTriggers:    parseCounts(record["flush_triggers"]),

		LodeWriteSuccess: lode.Int64Field(record, "lode_write_success_total"),
		LodeWriteFailure: lode.Int64Field(record, "lode_write_failure_total"),
		NotifySuccess:    lode.Int64Field(record, "notify_success_total"),
		NotifyFailure:    lode.Int64Field(record, "notify_failure_total"),

		Policy:         lode.StringField(record, "policy"),
		Alphabet:       lode.StringField(record, "alphabet"),
		StorageBackend: lode.StringField(record, "storage_backend"),
		RunID:          lode.StringField(record, "run_id"),
		JobID:          lode.StringField(record, "job_id"),
	}

	// The write path always sets these; a gap means a malformed record.
	if snap.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if snap.RunID == "" {
		return nil, errors.New("metrics record missing required field: run_id")
	}
	if snap.Policy == "" {
		return nil, errors.New("metrics record missing required field: policy")
	}
	if snap.StorageBackend == "" {
		return nil, errors.New("metrics record missing required field: storage_backend")
	}

	return snap, nil
}

// kcal reads a deci-kcal integer field as kcal/mol.
func kcal(record map[string]any, key string) float64 {
	return types.Energy(lode.Int64Field(record, key)).Kcal()
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// parseCounts accepts map[string]int64 from in-memory records and
// map[string]any from JSONL.
func parseCounts(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		return m
	case map[string]any:
		result := make(map[string]int64, len(m))
		for k, val := range m {
			result[k] = int64(toFloat64(val))
		}
		return result
	default:
		return nil
	}
}
