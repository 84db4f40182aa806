package runtime

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justapithecus/knotfold/knot"
	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/policy"
	"github.com/justapithecus/knotfold/types"
)

func newTestPredictionResult(t *testing.T) *PredictionResult {
	t.Helper()
	jobID := "job-001"
	base, err := types.StructureFromPairs(12, [2]int{1, 12}, [2]int{2, 11})
	if err != nil {
		t.Fatalf("StructureFromPairs: %v", err)
	}
	base.Energy = -42

	return &PredictionResult{
		RunMeta: &types.RunMeta{
			RunID:   "run-001",
			JobID:   &jobID,
			Attempt: 1,
		},
		Label: "kissing",
		Outcome: &types.RunOutcome{
			Status:  types.OutcomeSuccess,
			Message: "prediction completed successfully",
		},
		Duration: 5 * time.Second,
		PolicyStats: policy.Stats{
			TotalRecords:     12,
			RecordsPersisted: 10,
			RecordsDropped:   2,
			FlushTriggers:    map[policy.FlushTrigger]int64{policy.FlushTriggerCount: 3, policy.FlushTriggerClose: 1},
		},
		Prediction: &knot.Prediction{
			Baseline: base,
			Aggregate: types.Aggregate{Entries: []types.Entry{
				{Structure: base, Baseline: true},
			}},
			Stats: knot.Stats{Candidates: 40, Reduced: 9, Accepted: 3, Rejected: 5, Failed: 1, Duplicates: 2},
		},
	}
}

func newTestSnapshot() metrics.Snapshot {
	return metrics.Snapshot{
		RunsStarted:      1,
		RunsCompleted:    1,
		RecordsReceived:  12,
		RecordsPersisted: 10,
		LodeWriteSuccess: 4,
		Policy:           "buffered",
		Alphabet:         "rna",
		StorageBackend:   "fs",
		RunID:            "run-001",
		JobID:            "job-001",
	}
}

func TestBuildRunReport_Success(t *testing.T) {
	report := BuildRunReport(newTestPredictionResult(t), newTestSnapshot(), "buffered", 0)

	if report.RunID != "run-001" || report.JobID != "job-001" || report.Attempt != 1 {
		t.Errorf("identity = %s/%s/%d", report.RunID, report.JobID, report.Attempt)
	}
	if report.Label != "kissing" || report.Outcome != types.OutcomeSuccess || report.ExitCode != 0 {
		t.Errorf("label/outcome/exit = %s/%s/%d", report.Label, report.Outcome, report.ExitCode)
	}
	if report.DurationMs != 5000 {
		t.Errorf("DurationMs = %d, want 5000", report.DurationMs)
	}

	p := report.Prediction
	if p == nil {
		t.Fatal("Prediction should be set")
	}
	if p.E0Kcal != -4.2 || p.Structures != 1 || p.Candidates != 40 || p.Reduced != 9 {
		t.Errorf("prediction = %+v", p)
	}
	if p.Accepted != 3 || p.Rejected != 5 || p.Failed != 1 || p.Duplicates != 2 {
		t.Errorf("trial counts = %+v", p)
	}

	pol := report.Policy
	if pol.Name != "buffered" || pol.RecordsReceived != 12 || pol.RecordsPersisted != 10 || pol.RecordsDropped != 2 {
		t.Errorf("policy = %+v", pol)
	}
	if pol.FlushTriggers["count"] != 3 || pol.FlushTriggers["close"] != 1 {
		t.Errorf("flush triggers = %v", pol.FlushTriggers)
	}
	if report.Metrics == nil || report.Metrics.Policy != "buffered" {
		t.Errorf("metrics = %+v", report.Metrics)
	}
}

func TestBuildRunReport_Failure(t *testing.T) {
	result := newTestPredictionResult(t)
	result.RunMeta.JobID = nil
	result.Prediction = nil
	result.Outcome = &types.RunOutcome{
		Status:  types.OutcomeNoStructure,
		Message: "baseline fold returned no structure",
	}
	result.PolicyStats.FlushTriggers = nil

	report := BuildRunReport(result, newTestSnapshot(), "strict", ExitCodeFailure)

	if report.Outcome != types.OutcomeNoStructure || report.ExitCode != ExitCodeFailure {
		t.Errorf("outcome/exit = %s/%d", report.Outcome, report.ExitCode)
	}
	if report.Prediction != nil {
		t.Errorf("Prediction = %+v, want nil", report.Prediction)
	}
	if report.JobID != "" {
		t.Errorf("JobID = %q, want empty", report.JobID)
	}
}

func TestWriteRunReport_JSONShape(t *testing.T) {
	report := BuildRunReport(newTestPredictionResult(t), newTestSnapshot(), "buffered", 0)

	var buf bytes.Buffer
	if err := writeRunReportTo(report, &buf); err != nil {
		t.Fatalf("writeRunReportTo: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"run_id", "job_id", "attempt", "label", "outcome", "message", "exit_code", "duration_ms", "prediction", "policy", "metrics"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	pred, _ := decoded["prediction"].(map[string]any)
	if pred["e0_kcal"] != -4.2 {
		t.Errorf("e0_kcal = %v", pred["e0_kcal"])
	}
	if buf.Bytes()[buf.Len()-1] != '\n' {
		t.Error("report should end with a newline")
	}
}

func TestWriteRunReport_OmitsEmptyJobID(t *testing.T) {
	result := newTestPredictionResult(t)
	result.RunMeta.JobID = nil
	report := BuildRunReport(result, newTestSnapshot(), "strict", 0)

	var buf bytes.Buffer
	if err := writeRunReportTo(report, &buf); err != nil {
		t.Fatalf("writeRunReportTo: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["job_id"]; ok {
		t.Error("job_id should be omitted when empty")
	}
}

func TestWriteRunReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := BuildRunReport(newTestPredictionResult(t), newTestSnapshot(), "buffered", 0)

	if err := WriteRunReport(report, path); err != nil {
		t.Fatalf("WriteRunReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded RunReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.RunID != "run-001" || decoded.Prediction == nil || decoded.Prediction.Structures != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteRunReport_EmptyPath(t *testing.T) {
	report := BuildRunReport(newTestPredictionResult(t), newTestSnapshot(), "strict", 0)
	if err := WriteRunReport(report, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWriteRunReport_BadDirectory(t *testing.T) {
	report := BuildRunReport(newTestPredictionResult(t), newTestSnapshot(), "strict", 0)
	path := filepath.Join(t.TempDir(), "missing", "report.json")
	if err := WriteRunReport(report, path); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
