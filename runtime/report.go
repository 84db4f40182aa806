package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/types"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string              `json:"run_id"`
	JobID      string              `json:"job_id,omitempty"`
	Attempt    int                 `json:"attempt"`
	Label      string              `json:"label"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`

	Prediction *ReportPrediction `json:"prediction"`
	Policy     *ReportPolicy     `json:"policy"`
	Metrics    *metrics.Snapshot `json:"metrics"`
}

// ReportPrediction holds engine results in the report.
type ReportPrediction struct {
	E0Kcal        float64 `json:"e0_kcal"`
	Candidates    int     `json:"candidates"`
	Reduced       int     `json:"reduced"`
	Accepted      int     `json:"accepted"`
	Rejected      int     `json:"rejected"`
	Failed        int     `json:"failed"`
	Duplicates    int     `json:"duplicates"`
	Structures    int     `json:"structures"`
	Pseudoknotted int     `json:"pseudoknotted"`
	NeedsReview   int     `json:"needs_review"`
	// UnusedTracebacks is non-zero only when max_tracebacks > 1.
	UnusedTracebacks int `json:"unused_tracebacks,omitempty"`
}

// ReportPolicy holds policy stats in the report.
type ReportPolicy struct {
	Name             string           `json:"name"`
	RecordsReceived  int64            `json:"records_received"`
	RecordsPersisted int64            `json:"records_persisted"`
	RecordsDropped   int64            `json:"records_dropped"`
	FlushTriggers    map[string]int64 `json:"flush_triggers,omitempty"`
}

// BuildRunReport composes a RunReport from a PredictionResult and metrics snapshot.
// The policyName is the policy name string (e.g. "strict", "buffered").
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *PredictionResult, snap metrics.Snapshot, policyName string, exitCode int) *RunReport {
	report := &RunReport{
		RunID:      result.RunMeta.RunID,
		Attempt:    result.RunMeta.Attempt,
		Label:      result.Label,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		Policy: &ReportPolicy{
			Name:             policyName,
			RecordsReceived:  result.PolicyStats.TotalRecords,
			RecordsPersisted: result.PolicyStats.RecordsPersisted,
			RecordsDropped:   result.PolicyStats.RecordsDropped,
			FlushTriggers:    result.PolicyStats.FlushTriggerStrings(),
		},
		Metrics: &snap,
	}

	if pred := result.Prediction; pred != nil {
		report.Prediction = &ReportPrediction{
			E0Kcal:        pred.E0().Kcal(),
			Candidates:    pred.Stats.Candidates,
			Reduced:       pred.Stats.Reduced,
			Accepted:      pred.Stats.Accepted,
			Rejected:      pred.Stats.Rejected,
			Failed:        pred.Stats.Failed,
			Duplicates:    pred.Stats.Duplicates,
			Structures:    pred.Aggregate.Len(),
			Pseudoknotted: pred.Stats.Pseudoknotted,
			NeedsReview:   pred.Stats.NeedsReview,

			UnusedTracebacks: pred.Stats.UnusedTracebacks,
		}
	}

	if result.RunMeta.JobID != nil {
		report.JobID = *result.RunMeta.JobID
	}

	return report
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
