package types

import (
	"errors"
	"fmt"
)

// RunMeta identifies a prediction run and its retry lineage.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be globally unique.
	RunID string
	// JobID groups runs submitted together (a batch). Nil for ad-hoc runs.
	JobID *string
	// ParentRunID links a rerun to the run it repeats. Nil for initial runs.
	ParentRunID *string
	// Attempt starts at 1 for initial runs.
	Attempt int
}

// Validate checks lineage rules:
//   - attempt >= 1
//   - attempt == 1 => no parent_run_id
//   - attempt > 1 => parent_run_id present
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if r.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", r.Attempt)
	}
	if r.Attempt == 1 && r.ParentRunID != nil {
		return errors.New("initial run (attempt=1) must not have parent_run_id")
	}
	if r.Attempt > 1 && r.ParentRunID == nil {
		return fmt.Errorf("rerun (attempt=%d) must have parent_run_id", r.Attempt)
	}
	return nil
}

// OutcomeStatus is the final status of a prediction run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the aggregate was produced and persisted.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeInvalidInput indicates the sequence, probing data or config was rejected.
	OutcomeInvalidInput OutcomeStatus = "invalid_input"
	// OutcomeNoStructure indicates the baseline fold produced nothing.
	OutcomeNoStructure OutcomeStatus = "no_structure"
	// OutcomeStorageFailure indicates persistence failed under the strict policy.
	OutcomeStorageFailure OutcomeStatus = "storage_failure"
	// OutcomeCanceled indicates the run was interrupted.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// RunOutcome is the final outcome of a run.
type RunOutcome struct {
	Status  OutcomeStatus
	Message string
	// Code is the structured error code, when the outcome came from a *Error.
	Code ErrorCode
}
