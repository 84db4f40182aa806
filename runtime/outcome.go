package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/knotfold/types"
)

// Process exit codes for predict and batch.
const (
	ExitCodeSuccess      = 0 // aggregate persisted
	ExitCodeFailure      = 1 // no structure, storage failure or cancellation
	ExitCodeCrash        = 2 // internal error outside the prediction
	ExitCodeInvalidInput = 3 // sequence, probe or configuration rejected
)

// ExitCode maps a run outcome to the process exit code.
func ExitCode(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return ExitCodeSuccess
	case types.OutcomeInvalidInput:
		return ExitCodeInvalidInput
	case types.OutcomeNoStructure, types.OutcomeStorageFailure, types.OutcomeCanceled:
		return ExitCodeFailure
	default:
		return ExitCodeCrash
	}
}

// DetermineOutcome classifies a prediction error. A nil error is success.
//
// Classification order:
//  1. Context cancellation or deadline
//  2. Input codes (sequence, probe, mismatch, config)
//  3. Everything else from the engine is "no structure"
func DetermineOutcome(err error) *types.RunOutcome {
	if err == nil {
		return &types.RunOutcome{
			Status:  types.OutcomeSuccess,
			Message: "prediction completed successfully",
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &types.RunOutcome{
			Status:  types.OutcomeCanceled,
			Message: fmt.Sprintf("prediction canceled: %v", err),
		}
	}

	code := types.CodeOf(err)
	switch code {
	case types.CodeInvalidSequence, types.CodeInvalidProbe, types.CodeMismatch, types.CodeConfig:
		return &types.RunOutcome{
			Status:  types.OutcomeInvalidInput,
			Message: err.Error(),
			Code:    code,
		}
	default:
		return &types.RunOutcome{
			Status:  types.OutcomeNoStructure,
			Message: err.Error(),
			Code:    code,
		}
	}
}

// storageFailure builds the outcome for a policy or sink error.
func storageFailure(stage string, err error) *types.RunOutcome {
	return &types.RunOutcome{
		Status:  types.OutcomeStorageFailure,
		Message: fmt.Sprintf("%s: %v", stage, err),
	}
}
