package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a knotfold error.
type ErrorCode int

// Error codes. Input errors come from the sequence and probing collaborators
// before the engine runs; the engine itself only reports CodeNoStructure.
const (
	CodeInvalidSequence ErrorCode = 1000
	CodeInvalidProbe    ErrorCode = 2000
	CodeMismatch        ErrorCode = 3000
	CodeNoStructure     ErrorCode = 4000
	CodeConfig          ErrorCode = 5000
)

var codeNames = map[ErrorCode]string{
	CodeInvalidSequence: "invalid sequence",
	CodeInvalidProbe:    "invalid probing data",
	CodeMismatch:        "sequence type mismatch",
	CodeNoStructure:     "no structure",
	CodeConfig:          "invalid configuration",
}

// String returns the human-readable code name.
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("error %d", int(c))
}

// Error is an immutable structured error. It is built once where the
// failure is detected and only formatted at the system boundary.
type Error struct {
	Code ErrorCode
	// Context names where the failure happened (file path, component).
	Context string
	// Detail describes the failure.
	Detail string
	// Err is an optional underlying cause.
	Err error
}

// NewError creates a structured error.
func NewError(code ErrorCode, context, detail string) *Error {
	return &Error{Code: code, Context: context, Detail: detail}
}

// WrapError creates a structured error around a cause.
func WrapError(code ErrorCode, context string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{Code: code, Context: context, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (%d) in %s: %s", e.Code, int(e.Code), e.Context, e.Detail)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, int(e.Code), e.Detail)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so the Err* sentinels
// below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code && t.Context == "" && t.Detail == ""
	}
	return false
}

// Sentinels for errors.Is checks by code.
var (
	ErrInvalidSequence = &Error{Code: CodeInvalidSequence}
	ErrInvalidProbe    = &Error{Code: CodeInvalidProbe}
	ErrMismatch        = &Error{Code: CodeMismatch}
	ErrNoStructure     = &Error{Code: CodeNoStructure}
	ErrConfig          = &Error{Code: CodeConfig}
)

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
