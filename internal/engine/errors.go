package engine

import (
	"errors"
	"fmt"
)

// AnalysisError represents a failure of one analysis run.
//
// Analysis errors include:
//   - Unknown computation: the request names a computation the module lacks
//   - Dataflow failure: values or buffers could not be derived
//   - Invariant violation: the live-range pass found inconsistent input
//   - Size failure: a value's byte size could not be computed
//   - Record failure: the run could not be written to the store
//
// A schedule that is not totally ordered is NOT an AnalysisError. The
// run completes with TotallyOrdered false.
type AnalysisError struct {
	// Code identifies the error category.
	Code AnalysisErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, once one has been issued.
	RunID string

	// Computation names the analyzed computation, if known.
	Computation string

	// Err is the underlying cause.
	Err error
}

// AnalysisErrorCode categorizes analysis errors.
type AnalysisErrorCode string

const (
	// ErrCodeUnknownComputation indicates the requested computation does not exist.
	ErrCodeUnknownComputation AnalysisErrorCode = "UNKNOWN_COMPUTATION"

	// ErrCodeDataflow indicates values or buffers could not be built.
	ErrCodeDataflow AnalysisErrorCode = "DATAFLOW_FAILED"

	// ErrCodeInvariant indicates the live-range pass aborted on an invariant.
	ErrCodeInvariant AnalysisErrorCode = "INVARIANT_VIOLATED"

	// ErrCodeSize indicates a value size could not be computed.
	ErrCodeSize AnalysisErrorCode = "SIZE_FAILED"

	// ErrCodeRecord indicates the run could not be stored.
	ErrCodeRecord AnalysisErrorCode = "RECORD_FAILED"
)

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.RunID != "" && e.Computation != "":
		msg = fmt.Sprintf("%s (run=%s, computation=%s)", msg, e.RunID, e.Computation)
	case e.Computation != "":
		msg = fmt.Sprintf("%s (computation=%s)", msg, e.Computation)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// IsInvariantError returns true if the error is an aborted live-range pass.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeInvariant
	}
	return false
}

// IsUnknownComputation returns true if the request named a missing
// computation.
func IsUnknownComputation(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeUnknownComputation
	}
	return false
}

func newAnalysisError(code AnalysisErrorCode, computation, message string, err error) *AnalysisError {
	return &AnalysisError{
		Code:        code,
		Message:     message,
		Computation: computation,
		Err:         err,
	}
}
