package liverange

import (
	"errors"
	"fmt"
)

// ErrNotTotallyOrdered reports that the analyzed computation, or one it
// calls, has no sequence in the schedule. Results of such a run are empty
// and must not be treated as zero-length ranges.
var ErrNotTotallyOrdered = errors.New("schedule is not totally ordered")

// InvariantError is an internal consistency failure of the pass. It means
// the schedule or the alias analysis handed to Run is malformed. The pass
// stops and no partial result is returned.
type InvariantError struct {
	// Code identifies the violated invariant.
	Code InvariantCode

	// Message is a human-readable description.
	Message string

	// Value names the offending value (name{index}), if any.
	Value string

	// Instruction names the offending instruction, if any.
	Instruction string
}

// InvariantCode categorizes invariant violations.
type InvariantCode string

const (
	// ErrCodeStartAfterEnd indicates a computed bound with start > end.
	ErrCodeStartAfterEnd InvariantCode = "START_AFTER_END"

	// ErrCodeDuplicateValue indicates a value whose bound was computed twice.
	ErrCodeDuplicateValue InvariantCode = "DUPLICATE_VALUE"

	// ErrCodeDuplicateInstruction indicates an instruction reached twice
	// while flattening.
	ErrCodeDuplicateInstruction InvariantCode = "DUPLICATE_INSTRUCTION"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	switch {
	case e.Value != "" && e.Instruction != "":
		return fmt.Sprintf("%s: %s (value=%s, instruction=%s)", e.Code, e.Message, e.Value, e.Instruction)
	case e.Instruction != "":
		return fmt.Sprintf("%s: %s (instruction=%s)", e.Code, e.Message, e.Instruction)
	case e.Value != "":
		return fmt.Sprintf("%s: %s (value=%s)", e.Code, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvariantError returns true if err is or wraps an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
