package cli

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/liverange/internal/compiler"
)

// LoadError represents an error that occurred during program loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProgram loads and compiles a CUE program from a file or directory.
// Every failure is returned as a *LoadError carrying a CLI error code.
func LoadProgram(path string) (*compiler.Program, *LoadError) {
	prog, err := compiler.LoadProgram(path)
	if err != nil {
		return nil, convertLoadError(err)
	}
	return prog, nil
}

// convertLoadError maps loader sentinels and compile errors to a LoadError
// with position info.
func convertLoadError(err error) *LoadError {
	var compileErr *compiler.CompileError
	switch {
	case errors.Is(err, compiler.ErrNotFound):
		return &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, compiler.ErrNoFiles):
		return &LoadError{Code: ErrCodeNoFiles, Message: err.Error()}
	case errors.Is(err, compiler.ErrLoadFailed):
		return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	case errors.Is(err, compiler.ErrBuildFailed):
		return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	case errors.As(err, &compileErr):
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Database open or query failed

	// Analysis errors
	ErrCodeAnalysis         = "E010" // Engine returned an error
	ErrCodeNotTotalOrder    = "E011" // Schedule is not totally ordered
	ErrCodeRunNotFound      = "E012" // No recorded run with that ID
	ErrCodeProgramMismatch  = "E013" // Program hash differs from the recorded run
	ErrCodeReplayDifference = "E014" // Replay differs from the recorded run
	ErrCodeTestFailed       = "E015" // One or more scenarios failed

	// Program compile errors
	ErrCodeInvalidModule      = "E101" // module block missing or malformed
	ErrCodeInvalidComputation = "E102" // computation missing or malformed
	ErrCodeInvalidInstruction = "E103" // instruction field missing or malformed
	ErrCodeInvalidShape       = "E104" // shape string does not parse
	ErrCodeUnknownReference   = "E105" // operand, callee or root names nothing
	ErrCodeInvalidSchedule    = "E106" // schedule names an unknown instruction
	ErrCodeInvalidAlias       = "E107" // alias or buffer group malformed
	ErrCodeCUESyntax          = "E108" // CUE evaluation error
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeCUESyntax
	case field == "module.alias" || field == "buffers":
		return ErrCodeInvalidAlias
	case field == "module" || strings.HasPrefix(field, "module."):
		return ErrCodeInvalidModule
	case field == "instruction.shape":
		return ErrCodeInvalidShape
	case field == "instruction.operands" || field == "instruction.calls" || field == "computation.root":
		return ErrCodeUnknownReference
	case strings.HasSuffix(field, ".schedule"):
		return ErrCodeInvalidSchedule
	case field == "instructions" || strings.HasPrefix(field, "instruction."):
		return ErrCodeInvalidInstruction
	case field == "computation" || strings.HasPrefix(field, "computation."):
		return ErrCodeInvalidComputation
	default:
		return ErrCodeGeneric
	}
}
