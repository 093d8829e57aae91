package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liverange/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool                       `json:"valid"`
	Module       string                     `json:"module,omitempty"`
	Entry        string                     `json:"entry,omitempty"`
	Computations int                        `json:"computations"`
	Instructions int                        `json:"instructions"`
	Warnings     []compiler.CycleWarning    `json:"warnings,omitempty"`
	Errors       []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Validate a program without analyzing it",
		Long: `Load a CUE program and check it for structural problems.

Performs CUE evaluation, compilation into the program model and the
structural checks (parameters, tuples, control flow, schedule, aliases)
without running the live-range analysis. Recursive computations are
reported as warnings.

Exit codes:
  0 - Program is valid
  1 - Validation failed
  2 - Command error (program not found, does not compile, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, programPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	prog, loadErr := LoadProgram(programPath)
	if loadErr != nil {
		// Load errors are command-level errors (exit code 2)
		return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, posDetails(loadErr))
	}

	formatter.VerboseLog("Compiled module %s from %s", prog.Module.Name(), programPath)

	if errs := compiler.Validate(prog); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	result := summarizeProgram(prog)
	for _, w := range result.Warnings {
		formatter.VerboseLog("Warning: %s", w.Message)
	}
	return outputValidateSuccess(formatter, result)
}

// summarizeProgram counts what a valid program holds.
func summarizeProgram(prog *compiler.Program) ValidationResult {
	m := prog.Module
	result := ValidationResult{
		Valid:        true,
		Module:       m.Name(),
		Computations: len(m.Computations()),
		Warnings:     compiler.AnalyzeCycles(m),
	}
	if entry := m.Entry(); entry != nil {
		result.Entry = entry.Name()
	}
	for _, c := range m.Computations() {
		result.Instructions += len(c.Instructions())
	}
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Program valid: module %s, entry %s (%d computations, %d instructions)\n",
		result.Module, result.Entry, result.Computations, result.Instructions)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w.Message)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
