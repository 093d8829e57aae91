package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/liverange/internal/compiler"
	"github.com/roach88/liverange/internal/engine"
	"github.com/roach88/liverange/internal/liverange"
	"github.com/roach88/liverange/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Computation  string
	ModuleScoped bool
	Database     string // optional - record the run
	Output       string // optional - write output to a file instead of stdout

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RangeOutput is the live range of one value in analyze output.
type RangeOutput struct {
	Value       string `json:"value"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	EndPosition string `json:"end_position"`
	Size        int64  `json:"size"`
}

// AnalyzeResult is the JSON payload of the analyze command.
type AnalyzeResult struct {
	RunID          string         `json:"run_id"`
	Seq            int64          `json:"seq"`
	Recorded       bool           `json:"recorded"`
	ProgramHash    string         `json:"program_hash"`
	Module         string         `json:"module"`
	Computation    string         `json:"computation"`
	ModuleScoped   bool           `json:"module_scoped"`
	TotallyOrdered bool           `json:"totally_ordered"`
	ScheduleEnd    int64          `json:"schedule_end"`
	Peak           liverange.Peak `json:"peak"`
	Sequence       []string       `json:"sequence"`
	Ranges         []RangeOutput  `json:"ranges"`
	Warnings       []string       `json:"warnings"`
	Report         string         `json:"report"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <program>",
		Short: "Compute buffer live ranges and peak memory",
		Long: `Analyze one computation of a CUE program.

The schedule is flattened into one global order, each value gets a live
range, aliased values sharing a buffer are made disjoint, and the moment
of peak memory is reported.

With --db the run is recorded for history, show and replay.

Exit codes:
  0 - Analysis complete
  1 - Schedule is not totally ordered (ranges are empty) or analysis failed
  2 - Command error (program not found, invalid program, etc.)

Examples:
  liverange analyze ./loop.cue
  liverange analyze ./loop.cue --module-scoped --db ./runs.db
  liverange analyze ./programs --computation body --format json
  liverange analyze ./loop.cue --output report.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Computation, "computation", "c", "", "computation to analyze (default: module entry)")
	cmd.Flags().BoolVar(&opts.ModuleScoped, "module-scoped", false, "inline called computations into one global order")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the run")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write output to file")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, programPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	prog, loadErr := LoadProgram(programPath)
	if loadErr != nil {
		return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, posDetails(loadErr))
	}
	if errs := compiler.Validate(prog); len(errs) > 0 {
		return formatter.Fail(ExitCommandError, errs[0].Code, errs[0].Message, errs)
	}
	formatter.VerboseLog("Loaded module %s from %s", prog.Module.Name(), programPath)

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}

	var eng *engine.Engine
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		// Resume the logical clock after the latest recorded run
		latest, err := st.LatestSeq(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read latest seq: %v", err), nil)
		}
		eng = engine.NewWithClock(st, runIDs, engine.NewClockAt(latest), engine.WithLogger(logger))
	} else {
		eng = engine.New(nil, runIDs, engine.WithLogger(logger))
	}

	a, err := eng.Analyze(ctx, prog, engine.Request{
		Computation:  opts.Computation,
		ModuleScoped: opts.ModuleScoped,
	})
	if err != nil {
		if engine.IsUnknownComputation(err) {
			return formatter.Fail(ExitCommandError, ErrCodeAnalysis, err.Error(), nil)
		}
		return formatter.Fail(ExitFailure, ErrCodeAnalysis, err.Error(), nil)
	}

	result, err := buildAnalyzeResult(a, opts.Database != "")
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeAnalysis, err.Error(), nil)
	}

	var out io.Closer
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("failed to create output file: %v", err), nil)
		}
		out = f
		formatter.Writer = f
	}

	if err := writeAnalyzeOutput(formatter, out, result); err != nil {
		return err
	}

	if !result.TotallyOrdered {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: schedule of %s is not totally ordered; live ranges are empty\n", result.Computation)
		return NewExitError(ExitFailure, fmt.Sprintf("%s: schedule is not totally ordered", ErrCodeNotTotalOrder))
	}
	return nil
}

// writeAnalyzeOutput writes result and then closes out, when set.
func writeAnalyzeOutput(formatter *OutputFormatter, out io.Closer, result AnalyzeResult) error {
	if err := outputAnalyze(formatter, result); err != nil {
		if out != nil {
			_ = out.Close()
		}
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if out != nil {
		if err := out.Close(); err != nil {
			return WrapExitError(ExitCommandError, "failed to close output file", err)
		}
	}
	return nil
}

// buildAnalyzeResult copies an analysis into the command payload.
func buildAnalyzeResult(a *engine.Analysis, recorded bool) (AnalyzeResult, error) {
	result := AnalyzeResult{
		RunID:          a.RunID,
		Seq:            a.Seq,
		Recorded:       recorded,
		ProgramHash:    a.ProgramHash,
		Module:         a.Module,
		Computation:    a.Computation,
		ModuleScoped:   a.ModuleScoped,
		TotallyOrdered: a.TotallyOrdered,
		ScheduleEnd:    a.LiveRange.ScheduleEndTime(),
		Peak:           a.Peak,
		Sequence:       []string{},
		Ranges:         []RangeOutput{},
		Warnings:       []string{},
		Report:         a.Report,
	}
	for _, w := range a.Warnings {
		result.Warnings = append(result.Warnings, w.Message)
	}
	if !a.TotallyOrdered {
		return result, nil
	}

	for _, inst := range a.LiveRange.Timeline().Sequence() {
		result.Sequence = append(result.Sequence, inst.Name)
	}
	for _, v := range a.LiveRange.Values() {
		bound, _ := a.LiveRange.Bound(v)
		size, err := liverange.DefaultSizeFunc(v)
		if err != nil {
			return AnalyzeResult{}, fmt.Errorf("size of %s: %w", v, err)
		}
		result.Ranges = append(result.Ranges, RangeOutput{
			Value:       v.String(),
			Start:       bound.Start,
			End:         bound.End,
			EndPosition: bound.EndPosition.String(),
			Size:        size,
		})
	}
	return result, nil
}

// outputAnalyze writes the report (text) or the full payload (json).
func outputAnalyze(formatter *OutputFormatter, result AnalyzeResult) error {
	if formatter.Format == "json" {
		return formatter.SuccessForRun(result.RunID, result)
	}

	w := formatter.Writer
	for _, warning := range result.Warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", warning)
	}
	if _, err := io.WriteString(w, result.Report); err != nil {
		return err
	}
	if result.Recorded {
		fmt.Fprintf(formatter.GetErrWriter(), "Recorded run %s (seq %d)\n", result.RunID, result.Seq)
	}
	return nil
}

// posDetails returns CUE position details for a load error, or nil.
func posDetails(e *LoadError) interface{} {
	if !e.Pos.IsValid() {
		return nil
	}
	return map[string]interface{}{
		"file":   e.Pos.Filename(),
		"line":   e.Pos.Line(),
		"column": e.Pos.Column(),
	}
}
