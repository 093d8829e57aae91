package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liverange/internal/compiler"
	"github.com/roach88/liverange/internal/engine"
	"github.com/roach88/liverange/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database     string
	Computation  string
	ModuleScoped bool
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id] <program>",
		Short: "Re-analyze a program and compare against a recorded run",
		Long: `Replay a recorded run: analyze the program again with the recorded
computation and scope and compare the fresh result against the stored one.

The program must hash to the one the run was recorded with. The replay
itself is not recorded. Without a run ID, the latest run recorded for the
program with --computation and --module-scoped is replayed.

Exit codes:
  0 - Replay is identical to the recorded run
  1 - Replay differs from the recorded run
  2 - Command error (run not found, program mismatch, etc.)

Examples:
  liverange replay 0190a8f2-... ./loop.cue --db ./runs.db
  liverange replay 0190a8f2-... ./loop.cue --db ./runs.db --format json
  liverange replay ./loop.cue --db ./runs.db --computation body`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runReplay(opts, "", args[0], cmd)
			}
			return runReplay(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Computation, "computation", "", "computation of the run to look up when no run ID is given (default: entry)")
	cmd.Flags().BoolVar(&opts.ModuleScoped, "module-scoped", false, "look up a module-scoped run when no run ID is given")

	return cmd
}

func runReplay(opts *ReplayOptions, runID, programPath string, cmd *cobra.Command) error {
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

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	eng := engine.New(st, engine.UUIDv7Generator{}, engine.WithLogger(logger))
	if runID == "" {
		latest, err := eng.LatestRun(ctx, prog, engine.Request{
			Computation:  opts.Computation,
			ModuleScoped: opts.ModuleScoped,
		})
		var ae *engine.AnalysisError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return formatter.Fail(ExitCommandError, ErrCodeRunNotFound,
				fmt.Sprintf("no recorded run for %s", programPath), nil)
		case errors.As(err, &ae):
			return formatter.Fail(ExitCommandError, ErrCodeAnalysis, ae.Error(), nil)
		case err != nil:
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		runID = latest
	}

	result, err := eng.Replay(ctx, prog, runID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("no recorded run %s", runID), nil)
	case errors.Is(err, engine.ErrProgramMismatch):
		return formatter.Fail(ExitCommandError, ErrCodeProgramMismatch, err.Error(), nil)
	case err != nil:
		return formatter.Fail(ExitFailure, ErrCodeAnalysis, err.Error(), nil)
	}

	if opts.Format == "json" {
		if err := formatter.SuccessForRun(result.RunID, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.Identical {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: replay of %s differs in %d places",
			ErrCodeReplayDifference, runID, len(result.Differences)))
	}
	return nil
}

// outputReplayText prints the verdict followed by each difference.
func outputReplayText(formatter *OutputFormatter, result *engine.ReplayResult) {
	w := formatter.Writer
	if result.Identical {
		fmt.Fprintf(w, "✓ Replay of %s is identical\n", result.RunID)
		return
	}
	fmt.Fprintf(w, "✗ Replay of %s differs (%d differences)\n", result.RunID, len(result.Differences))
	for _, d := range result.Differences {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
