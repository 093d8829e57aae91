package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liverange/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run",
		Long: `Show one recorded run: its report, flattened order, computation spans
and value ranges.

Examples:
  liverange show 0190a8f2-... --db ./runs.db
  liverange show 0190a8f2-... --db ./runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("no recorded run %s", runID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to read run: %v", err), nil)
	}

	if opts.Format == "json" {
		return formatter.SuccessForRun(run.ID, run)
	}
	return outputShowText(formatter, run)
}

// outputShowText prints the run header, spans and stored report.
func outputShowText(formatter *OutputFormatter, run store.Run) error {
	w := formatter.Writer

	scope := "computation"
	if run.ModuleScoped {
		scope = "module"
	}
	fmt.Fprintf(w, "Run: %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "Module: %s\n", run.Module)
	fmt.Fprintf(w, "Computation: %s (%s scoped)\n", run.Computation, scope)
	fmt.Fprintf(w, "Program hash: %s\n", run.ProgramHash)
	fmt.Fprintf(w, "Analyzer: %s (format %s)\n", run.AnalyzerVersion, run.FormatVersion)
	if run.TotallyOrdered {
		fmt.Fprintf(w, "Peak: %d bytes at %d\n", run.PeakBytes, run.PeakTime)
	} else {
		fmt.Fprintln(w, "Peak: - (schedule is not totally ordered)")
	}
	for _, warning := range run.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	if len(run.Spans) > 0 {
		fmt.Fprintln(w, "Spans:")
		for _, s := range run.Spans {
			fmt.Fprintf(w, "  %s: [%d, %d)\n", s.Computation, s.Start, s.End)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, run.Report)
	return nil
}
