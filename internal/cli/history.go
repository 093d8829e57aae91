package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/liverange/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Limit       int
	Module      string
	Computation string
	Program     string // program hash
}

// HistoryEntry is one recorded run in history output.
type HistoryEntry struct {
	Seq            int64  `json:"seq"`
	RunID          string `json:"run_id"`
	Module         string `json:"module"`
	Computation    string `json:"computation"`
	ModuleScoped   bool   `json:"module_scoped"`
	TotallyOrdered bool   `json:"totally_ordered"`
	PeakTime       int64  `json:"peak_time"`
	PeakBytes      int64  `json:"peak_bytes"`
	ProgramHash    string `json:"program_hash"`
}

// HistoryResult holds the history output.
type HistoryResult struct {
	Runs  []HistoryEntry `json:"runs"`
	Total int            `json:"total"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded analysis runs",
		Long: `List analysis runs recorded with analyze --db, newest first.

Runs are ordered by their logical sequence number, never by wall-clock
time. --module, --computation and --program keep only runs that match
exactly.

Examples:
  liverange history --db ./runs.db
  liverange history --db ./runs.db --computation body
  liverange history --db ./runs.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&opts.Module, "module", "", "only runs of this module")
	cmd.Flags().StringVar(&opts.Computation, "computation", "", "only runs of this computation")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only runs of this program hash")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	if opts.Limit <= 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("limit must be positive, got %d", opts.Limit), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	filter := store.RunFilter{
		Module:      opts.Module,
		Computation: opts.Computation,
		ProgramHash: opts.Program,
	}
	runs, err := st.FindRuns(ctx, filter, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to list runs: %v", err), nil)
	}

	result := HistoryResult{
		Runs:  make([]HistoryEntry, 0, len(runs)),
		Total: len(runs),
	}
	for _, r := range runs {
		result.Runs = append(result.Runs, HistoryEntry{
			Seq:            r.Seq,
			RunID:          r.ID,
			Module:         r.Module,
			Computation:    r.Computation,
			ModuleScoped:   r.ModuleScoped,
			TotallyOrdered: r.TotallyOrdered,
			PeakTime:       r.PeakTime,
			PeakBytes:      r.PeakBytes,
			ProgramHash:    r.ProgramHash,
		})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputHistoryText(formatter, result)
}

// outputHistoryText prints one row per run.
func outputHistoryText(formatter *OutputFormatter, result HistoryResult) error {
	if result.Total == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tMODULE\tCOMPUTATION\tSCOPE\tORDERED\tPEAK")
	for _, r := range result.Runs {
		scope := "computation"
		if r.ModuleScoped {
			scope = "module"
		}
		peak := "-"
		if r.TotallyOrdered {
			peak = fmt.Sprintf("%d bytes at %d", r.PeakBytes, r.PeakTime)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%s\n",
			r.Seq, r.RunID, r.Module, r.Computation, scope, r.TotallyOrdered, peak)
	}
	return tw.Flush()
}
