package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateRun is returned when a run ID or seq is already recorded.
var ErrDuplicateRun = errors.New("run already recorded")

// WriteRun inserts a run with its flattened order, spans and ranges in a
// single transaction. Either all rows persist or none do.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	warningsJSON, err := marshalWarnings(run.Warnings)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, program_hash, module_name, computation, module_scoped, totally_ordered,
		 schedule_end, peak_time, peak_bytes, report, warnings, analyzer_version, format_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.ProgramHash,
		run.Module,
		run.Computation,
		boolToInt(run.ModuleScoped),
		boolToInt(run.TotallyOrdered),
		run.ScheduleEnd,
		run.PeakTime,
		run.PeakBytes,
		run.Report,
		warningsJSON,
		run.AnalyzerVersion,
		run.FormatVersion,
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("write run %s: %w", run.ID, ErrDuplicateRun)
		}
		return fmt.Errorf("write run: %w", err)
	}

	if err := writeInstructions(ctx, tx, run); err != nil {
		return err
	}
	if err := writeSpans(ctx, tx, run); err != nil {
		return err
	}
	if err := writeRanges(ctx, tx, run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeInstructions(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_instructions (run_id, position, instruction, computation)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run instructions: %w", err)
	}
	defer stmt.Close()

	for _, inst := range run.Instructions {
		if _, err := stmt.ExecContext(ctx, run.ID, inst.Position, inst.Name, inst.Computation); err != nil {
			return fmt.Errorf("write run instruction %d: %w", inst.Position, err)
		}
	}
	return nil
}

func writeSpans(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_spans (run_id, computation, start_time, end_time)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run spans: %w", err)
	}
	defer stmt.Close()

	for _, span := range run.Spans {
		if _, err := stmt.ExecContext(ctx, run.ID, span.Computation, span.Start, span.End); err != nil {
			return fmt.Errorf("write run span %s: %w", span.Computation, err)
		}
	}
	return nil
}

func writeRanges(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_ranges (run_id, ordinal, value, start_time, end_time, end_position, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run ranges: %w", err)
	}
	defer stmt.Close()

	for i, r := range run.Ranges {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Value, r.Start, r.End, r.EndPosition, r.Size); err != nil {
			return fmt.Errorf("write run range %s: %w", r.Value, err)
		}
	}
	return nil
}

// isConstraintError reports whether err is a SQLite UNIQUE or PRIMARY KEY
// violation.
func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
