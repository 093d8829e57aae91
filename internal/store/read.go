package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `id, seq, program_hash, module_name, computation, module_scoped, totally_ordered,
		schedule_end, peak_time, peak_bytes, report, warnings, analyzer_version, format_version`

// ReadRun returns a run with its flattened order, spans and ranges.
// Returns an error wrapping sql.ErrNoRows if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.Instructions, err = s.readInstructions(ctx, id); err != nil {
		return Run{}, err
	}
	if run.Spans, err = s.readSpans(ctx, id); err != nil {
		return Run{}, err
	}
	if run.Ranges, err = s.readRanges(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, without their
// instructions, spans or ranges. limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.FindRuns(ctx, RunFilter{}, limit)
}

// LatestRunForProgram returns the most recent run recorded for a program
// hash, computation and scope. Returns an error wrapping sql.ErrNoRows if
// there is none.
func (s *Store) LatestRunForProgram(ctx context.Context, programHash, computation string, moduleScoped bool) (Run, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM runs
		WHERE program_hash = ? AND computation = ? AND module_scoped = ?
		ORDER BY seq DESC
		LIMIT 1
	`, programHash, computation, boolToInt(moduleScoped)).Scan(&id)
	if err != nil {
		return Run{}, fmt.Errorf("latest run for %s: %w", programHash, err)
	}
	return s.ReadRun(ctx, id)
}

// LatestSeq returns the highest recorded run seq, or 0 for an empty store.
// The engine resumes its clock from here.
func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return seq.Int64, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var moduleScoped, totallyOrdered int
	var warningsJSON string
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.ProgramHash,
		&run.Module,
		&run.Computation,
		&moduleScoped,
		&totallyOrdered,
		&run.ScheduleEnd,
		&run.PeakTime,
		&run.PeakBytes,
		&run.Report,
		&warningsJSON,
		&run.AnalyzerVersion,
		&run.FormatVersion,
	)
	if err != nil {
		return Run{}, err
	}
	run.ModuleScoped = moduleScoped != 0
	run.TotallyOrdered = totallyOrdered != 0
	if run.Warnings, err = unmarshalWarnings(warningsJSON); err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) readInstructions(ctx context.Context, runID string) ([]RunInstruction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, instruction, computation
		FROM run_instructions
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run instructions: %w", err)
	}
	defer rows.Close()

	out := []RunInstruction{}
	for rows.Next() {
		var inst RunInstruction
		if err := rows.Scan(&inst.Position, &inst.Name, &inst.Computation); err != nil {
			return nil, fmt.Errorf("scan run instruction: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run instructions: %w", err)
	}
	return out, nil
}

func (s *Store) readSpans(ctx context.Context, runID string) ([]RunSpan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT computation, start_time, end_time
		FROM run_spans
		WHERE run_id = ?
		ORDER BY start_time ASC, computation COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run spans: %w", err)
	}
	defer rows.Close()

	out := []RunSpan{}
	for rows.Next() {
		var span RunSpan
		if err := rows.Scan(&span.Computation, &span.Start, &span.End); err != nil {
			return nil, fmt.Errorf("scan run span: %w", err)
		}
		out = append(out, span)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run spans: %w", err)
	}
	return out, nil
}

func (s *Store) readRanges(ctx context.Context, runID string) ([]RunRange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, start_time, end_time, end_position, size_bytes
		FROM run_ranges
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run ranges: %w", err)
	}
	defer rows.Close()

	out := []RunRange{}
	for rows.Next() {
		var r RunRange
		if err := rows.Scan(&r.Value, &r.Start, &r.End, &r.EndPosition, &r.Size); err != nil {
			return nil, fmt.Errorf("scan run range: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ranges: %w", err)
	}
	return out, nil
}
