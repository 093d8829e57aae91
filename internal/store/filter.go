package store

import (
	"context"
	"fmt"
	"strings"
)

// RunFilter selects recorded runs by exact match. Empty fields and a nil
// ModuleScoped match every run.
type RunFilter struct {
	Module       string
	Computation  string
	ProgramHash  string
	ModuleScoped *bool
}

// where compiles the filter to a WHERE clause with ? placeholders.
// Columns appear in a fixed order so equal filters compile to equal SQL.
// Values are never interpolated.
func (f RunFilter) where() (string, []any) {
	var clauses []string
	var params []any
	add := func(column string, value any) {
		clauses = append(clauses, column+" = ?")
		params = append(params, value)
	}

	if f.Module != "" {
		add("module_name", f.Module)
	}
	if f.Computation != "" {
		add("computation", f.Computation)
	}
	if f.ProgramHash != "" {
		add("program_hash", f.ProgramHash)
	}
	if f.ModuleScoped != nil {
		add("module_scoped", boolToInt(*f.ModuleScoped))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}

// FindRuns returns the runs matching filter, newest first, without their
// instructions, spans or ranges. limit <= 0 returns every match.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) FindRuns(ctx context.Context, filter RunFilter, limit int) ([]Run, error) {
	where, args := filter.where()
	query := `SELECT ` + runColumns + ` FROM runs` + where + ` ORDER BY seq DESC, id COLLATE BINARY ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
