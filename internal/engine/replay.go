package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/liverange/internal/compiler"
	"github.com/roach88/liverange/internal/ir"
	"github.com/roach88/liverange/internal/store"
)

// ErrProgramMismatch is returned by Replay when the program does not hash
// to the one the run was recorded with.
var ErrProgramMismatch = errors.New("program does not match recorded run")

// ReplayResult compares a fresh analysis against a recorded run.
type ReplayResult struct {
	RunID       string   `json:"run_id"`
	ProgramHash string   `json:"program_hash"`
	Identical   bool     `json:"identical"`
	Differences []string `json:"differences"`
}

// Replay re-analyzes prog with the computation and scope recorded for runID
// and reports every difference from the stored result. The replay itself
// is not recorded.
//
// The program hash covers everything the analysis reads (module, schedule
// and explicit buffer groups), so once the hashes match any difference
// means the analyzer changed between the two runs.
func (e *Engine) Replay(ctx context.Context, prog *compiler.Program, runID string) (*ReplayResult, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}

	recorded, err := e.store.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	a, err := e.analyze(ctx, prog, Request{
		Computation:  recorded.Computation,
		ModuleScoped: recorded.ModuleScoped,
	})
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}
	if a.ProgramHash != recorded.ProgramHash {
		return nil, fmt.Errorf("replay %s: %w (recorded %s, got %s)", runID, ErrProgramMismatch, recorded.ProgramHash, a.ProgramHash)
	}

	fresh, err := e.toRecord(a)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	result := &ReplayResult{
		RunID:       runID,
		ProgramHash: recorded.ProgramHash,
		Differences: diffRuns(recorded, fresh),
	}
	result.Identical = len(result.Differences) == 0

	e.logger.Info("replay complete",
		"run_id", runID,
		"identical", result.Identical,
		"differences", len(result.Differences),
	)
	return result, nil
}

// LatestRun returns the ID of the most recent run recorded for prog with the
// computation and scope in req. The error wraps sql.ErrNoRows when prog was
// never analyzed that way.
func (e *Engine) LatestRun(ctx context.Context, prog *compiler.Program, req Request) (string, error) {
	if e.store == nil {
		return "", ErrNoStore
	}
	comp, err := resolveComputation(prog.Module, req.Computation)
	if err != nil {
		return "", err
	}
	hash, err := ir.ProgramHash(prog.Module, prog.Schedule, prog.AliasGroups)
	if err != nil {
		return "", fmt.Errorf("hash program: %w", err)
	}
	run, err := e.store.LatestRunForProgram(ctx, hash, comp.Name(), req.ModuleScoped)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// diffRuns lists the differences between a recorded and a fresh run in a
// fixed order: flags, then the flattened order, then ranges.
func diffRuns(recorded, fresh store.Run) []string {
	diffs := []string{}
	addf := func(format string, args ...any) {
		diffs = append(diffs, fmt.Sprintf(format, args...))
	}

	if recorded.TotallyOrdered != fresh.TotallyOrdered {
		addf("totally_ordered: recorded %t, got %t", recorded.TotallyOrdered, fresh.TotallyOrdered)
	}
	if recorded.ScheduleEnd != fresh.ScheduleEnd {
		addf("schedule_end: recorded %d, got %d", recorded.ScheduleEnd, fresh.ScheduleEnd)
	}
	if recorded.PeakTime != fresh.PeakTime || recorded.PeakBytes != fresh.PeakBytes {
		addf("peak: recorded %d bytes at %d, got %d bytes at %d",
			recorded.PeakBytes, recorded.PeakTime, fresh.PeakBytes, fresh.PeakTime)
	}

	n := max(len(recorded.Instructions), len(fresh.Instructions))
	for i := 0; i < n; i++ {
		var was, now string
		if i < len(recorded.Instructions) {
			was = recorded.Instructions[i].Name
		}
		if i < len(fresh.Instructions) {
			now = fresh.Instructions[i].Name
		}
		if was != now {
			addf("sequence[%d]: recorded %q, got %q", i, was, now)
		}
	}

	freshRanges := make(map[string]store.RunRange, len(fresh.Ranges))
	for _, r := range fresh.Ranges {
		freshRanges[r.Value] = r
	}
	seen := make(map[string]bool, len(recorded.Ranges))
	for _, r := range recorded.Ranges {
		seen[r.Value] = true
		got, ok := freshRanges[r.Value]
		switch {
		case !ok:
			addf("range %s: recorded %d-%d, now missing", r.Value, r.Start, r.End)
		case got.Start != r.Start || got.End != r.End:
			addf("range %s: recorded %d-%d, got %d-%d", r.Value, r.Start, r.End, got.Start, got.End)
		}
	}
	for _, r := range fresh.Ranges {
		if !seen[r.Value] {
			addf("range %s: not recorded, got %d-%d", r.Value, r.Start, r.End)
		}
	}
	return diffs
}
