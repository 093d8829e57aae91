package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with a small flattened order, spans and ranges.
func createTestRun(id string, seq int64) Run {
	return Run{
		ID:              id,
		Seq:             seq,
		ProgramHash:     "program-hash",
		Module:          "loop",
		Computation:     "main",
		ModuleScoped:    true,
		TotallyOrdered:  true,
		ScheduleEnd:     3,
		PeakTime:        1,
		PeakBytes:       32,
		Report:          "LiveRange (max 3):\n",
		Warnings:        []string{"Self-recursive computation detected: f → f"},
		AnalyzerVersion: "0.1.0",
		FormatVersion:   "1",
		Instructions: []RunInstruction{
			{Position: 0, Name: "p", Computation: "main"},
			{Position: 1, Name: "bp", Computation: "body"},
			{Position: 2, Name: "w", Computation: "main"},
		},
		Spans: []RunSpan{
			{Computation: "main", Start: 0, End: 3},
			{Computation: "body", Start: 1, End: 2},
		},
		Ranges: []RunRange{
			{Value: "p{}", Start: 0, End: 3, EndPosition: "w{}", Size: 16},
			{Value: "w{}", Start: 2, End: 3, EndPosition: "w{}", Size: 16},
			{Value: "bp{}", Start: 1, End: 2, EndPosition: "bp{}", Size: 16},
		},
	}
}
