package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/liverange/internal/ir"
)

// Snapshot renders the parts of a result that golden files pin down as
// canonical JSON. The report text and pass/fail state are left out: the
// report is covered by its own golden tests and Pass depends on the
// scenario rather than the analysis.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	sequence := make([]any, len(result.Sequence))
	for i, name := range result.Sequence {
		sequence[i] = name
	}

	ranges := make([]any, len(result.Ranges))
	for i, r := range result.Ranges {
		ranges[i] = map[string]any{
			"value": r.Value,
			"start": r.Start,
			"end":   r.End,
			"size":  r.Size,
		}
	}

	snapshot := map[string]any{
		"scenario_name":   scenarioName,
		"run_id":          result.RunID,
		"totally_ordered": result.TotallyOrdered,
		"schedule_end":    result.ScheduleEnd,
		"peak": map[string]any{
			"time":  result.Peak.Time,
			"bytes": result.Peak.Bytes,
		},
		"sequence": sequence,
		"ranges":   ranges,
	}
	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares the snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
