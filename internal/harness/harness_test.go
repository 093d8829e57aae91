package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_WhileModuleScoped(t *testing.T) {
	result, err := Run(loadTestScenario(t, "while_module_scoped"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, DefaultRunID, result.RunID)
	assert.True(t, result.TotallyOrdered)
	assert.Equal(t, int64(6), result.ScheduleEnd)
	assert.Equal(t, []string{"o", "cp", "c", "bp", "b", "w"}, result.Sequence)
	assert.Contains(t, result.Report, "LiveRange (max 6):")
}

func TestRun_StraightLine(t *testing.T) {
	result, err := Run(loadTestScenario(t, "straight_line"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, int64(48), result.Peak.Bytes)
}

func TestRun_Degraded(t *testing.T) {
	result, err := Run(loadTestScenario(t, "while_unscheduled"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.False(t, result.TotallyOrdered)
	assert.Empty(t, result.Ranges)
	assert.Empty(t, result.Sequence)
	assert.Equal(t, "test-run-00000000-0000-0000-0000-000000000003", result.RunID)
	assert.Contains(t, result.Report, "schedule is not totally ordered")
}

func TestRun_FailingExpectations(t *testing.T) {
	s := loadTestScenario(t, "straight_line")
	wrong := int64(99)
	s.Expect.PeakBytes = &wrong
	s.Assertions = append(s.Assertions, Assertion{Type: AssertDisjoint, Values: []string{"p", "a"}})

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "peak_bytes: expected 99, got 48", result.Errors[0])
	assert.Contains(t, result.Errors[1], "p{} 0-3 overlaps a{} 1-2")
}

func TestRun_UnknownComputation(t *testing.T) {
	s := loadTestScenario(t, "straight_line")
	s.Computation = "nope"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to analyze")
}

func TestRun_ProgramLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("module: {name: 1"), 0o644))

	_, err := Run(&Scenario{Name: "broken", Description: "d", Program: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load program")
}

func TestRun_InvalidProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.cue")
	src := `
module: {name: "bad", entry: "main"}
computation: main: {
	instructions: [
		{name: "p", opcode: "parameter", shape: "f32[4]", parameter: 1},
	]
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	_, err := Run(&Scenario{Name: "invalid", Description: "d", Program: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid program")
	assert.Contains(t, err.Error(), "E220")
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "while_module_scoped")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGolden_Scenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err)
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestSnapshot_Shape(t *testing.T) {
	data, err := Snapshot("sample", sampleResult())
	require.NoError(t, err)

	assert.Contains(t, string(data), `"scenario_name":"sample"`)
	assert.Contains(t, string(data), `"peak":{"bytes":32,"time":2}`)
	assert.NotContains(t, string(data), "report")
}
