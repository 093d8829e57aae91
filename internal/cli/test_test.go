package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("testdata", "scenarios")

func TestTestCommand_Pass(t *testing.T) {
	stdout, _, err := executeCommand(t, "test", scenariosDir, "--filter", "loop")
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ loop")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommand_Failure(t *testing.T) {
	stdout, _, err := executeCommand(t, "test", scenariosDir)
	require.Error(t, err)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ loop_wrong_peak")
	assert.Contains(t, stdout, "peak_bytes: expected 64, got 32")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_JSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "--format", "json", "test", scenariosDir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestCommand_NoScenarios(t *testing.T) {
	stdout, _, err := executeCommand(t, "test", scenariosDir, "--filter", "nothing-*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, _, err := executeCommand(t, "test", filepath.Join("testdata", "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// copyScenario copies the loop scenario and program into a temp tree so
// golden files can be written without touching testdata.
func copyScenario(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{
		filepath.Join("programs", "loop.cue"),
		filepath.Join("scenarios", "loop.yaml"),
	} {
		data, err := os.ReadFile(filepath.Join("testdata", rel))
		require.NoError(t, err)
		dst := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
		require.NoError(t, os.WriteFile(dst, data, 0o644))
	}
	return filepath.Join(root, "scenarios")
}

func TestTestCommand_UpdateGolden(t *testing.T) {
	dir := copyScenario(t)

	stdout, _, err := executeCommand(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ loop (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "loop.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"loop"`)

	// The golden directory is skipped and the fresh file matches
	stdout, _, err = executeCommand(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := copyScenario(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "loop.golden"), []byte("{}"), 0o644))

	stdout, _, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "golden file mismatch")
}
