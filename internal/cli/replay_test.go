package cli

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liverange/internal/engine"
	"github.com/roach88/liverange/internal/testutil"
)

func TestReplay_Identical(t *testing.T) {
	dbPath := recordRuns(t, "run-1")

	stdout, _, err := executeCommand(t, "replay", "run-1", loopProgram, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Replay of run-1 is identical")
}

func TestReplay_JSON(t *testing.T) {
	dbPath := recordRuns(t, "run-1")

	stdout, _, err := executeCommand(t, "--format", "json", "replay", "run-1", loopProgram, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   engine.ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Identical)
	assert.Empty(t, resp.Data.Differences)
}

func TestReplay_ProgramMismatch(t *testing.T) {
	dbPath := recordRuns(t, "run-1")

	src, err := os.ReadFile(loopProgram)
	require.NoError(t, err)
	edited := testutil.WriteProgram(t, "loop.cue", strings.Replace(string(src), `"compare"`, `"less"`, 1))

	stdout, _, err := executeCommand(t, "replay", "run-1", edited, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E013]")
}

func TestReplay_BufferGroupsEdited(t *testing.T) {
	dbPath := recordRuns(t, "run-1")

	src, err := os.ReadFile(loopProgram)
	require.NoError(t, err)
	edited := testutil.WriteProgram(t, "loop.cue", string(src)+"\nbuffers: [[\"c\", \"b\"]]\n")

	stdout, _, err := executeCommand(t, "replay", "run-1", edited, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E013]")
}

func TestReplay_UnknownRun(t *testing.T) {
	dbPath := recordRuns(t, "run-1")

	stdout, _, err := executeCommand(t, "replay", "nope", loopProgram, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E012]")
}

func TestReplay_LatestRunForProgram(t *testing.T) {
	dbPath := recordRuns(t, "run-1", "run-2", "run-3")

	stdout, _, err := executeCommand(t, "replay", loopProgram, "--db", dbPath, "--module-scoped")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Replay of run-3 is identical")

	stdout, _, err = executeCommand(t, "replay", loopProgram, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Replay of run-2 is identical")
}

func TestReplay_NoRunForProgram(t *testing.T) {
	dbPath := recordRuns(t, "run-1")

	src, err := os.ReadFile(loopProgram)
	require.NoError(t, err)
	edited := testutil.WriteProgram(t, "loop.cue", strings.Replace(string(src), `"compare"`, `"less"`, 1))

	stdout, _, err := executeCommand(t, "replay", edited, "--db", dbPath, "--module-scoped")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E012]")
}

func TestReplay_RequiresArguments(t *testing.T) {
	_, _, err := executeCommand(t, "replay", "--db", "runs.db")
	require.Error(t, err)
}
