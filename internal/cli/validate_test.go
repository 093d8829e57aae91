package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidProgram(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", filepath.Join("testdata", "programs", "loop.cue"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ Program valid: module loop, entry main (3 computations, 6 instructions)")
}

func TestValidate_ValidProgramJSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "--format", "json", "validate", filepath.Join("testdata", "programs", "loop.cue"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "loop", resp.Data.Module)
	assert.Equal(t, "main", resp.Data.Entry)
	assert.Equal(t, 3, resp.Data.Computations)
	assert.Equal(t, 6, resp.Data.Instructions)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidate_InvalidProgram(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", filepath.Join("testdata", "programs", "bad_params.cue"))
	require.Error(t, err)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Validation failed")
	assert.Contains(t, stdout, "E220")
}

func TestValidate_InvalidProgramJSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "--format", "json", "validate", filepath.Join("testdata", "programs", "bad_params.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E220", resp.Error.Code)
}

func TestValidate_NotFound(t *testing.T) {
	stdout, _, err := executeCommand(t, "validate", filepath.Join("testdata", "programs", "missing.cue"))
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E005]")
}

func TestValidate_RequiresArgument(t *testing.T) {
	_, _, err := executeCommand(t, "validate")
	require.Error(t, err)
}
