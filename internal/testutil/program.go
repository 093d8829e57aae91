package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/liverange/internal/compiler"
)

// WriteProgram writes CUE source to name inside a fresh temp directory and
// returns the file path.
func WriteProgram(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// LoadProgram writes src to a temp file and loads it through the CUE
// front end. The test fails if the program does not compile.
func LoadProgram(t *testing.T, src string) *compiler.Program {
	t.Helper()
	prog, err := compiler.LoadProgram(WriteProgram(t, "program.cue", src))
	require.NoError(t, err)
	return prog
}
