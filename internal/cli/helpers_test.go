package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/unx2/internal/testutil"
)

// executeRoot runs the full command tree in-process.
func executeRoot(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// testRunOptions returns run options with deterministic run IDs.
func testRunOptions(format string) *RunOptions {
	return &RunOptions{
		RootOptions: &RootOptions{Format: format},
		IDGenerator: testutil.NewFixedRunIDGenerator(),
		Clock:       testutil.NewDeterministicClock().Now,
	}
}

// executeRun runs the run command on its own, bypassing config loading.
func executeRun(t *testing.T, opts *RunOptions, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRunCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	if args == nil {
		// A nil slice makes cobra fall back to os.Args.
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// recordedDB creates a run log holding two runs: run-0001 (Penrose on 1,
// halted) and run-0002 (runaway on 1, TAPE_OVERRUN).
func recordedDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	opts := testRunOptions("text")

	_, err := executeRun(t, opts, "", "--table", "penrose", "--input", "1", "--db", dbPath, "--quiet")
	require.NoError(t, err)

	_, err = executeRun(t, opts, "", "--table-file", runawayTable, "--input", "1", "--db", dbPath, "--quiet")
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))

	return dbPath
}

var (
	runawayTable  = filepath.Join("..", "harness", "testdata", "tables", "runaway.cue")
	penroseTable  = filepath.Join("..", "compiler", "testdata", "penrose.cue")
	libraryTables = filepath.Join("..", "compiler", "testdata", "library")
	scenariosDir  = filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir     = filepath.Join("..", "harness", "testdata", "golden")
)
