package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unx2/internal/store"
)

func TestTrace_ListRuns(t *testing.T) {
	dbPath := recordedDB(t)

	out, _, err := executeRoot(t, "", "trace", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "failed (TAPE_OVERRUN)")
	assert.Contains(t, out, "halted")

	// Newest first.
	first := strings.Index(out, "run-0001")
	second := strings.Index(out, "run-0002")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, second, first)
}

func TestTrace_ListLimit(t *testing.T) {
	dbPath := recordedDB(t)

	out, _, err := executeRoot(t, "", "trace", "--db", dbPath, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "run-0002")
	assert.NotContains(t, out, "run-0001")
}

func TestTrace_ShowRun(t *testing.T) {
	dbPath := recordedDB(t)

	out, _, err := executeRoot(t, "", "trace", "--db", dbPath, "--run", "run-0001")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Run: run-0001\nTable: penrose ("), "output: %q", out)
	assert.Contains(t, out, "Input: 1  Status: halted  Steps: 8  Marks: 2\n")
	assert.Contains(t, out, "Digest: ")
	assert.Contains(t, out, "..... |0|0 0 1 0 0 0  ..... \t[ state: 0 ]\n\n")
	assert.Equal(t, 9, strings.Count(out, "[ state:"))
}

func TestTrace_ShowLatest(t *testing.T) {
	dbPath := recordedDB(t)

	out, _, err := executeRoot(t, "", "trace", "--db", dbPath, "--run", "latest")
	require.NoError(t, err)
	assert.Contains(t, out, "Run: run-0002\n")
	assert.Contains(t, out, "Error: TAPE_OVERRUN")
	assert.Equal(t, 7, strings.Count(out, "[ state:"))
}

func TestTrace_JSON(t *testing.T) {
	dbPath := recordedDB(t)

	out, _, err := executeRoot(t, "", "--format", "json", "trace", "--db", dbPath, "--run", "run-0001")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-0001", resp.Data.Run.ID)
	assert.Equal(t, "0001000", resp.Data.Run.InitialTape)
	require.Len(t, resp.Data.Trace, 9)
	assert.Equal(t, 0, resp.Data.Trace[0].Step)
	assert.Equal(t, "0000110", resp.Data.Trace[8].Tape)
	assert.Equal(t, 5, resp.Data.Trace[8].Head)
}

func TestTrace_JSONList(t *testing.T) {
	dbPath := recordedDB(t)

	out, _, err := executeRoot(t, "", "--format", "json", "trace", "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Data []RunView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "run-0002", resp.Data[0].ID)
	assert.Equal(t, "TAPE_OVERRUN", resp.Data[0].ErrorCode)
	assert.Equal(t, "2024-01-01T00:00:00Z", resp.Data[1].StartedAt)
}

func TestTrace_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := executeRoot(t, "", "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No runs found in database.\n", out)
}

func TestTrace_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")
	_, _, err := executeRoot(t, "", "trace", "--db", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "trace must not create the database")

	dbPath := recordedDB(t)
	_, _, err = executeRoot(t, "", "trace", "--db", dbPath, "--run", "run-9999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: run-9999")
}

func TestTrace_NoDatabaseConfigured(t *testing.T) {
	_, _, err := executeRoot(t, "", "trace")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "run-0001", truncateID("run-0001"))
	assert.Equal(t, "01234567...89abcdef", truncateID("0123456789abcdef0123456789abcdef"))
}
