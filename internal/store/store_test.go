package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unx2/internal/tables"
)

func TestOpen_CreatesFileAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	recordRun(t, s, tables.Penrose(), 1)
	require.NoError(t, s.Close())

	// Reopening keeps earlier runs and is safe to repeat.
	for range 3 {
		s, err = Open(path)
		require.NoError(t, err)
		runs, err := s.ListRuns(t.Context(), 0)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	run := recordRun(t, s, tables.Menda(), 2)
	assert.Equal(t, StatusHalted, run.Status)
}

func TestOpen_UnwritableDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open run log")
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestDB_Usable(t *testing.T) {
	s := createTestStore(t)
	require.NotNil(t, s.DB())
	assert.NoError(t, s.DB().Ping())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	for _, p := range runLogPragmas {
		t.Run(p.Name, func(t *testing.T) {
			got, err := s.pragmaValue(p.Name)
			require.NoError(t, err)
			assert.Equal(t, p.Want, got)
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	assert.Subset(t, tableColumns(t, s.db, "runs"), []string{
		"seq", "id", "table_name", "table_hash", "table_doc", "input", "initial_tape",
		"status", "steps", "marks", "error_code", "error_message", "digest",
		"started_at", "finished_at",
	})
	assert.ElementsMatch(t, []string{"run_id", "step", "state", "head", "tape"},
		tableColumns(t, s.db, "configurations"))
}

func TestSchema_Constraints(t *testing.T) {
	s := createTestStore(t)

	insertRun := func(id, status string) error {
		_, err := s.db.Exec(`
			INSERT INTO runs (id, table_name, table_hash, table_doc, input, initial_tape, status, started_at)
			VALUES (?, 't', 'h', '{}', 1, '00010000', ?, '2024-01-01T00:00:00Z')`, id, status)
		return err
	}
	insertConfiguration := func(runID string, head int) error {
		_, err := s.db.Exec(`
			INSERT INTO configurations (run_id, step, state, head, tape)
			VALUES (?, 0, '0', ?, '00010000')`, runID, head)
		return err
	}

	assert.Error(t, insertRun("r0", "exploded"), "unknown status")
	require.NoError(t, insertRun("r1", "running"))

	assert.Error(t, insertConfiguration("missing", 0), "configuration of an unknown run")
	assert.Error(t, insertConfiguration("r1", -1), "negative head")
	require.NoError(t, insertConfiguration("r1", 0))

	_, err := s.db.Exec(`DELETE FROM runs WHERE id = 'r1'`)
	require.NoError(t, err)
	var left int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM configurations`).Scan(&left))
	assert.Zero(t, left, "configurations cascade with their run")
}

func TestMigrate_CurrentVersion(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, currentSchemaVersion, userVersion(t, s.db))
	assert.Equal(t, len(migrations), currentSchemaVersion)
	assert.Contains(t, tableIndexes(t, s.db, "runs"), "idx_runs_table_hash")
}

func TestMigrate_UpgradesUnversionedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	require.Zero(t, userVersion(t, db))
	require.NotContains(t, tableIndexes(t, db, "runs"), "idx_runs_table_hash")
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, currentSchemaVersion, userVersion(t, s.db))
	assert.Contains(t, tableIndexes(t, s.db, "runs"), "idx_runs_table_hash")
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&v))
	return v
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM pragma_table_info(?)", table)
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	return queryStrings(t, db, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
}

func queryStrings(t *testing.T, db *sql.DB, query string, args ...any) []string {
	t.Helper()
	rows, err := db.Query(query, args...)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}
