package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_AllScenariosPass(t *testing.T) {
	out, _, err := executeRoot(t, "", "test", scenariosDir, "--golden", goldenDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ penrose_doubles_one (8 steps)")
	assert.Contains(t, out, "✓ penrose_doubles_three (30 steps)")
	assert.Contains(t, out, "✓ runaway_overruns (6 steps)")
	assert.Contains(t, out, "Test Summary: 8 passed, 0 failed, 8 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, _, err := executeRoot(t, "", "test", scenariosDir, "--filter", "menda_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.NotContains(t, out, "penrose")
}

func TestTest_UpdateWritesGoldenFiles(t *testing.T) {
	dir := t.TempDir()

	_, _, err := executeRoot(t, "", "test", scenariosDir, "--filter", "penrose_doubles_one", "--golden", dir, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(dir, "penrose_doubles_one.golden"))
	require.NoError(t, err)
	checkedIn, err := os.ReadFile(filepath.Join(goldenDir, "penrose_doubles_one.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(checkedIn), string(written))
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "menda_doubles_one.golden"), `{"scenario_name":"menda_doubles_one","table":"menda","trace":[]}`)

	out, _, err := executeRoot(t, "", "test", scenariosDir, "--filter", "menda_doubles_one", "--golden", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ menda_doubles_one")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "wrong_steps.yaml"), `name: wrong_steps
table: penrose
input: 1
expect:
  steps: 9
`)
	writeTestFile(t, filepath.Join(dir, "broken.yaml"), "name: broken\ncolour: red\n")

	out, _, err := executeRoot(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_steps\n  steps: expected 9, got 8\n")
	assert.Contains(t, out, "✗ broken.yaml\n  failed to load scenario: ")
	assert.Contains(t, out, "Test Summary: 0 passed, 2 failed, 2 total")
}

func TestTest_JSON(t *testing.T) {
	out, _, err := executeRoot(t, "", "--format", "json", "test", scenariosDir, "--filter", "penrose_*", "--golden", goldenDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 3, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 3)
	for _, s := range resp.Data.Scenarios {
		assert.True(t, s.Pass, s.Name)
	}
}

func TestTest_NoScenarios(t *testing.T) {
	out, _, err := executeRoot(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTest_MissingDirectory(t *testing.T) {
	_, _, err := executeRoot(t, "", "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
