package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandUpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.yaml", okScenario)
	writeFile(t, dir, "fetch.yaml", fetchScenario)

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "ok.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"ok"`)
	assert.FileExists(t, filepath.Join(dir, "golden", "fetch.golden"))

	out, _, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ok (golden)")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.yaml", okScenario)
	writeFile(t, dir, "golden/ok.golden", `{"scenario_name":"ok","trace":[]}`)

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandCustomGoldenDir(t *testing.T) {
	dir := t.TempDir()
	goldenDir := filepath.Join(t.TempDir(), "snapshots")
	writeFile(t, dir, "ok.yaml", okScenario)

	_, _, err := execute(t, "test", dir, "--golden", goldenDir, "--update")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(goldenDir, "ok.golden"))
	assert.NoDirExists(t, filepath.Join(dir, "golden"))
}

func TestTestCommandFilterAndJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.yaml", okScenario)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(t, "test", dir, "--filter", "o*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "ok", resp.Data.Scenarios[0].Name)
	assert.Empty(t, resp.Data.Scenarios[0].Golden)
}

func TestTestCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.yaml", okScenario)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, ErrCodeAssertions, resp.Error.Code)
}

func TestTestCommandMissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "x.golden"), goldenFilePath(filepath.Join("s", "x.yaml"), "x", ""))
	assert.Equal(t, filepath.Join("g", "x.golden"), goldenFilePath(filepath.Join("s", "x.yaml"), "x", "g"))
}

func TestTestCommandInterrupted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.yaml", okScenario)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"test", dir})

	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "test run interrupted")
	assert.NotContains(t, out.String(), "✓ ok")
}
