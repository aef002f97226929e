package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ok.yaml", okScenario)

	out, _, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ok")
	assert.Contains(t, out, "count=3")
	assert.NotContains(t, out, "=== Timeline ===")
}

func TestRunCommandVerboseTimeline(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ok.yaml", okScenario)

	out, errOut, err := execute(t, "run", path, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "commit")
	assert.Contains(t, errOut, "running scenario")
}

func TestRunCommandJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fetch.yaml", fetchScenario)

	out, _, err := execute(t, "run", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, "fetch", resp.Data.Scenario)
	assert.Equal(t, "hello", resp.Data.State.Data)
	assert.False(t, resp.Data.State.Loading)
	assert.Equal(t, 2, resp.Data.Changes)
	assert.Empty(t, resp.Data.RunID)
}

func TestRunCommandFailingAssertions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "failing.yaml", failingScenario)

	out, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")

	out, _, err = execute(t, "run", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeAssertions, resp.Error.Code)
}

func TestRunCommandInvalidScenario(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "name: bad\nsteps: 3\n")

	_, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}

func TestRunCommandMissingFile(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommandJournal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ok.yaml", okScenario)
	db := filepath.Join(dir, "unistate.db")

	out, _, err := execute(t, "run", path, "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.RunID)

	out, _, err = execute(t, "trace", "--db", db, "--format", "json")
	require.NoError(t, err)

	var traced struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &traced))
	assert.Equal(t, resp.Data.RunID, traced.Data.RunID)
	assert.Equal(t, "ok", traced.Data.Label)
	assert.Equal(t, 2, traced.Data.Stats.Commits)
	assert.Equal(t, resp.Data.Events, traced.Data.Stats.TotalEvents)
	assert.Contains(t, traced.Data.FinalState, `"count":3`)
}

func TestRunCommandCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "slow.yaml", `
name: slow
description: "A fetch far slower than the test"
env: { data: late, delay_ms: 10000 }
steps:
  - mutate: StartFetch
assertions:
  - type: final_state
    expect: { data: late }
`)
	db := filepath.Join(dir, "unistate.db")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", path, "--db", db, "--timeout", "30s"})

	start := time.Now()
	err := cmd.ExecuteContext(ctx)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.Error(t, err, "the fetch never lands, so the scenario cannot pass")

	out, _, err := execute(t, "trace", "--db", db, "--list", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "finished", resp.Data[0].Status)
}
