package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatterJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"count": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"count": float64(3)}, resp.Data)
}

func TestOutputFormatterJSONError(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error(ErrCodeNotFound, "missing", "extra"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "missing", resp.Error.Message)
	assert.Equal(t, "extra", resp.Error.Details)
}

func TestOutputFormatterFailureCarriesData(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Failure(ErrCodeAssertions, "failed", RunOutput{Scenario: "s"}))

	var resp struct {
		Status string    `json:"status"`
		Data   RunOutput `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "s", resp.Data.Scenario)
	assert.Equal(t, ErrCodeAssertions, resp.Error.Code)
}

func TestOutputFormatterText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Error(ErrCodeJournal, "journal broke", "hidden"))
	assert.Equal(t, "Error [E006]: journal broke\n", buf.String())

	buf.Reset()
	f.Verbose = true
	require.NoError(t, f.Error(ErrCodeJournal, "journal broke", "shown"))
	assert.Contains(t, buf.String(), "Details: shown")
}

func TestVerboseLogUsesErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut}

	f.VerboseLog("quiet %d", 1)
	assert.Empty(t, errOut.String())

	f.Verbose = true
	f.VerboseLog("loud %d", 2)
	assert.Equal(t, "loud 2\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestGetErrWriterFallsBack(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Writer: &out}
	assert.Same(t, &out, f.GetErrWriter())
}

func TestLoggerLevel(t *testing.T) {
	var errOut bytes.Buffer
	f := &OutputFormatter{Writer: &bytes.Buffer{}, ErrWriter: &errOut}

	f.Logger().Debug("hidden")
	f.Logger().Info("visible")
	assert.NotContains(t, errOut.String(), "hidden")
	assert.Contains(t, errOut.String(), "visible")

	errOut.Reset()
	f.Verbose = true
	f.Logger().Debug("debugging")
	assert.Contains(t, errOut.String(), "debugging")
}

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")

	err := WrapExitError(ExitCommandError, "failed to open journal", inner)
	assert.Equal(t, "failed to open journal: disk full", err.Error())
	assert.ErrorIs(t, err, inner)

	plain := NewExitError(ExitFailure, "assertions failed")
	assert.Equal(t, "assertions failed", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad")), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestFailWritesJSONOnlyInJSONMode(t *testing.T) {
	var buf bytes.Buffer
	text := &OutputFormatter{Format: "text", Writer: &buf}

	err := fail(text, ExitCommandError, ErrCodeNotFound, "not here", nil)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, buf.String())

	js := &OutputFormatter{Format: "json", Writer: &buf}
	err = fail(js, ExitFailure, ErrCodeJournal, "write failed", errors.New("locked"))
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "write failed: locked", resp.Error.Message)
}
