package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: valid
description: "A complete scenario"
initial:
  count: 4
  data: seed
env:
  data: hello
  delay_ms: 3
steps:
  - mutate: Increment
    args: { by: 2 }
  - act: Burst
    args: { n: 2, parallel: true }
  - ingest:
      - mutate: Reset
      - act: FetchIfIdle
assertions:
  - type: final_state
    expect: { count: 2 }
  - type: change_count
    count: 3
  - type: trace_count
    kind: commit
    name: Increment
    count: 3
  - type: trace_order
    names: [Increment, Reset]
  - type: no_faults
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "valid", s.Name)
	assert.Equal(t, 4, s.Initial.Count)
	assert.Equal(t, "seed", s.Initial.Data)
	assert.Equal(t, "hello", s.Env.Data)
	assert.Equal(t, 3, s.Env.DelayMS)

	require.Len(t, s.Steps, 3)
	assert.Equal(t, "Increment", s.Steps[0].Mutate)
	assert.Equal(t, 2, s.Steps[0].Args["by"])
	assert.Equal(t, "Burst", s.Steps[1].Act)
	require.Len(t, s.Steps[2].Ingest, 2)
	assert.Equal(t, "FetchIfIdle", s.Steps[2].Ingest[1].Act)

	require.Len(t, s.Assertions, 5)
	assert.Equal(t, AssertTraceCount, s.Assertions[2].Type)
	assert.Equal(t, "commit", s.Assertions[2].Kind)
	assert.Equal(t, []string{"Increment", "Reset"}, s.Assertions[3].Names)
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_MalformedYAML(t *testing.T) {
	_, err := ParseScenario([]byte("name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "empty document",
			yaml: ``,
		},
		{
			name: "unknown top-level field",
			yaml: `
name: x
description: d
steps: [{mutate: Increment}]
assertions: [{type: no_faults}]
assertion: []
`,
		},
		{
			name: "missing steps",
			yaml: `
name: x
description: d
assertions: [{type: no_faults}]
`,
		},
		{
			name: "empty name",
			yaml: `
name: ""
description: d
steps: [{mutate: Increment}]
assertions: [{type: no_faults}]
`,
		},
		{
			name: "step with both mutate and act",
			yaml: `
name: x
description: d
steps: [{mutate: Increment, act: Burst}]
assertions: [{type: no_faults}]
`,
		},
		{
			name: "argument of the wrong type",
			yaml: `
name: x
description: d
steps:
  - mutate: Increment
    args: { by: [1, 2] }
assertions: [{type: no_faults}]
`,
		},
		{
			name: "unknown assertion type",
			yaml: `
name: x
description: d
steps: [{mutate: Increment}]
assertions: [{type: trace_contains}]
`,
		},
		{
			name: "trace_count with unknown kind",
			yaml: `
name: x
description: d
steps: [{mutate: Increment}]
assertions: [{type: trace_count, kind: invocation, count: 1}]
`,
		},
		{
			name: "negative change count",
			yaml: `
name: x
description: d
steps: [{mutate: Increment}]
assertions: [{type: change_count, count: -1}]
`,
		},
		{
			name: "unknown state field",
			yaml: `
name: x
description: d
steps: [{mutate: Increment}]
assertions: [{type: final_state, expect: {total: 1}}]
`,
		},
		{
			name: "negative delay",
			yaml: `
name: x
description: d
env: { delay_ms: -5 }
steps: [{mutate: Increment}]
assertions: [{type: no_faults}]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
		})
	}
}

func TestParseScenario_UnknownNames(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: x
description: d
steps:
  - mutate: Multiply
assertions: [{type: no_faults}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
	assert.Contains(t, err.Error(), `"Multiply"`)
}

func TestParseScenario_NegativeBurst(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: x
description: d
steps:
  - act: Burst
    args: { n: -1 }
assertions: [{type: no_faults}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
	assert.Contains(t, err.Error(), "must be non-negative")
}

func TestParseScenario_KindMismatch(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: x
description: d
steps:
  - ingest:
      - act: Increment
assertions: [{type: no_faults}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0].ingest[0]")
	assert.Contains(t, err.Error(), "is not an action")
}

func TestScenarioValidate(t *testing.T) {
	valid := func() Scenario {
		return Scenario{
			Name:        "v",
			Description: "d",
			Steps:       []Step{{Mutate: "Increment"}},
			Assertions:  []Assertion{{Type: AssertNoFaults}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{"valid", func(s *Scenario) {}, ""},
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"empty step", func(s *Scenario) { s.Steps = []Step{{}} }, "one of mutate, act or ingest is required"},
		{
			"ingest mixed with mutate",
			func(s *Scenario) { s.Steps = []Step{{Mutate: "Increment", Ingest: []Step{{Mutate: "Reset"}}}} },
			"ingest cannot be combined",
		},
		{
			"nested ingest",
			func(s *Scenario) { s.Steps = []Step{{Ingest: []Step{{Ingest: []Step{{Mutate: "Reset"}}}}}} },
			"nested ingest is not allowed",
		},
		{
			"bad argument",
			func(s *Scenario) { s.Steps = []Step{{Mutate: "Increment", Args: map[string]any{"by": "two"}}} },
			"expected integer",
		},
		{
			"negative burst",
			func(s *Scenario) { s.Steps = []Step{{Act: "Burst", Args: map[string]any{"n": -1}}} },
			`argument "n": must be non-negative`,
		},
		{
			"trace_order without names",
			func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertTraceOrder}} },
			"names list is required",
		},
		{
			"final_state without expect",
			func(s *Scenario) { s.Assertions = []Assertion{{Type: AssertFinalState}} },
			"expect is required",
		},
		{
			"missing type",
			func(s *Scenario) { s.Assertions = []Assertion{{}} },
			"type is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
