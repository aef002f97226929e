package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/unistate/internal/counter"
	"github.com/roach88/unistate/internal/engine"
	"github.com/roach88/unistate/internal/trace"
)

//go:embed schema.cue
var schemaSource string

// Scenario is a scripted run against a fresh counter store.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial is the state the store starts from.
	Initial counter.State `yaml:"initial,omitempty"`

	// Env configures the fetcher the store's environment carries.
	Env counter.EnvConfig `yaml:"env,omitempty"`

	// Steps run in order. Each one is awaited before the next starts.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one thing to feed the store: a mutation, an action, or a list of
// messages delivered through a single ingestion stream.
type Step struct {
	// Mutate names a mutation to dispatch.
	Mutate string `yaml:"mutate,omitempty"`

	// Act names an action to dispatch.
	Act string `yaml:"act,omitempty"`

	// Args are passed to the mutation or action builder.
	Args map[string]any `yaml:"args,omitempty"`

	// Ingest lists the messages of an ingestion stream, in order.
	Ingest []Step `yaml:"ingest,omitempty"`
}

// Assertion validates trace, notifications or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Expect holds state fields and their expected values (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Kind is the trace event kind (trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Name narrows trace_count to one mutation, action or effect name.
	Name string `yaml:"name,omitempty"`

	// Count is the expected number of occurrences (trace_count, change_count).
	Count int `yaml:"count,omitempty"`

	// Names is the expected commit order (trace_order).
	Names []string `yaml:"names,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState  = "final_state"
	AssertChangeCount = "change_count"
	AssertTraceCount  = "trace_count"
	AssertTraceOrder  = "trace_order"
	AssertNoFaults    = "no_faults"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, fails the
// schema, or names unknown mutations or actions.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := checkSchema(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Strict decode catches anything the schema let through by accident.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// checkSchema unifies the decoded document with #Scenario.
func checkSchema(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// Validate checks the fields the schema cannot: that every step names a
// known mutation or action and that its arguments build.
//
// Scenarios built in Go rather than loaded from YAML skip the schema, so the
// structural rules are repeated here.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Env.DelayMS < 0 {
		return fmt.Errorf("env.delay_ms must be non-negative")
	}

	for i, step := range s.Steps {
		if len(step.Ingest) > 0 {
			if step.Mutate != "" || step.Act != "" || len(step.Args) > 0 {
				return fmt.Errorf("steps[%d]: ingest cannot be combined with mutate, act or args", i)
			}
			for j, msg := range step.Ingest {
				if len(msg.Ingest) > 0 {
					return fmt.Errorf("steps[%d].ingest[%d]: nested ingest is not allowed", i, j)
				}
				if _, err := msg.message(); err != nil {
					return fmt.Errorf("steps[%d].ingest[%d]: %w", i, j, err)
				}
			}
			continue
		}
		if _, err := step.message(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// message builds the engine message a mutate or act step describes.
func (s Step) message() (counter.Message, error) {
	switch {
	case s.Mutate != "" && s.Act != "":
		return counter.Message{}, fmt.Errorf("mutate and act are mutually exclusive")
	case s.Mutate != "":
		return counter.Build(engine.MessageMutation, s.Mutate, s.Args)
	case s.Act != "":
		return counter.Build(engine.MessageAction, s.Act, s.Args)
	default:
		return counter.Message{}, fmt.Errorf("one of mutate, act or ingest is required")
	}
}

var stateFields = map[string]bool{"count": true, "loading": true, "data": true, "error": true}

var traceKinds = map[trace.Kind]bool{
	trace.KindDispatch:     true,
	trace.KindAction:       true,
	trace.KindNoop:         true,
	trace.KindUnchanged:    true,
	trace.KindCommit:       true,
	trace.KindSchedule:     true,
	trace.KindComplete:     true,
	trace.KindDropped:      true,
	trace.KindEffectFailed: true,
	trace.KindFault:        true,
	trace.KindIngestDone:   true,
	trace.KindShutdown:     true,
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		for field := range a.Expect {
			if !stateFields[field] {
				return fmt.Errorf("assertions[%d]: unknown state field %q", index, field)
			}
		}
	case AssertChangeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for change_count", index)
		}
	case AssertTraceCount:
		if !traceKinds[trace.Kind(a.Kind)] {
			return fmt.Errorf("assertions[%d]: unknown trace kind %q", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for trace_order", index)
		}
	case AssertNoFaults:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
