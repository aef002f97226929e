package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/unistate/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nCommits:\n")
		n := 0
		for _, ev := range e.Trace {
			if ev.Kind != trace.KindCommit {
				continue
			}
			n++
			if ev.TaskID != "" {
				fmt.Fprintf(&buf, "  [%d] %s (%s)\n", ev.Seq, ev.Name, ev.TaskID)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, ev.Name)
			}
		}
		if n == 0 {
			fmt.Fprintf(&buf, "  (none)\n")
		}
	}

	return buf.String()
}

// assertFinalState checks the listed state fields (subset semantics).
func assertFinalState(result *Result, assertion Assertion) error {
	actual := result.State.Canonical()

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		expected := assertion.Expect[key]
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   "no such state field",
			}
		}
		if !stateValuesEqual(expected, got) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, got, got),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertChangeCount checks the number of didChange notifications.
func assertChangeCount(result *Result, assertion Assertion) error {
	if result.Changes != assertion.Count {
		return &AssertionError{
			Type:     AssertChangeCount,
			Expected: fmt.Sprintf("%d state changes", assertion.Count),
			Actual:   fmt.Sprintf("%d state changes", result.Changes),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceCount checks that events of the kind (and name, if given)
// appear exactly the specified number of times.
func assertTraceCount(events []trace.Event, assertion Assertion) error {
	count := trace.Count(events, trace.Kind(assertion.Kind), assertion.Name)
	if count == assertion.Count {
		return nil
	}

	what := assertion.Kind
	if assertion.Name != "" {
		what = fmt.Sprintf("%s %s", assertion.Kind, assertion.Name)
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Trace:    events,
	}
}

// assertTraceOrder checks that commits with the given names happened in that
// order. Other commits may come in between.
func assertTraceOrder(events []trace.Event, assertion Assertion) error {
	commits := trace.Filter(events, trace.KindCommit)

	next := 0
	for _, ev := range commits {
		if next < len(assertion.Names) && ev.Name == assertion.Names[next] {
			next++
		}
	}
	if next == len(assertion.Names) {
		return nil
	}

	names := make([]string, len(commits))
	for i, ev := range commits {
		names[i] = ev.Name
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("commits in order: %v", assertion.Names),
		Actual:   fmt.Sprintf("commits %v; %q not found after %v", names, assertion.Names[next], assertion.Names[:next]),
		Trace:    events,
	}
}

// assertNoFaults checks that no fault was reported.
func assertNoFaults(result *Result) error {
	if len(result.Faults) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoFaults,
		Expected: "no faults",
		Actual:   strings.Join(result.Faults, "; "),
		Trace:    result.Trace,
	}
}

// stateValuesEqual compares an expected value decoded from YAML or JSON with
// a state field. Numbers compare by value whatever their decoded type.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if exp, ok := toInt64(expected); ok {
		act, ok := toInt64(actual)
		return ok && exp == act
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case bool:
		act, ok := actual.(bool)
		return ok && exp == act
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertChangeCount:
			err = assertChangeCount(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertNoFaults:
			err = assertNoFaults(result)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
