// Package harness runs scenario files against a counter store.
//
// A scenario dispatches a list of steps into a fresh store, waits for the
// store to go quiet after each one, and then checks assertions against the
// recorded trace, the observer notifications and the final state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: fetch_success
//	description: "StartFetch loads data through the environment"
//	initial: { count: 0 }
//	env: { data: "hello", delay_ms: 5 }
//	steps:
//	  - mutate: Increment
//	    args: { by: 2 }
//	  - act: FetchIfIdle
//	  - ingest:
//	      - mutate: Increment
//	      - act: IncrementIfOdd
//	assertions:
//	  - type: final_state
//	    expect: { count: 3, data: "hello" }
//	  - type: trace_order
//	    names: [Increment, StartFetch, FetchDone]
//
// Files are checked against an embedded CUE schema before they are decoded,
// so misspelled keys and wrong value types are reported with a path.
//
// # Assertion Types
//
//   - final_state: the listed state fields have the given values
//   - change_count: didChange fired exactly count times
//   - trace_count: events of kind (and name, if given) occur count times
//   - trace_order: commits of the given names happened in this order
//   - no_faults: no fault was reported
//
// # Deterministic Testing
//
// Task ids come from engine.SequentialGenerator and every step is awaited
// before the next one starts. Scenarios whose steps do not fan out in
// parallel therefore produce the same trace on every run, which is what
// RunWithGolden compares against testdata/golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/fetch_success.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
