// Package trace records what the store engine did, step by step.
//
// Every stage of the dispatch pipeline emits an Event: a mutation entering
// dispatch, a commit (stamped with the logical commit clock), a side effect
// scheduled as a background unit, that unit completing, and so on. Events are
// handed to a Recorder. Recorders must be safe for concurrent use because
// background units emit events from their own goroutines.
//
// Recorders provided here:
//   - Memory: keeps events in arrival order (tests, harness, golden traces)
//   - SlogRecorder: mirrors events into structured logs
//   - Multi: fans out to several recorders
//   - Discard: drops everything
//
// The journal package adds a SQLite-backed recorder.
//
// # Determinism
//
// Events from concurrent units interleave nondeterministically. Callers that
// compare traces byte for byte (golden files) must drive the engine serially
// and wait for quiescence between steps. MarshalCanonical produces RFC 8785
// canonical JSON so equal traces always serialize to equal bytes.
package trace
