// Package journal provides SQLite-backed durable storage for engine traces.
//
// A journal is an append-only log of runs. Each run is one store session
// (a CLI invocation, a harness scenario) and owns the ordered list of trace
// events the engine emitted during it.
//
// # Ordering
//
//   - Runs are keyed by UUIDv7, so ORDER BY id lists them oldest first
//   - Events are keyed by (run_id, idx); idx is assigned at append time
//   - Commit order inside a run is the seq column of commit events
//
// Wall-clock timestamps are never stored or used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
