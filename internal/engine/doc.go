// Package engine implements the unidirectional store engine.
//
// A Store holds one state value. The only way to change it is to dispatch a
// Mutation, whose Reduce returns the next state plus a SideEffect. Side
// effects run in the background against the store's environment and resolve
// to further mutations, which are dispatched in turn:
//
//	mutation -> commit -> side effect -> mutation -> commit -> ...
//
// The chain ends when a no-op side effect or no-op mutation is reached. The
// engine does not bound chain depth; terminating chains is the
// application's job.
//
// ARCHITECTURE:
//
// State cell (cell.go):
// One RWMutex guards the state. Writes hold it across reduce, the equality
// check, and both observer callbacks, so commits are totally ordered and
// observers see every change exactly once. Equal states commit nothing and
// fire nothing.
//
// Task registry (registry.go):
// Every background unit (side effect execution, ingestion) is registered
// under a generated id with its cancel func, and removes itself when it
// returns. Shutdown cancels everything registered and refuses new units.
//
// Dispatcher (dispatch.go):
// Dispatch commits synchronously, then schedules the side effect as a unit.
// DispatchAction reads a snapshot, asks the action for a side effect, and
// schedules it. Actions never write state.
//
// Side-effect executor (effect.go):
// Leaves await Effect.Perform and dispatch the resulting mutation. Serial
// groups run children in order; concurrent groups run them all and join.
//
// Sequence ingestor (ingest.go, queue.go):
// Ingest pulls from a Sequence in one unit, dispatching each message before
// asking for the next.
//
// CANCELLATION:
//
// Cooperative only. Each unit's context derives from the store's root
// context. Units check it before performing an effect, after the effect
// returns, and before committing, so nothing registered before Shutdown
// mutates state afterwards. Committed state is never rolled back.
//
// FAULTS:
//
// Contract violations (dispatch before observers are registered, stream
// errors, broken invariants) go to a FaultHandler. The default handler logs
// and panics; built with -tags release it only logs.
package engine
