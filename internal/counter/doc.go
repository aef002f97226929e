// Package counter is the reference application for the store engine: an
// integer counter plus an asynchronous fetch.
//
// It exercises every engine path. Increment and friends are plain state
// transitions. StartFetch commits Loading and schedules the Fetch effect,
// whose result comes back as FetchDone or FetchFailed. Actions decide from a
// state snapshot (IncrementIfOdd, FetchIfIdle) or fan out groups of effects
// (Burst). Build maps names and arguments onto these types so scenario files
// and the CLI can drive a store without Go code.
package counter
