//go:build !release

package engine

// haltOnFault makes DefaultFaultHandler panic. Build with -tags release to
// let faults pass after logging.
const haltOnFault = true
