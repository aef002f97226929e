//go:build release

package engine

const haltOnFault = false
