package engine

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// TaskIDGenerator generates unique ids for background units.
// Implemented by UUIDv7Generator (production) and SequentialGenerator (tests).
type TaskIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 task ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time in logs and journals.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequentialGenerator returns prefix-1, prefix-2, ... in order.
//
// This makes traces reproducible for golden comparison as long as units are
// scheduled in a deterministic order.
//
// Thread-safety: safe for concurrent use.
type SequentialGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialGenerator creates a generator. An empty prefix means "task".
//
// Example:
//
//	gen := NewSequentialGenerator("unit")
//	gen.Generate() // "unit-1"
//	gen.Generate() // "unit-2"
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = "task"
	}
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialGenerator) Generate() string {
	return g.prefix + "-" + strconv.FormatInt(g.n.Add(1), 10)
}
