package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/unistate/internal/trace"
)

// Strategy is the ordering policy for the children of a group side effect.
type Strategy int

const (
	// Serial runs children in declaration order, each to completion
	// (including its follow-up mutation's commit) before the next starts.
	Serial Strategy = iota + 1
	// Concurrent starts every child at once and waits for all of them.
	// No ordering holds between children; one failing child does not stop
	// the others.
	Concurrent
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Serial:
		return "serial"
	case Concurrent:
		return "concurrent"
	default:
		return "none"
	}
}

// SideEffect is a closed variant over three shapes:
//   - no-op: the zero value (also None)
//   - leaf: a single Effect (Run)
//   - group: child side effects with a Strategy (Group, Sequential, Parallel)
//
// The zero value is ready to use and means "nothing to do".
type SideEffect[S, E any] struct {
	leaf     Effect[S, E]
	children []SideEffect[S, E]
	strategy Strategy
}

// None returns the no-op side effect.
func None[S, E any]() SideEffect[S, E] {
	return SideEffect[S, E]{}
}

// Run wraps a leaf effect. A nil or no-op effect yields a no-op side effect.
func Run[S, E any](effect Effect[S, E]) SideEffect[S, E] {
	if effect == nil || effect.IsNoop() {
		return SideEffect[S, E]{}
	}
	return SideEffect[S, E]{leaf: effect}
}

// Group composes children under a strategy. No-op children are dropped; a
// group left with no children is a no-op.
func Group[S, E any](strategy Strategy, children ...SideEffect[S, E]) SideEffect[S, E] {
	kept := make([]SideEffect[S, E], 0, len(children))
	for _, c := range children {
		if !c.IsNoop() {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return SideEffect[S, E]{}
	}
	return SideEffect[S, E]{children: kept, strategy: strategy}
}

// Sequential is Group(Serial, children...).
func Sequential[S, E any](children ...SideEffect[S, E]) SideEffect[S, E] {
	return Group(Serial, children...)
}

// Parallel is Group(Concurrent, children...).
func Parallel[S, E any](children ...SideEffect[S, E]) SideEffect[S, E] {
	return Group(Concurrent, children...)
}

// IsNoop reports whether executing the side effect would do nothing.
func (se SideEffect[S, E]) IsNoop() bool {
	if se.leaf != nil {
		return se.leaf.IsNoop()
	}
	return len(se.children) == 0
}

// IsGroup reports whether the side effect is a group.
func (se SideEffect[S, E]) IsGroup() bool {
	return se.leaf == nil && len(se.children) > 0
}

// Strategy returns the group strategy, or 0 for leaves and no-ops.
func (se SideEffect[S, E]) Strategy() Strategy {
	if !se.IsGroup() {
		return 0
	}
	return se.strategy
}

// Children returns a copy of the group's children.
func (se SideEffect[S, E]) Children() []SideEffect[S, E] {
	out := make([]SideEffect[S, E], len(se.children))
	copy(out, se.children)
	return out
}

// Effect returns the leaf effect, or nil.
func (se SideEffect[S, E]) Effect() Effect[S, E] {
	return se.leaf
}

// execute interprets a side effect inside the background unit identified by
// taskID. It returns when the whole side effect has run: for a leaf, once its
// follow-up mutation has been dispatched; for groups, once every child has.
func (s *Store[S, E]) execute(ctx context.Context, taskID string, se SideEffect[S, E]) {
	if se.IsNoop() {
		return
	}

	if se.leaf != nil {
		s.perform(ctx, taskID, se.leaf)
		return
	}

	switch se.strategy {
	case Concurrent:
		var wg sync.WaitGroup
		for _, child := range se.children {
			wg.Add(1)
			go func(child SideEffect[S, E]) {
				defer wg.Done()
				s.execute(ctx, taskID, child)
			}(child)
		}
		wg.Wait()

	default:
		for _, child := range se.children {
			if ctx.Err() != nil {
				return
			}
			s.execute(ctx, taskID, child)
		}
	}
}

// perform awaits a leaf effect and feeds its mutation back into dispatch.
func (s *Store[S, E]) perform(ctx context.Context, taskID string, effect Effect[S, E]) {
	name := NameOf(effect)

	if ctx.Err() != nil {
		s.record(trace.Event{Kind: trace.KindDropped, Name: name, TaskID: taskID, Detail: "cancelled before perform"})
		return
	}

	mutation, err := effect.Perform(ctx, s.cell.environment())
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			s.logger.Debug("effect cancelled", "effect", name, "task_id", taskID)
			s.record(trace.Event{Kind: trace.KindDropped, Name: name, TaskID: taskID, Detail: "cancelled"})
			return
		}
		s.logger.Warn("effect failed", "effect", name, "task_id", taskID, "error", err)
		s.record(trace.Event{Kind: trace.KindEffectFailed, Name: name, TaskID: taskID, Detail: err.Error()})
		return
	}

	// The effect may have ignored cancellation; its result must not reach
	// the state after teardown.
	if ctx.Err() != nil {
		s.record(trace.Event{Kind: trace.KindDropped, Name: NameOf(mutation), TaskID: taskID, Detail: "cancelled after perform"})
		return
	}

	s.dispatch(ctx, taskID, mutation)
}
