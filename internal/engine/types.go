package engine

import (
	"context"
	"reflect"
	"strings"
)

// Mutation is a pure state transition that also yields the side effect to
// run once the new state is committed.
//
// Reduce receives the committed state and returns the candidate next state.
// It runs inside the store's write critical section, so it must be pure and
// fast. It must not mutate memory shared with the input (maps, slices,
// pointers); return a fresh value instead, or change detection compares a
// value with itself and no notification fires.
//
// When IsNoop reports true the store skips the write and the side effect
// entirely. Reduce is never called.
type Mutation[S, E any] interface {
	Reduce(state S) (S, SideEffect[S, E])
	IsNoop() bool
}

// Action decides what to do from a snapshot of the current state without
// changing it. The snapshot may be stale by the time the resulting side
// effect's mutation is applied; mutations must tolerate that.
type Action[S, E any] interface {
	Perform(state S) SideEffect[S, E]
}

// Effect is a leaf side effect: asynchronous work against the environment
// that resolves to exactly one follow-up mutation.
//
// Perform must watch ctx; it is cancelled when the store shuts down. A nil
// mutation is treated as a no-op. An error ends the chain and is logged.
type Effect[S, E any] interface {
	Perform(ctx context.Context, env E) (Mutation[S, E], error)
	IsNoop() bool
}

// Named lets a mutation, action or effect choose the name used in logs and
// traces. Without it the dynamic type name is used.
type Named interface {
	Name() string
}

// MutationFunc adapts a reduce function to Mutation. It is never a no-op.
type MutationFunc[S, E any] func(state S) (S, SideEffect[S, E])

// Reduce implements Mutation.
func (f MutationFunc[S, E]) Reduce(state S) (S, SideEffect[S, E]) { return f(state) }

// IsNoop implements Mutation.
func (f MutationFunc[S, E]) IsNoop() bool { return false }

// Name implements Named.
func (f MutationFunc[S, E]) Name() string { return "MutationFunc" }

// NoopMutation is the designated "nothing to do" mutation.
type NoopMutation[S, E any] struct{}

// Reduce implements Mutation. It is never called by the store.
func (NoopMutation[S, E]) Reduce(state S) (S, SideEffect[S, E]) { return state, None[S, E]() }

// IsNoop implements Mutation.
func (NoopMutation[S, E]) IsNoop() bool { return true }

// Name implements Named.
func (NoopMutation[S, E]) Name() string { return "Noop" }

// ActionFunc adapts a function to Action.
type ActionFunc[S, E any] func(state S) SideEffect[S, E]

// Perform implements Action.
func (f ActionFunc[S, E]) Perform(state S) SideEffect[S, E] { return f(state) }

// Name implements Named.
func (f ActionFunc[S, E]) Name() string { return "ActionFunc" }

// EffectFunc adapts a function to Effect. It is never a no-op.
type EffectFunc[S, E any] func(ctx context.Context, env E) (Mutation[S, E], error)

// Perform implements Effect.
func (f EffectFunc[S, E]) Perform(ctx context.Context, env E) (Mutation[S, E], error) {
	return f(ctx, env)
}

// IsNoop implements Effect.
func (f EffectFunc[S, E]) IsNoop() bool { return false }

// Name implements Named.
func (f EffectFunc[S, E]) Name() string { return "EffectFunc" }

// NameOf returns the trace name of v: Name() when v implements Named,
// otherwise the bare type name without package path or type arguments.
func NameOf(v any) string {
	if v == nil {
		return ""
	}
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return t.String()
	}
	return name
}
