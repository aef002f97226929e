package engine

import (
	"context"

	"github.com/roach88/unistate/internal/trace"
)

// Dispatch applies a mutation and schedules its side effect.
//
// The commit happens synchronously on the caller's goroutine; the side effect
// runs as a tracked background unit. Dispatch is fire-and-forget: outcomes
// are only observable through state changes.
//
// Steps:
//  1. No-op mutations return immediately (no state access, no notification).
//  2. Reduce runs under the write lock; observers fire only on change.
//  3. The resulting side effect, unless a no-op, is scheduled as a new unit.
func (s *Store[S, E]) Dispatch(m Mutation[S, E]) {
	s.dispatch(s.ctx, "", m)
}

// DispatchAction evaluates an action against a state snapshot and schedules
// the resulting side effect.
//
// The snapshot is read outside the write critical section, so it may be
// superseded by a concurrent commit before the side effect's mutation lands.
// That race is accepted: actions decide, mutations apply.
func (s *Store[S, E]) DispatchAction(a Action[S, E]) {
	if a == nil {
		return
	}
	s.requireObservers("dispatch action", "")
	s.dispatchAction(s.ctx, "", a)
}

// dispatch is the mutation path shared by callers and background units.
// taskID names the unit doing the dispatch, empty for external callers.
func (s *Store[S, E]) dispatch(ctx context.Context, taskID string, m Mutation[S, E]) {
	if m == nil || m.IsNoop() {
		s.record(trace.Event{Kind: trace.KindNoop, Name: NameOf(m), TaskID: taskID})
		return
	}

	name := NameOf(m)
	if ctx.Err() != nil {
		s.logger.Debug("dispatch dropped: store cancelled", "mutation", name, "task_id", taskID)
		s.record(trace.Event{Kind: trace.KindDropped, Name: name, TaskID: taskID, Detail: "cancelled before commit"})
		return
	}

	s.requireObservers("dispatch", taskID)
	s.record(trace.Event{Kind: trace.KindDispatch, Name: name, TaskID: taskID})

	effect, seq := write(s.cell, m.Reduce)
	if seq == 0 {
		s.record(trace.Event{Kind: trace.KindUnchanged, Name: name, TaskID: taskID})
	} else {
		s.record(trace.Event{Kind: trace.KindCommit, Name: name, TaskID: taskID, Seq: seq})
	}

	s.schedule(name, effect)
}

// dispatchAction is the action path shared by callers and ingestion.
func (s *Store[S, E]) dispatchAction(ctx context.Context, taskID string, a Action[S, E]) {
	name := NameOf(a)
	if ctx.Err() != nil {
		s.record(trace.Event{Kind: trace.KindDropped, Name: name, TaskID: taskID, Detail: "cancelled before perform"})
		return
	}

	effect := a.Perform(s.cell.read())
	s.record(trace.Event{Kind: trace.KindAction, Name: name, TaskID: taskID})
	s.schedule(name, effect)
}

// schedule runs a side effect as a new background unit. No-ops are skipped.
func (s *Store[S, E]) schedule(origin string, effect SideEffect[S, E]) {
	if effect.IsNoop() {
		return
	}
	s.spawn(origin, func(ctx context.Context, taskID string) {
		s.execute(ctx, taskID, effect)
	})
}

// spawn registers a unit under a fresh id and starts it.
//
// Each unit gets its own context derived from the store's root context, not
// from the spawning unit, so chains outlive the unit that started them. The
// deferred cleanup deregisters the unit on every exit path.
func (s *Store[S, E]) spawn(origin string, run func(ctx context.Context, taskID string)) {
	id := s.ids.Generate()
	ctx, cancel := context.WithCancel(s.ctx)

	switch s.registry.register(id, cancel) {
	case registryClosed:
		cancel()
		s.logger.Debug("unit dropped: store shut down", "origin", origin)
		s.record(trace.Event{Kind: trace.KindDropped, Name: origin, Detail: "store shut down"})
		return
	case duplicateTask:
		cancel()
		s.fault(&Fault{
			Code:    FaultInvariant,
			Message: "task id generator returned a duplicate id",
			TaskID:  id,
		})
		return
	}

	s.logger.Debug("unit scheduled", "origin", origin, "task_id", id)
	s.record(trace.Event{Kind: trace.KindSchedule, Name: origin, TaskID: id})

	go func() {
		defer func() {
			s.record(trace.Event{Kind: trace.KindComplete, Name: origin, TaskID: id})
			cancel()
			s.registry.complete(id)
		}()
		run(ctx, id)
	}()
}
