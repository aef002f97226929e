package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/unistate/internal/trace"
)

// Store owns one state value, its environment, and every background unit
// spawned on its behalf.
//
// Thread-safety model:
//   - Dispatch, DispatchAction, Ingest: safe from any goroutine
//   - State, Environment, Pending, Wait: safe from any goroutine
//   - OnWillChange, OnDidChange: register both before the first dispatch
//   - Shutdown: idempotent, safe from any goroutine
//
// INVARIANTS:
//   - All commits are totally ordered (single writer under the cell lock)
//   - Observers fire iff the committed state changes, old then new
//   - A mutation's side effect is scheduled only after its commit
//   - Every unit is in the registry from scheduling until it completes
type Store[S, E any] struct {
	cell     *stateCell[S, E]
	registry *taskRegistry
	ids      TaskIDGenerator
	recorder trace.Recorder
	faults   FaultHandler
	logger   *slog.Logger

	ctx      context.Context // root context, parent of every unit
	cancel   context.CancelFunc
	shutdown sync.Once
}

// New creates a store holding initial and env.
//
// State equality uses cmp.Equal, which honours an Equal method on S.
// Unexported fields that WithCompareOptions does not cover are compared
// field by field after a one-time warning.
func New[S, E any](initial S, env E, opts ...Option) *Store[S, E] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.faults == nil {
		cfg.faults = DefaultFaultHandler(cfg.logger)
	}

	compare := newStateComparer[S](cfg.compare, cfg.logger)
	compare.equal(initial, initial)

	ctx, cancel := context.WithCancel(cfg.ctx)
	return &Store[S, E]{
		cell:     newStateCell(initial, env, compare.equal),
		registry: newTaskRegistry(),
		ids:      cfg.ids,
		recorder: cfg.recorder,
		faults:   cfg.faults,
		logger:   cfg.logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnWillChange registers the callback fired with the old state right before
// a commit. It runs under the write lock; see stateCell.
func (s *Store[S, E]) OnWillChange(fn func(S)) {
	s.cell.setWillChange(fn)
}

// OnDidChange registers the callback fired with the new state right after a
// commit. It runs under the write lock; see stateCell.
func (s *Store[S, E]) OnDidChange(fn func(S)) {
	s.cell.setDidChange(fn)
}

// State returns a snapshot of the committed state.
func (s *Store[S, E]) State() S {
	return s.cell.read()
}

// Environment returns the environment handle supplied to New.
func (s *Store[S, E]) Environment() E {
	return s.cell.environment()
}

// Commits returns the number of committed state changes so far.
func (s *Store[S, E]) Commits() int64 {
	return s.cell.clock.Current()
}

// Pending returns the number of registered background units.
func (s *Store[S, E]) Pending() int {
	return s.registry.len()
}

// Wait blocks until no background unit is registered or ctx ends.
//
// Callers dispatching concurrently with Wait may see it return between two
// of their own units; Wait reports quiescence, not the end of future work.
func (s *Store[S, E]) Wait(ctx context.Context) error {
	return s.registry.wait(ctx)
}

// Done is closed once the store has been shut down or its parent context
// ended.
func (s *Store[S, E]) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Shutdown tears the store down: every registered unit is cancelled, the
// registry is emptied and closed, and the root context is cancelled.
// Committed state is kept. Later dispatches are dropped.
//
// Shutdown does not wait for units to observe cancellation.
func (s *Store[S, E]) Shutdown() {
	s.shutdown.Do(func() {
		n := s.registry.cancelAll()
		s.cancel()
		s.logger.Info("store shut down", "cancelled_units", n)
		s.record(trace.Event{Kind: trace.KindShutdown, Detail: fmt.Sprintf("cancelled=%d", n)})
	})
}

// requireObservers reports FaultObserversMissing when a callback is missing.
// Execution continues after the handler returns.
func (s *Store[S, E]) requireObservers(op, taskID string) bool {
	if s.cell.observed() {
		return true
	}
	s.fault(&Fault{
		Code:    FaultObserversMissing,
		Message: op + " before OnWillChange and OnDidChange were registered",
		TaskID:  taskID,
	})
	return false
}

func (s *Store[S, E]) fault(f *Fault) {
	s.record(trace.Event{Kind: trace.KindFault, TaskID: f.TaskID, Detail: string(f.Code)})
	s.faults(f)
}

func (s *Store[S, E]) record(ev trace.Event) {
	s.recorder.Record(ev)
}
