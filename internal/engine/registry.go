package engine

import (
	"context"
	"sync"
)

// taskRegistry tracks in-flight background units by id.
//
// A unit is registered before its goroutine starts and removes itself on
// every exit path. cancelAll runs once at teardown: it cancels every handle,
// empties the map and refuses later registrations. Cancellation is
// cooperative; cancelAll never waits for units to notice.
type taskRegistry struct {
	mu     sync.Mutex
	tasks  map[string]context.CancelFunc
	closed bool
	idle   chan struct{} // closed whenever tasks is empty
}

func newTaskRegistry() *taskRegistry {
	idle := make(chan struct{})
	close(idle)
	return &taskRegistry{
		tasks: make(map[string]context.CancelFunc),
		idle:  idle,
	}
}

// registerResult explains the outcome of register.
type registerResult int

const (
	registered registerResult = iota
	registryClosed
	duplicateTask
)

// register records a cancellable unit.
func (r *taskRegistry) register(id string, cancel context.CancelFunc) registerResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return registryClosed
	}
	if _, exists := r.tasks[id]; exists {
		return duplicateTask
	}
	if len(r.tasks) == 0 {
		r.idle = make(chan struct{})
	}
	r.tasks[id] = cancel
	return registered
}

// complete removes a unit. Absent ids are ignored.
func (r *taskRegistry) complete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return
	}
	delete(r.tasks, id)
	if len(r.tasks) == 0 {
		close(r.idle)
	}
}

// cancelAll cancels every registered unit, empties the registry and closes
// it to further registrations. Returns the number of units cancelled.
func (r *taskRegistry) cancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.tasks)
	for id, cancel := range r.tasks {
		cancel()
		delete(r.tasks, id)
	}
	if n > 0 {
		close(r.idle)
	}
	r.closed = true
	return n
}

// len returns the number of registered units.
func (r *taskRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// has reports whether id is registered.
func (r *taskRegistry) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[id]
	return ok
}

// wait blocks until the registry is empty or ctx ends.
//
// Units register their children before deregistering themselves, so an
// empty registry means every chain has settled.
func (r *taskRegistry) wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if len(r.tasks) == 0 {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}
