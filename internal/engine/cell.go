package engine

import "sync"

// stateCell holds the single state value and the environment.
//
// Thread-safety model:
//   - read/environment: shared lock, any goroutine
//   - write: exclusive lock for the whole compare-and-commit window,
//     including both observer callbacks
//
// Observer callbacks run while the write lock is held. They must not call
// back into the store synchronously (State, Dispatch); hand work off to
// another goroutine instead.
type stateCell[S, E any] struct {
	mu    sync.RWMutex
	state S
	env   E
	equal func(a, b S) bool
	clock *Clock

	willChange func(S)
	didChange  func(S)
}

func newStateCell[S, E any](initial S, env E, equal func(a, b S) bool) *stateCell[S, E] {
	return &stateCell[S, E]{
		state: initial,
		env:   env,
		equal: equal,
		clock: NewClock(),
	}
}

// read returns the committed state.
func (c *stateCell[S, E]) read() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// environment returns the environment. It never changes after construction.
func (c *stateCell[S, E]) environment() E {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.env
}

func (c *stateCell[S, E]) setWillChange(fn func(S)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.willChange = fn
}

func (c *stateCell[S, E]) setDidChange(fn func(S)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.didChange = fn
}

// observed reports whether both observer callbacks are registered.
func (c *stateCell[S, E]) observed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.willChange != nil && c.didChange != nil
}

// write applies update to the committed state under the exclusive lock.
//
// If the candidate differs from the committed state: willChange(old),
// commit, didChange(new), and the commit is stamped with the next clock
// value. Otherwise nothing fires and seq is 0. The update's result is
// returned either way.
//
// Missing callbacks are skipped; reporting that precondition is the
// caller's job.
func write[S, E, R any](c *stateCell[S, E], update func(S) (S, R)) (result R, seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.state
	next, result := update(old)
	if c.equal(old, next) {
		return result, 0
	}

	if c.willChange != nil {
		c.willChange(old)
	}
	c.state = next
	seq = c.clock.Next()
	if c.didChange != nil {
		c.didChange(next)
	}
	return result, seq
}
