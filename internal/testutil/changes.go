package testutil

import "sync"

// Changes records observer notifications for tests.
//
// Register Will and Did as a store's willChange and didChange callbacks, then
// assert on the recorded states and their interleaving.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Changes[S any] struct {
	mu    sync.Mutex
	will  []S
	did   []S
	order []string
}

// NewChanges creates an empty recorder.
func NewChanges[S any]() *Changes[S] {
	return &Changes[S]{}
}

// Will records a willChange notification carrying the old state.
func (c *Changes[S]) Will(old S) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.will = append(c.will, old)
	c.order = append(c.order, "will")
}

// Did records a didChange notification carrying the new state.
func (c *Changes[S]) Did(next S) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.did = append(c.did, next)
	c.order = append(c.order, "did")
}

// WillStates returns a copy of the old states seen by willChange.
func (c *Changes[S]) WillStates() []S {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]S, len(c.will))
	copy(out, c.will)
	return out
}

// DidStates returns a copy of the new states seen by didChange.
func (c *Changes[S]) DidStates() []S {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]S, len(c.did))
	copy(out, c.did)
	return out
}

// DidCount returns the number of didChange notifications.
func (c *Changes[S]) DidCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.did)
}

// Order returns the notification sequence as "will"/"did" markers.
func (c *Changes[S]) Order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Reset drops everything recorded so far.
func (c *Changes[S]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.will = nil
	c.did = nil
	c.order = nil
}
