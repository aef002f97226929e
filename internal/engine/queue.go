package engine

import (
	"context"
	"io"
	"sync"
)

// Queue is an unbounded FIFO of messages that implements Sequence.
//
// Producers Push from any goroutine; the ingestion unit pulls with Next.
// Close ends the stream once the queued messages are drained.
//
// The queue is unbounded so a producer never blocks on a slow chain. A
// buffered signal channel (size 1) coalesces wakeups, and Next waits on it
// together with ctx so cancellation never leaves the consumer stuck.
type Queue[S, E any] struct {
	mu     sync.Mutex
	msgs   []Message[S, E]
	closed bool
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[S, E any]() *Queue[S, E] {
	return &Queue[S, E]{
		msgs:   make([]Message[S, E], 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Push appends msg. Returns false if the queue is closed.
func (q *Queue[S, E]) Push(msg Message[S, E]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.msgs = append(q.msgs, msg)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// PushMutation is Push(Mutate(m)).
func (q *Queue[S, E]) PushMutation(m Mutation[S, E]) bool {
	return q.Push(Mutate(m))
}

// PushAction is Push(Act(a)).
func (q *Queue[S, E]) PushAction(a Action[S, E]) bool {
	return q.Push(Act(a))
}

// tryPop removes the front message without blocking.
func (q *Queue[S, E]) tryPop() (Message[S, E], bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.msgs) == 0 {
		return Message[S, E]{}, false, q.closed
	}
	msg := q.msgs[0]
	// Clear the slot so the backing array does not pin the message.
	q.msgs[0] = Message[S, E]{}
	if len(q.msgs) == 1 {
		q.msgs = q.msgs[:0]
	} else {
		q.msgs = q.msgs[1:]
	}
	return msg, true, q.closed
}

// Next implements Sequence. It blocks until a message is available, the
// queue is closed and drained (io.EOF), or ctx ends (ctx.Err()).
func (q *Queue[S, E]) Next(ctx context.Context) (Message[S, E], error) {
	for {
		msg, ok, closed := q.tryPop()
		if ok {
			return msg, nil
		}
		if closed {
			return Message[S, E]{}, io.EOF
		}

		select {
		case <-ctx.Done():
			return Message[S, E]{}, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len returns the number of queued messages.
func (q *Queue[S, E]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Close marks the end of the stream and wakes a waiting consumer.
func (q *Queue[S, E]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
