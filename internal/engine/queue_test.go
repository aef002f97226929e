package engine

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PushNext(t *testing.T) {
	q := NewQueue[testState, testEnv]()

	ok := q.PushMutation(add{by: 1})
	require.True(t, ok, "push should succeed")

	msg, err := q.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MessageMutation, msg.Kind)
	assert.Equal(t, add{by: 1}, msg.Mutation)
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[testState, testEnv]()

	for _, entry := range []string{"A", "B", "C"} {
		q.Push(logMsg(entry))
	}

	for _, want := range []string{"A", "B", "C"} {
		msg, ok, _ := q.tryPop()
		require.True(t, ok)
		assert.Equal(t, want, msg.Mutation.(logEntry).entry)
	}
}

func TestQueue_TryPop_Empty(t *testing.T) {
	q := NewQueue[testState, testEnv]()

	_, ok, closed := q.tryPop()
	assert.False(t, ok, "pop from empty queue should fail")
	assert.False(t, closed)
}

func TestQueue_Next_BlocksUntilAvailable(t *testing.T) {
	q := NewQueue[testState, testEnv]()

	done := make(chan Message[testState, testEnv])
	go func() {
		msg, err := q.Next(context.Background())
		if err == nil {
			done <- msg
		}
	}()

	// Give goroutine time to block
	time.Sleep(10 * time.Millisecond)

	q.PushAction(ActionFunc[testState, testEnv](func(testState) testSideEffect {
		return None[testState, testEnv]()
	}))

	select {
	case msg := <-done:
		assert.Equal(t, MessageAction, msg.Kind)
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock")
	}
}

func TestQueue_Close_UnblocksNext(t *testing.T) {
	q := NewQueue[testState, testEnv]()

	done := make(chan error)
	go func() {
		_, err := q.Next(context.Background())
		done <- err
	}()

	// Give goroutine time to block
	time.Sleep(10 * time.Millisecond)

	q.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after close")
	}
}

func TestQueue_Close_DrainsFirst(t *testing.T) {
	q := NewQueue[testState, testEnv]()
	q.Push(logMsg("queued"))
	q.Close()

	msg, err := q.Next(context.Background())
	require.NoError(t, err, "queued messages survive Close")
	assert.Equal(t, "queued", msg.Mutation.(logEntry).entry)

	_, err = q.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestQueue_Close_Idempotent(t *testing.T) {
	q := NewQueue[testState, testEnv]()
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestQueue_Push_AfterClose(t *testing.T) {
	q := NewQueue[testState, testEnv]()
	q.Close()

	assert.False(t, q.Push(logMsg("late")), "push after close should fail")
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Next_ContextCancelled(t *testing.T) {
	q := NewQueue[testState, testEnv]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		_, err := q.Next(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Next did not observe cancellation")
	}
}

func TestQueue_Len(t *testing.T) {
	q := NewQueue[testState, testEnv]()

	assert.Equal(t, 0, q.Len())

	q.Push(logMsg("1"))
	assert.Equal(t, 1, q.Len())

	q.Push(logMsg("2"))
	assert.Equal(t, 2, q.Len())

	q.tryPop()
	assert.Equal(t, 1, q.Len())

	q.tryPop()
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ThreadSafe(t *testing.T) {
	q := NewQueue[testState, testEnv]()

	const producers = 10
	const messagesPerProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < messagesPerProducer; i++ {
				q.PushMutation(add{by: 1})
			}
		}()
	}

	go func() {
		wg.Wait()
		q.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := 0
	for {
		_, err := q.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		received++
	}

	assert.Equal(t, producers*messagesPerProducer, received)
}
