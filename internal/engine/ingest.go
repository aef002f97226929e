package engine

import (
	"context"
	"errors"
	"io"

	"github.com/roach88/unistate/internal/trace"
)

// MessageKind distinguishes the two things a stream can carry.
type MessageKind int

const (
	// MessageMutation carries a Mutation.
	MessageMutation MessageKind = iota + 1
	// MessageAction carries an Action.
	MessageAction
)

// Message wraps a mutation or an action for ingestion.
type Message[S, E any] struct {
	Kind     MessageKind
	Mutation Mutation[S, E]
	Action   Action[S, E]
}

// Mutate wraps a mutation.
func Mutate[S, E any](m Mutation[S, E]) Message[S, E] {
	return Message[S, E]{Kind: MessageMutation, Mutation: m}
}

// Act wraps an action.
func Act[S, E any](a Action[S, E]) Message[S, E] {
	return Message[S, E]{Kind: MessageAction, Action: a}
}

// Sequence is an ordered, possibly unbounded stream of messages.
//
// Next blocks until the next message is available. It returns io.EOF when the
// stream is exhausted and should return ctx.Err() when ctx ends first. Any
// other error is a stream fault.
type Sequence[S, E any] interface {
	Next(ctx context.Context) (Message[S, E], error)
}

// Ingest consumes seq as one long-lived background unit, dispatching each
// message before requesting the next.
//
// Stream order holds for the dispatch calls only: each mutation's side
// effect chain runs as its own unit and may overlap later messages.
//
// Exhaustion ends the unit normally. A stream error ends it and is reported
// as FaultStream; it is never returned to the caller and never retried.
func (s *Store[S, E]) Ingest(seq Sequence[S, E]) {
	if seq == nil {
		return
	}
	s.requireObservers("ingest", "")
	s.spawn("ingest", func(ctx context.Context, taskID string) {
		s.ingest(ctx, taskID, seq)
	})
}

func (s *Store[S, E]) ingest(ctx context.Context, taskID string, seq Sequence[S, E]) {
	for {
		msg, err := seq.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			s.logger.Debug("ingestion finished", "task_id", taskID)
			s.record(trace.Event{Kind: trace.KindIngestDone, TaskID: taskID})
			return

		case err != nil && ctx.Err() != nil:
			s.logger.Debug("ingestion cancelled", "task_id", taskID)
			s.record(trace.Event{Kind: trace.KindDropped, Name: "ingest", TaskID: taskID, Detail: "cancelled"})
			return

		case err != nil:
			s.fault(&Fault{
				Code:    FaultStream,
				Message: "ingestion stream failed",
				TaskID:  taskID,
				Err:     err,
			})
			return
		}

		if ctx.Err() != nil {
			s.record(trace.Event{Kind: trace.KindDropped, Name: "ingest", TaskID: taskID, Detail: "cancelled"})
			return
		}
		s.deliver(ctx, taskID, msg)
	}
}

// deliver routes one ingested message to the matching dispatch path.
func (s *Store[S, E]) deliver(ctx context.Context, taskID string, msg Message[S, E]) {
	switch {
	case msg.Kind == MessageMutation && msg.Mutation != nil:
		s.dispatch(ctx, taskID, msg.Mutation)
	case msg.Kind == MessageAction && msg.Action != nil:
		s.dispatchAction(ctx, taskID, msg.Action)
	default:
		s.fault(&Fault{
			Code:    FaultInvariant,
			Message: "ingested message carries neither a mutation nor an action",
			TaskID:  taskID,
		})
	}
}

// sliceSequence yields a fixed list of messages.
type sliceSequence[S, E any] struct {
	msgs []Message[S, E]
	next int
}

// FromSlice returns a finite Sequence over msgs.
func FromSlice[S, E any](msgs ...Message[S, E]) Sequence[S, E] {
	return &sliceSequence[S, E]{msgs: msgs}
}

// Next implements Sequence.
func (q *sliceSequence[S, E]) Next(ctx context.Context) (Message[S, E], error) {
	if err := ctx.Err(); err != nil {
		return Message[S, E]{}, err
	}
	if q.next >= len(q.msgs) {
		return Message[S, E]{}, io.EOF
	}
	msg := q.msgs[q.next]
	q.next++
	return msg, nil
}

// chanSequence reads messages from a channel.
type chanSequence[S, E any] struct {
	ch <-chan Message[S, E]
}

// FromChannel returns a Sequence reading from ch. Closing ch ends the
// stream.
func FromChannel[S, E any](ch <-chan Message[S, E]) Sequence[S, E] {
	return chanSequence[S, E]{ch: ch}
}

// Next implements Sequence.
func (c chanSequence[S, E]) Next(ctx context.Context) (Message[S, E], error) {
	select {
	case <-ctx.Done():
		return Message[S, E]{}, ctx.Err()
	case msg, ok := <-c.ch:
		if !ok {
			return Message[S, E]{}, io.EOF
		}
		return msg, nil
	}
}
