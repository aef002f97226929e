package counter

import (
	"context"
	"errors"
)

// Fetch loads the payload through the environment's Fetcher.
//
// Fetcher errors become a FetchFailed mutation so the failure is part of the
// state. Cancellation is returned as an error and ends the chain.
type Fetch struct{}

// Perform implements engine.Effect.
func (Fetch) Perform(ctx context.Context, env Env) (Mutation, error) {
	if env.Fetcher == nil {
		return FetchFailed{Reason: "no fetcher configured"}, nil
	}
	data, err := env.Fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return FetchFailed{Reason: err.Error()}, nil
	}
	return FetchDone{Data: data}, nil
}

// IsNoop implements engine.Effect.
func (Fetch) IsNoop() bool { return false }

// Emit resolves immediately to Mutation. It lets actions feed a mutation
// back through the effect path.
type Emit struct{ Mutation Mutation }

// Perform implements engine.Effect.
func (e Emit) Perform(context.Context, Env) (Mutation, error) {
	return e.Mutation, nil
}

// IsNoop implements engine.Effect.
func (e Emit) IsNoop() bool { return e.Mutation == nil || e.Mutation.IsNoop() }

