package counter

import (
	"github.com/roach88/unistate/internal/engine"
)

func none() SideEffect {
	return engine.None[State, Env]()
}

// Increment adds By to Count. By == 0 is a no-op.
type Increment struct{ By int }

// Reduce implements engine.Mutation.
func (m Increment) Reduce(s State) (State, SideEffect) {
	s.Count += m.By
	return s, none()
}

// IsNoop implements engine.Mutation.
func (m Increment) IsNoop() bool { return m.By == 0 }

// Decrement subtracts By from Count. By == 0 is a no-op.
type Decrement struct{ By int }

// Reduce implements engine.Mutation.
func (m Decrement) Reduce(s State) (State, SideEffect) {
	s.Count -= m.By
	return s, none()
}

// IsNoop implements engine.Mutation.
func (m Decrement) IsNoop() bool { return m.By == 0 }

// Set overwrites Count.
type Set struct{ Value int }

// Reduce implements engine.Mutation.
func (m Set) Reduce(s State) (State, SideEffect) {
	s.Count = m.Value
	return s, none()
}

// IsNoop implements engine.Mutation.
func (Set) IsNoop() bool { return false }

// Reset returns to the zero state.
type Reset struct{}

// Reduce implements engine.Mutation.
func (Reset) Reduce(State) (State, SideEffect) {
	return State{}, none()
}

// IsNoop implements engine.Mutation.
func (Reset) IsNoop() bool { return false }

// StartFetch marks the state loading and schedules Fetch.
// While a fetch is in flight it changes nothing and schedules nothing.
type StartFetch struct{}

// Reduce implements engine.Mutation.
func (StartFetch) Reduce(s State) (State, SideEffect) {
	if s.Loading {
		return s, none()
	}
	s.Loading = true
	s.Error = ""
	return s, engine.Run[State, Env](Fetch{})
}

// IsNoop implements engine.Mutation.
func (StartFetch) IsNoop() bool { return false }

// FetchDone stores a fetched payload.
type FetchDone struct{ Data string }

// Reduce implements engine.Mutation.
func (m FetchDone) Reduce(s State) (State, SideEffect) {
	s.Loading = false
	s.Data = m.Data
	s.Error = ""
	return s, none()
}

// IsNoop implements engine.Mutation.
func (FetchDone) IsNoop() bool { return false }

// FetchFailed records a fetch error.
type FetchFailed struct{ Reason string }

// Reduce implements engine.Mutation.
func (m FetchFailed) Reduce(s State) (State, SideEffect) {
	s.Loading = false
	s.Error = m.Reason
	return s, none()
}

// IsNoop implements engine.Mutation.
func (FetchFailed) IsNoop() bool { return false }
