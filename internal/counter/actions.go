package counter

import (
	"github.com/roach88/unistate/internal/engine"
)

func emit(m Mutation) SideEffect {
	return engine.Run[State, Env](Emit{Mutation: m})
}

// IncrementIfOdd increments the counter when the snapshot is odd.
type IncrementIfOdd struct{}

// Perform implements engine.Action.
func (IncrementIfOdd) Perform(s State) SideEffect {
	if s.Count%2 == 0 {
		return none()
	}
	return emit(Increment{By: 1})
}

// FetchIfIdle starts a fetch unless one is already running.
type FetchIfIdle struct{}

// Perform implements engine.Action.
func (FetchIfIdle) Perform(s State) SideEffect {
	if s.Loading {
		return none()
	}
	return emit(StartFetch{})
}

// Burst emits N single increments, serially or in parallel.
type Burst struct {
	N        int
	Parallel bool
}

// Perform implements engine.Action. N <= 0 yields no effect.
func (b Burst) Perform(State) SideEffect {
	if b.N <= 0 {
		return none()
	}
	children := make([]SideEffect, 0, b.N)
	for i := 0; i < b.N; i++ {
		children = append(children, emit(Increment{By: 1}))
	}
	if b.Parallel {
		return engine.Parallel(children...)
	}
	return engine.Sequential(children...)
}
