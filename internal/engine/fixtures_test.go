package engine

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/unistate/internal/testutil"
	"github.com/roach88/unistate/internal/trace"
)

// testState is the state used by engine tests. Log is appended to by
// logEntry so tests can observe the order in which mutations landed.
type testState struct {
	Count   int
	Log     []string
	Loading bool
	Data    string
}

type testEnv struct {
	data string
}

type testSideEffect = SideEffect[testState, testEnv]
type testMutation = Mutation[testState, testEnv]

// add increments Count.
type add struct{ by int }

func (m add) Reduce(s testState) (testState, testSideEffect) {
	s.Count += m.by
	return s, None[testState, testEnv]()
}

func (add) IsNoop() bool { return false }

// setCount overwrites Count.
type setCount struct{ value int }

func (m setCount) Reduce(s testState) (testState, testSideEffect) {
	s.Count = m.value
	return s, None[testState, testEnv]()
}

func (setCount) IsNoop() bool { return false }

// logEntry appends entry to Log and hands back then as its side effect.
type logEntry struct {
	entry string
	then  testSideEffect
}

func (m logEntry) Reduce(s testState) (testState, testSideEffect) {
	s.Log = append(slices.Clone(s.Log), m.entry)
	return s, m.then
}

func (logEntry) IsNoop() bool { return false }

// startFetch flips Loading and schedules fetch.
type startFetch struct{}

func (startFetch) Reduce(s testState) (testState, testSideEffect) {
	if s.Loading {
		return s, None[testState, testEnv]()
	}
	s.Loading = true
	return s, Run[testState, testEnv](fetch{})
}

func (startFetch) IsNoop() bool { return false }

// fetch reads the environment payload.
type fetch struct{}

func (fetch) Perform(ctx context.Context, env testEnv) (testMutation, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}
	return fetchDone{data: env.data}, nil
}

func (fetch) IsNoop() bool { return false }

// fetchDone stores the fetched payload.
type fetchDone struct{ data string }

func (m fetchDone) Reduce(s testState) (testState, testSideEffect) {
	s.Loading = false
	s.Data = m.data
	return s, None[testState, testEnv]()
}

func (fetchDone) IsNoop() bool { return false }

// leaf wraps fn as a leaf side effect.
func leaf(fn func(ctx context.Context, env testEnv) (testMutation, error)) testSideEffect {
	return Run[testState, testEnv](EffectFunc[testState, testEnv](fn))
}

// logAfter is a leaf that waits delay, then logs entry.
func logAfter(entry string, delay time.Duration) testSideEffect {
	return leaf(func(ctx context.Context, _ testEnv) (testMutation, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		return logEntry{entry: entry}, nil
	})
}

// faultSink is a FaultHandler that records instead of halting.
type faultSink struct {
	mu     sync.Mutex
	faults []*Fault
}

func (f *faultSink) handle(fault *Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, fault)
}

func (f *faultSink) codes() []FaultCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FaultCode, 0, len(f.faults))
	for _, fault := range f.faults {
		out = append(out, fault.Code)
	}
	return out
}

func (f *faultSink) all() []*Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.faults)
}

// fixture bundles a store with everything tests observe it through.
type fixture struct {
	store   *Store[testState, testEnv]
	changes *testutil.Changes[testState]
	faults  *faultSink
	trace   *trace.Memory
}

// newFixture creates a store with both observers registered, a recording
// fault handler and sequential task ids. The store is shut down on cleanup.
func newFixture(t *testing.T, initial testState, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		changes: testutil.NewChanges[testState](),
		faults:  &faultSink{},
		trace:   trace.NewMemory(),
	}
	base := []Option{
		WithFaultHandler(f.faults.handle),
		WithRecorder(f.trace),
		WithIDGenerator(NewSequentialGenerator("task")),
		WithLogger(testutil.DiscardLogger()),
	}
	f.store = New(initial, testEnv{data: "payload"}, append(base, opts...)...)
	f.store.OnWillChange(f.changes.Will)
	f.store.OnDidChange(f.changes.Did)
	t.Cleanup(f.store.Shutdown)
	return f
}

// wait blocks until every background unit has completed.
func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.store.Wait(ctx), "store did not settle")
}
