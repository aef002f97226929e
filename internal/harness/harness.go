package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/unistate/internal/counter"
	"github.com/roach88/unistate/internal/engine"
	"github.com/roach88/unistate/internal/testutil"
	"github.com/roach88/unistate/internal/trace"
)

// DefaultStepTimeout bounds how long a single step may take to settle.
const DefaultStepTimeout = 5 * time.Second

// Harness is the scenario execution engine.
// It drives one store with deterministic task ids and collects everything
// the assertions look at.
type Harness struct {
	store   *counter.Store
	memory  *trace.Memory
	changes *testutil.Changes[counter.State]
	ctx     context.Context
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	faults []string
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	ctx      context.Context
	logger   *slog.Logger
	recorder trace.Recorder
	timeout  time.Duration
}

// WithContext sets the context the store runs under. Cancelling it
// cancels every background unit and ends the current step's wait, so Run
// returns without sitting out the step timeout.
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithLogger sets the logger handed to the store. Logs are discarded by
// default.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder adds a recorder that receives every trace event alongside
// the in-memory trace, e.g. a journal run.
func WithRecorder(r trace.Recorder) RunOption {
	return func(c *runConfig) {
		c.recorder = r
	}
}

// WithStepTimeout overrides DefaultStepTimeout.
func WithStepTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store. Execution flow:
//  1. Build the store from the scenario's initial state and environment
//  2. Dispatch each step, then wait until no background unit is left
//  3. Shut the store down and snapshot trace, notifications and state
//  4. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed; failed
// assertions are reported through Result.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	cfg := runConfig{
		ctx:     context.Background(),
		logger:  testutil.DiscardLogger(),
		timeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{
		ctx:     cfg.ctx,
		memory:  trace.NewMemory(),
		changes: testutil.NewChanges[counter.State](),
		logger:  cfg.logger,
		timeout: cfg.timeout,
	}

	var recorder trace.Recorder = h.memory
	if cfg.recorder != nil {
		recorder = trace.Multi{h.memory, cfg.recorder}
	}

	h.store = counter.NewStore(scenario.Initial, counter.NewEnv(scenario.Env),
		engine.WithContext(cfg.ctx),
		engine.WithLogger(cfg.logger),
		engine.WithIDGenerator(engine.NewSequentialGenerator("task")),
		engine.WithRecorder(recorder),
		engine.WithFaultHandler(h.recordFault),
	)
	h.store.OnWillChange(h.changes.Will)
	h.store.OnDidChange(h.changes.Did)

	for i, step := range scenario.Steps {
		if err := h.executeStep(step); err != nil {
			h.store.Shutdown()
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	h.store.Shutdown()

	result := NewResult()
	result.Trace = h.memory.Events()
	result.State = h.store.State()
	result.Changes = h.changes.DidCount()
	result.Faults = h.faultMessages()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
	)
	return result, nil
}

// executeStep dispatches one step and waits for the store to settle.
func (h *Harness) executeStep(step Step) error {
	if len(step.Ingest) > 0 {
		msgs := make([]counter.Message, 0, len(step.Ingest))
		for _, s := range step.Ingest {
			msg, err := s.message()
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		h.store.Ingest(engine.FromSlice(msgs...))
		return h.settle()
	}

	msg, err := step.message()
	if err != nil {
		return err
	}
	switch msg.Kind {
	case engine.MessageMutation:
		h.store.Dispatch(msg.Mutation)
	case engine.MessageAction:
		h.store.DispatchAction(msg.Action)
	}
	return h.settle()
}

func (h *Harness) settle() error {
	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()
	if err := h.store.Wait(ctx); err != nil {
		return fmt.Errorf("store did not settle within %s (%d units pending): %w",
			h.timeout, h.store.Pending(), err)
	}
	return nil
}

// recordFault is the store's fault handler. Faults never halt a scenario;
// they are collected for the no_faults assertion.
func (h *Harness) recordFault(f *engine.Fault) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults = append(h.faults, f.Error())
}

func (h *Harness) faultMessages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.faults) == 0 {
		return nil
	}
	out := make([]string, len(h.faults))
	copy(out, h.faults)
	return out
}
