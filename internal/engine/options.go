package engine

import (
	"context"
	"log/slog"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/unistate/internal/trace"
)

// Option configures a Store.
type Option func(*config)

type config struct {
	ctx      context.Context
	logger   *slog.Logger
	ids      TaskIDGenerator
	recorder trace.Recorder
	faults   FaultHandler
	compare  []cmp.Option
}

func defaultConfig() config {
	return config{
		ctx:      context.Background(),
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		recorder: trace.Discard{},
	}
}

// WithContext sets the parent of the store's root context. Cancelling it
// cancels every background unit, like Shutdown, but leaves the registry open.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIDGenerator sets the task id generator. Default: UUIDv7Generator.
// Use NewSequentialGenerator for reproducible traces.
func WithIDGenerator(ids TaskIDGenerator) Option {
	return func(c *config) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithRecorder sets the trace recorder. Default: trace.Discard.
func WithRecorder(r trace.Recorder) Option {
	return func(c *config) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithFaultHandler replaces DefaultFaultHandler.
func WithFaultHandler(h FaultHandler) Option {
	return func(c *config) {
		c.faults = h
	}
}

// WithCompareOptions passes options to cmp.Equal when deciding whether a
// reduce produced a new state. Needed for states with unexported fields
// (cmp.AllowUnexported) or to relax equality (cmpopts.EquateEmpty).
func WithCompareOptions(opts ...cmp.Option) Option {
	return func(c *config) {
		c.compare = append(c.compare, opts...)
	}
}
