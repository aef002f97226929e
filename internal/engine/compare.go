package engine

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/go-cmp/cmp"
)

// exportAll lets cmp descend into unexported fields of any type.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// stateComparer decides whether a candidate state differs from the
// committed one.
//
// cmp.Equal panics on unexported fields that no option covers. The first
// such panic switches the comparer to exportAll for the rest of the store's
// life and logs a warning once, so a state type with private fields still
// works without WithCompareOptions.
type stateComparer[S any] struct {
	opts   []cmp.Option
	logger *slog.Logger

	exported atomic.Bool
	warn     sync.Once
}

func newStateComparer[S any](opts []cmp.Option, logger *slog.Logger) *stateComparer[S] {
	return &stateComparer[S]{opts: opts, logger: logger}
}

func (c *stateComparer[S]) equal(a, b S) bool {
	if c.exported.Load() {
		return c.equalExported(a, b)
	}
	eq, ok := c.try(a, b, c.opts)
	if ok {
		return eq
	}
	c.exported.Store(true)
	return c.equalExported(a, b)
}

func (c *stateComparer[S]) equalExported(a, b S) bool {
	opts := append(append([]cmp.Option(nil), c.opts...), exportAll)
	eq, ok := c.try(a, b, opts)
	if !ok {
		return reflect.DeepEqual(a, b)
	}
	return eq
}

// try runs cmp.Equal and reports ok=false if it panicked.
func (c *stateComparer[S]) try(a, b S, opts []cmp.Option) (eq, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.warn.Do(func() {
				c.logger.Warn("state type not comparable with the configured options, comparing unexported fields",
					"type", reflect.TypeOf((*S)(nil)).Elem().String(), "reason", r)
			})
			eq, ok = false, false
		}
	}()
	return cmp.Equal(a, b, opts...), true
}
