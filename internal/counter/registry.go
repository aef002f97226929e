package counter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/unistate/internal/engine"
)

// ErrUnknownName is returned by Build for names it does not know.
var ErrUnknownName = errors.New("unknown name")

// Args carries named arguments decoded from a scenario file.
type Args map[string]any

type builder struct {
	kind  engine.MessageKind
	build func(Args) (Message, error)
}

var builders = map[string]builder{
	"Increment": {engine.MessageMutation, func(a Args) (Message, error) {
		by, err := a.Int("by", 1)
		return engine.Mutate[State, Env](Increment{By: by}), err
	}},
	"Decrement": {engine.MessageMutation, func(a Args) (Message, error) {
		by, err := a.Int("by", 1)
		return engine.Mutate[State, Env](Decrement{By: by}), err
	}},
	"Set": {engine.MessageMutation, func(a Args) (Message, error) {
		v, err := a.Int("value", 0)
		return engine.Mutate[State, Env](Set{Value: v}), err
	}},
	"Reset": {engine.MessageMutation, func(Args) (Message, error) {
		return engine.Mutate[State, Env](Reset{}), nil
	}},
	"StartFetch": {engine.MessageMutation, func(Args) (Message, error) {
		return engine.Mutate[State, Env](StartFetch{}), nil
	}},
	"FetchDone": {engine.MessageMutation, func(a Args) (Message, error) {
		data, err := a.String("data", "")
		return engine.Mutate[State, Env](FetchDone{Data: data}), err
	}},
	"FetchFailed": {engine.MessageMutation, func(a Args) (Message, error) {
		reason, err := a.String("reason", "")
		return engine.Mutate[State, Env](FetchFailed{Reason: reason}), err
	}},
	"Noop": {engine.MessageMutation, func(Args) (Message, error) {
		return engine.Mutate[State, Env](engine.NoopMutation[State, Env]{}), nil
	}},
	"IncrementIfOdd": {engine.MessageAction, func(Args) (Message, error) {
		return engine.Act[State, Env](IncrementIfOdd{}), nil
	}},
	"FetchIfIdle": {engine.MessageAction, func(Args) (Message, error) {
		return engine.Act[State, Env](FetchIfIdle{}), nil
	}},
	"Burst": {engine.MessageAction, func(a Args) (Message, error) {
		n, err := a.Int("n", 1)
		if err != nil {
			return Message{}, err
		}
		if n < 0 {
			return Message{}, fmt.Errorf("argument \"n\": must be non-negative, got %d", n)
		}
		parallel, err := a.Bool("parallel", false)
		return engine.Act[State, Env](Burst{N: n, Parallel: parallel}), err
	}},
}

// Build constructs the message named name with args.
//
// kind must match the name: mutations are built with MessageMutation,
// actions with MessageAction.
func Build(kind engine.MessageKind, name string, args Args) (Message, error) {
	b, ok := builders[name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	if b.kind != kind {
		return Message{}, fmt.Errorf("%q is not %s", name, kindName(kind))
	}
	msg, err := b.build(args)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %w", name, err)
	}
	return msg, nil
}

// Names returns the known names of the given kind, sorted.
func Names(kind engine.MessageKind) []string {
	var out []string
	for name, b := range builders {
		if b.kind == kind {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Known reports whether name is a known message of the given kind.
func Known(kind engine.MessageKind, name string) bool {
	b, ok := builders[name]
	return ok && b.kind == kind
}

func kindName(kind engine.MessageKind) string {
	switch kind {
	case engine.MessageMutation:
		return "a mutation"
	case engine.MessageAction:
		return "an action"
	default:
		return "a message"
	}
}

// Int returns the integer argument key, or def when absent.
// YAML and JSON decoders produce different numeric types; all are accepted
// as long as the value is integral.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("argument %q: %v is not an integer", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("argument %q: expected integer, got %T", key, v)
	}
}

// String returns the string argument key, or def when absent.
func (a Args) String(key, def string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: expected string, got %T", key, v)
	}
	return s, nil
}

// Bool returns the boolean argument key, or def when absent.
func (a Args) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %q: expected bool, got %T", key, v)
	}
	return b, nil
}
