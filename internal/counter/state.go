package counter

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/unistate/internal/engine"
)

// State is the counter application state.
type State struct {
	Count   int    `json:"count" yaml:"count"`
	Loading bool   `json:"loading" yaml:"loading"`
	Data    string `json:"data" yaml:"data"`
	Error   string `json:"error" yaml:"error"`
}

// Canonical converts the state to a map suitable for trace.MarshalCanonical.
func (s State) Canonical() map[string]any {
	return map[string]any{
		"count":   s.Count,
		"loading": s.Loading,
		"data":    s.Data,
		"error":   s.Error,
	}
}

// Fetcher loads the payload for the fetch effect.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Env is the counter environment.
type Env struct {
	Fetcher Fetcher
}

// Engine instantiations used throughout the package.
type (
	Store      = engine.Store[State, Env]
	Mutation   = engine.Mutation[State, Env]
	Action     = engine.Action[State, Env]
	SideEffect = engine.SideEffect[State, Env]
	Message    = engine.Message[State, Env]
)

// NewStore creates a counter store.
func NewStore(initial State, env Env, opts ...engine.Option) *Store {
	return engine.New(initial, env, opts...)
}

// StaticFetcher returns Data after Delay, or fails with Err.
type StaticFetcher struct {
	Data  string
	Delay time.Duration
	Err   error
}

// Fetch implements Fetcher. It honours ctx while waiting.
func (f StaticFetcher) Fetch(ctx context.Context) (string, error) {
	if f.Delay > 0 {
		timer := time.NewTimer(f.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Data, nil
}

// EnvConfig describes a StaticFetcher environment in scenario files.
type EnvConfig struct {
	Data    string `yaml:"data" json:"data"`
	DelayMS int    `yaml:"delay_ms" json:"delay_ms"`
	Fail    string `yaml:"fail" json:"fail"`
}

// NewEnv builds an environment from cfg.
func NewEnv(cfg EnvConfig) Env {
	f := StaticFetcher{
		Data:  cfg.Data,
		Delay: time.Duration(cfg.DelayMS) * time.Millisecond,
	}
	if cfg.Fail != "" {
		f.Err = errors.New(cfg.Fail)
	}
	return Env{Fetcher: f}
}
