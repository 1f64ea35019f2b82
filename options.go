package goformula

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sandrolain/goformula/pkg/functions"
)

// WithLogger sets the logger used by the engine, evaluator and registry.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithDebug enables or disables per-node debug logging.
func WithDebug(enabled bool) Option {
	return func(o *Options) {
		o.Debug = enabled
	}
}

// WithMaxDepth sets the maximum evaluation depth.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		o.MaxDepth = depth
	}
}

// WithParseMaxDepth sets the maximum parse nesting depth.
func WithParseMaxDepth(depth int) Option {
	return func(o *Options) {
		o.ParseMaxDepth = depth
	}
}

// WithTimeout sets the per-evaluation timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = &timeout
	}
}

// WithCaching enables or disables the parsed-formula cache.
func WithCaching(enabled bool) Option {
	return func(o *Options) {
		o.Caching = enabled
	}
}

// WithCacheSize sets the cache capacity and enables caching.
func WithCacheSize(size int) Option {
	return func(o *Options) {
		o.Caching = true
		o.CacheSize = size
	}
}

// WithFunction registers a user function accepting any number of arguments.
func WithFunction(name string, fn functions.Func) Option {
	return func(o *Options) {
		o.Functions = append(o.Functions, functions.FunctionDef{Name: name, MinArgs: 0, MaxArgs: -1, Impl: fn})
	}
}

// WithFunctions registers several user functions.
func WithFunctions(defs ...functions.FunctionDef) Option {
	return func(o *Options) {
		o.Functions = append(o.Functions, defs...)
	}
}

// WithRand sets the random source for RAND and RANDBETWEEN.
func WithRand(r *rand.Rand) Option {
	return func(o *Options) {
		o.Rand = r
	}
}

// WithClock sets the time source for TODAY and NOW.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}
