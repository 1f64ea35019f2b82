// Package evaluator implements the formula evaluation engine.
//
// The evaluator receives a parsed Abstract Syntax Tree (AST) from the parser
// and walks it depth first against a variable context. It supports:
//   - Excel-compatible operator and coercion semantics
//   - Builtin and user function calls through a functions.Registry
//   - Scoped variable overrides that never touch the persistent context
//   - Optional tracing of the evaluation tree
//   - Timeout and cancellation via context.Context
//
// Evaluation never fails with a Go error: every outcome is a [Result] whose
// Value may be an Error value.
//
// # Example
//
//	ev := evaluator.New()
//	vars := types.NewContext()
//	vars.Set("A1", types.Number(2))
//	res := ev.Eval(ctx, expr, vars)
//	if res.Success() {
//	    fmt.Println(res.Value)
//	}
package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// Sentinel causes reported in Result.Err.
var (
	ErrMaxDepth          = errors.New("maximum evaluation depth exceeded")
	ErrInvalidExpression = errors.New("invalid expression")
	ErrPanic             = errors.New("evaluation panicked")
)

// Evaluator evaluates formula ASTs.
//
// An Evaluator holds only configuration; every call keeps its own state, so
// one Evaluator may serve concurrent evaluations as long as each uses its
// own variable context.
type Evaluator struct {
	opts     EvalOptions
	logger   *slog.Logger
	registry *functions.Registry
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// MaxDepth limits the nesting depth of the evaluated tree.
	MaxDepth int
	// Timeout sets the evaluation timeout. Zero disables it.
	Timeout time.Duration
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
	// Registry resolves function calls. Defaults to a new empty registry.
	Registry *functions.Registry
	// Warnings enables shadowed-function warnings in results.
	Warnings bool
	// CustomFunctions are registered into the registry on construction.
	CustomFunctions []functions.FunctionDef
}

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		MaxDepth: 10000,
		Timeout:  30 * time.Second,
		Warnings: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	reg := options.Registry
	if reg == nil {
		reg = functions.NewRegistry(functions.WithLogger(options.Logger))
	}
	for _, def := range options.CustomFunctions {
		if err := reg.RegisterDef(def); err != nil {
			options.Logger.Warn("custom function not registered", "name", def.Name, "error", err)
		}
	}

	return &Evaluator{
		opts:     options,
		logger:   options.Logger,
		registry: reg,
	}
}

// Registry returns the function registry used for calls.
func (e *Evaluator) Registry() *functions.Registry {
	return e.registry
}

// Options returns a copy of the evaluator configuration.
func (e *Evaluator) Options() EvalOptions {
	return e.opts
}

// Eval evaluates a parsed expression against vars.
func (e *Evaluator) Eval(ctx context.Context, expr *types.Expression, vars *types.Context) Result {
	if expr == nil || expr.AST() == nil {
		return invalid()
	}
	return e.run(ctx, expr.AST(), vars, nil)
}

// EvalNode evaluates an AST directly.
func (e *Evaluator) EvalNode(ctx context.Context, node *types.ASTNode, vars *types.Context) Result {
	if node == nil {
		return invalid()
	}
	return e.run(ctx, node, vars, nil)
}

// EvalWithBindings evaluates with transient bindings layered over vars.
// Bindings take precedence and are discarded afterwards; vars is never
// modified.
func (e *Evaluator) EvalWithBindings(ctx context.Context, expr *types.Expression, vars *types.Context, bindings map[string]types.Value) Result {
	if expr == nil || expr.AST() == nil {
		return invalid()
	}
	if vars == nil {
		vars = types.NewContext()
	}
	return e.run(ctx, expr.AST(), vars.Child(bindings), nil)
}

// EvalWithTrace evaluates and returns the trace tree mirroring the
// evaluation.
func (e *Evaluator) EvalWithTrace(ctx context.Context, expr *types.Expression, vars *types.Context) (Result, *TraceNode) {
	if expr == nil || expr.AST() == nil {
		return invalid(), nil
	}
	tc := &traceCollector{}
	res := e.run(ctx, expr.AST(), vars, tc)
	return res, tc.root
}

func invalid() Result {
	return Result{Value: types.Error(types.ErrorValue), Err: ErrInvalidExpression}
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithTimeout sets the evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum evaluation depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithRegistry sets the function registry.
func WithRegistry(reg *functions.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Registry = reg
	}
}

// WithWarnings enables or disables shadowed-function warnings.
func WithWarnings(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Warnings = enabled
	}
}

// WithCustomFunction registers a user-defined function accepting any number
// of arguments.
//
// Example:
//
//	ev := evaluator.New(evaluator.WithCustomFunction("TWICE", func(args []types.Value, _ *types.Context) types.Value {
//	    n, _ := args[0].ToNumber()
//	    return types.Number(2 * n)
//	}))
func WithCustomFunction(name string, fn functions.Func) EvalOption {
	return func(opts *EvalOptions) {
		opts.CustomFunctions = append(opts.CustomFunctions, functions.FunctionDef{
			Name:    name,
			MinArgs: 0,
			MaxArgs: -1,
			Impl:    fn,
		})
	}
}

// WithFunctions registers several user-defined functions.
func WithFunctions(defs ...functions.FunctionDef) EvalOption {
	return func(opts *EvalOptions) {
		opts.CustomFunctions = append(opts.CustomFunctions, defs...)
	}
}
