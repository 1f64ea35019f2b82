// Package goformula provides a spreadsheet-style formula engine for Go.
//
// Formulas use the familiar spreadsheet syntax: arithmetic and comparison
// operators, the & concatenation operator, array literals such as {1, 2, 3},
// and calls to builtin or user-defined functions. Evaluation never fails
// with a Go error: errors surface as spreadsheet error values (#DIV/0!,
// #VALUE!, #NAME?, ...) inside the result.
//
// # Quick Start
//
//	// One-shot evaluation
//	res := goformula.Eval(ctx, "SUM(A1, A2) * 2", map[string]types.Value{
//	    "A1": types.Number(1),
//	    "A2": types.Number(2),
//	})
//
//	// Engine with persistent variables
//	eng := goformula.New(goformula.WithCaching(true))
//	eng.SetVariable("price", types.Number(9.99))
//	res = eng.Evaluate(ctx, `ROUND(price * 1.22, 2)`)
//	if res.Success() {
//	    fmt.Println(res.Value)
//	}
//
//	// Parse once, evaluate many times
//	expr, _ := eng.Parse("price * qty")
//	for _, q := range []float64{1, 2, 3} {
//	    eng.SetVariable("qty", types.Number(q))
//	    fmt.Println(eng.EvaluateExpression(ctx, expr).Value)
//	}
//
// # More Information
//
//   - Parser: github.com/sandrolain/goformula/pkg/parser
//   - Evaluator: github.com/sandrolain/goformula/pkg/evaluator
//   - Functions: github.com/sandrolain/goformula/pkg/functions
//   - Types: github.com/sandrolain/goformula/pkg/types
package goformula

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sandrolain/goformula/pkg/cache"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

// Version returns the current version of goformula.
func Version() string {
	return "v0.1.0-dev"
}

// Engine owns a variable context and a function registry and evaluates
// formulas against them.
//
// The registry is safe for concurrent use; the variable context is not, so
// an Engine must not be mutated and evaluated from several goroutines
// without external locking.
type Engine struct {
	vars      *types.Context
	registry  *functions.Registry
	eval      *evaluator.Evaluator
	cache     *cache.Cache
	parseOpts []parser.CompileOption
	logger    *slog.Logger
}

// Options configures an Engine.
type Options struct {
	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
	// Debug enables per-node debug logging during evaluation.
	Debug bool
	// MaxDepth limits evaluation nesting. Zero keeps the evaluator default.
	MaxDepth int
	// ParseMaxDepth limits parse nesting. Zero keeps the parser default.
	ParseMaxDepth int
	// Timeout bounds each evaluation. Nil keeps the evaluator default.
	Timeout *time.Duration
	// Caching enables the parsed-formula cache used by Evaluate.
	Caching bool
	// CacheSize is the cache capacity when caching is enabled.
	CacheSize int
	// Functions are registered as user functions on construction.
	Functions []functions.FunctionDef
	// Rand is the random source for RAND and RANDBETWEEN.
	Rand *rand.Rand
	// Clock is the time source for TODAY and NOW.
	Clock func() time.Time
}

// Option configures an Engine.
type Option func(*Options)

// New creates an Engine.
func New(opts ...Option) *Engine {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	reg := functions.NewRegistry(functions.WithLogger(options.Logger))
	evalOpts := []evaluator.EvalOption{
		evaluator.WithLogger(options.Logger),
		evaluator.WithDebug(options.Debug),
		evaluator.WithRegistry(reg),
		evaluator.WithFunctions(options.Functions...),
	}
	if options.MaxDepth > 0 {
		evalOpts = append(evalOpts, evaluator.WithMaxDepth(options.MaxDepth))
	}
	if options.Timeout != nil {
		evalOpts = append(evalOpts, evaluator.WithTimeout(*options.Timeout))
	}

	e := &Engine{
		vars:     types.NewContext(),
		registry: reg,
		eval:     evaluator.New(evalOpts...),
		logger:   options.Logger,
	}
	if options.ParseMaxDepth > 0 {
		e.parseOpts = append(e.parseOpts, parser.WithMaxDepth(options.ParseMaxDepth))
	}
	if options.Caching {
		e.cache = cache.New(options.CacheSize)
	}
	if options.Rand != nil {
		e.vars.SetRand(options.Rand)
	}
	if options.Clock != nil {
		e.vars.SetClock(options.Clock)
	}
	return e
}

// Parse parses a formula, consulting the cache when caching is enabled.
func (e *Engine) Parse(formula string) (*types.Expression, error) {
	if e.cache == nil {
		return parser.Compile(formula, e.parseOpts...)
	}
	return e.cache.GetOrParse(formula, func() (*types.Expression, error) {
		return parser.Compile(formula, e.parseOpts...)
	})
}

// Evaluate parses and evaluates a formula against the engine variables.
// A formula that does not parse yields #PARSE! with the parse errors in
// Result.Err.
func (e *Engine) Evaluate(ctx context.Context, formula string) evaluator.Result {
	expr, err := e.Parse(formula)
	if err != nil {
		e.logger.Debug("formula parse failed", "formula", formula, "error", err)
		return evaluator.ParseFailure(err)
	}
	return e.eval.Eval(ctx, expr, e.vars)
}

// EvaluateExpression evaluates a previously parsed formula.
func (e *Engine) EvaluateExpression(ctx context.Context, expr *types.Expression) evaluator.Result {
	return e.eval.Eval(ctx, expr, e.vars)
}

// EvaluateWithOverrides evaluates a formula with transient variable
// overrides. Overrides shadow the engine variables for this call only and
// the engine variables are never modified.
func (e *Engine) EvaluateWithOverrides(ctx context.Context, formula string, overrides map[string]types.Value) evaluator.Result {
	expr, err := e.Parse(formula)
	if err != nil {
		return evaluator.ParseFailure(err)
	}
	return e.eval.EvalWithBindings(ctx, expr, e.vars, overrides)
}

// EvaluateWithTrace evaluates a formula and returns the evaluation trace.
// The trace is nil when the formula does not parse.
func (e *Engine) EvaluateWithTrace(ctx context.Context, formula string) (evaluator.Result, *evaluator.TraceNode) {
	expr, err := e.Parse(formula)
	if err != nil {
		return evaluator.ParseFailure(err), nil
	}
	return e.eval.EvalWithTrace(ctx, expr, e.vars)
}

// SetVariable binds name to v.
func (e *Engine) SetVariable(name string, v types.Value) {
	e.vars.Set(name, v)
}

// GetVariable returns the value bound to name.
func (e *Engine) GetVariable(name string) (types.Value, bool) {
	return e.vars.Get(name)
}

// RemoveVariable unbinds name.
func (e *Engine) RemoveVariable(name string) {
	e.vars.Remove(name)
}

// ClearVariables removes every variable.
func (e *Engine) ClearVariables() {
	e.vars.Clear()
}

// VariableNames returns the bound variable names, sorted.
func (e *Engine) VariableNames() []string {
	return e.vars.Names()
}

// RegisterFunction registers a user function accepting any number of
// arguments. A builtin with the same name always takes precedence.
func (e *Engine) RegisterFunction(name string, fn functions.Func) error {
	return e.registry.Register(name, fn)
}

// RegisterFunctionDef registers a user function with an explicit arity.
func (e *Engine) RegisterFunctionDef(def functions.FunctionDef) error {
	return e.registry.RegisterDef(def)
}

// FunctionNames lists builtin names followed by user function names.
func (e *Engine) FunctionNames() []string {
	return e.registry.Names()
}

// Context returns the engine variable context.
func (e *Engine) Context() *types.Context {
	return e.vars
}

// Registry returns the engine function registry.
func (e *Engine) Registry() *functions.Registry {
	return e.registry
}

// CacheStats returns the parse cache counters. ok is false when caching is
// disabled.
func (e *Engine) CacheStats() (stats cache.Stats, ok bool) {
	if e.cache == nil {
		return cache.Stats{}, false
	}
	return e.cache.Stats(), true
}

// Compile parses a formula for repeated evaluation.
//
// Example:
//
//	expr, err := goformula.Compile("A1 * 2")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Compile(formula string, opts ...parser.CompileOption) (*types.Expression, error) {
	return parser.Compile(formula, opts...)
}

// MustCompile is like Compile but panics if the formula cannot be parsed.
// It simplifies safe initialization of global variables.
func MustCompile(formula string) *types.Expression {
	expr, err := Compile(formula)
	if err != nil {
		panic(fmt.Sprintf("goformula: Compile(%q): %v", formula, err))
	}
	return expr
}

// Eval is a convenience function that parses and evaluates a formula in a
// single call with the given variables.
//
// For repeated evaluations of the same formula, use an Engine or Compile.
func Eval(ctx context.Context, formula string, vars map[string]types.Value, opts ...Option) evaluator.Result {
	e := New(opts...)
	for name, v := range vars {
		e.vars.Set(name, v)
	}
	return e.Evaluate(ctx, formula)
}
