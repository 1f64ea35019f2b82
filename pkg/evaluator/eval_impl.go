package evaluator

import (
	"context"
	"fmt"
	"slices"

	"github.com/sandrolain/goformula/pkg/types"
)

// evalState is the per-call state of one top-level evaluation.
type evalState struct {
	ctx      context.Context
	vars     *types.Context
	depth    int
	trace    *traceCollector
	warnings []string
	err      error
}

// abort records the first fatal cause. Once set, every node evaluates to
// #VALUE! and the walk unwinds.
func (s *evalState) abort(err error) types.Value {
	if s.err == nil {
		s.err = err
	}
	return types.Error(types.ErrorValue)
}

func (s *evalState) warn(msg string) {
	if !slices.Contains(s.warnings, msg) {
		s.warnings = append(s.warnings, msg)
	}
}

// run performs one top-level evaluation. Panics are recovered into a
// #VALUE! result.
func (e *Evaluator) run(ctx context.Context, node *types.ASTNode, vars *types.Context, tc *traceCollector) (res Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}
	if vars == nil {
		vars = types.NewContext()
	}

	s := &evalState{ctx: ctx, vars: vars, trace: tc}

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("evaluation panicked", "panic", rec)
			res = Result{
				Value:    types.Error(types.ErrorValue),
				Warnings: s.warnings,
				Err:      fmt.Errorf("%w: %v", ErrPanic, rec),
			}
		}
	}()

	v := e.evalNode(s, node)
	if s.err != nil {
		v = types.Error(types.ErrorValue)
	}
	return Result{Value: v, Warnings: s.warnings, Err: s.err}
}

// evalNode evaluates an AST node and returns its value.
func (e *Evaluator) evalNode(s *evalState, node *types.ASTNode) types.Value {
	if s.err != nil {
		return types.Error(types.ErrorValue)
	}

	// Check context cancellation
	select {
	case <-s.ctx.Done():
		return s.abort(s.ctx.Err())
	default:
	}

	if node == nil {
		return s.abort(ErrInvalidExpression)
	}

	s.depth++
	defer func() { s.depth-- }()
	if e.opts.MaxDepth > 0 && s.depth > e.opts.MaxDepth {
		return s.abort(fmt.Errorf("%w (%d)", ErrMaxDepth, e.opts.MaxDepth))
	}

	// Debug logging
	if e.opts.Debug {
		e.logger.Debug("evaluating node",
			"type", node.Type,
			"position", node.Position,
			"depth", s.depth)
	}

	var tn *TraceNode
	if s.trace != nil {
		tn = s.trace.begin(node)
	}

	var v types.Value
	switch node.Type {
	case types.NodeLiteral:
		v = node.Value
	case types.NodeVariable:
		v = e.evalVariable(s, node)
	case types.NodeBinary:
		v = e.evalBinary(s, node)
	case types.NodeUnary:
		v = e.evalUnary(s, node)
	case types.NodeArray:
		v = e.evalArray(s, node)
	case types.NodeFunction:
		v = e.evalFunction(s, node)
	default:
		v = s.abort(fmt.Errorf("%w: unknown node type %q", ErrInvalidExpression, node.Type))
	}

	if tn != nil {
		s.trace.end(tn, v)
	}
	return v
}

// evalVariable resolves a name. An unbound name and a name bound to Empty
// are both #NAME?.
func (e *Evaluator) evalVariable(s *evalState, node *types.ASTNode) types.Value {
	v, ok := s.vars.Get(node.Name)
	if !ok || v.IsEmpty() {
		return types.Error(types.ErrorName)
	}
	return v
}

// evalBinary evaluates the left operand fully before the right one.
func (e *Evaluator) evalBinary(s *evalState, node *types.ASTNode) types.Value {
	left := e.evalNode(s, node.LHS)
	right := e.evalNode(s, node.RHS)
	return applyBinary(node.Operator, left, right)
}

func (e *Evaluator) evalUnary(s *evalState, node *types.ASTNode) types.Value {
	operand := e.evalNode(s, node.RHS)
	return applyUnary(node.Operator, operand)
}

func (e *Evaluator) evalArray(s *evalState, node *types.ASTNode) types.Value {
	elems := make([]types.Value, len(node.Expressions))
	for i, el := range node.Expressions {
		elems[i] = e.evalNode(s, el)
	}
	return types.Array(elems)
}

// evalFunction evaluates every argument, left to right, before the call.
func (e *Evaluator) evalFunction(s *evalState, node *types.ASTNode) types.Value {
	args := make([]types.Value, len(node.Arguments))
	for i, arg := range node.Arguments {
		args[i] = e.evalNode(s, arg)
	}
	if s.err != nil {
		return types.Error(types.ErrorValue)
	}

	if e.opts.Warnings && e.registry.Shadowed(node.Name) {
		s.warn(fmt.Sprintf("custom function %s is shadowed by builtin", node.Name))
	}
	return e.registry.Call(node.Name, args, s.vars)
}
