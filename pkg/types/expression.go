// Package types defines the core type system for goformula.
//
// This package contains type definitions for:
//   - Value: the tagged-union runtime value with coercion and ordering
//   - ErrorKind: the closed set of formula error categories
//   - ASTNode: Abstract Syntax Tree nodes
//   - Context: the variable store consulted during evaluation
//   - Expression: a parsed formula ready for repeated evaluation
package types

// Expression represents a parsed formula.
//
// An Expression can be evaluated multiple times against different contexts.
// Its tree is never modified after parsing, so it is safe for concurrent use
// by multiple goroutines.
type Expression struct {
	ast    *ASTNode
	source string
}

// NewExpression creates a new Expression from an AST.
func NewExpression(ast *ASTNode, source string) *Expression {
	return &Expression{
		ast:    ast,
		source: source,
	}
}

// AST returns the Abstract Syntax Tree of the expression.
func (e *Expression) AST() *ASTNode {
	return e.ast
}

// Source returns the original formula text.
func (e *Expression) Source() string {
	return e.source
}

// Canonical returns the fully parenthesised rendering of the tree.
func (e *Expression) Canonical() string {
	return e.ast.String()
}

// String returns the original formula text.
func (e *Expression) String() string {
	return e.source
}
