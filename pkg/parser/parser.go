// Package parser implements the formula parser.
//
// The parser is a hand-written Pratt ("Top Down Operator Precedence")
// parser over the token stream produced by [Lexer]. Grammar, lowest to
// highest binding power:
//
//	comparison      = <> < <= > >=     left-associative
//	concatenation   &                  left-associative
//	addition        + -                left-associative
//	multiplication  * /                left-associative
//	power           ^                  right-associative
//	unary           - +                prefix
//	primary         number, string, boolean, name, call, (expr), {array}
//
// Problems are collected rather than aborting on the first one, and are
// returned together as [types.ParseErrors].
//
// # Example
//
//	expr, err := parser.Parse("SUM(A1, A2) * 2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ast := expr.AST()
package parser

import (
	"github.com/sandrolain/goformula/pkg/types"
)

// DefaultMaxDepth is the default limit on expression nesting.
const DefaultMaxDepth = 256

// Parse parses a formula and returns the compiled Expression.
//
// On failure the returned error is a [types.ParseErrors] listing every
// problem found, each with its byte position in the input.
func Parse(formula string) (*types.Expression, error) {
	p := NewParser(formula)
	return p.Parse()
}

// Compile is Parse with options.
func Compile(formula string, opts ...CompileOption) (*types.Expression, error) {
	p := NewParser(formula, opts...)
	return p.Parse()
}

// Tokenize splits a formula into tokens. The returned slice always ends with
// a TokenEOF token.
func Tokenize(formula string) []Token {
	l := NewLexer(formula)
	var tokens []Token
	for {
		t := l.Next()
		tokens = append(tokens, t)
		if t.Type == TokenEOF {
			return tokens
		}
	}
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits expression nesting to prevent stack overflow.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
