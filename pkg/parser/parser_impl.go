package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// Parser implements a recursive descent parser for formulas.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	lexer   *Lexer
	current Token
	errors  types.ParseErrors
	opts    CompileOptions
	arena   *types.NodeArena
	depth   int
	aborted bool
	// unclosed is the position of the last missing-delimiter error, or -1.
	unclosed int
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxDepth <= 0 {
		options.MaxDepth = DefaultMaxDepth
	}

	p := &Parser{
		lexer:    NewLexer(input),
		opts:     options,
		arena:    types.NewNodeArena(),
		unclosed: -1,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire formula. Either the Expression or a non-empty
// types.ParseErrors is returned, never both.
func (p *Parser) Parse() (*types.Expression, error) {
	if p.current.Type == TokenEOF {
		p.error("Empty expression")
		return nil, p.errors
	}

	node := p.parseExpression(0)

	switch p.current.Type {
	case TokenEOF:
	case TokenInvalid:
		p.invalidToken()
	default:
		if p.unclosed != p.current.Position {
			p.error(fmt.Sprintf("Unexpected token after expression: %s", p.current.Value))
		}
	}

	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return types.NewExpression(node, p.lexer.input), nil
}

// Errors returns the problems collected so far.
func (p *Parser) Errors() types.ParseErrors {
	return p.errors
}

// Binding powers. Higher values bind more tightly.
const (
	bpComparison = 10
	bpConcat     = 20
	bpAdditive   = 30
	bpMultiply   = 40
	bpPower      = 50
	bpUnary      = 60
)

// Operator precedence table (binding power)
var precedence = map[TokenType]int{
	TokenEqual:        bpComparison,
	TokenNotEqual:     bpComparison,
	TokenLess:         bpComparison,
	TokenLessEqual:    bpComparison,
	TokenGreater:      bpComparison,
	TokenGreaterEqual: bpComparison,
	TokenConcat:       bpConcat,
	TokenPlus:         bpAdditive,
	TokenMinus:        bpAdditive,
	TokenMult:         bpMultiply,
	TokenDiv:          bpMultiply,
	TokenPower:        bpPower,
}

var binaryOperators = map[TokenType]types.Operator{
	TokenPlus:         types.OpAdd,
	TokenMinus:        types.OpSubtract,
	TokenMult:         types.OpMultiply,
	TokenDiv:          types.OpDivide,
	TokenPower:        types.OpPower,
	TokenConcat:       types.OpConcat,
	TokenEqual:        types.OpEqual,
	TokenNotEqual:     types.OpNotEqual,
	TokenLess:         types.OpLess,
	TokenLessEqual:    types.OpLessEqual,
	TokenGreater:      types.OpGreater,
	TokenGreaterEqual: types.OpGreaterEqual,
}

// getPrecedence returns the precedence of a token type.
func (p *Parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return 0
}

// advance moves to the next token.
func (p *Parser) advance() {
	if p.aborted {
		return
	}
	p.current = p.lexer.Next()
}

// error records a parse error at the current token.
func (p *Parser) error(message string) {
	if p.aborted {
		return
	}
	err := types.NewParseError(message, p.current.Position).
		WithToken(p.current.Value, p.current.Length)
	p.errors = append(p.errors, err)
}

// errorUnclosed records a missing closing delimiter at the current token.
func (p *Parser) errorUnclosed(message string) {
	p.error(message)
	p.unclosed = p.current.Position
}

// abort records a depth error and jumps to the end of the input, so that
// the remaining recursion unwinds without reporting follow-up errors.
func (p *Parser) abort() {
	p.error(fmt.Sprintf("Maximum nesting depth of %d exceeded", p.opts.MaxDepth))
	p.aborted = true
	p.current = Token{Type: TokenEOF, Position: p.lexer.length}
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence). A nil node is
// returned for sub-expressions that failed to parse.
func (p *Parser) parseExpression(rbp int) *types.ASTNode {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.opts.MaxDepth {
		p.abort()
		return nil
	}

	// Parse prefix expression (nud - null denotation)
	left := p.parsePrefix()

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left = p.parseBinaryOp(left)
	}

	return left
}

// parsePrefix parses a prefix expression (nud - null denotation).
func (p *Parser) parsePrefix() *types.ASTNode {
	token := p.current

	switch token.Type {
	case TokenNumber:
		return p.parseNumber()
	case TokenString:
		return p.parseString()
	case TokenBoolean:
		return p.parseBoolean()
	case TokenIdentifier:
		return p.parseName()
	case TokenMinus, TokenPlus:
		return p.parseUnary()
	case TokenParenOpen:
		return p.parseGrouping()
	case TokenBraceOpen:
		return p.parseArrayConstructor()
	case TokenInvalid:
		p.invalidToken()
		p.advance()
		return nil
	default:
		p.error("Expected expression")
		return nil
	}
}

// invalidToken reports a token the lexer could not classify.
func (p *Parser) invalidToken() {
	if strings.HasPrefix(p.current.Value, `"`) {
		p.error("Unterminated string literal")
		return
	}
	p.error(fmt.Sprintf("Invalid character: %s", p.current.Value))
}

// parseBinaryOp parses an infix operator and its right operand.
// Power is right-associative; everything else is left-associative.
func (p *Parser) parseBinaryOp(left *types.ASTNode) *types.ASTNode {
	token := p.current
	bp := p.getPrecedence(token.Type)
	p.advance()

	rbp := bp
	if token.Type == TokenPower {
		rbp = bp - 1
	}
	right := p.parseExpression(rbp)

	node := p.arena.Alloc(types.NodeBinary, token.Position)
	node.Operator = binaryOperators[token.Type]
	node.LHS = left
	node.RHS = right
	return node
}

func (p *Parser) parseNumber() *types.ASTNode {
	token := p.current
	n, err := strconv.ParseFloat(token.Value, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		p.error(fmt.Sprintf("Invalid number: %s", token.Value))
	}
	p.advance()

	node := p.arena.Alloc(types.NodeLiteral, token.Position)
	node.Value = types.Number(n)
	return node
}

func (p *Parser) parseString() *types.ASTNode {
	token := p.current
	p.advance()

	node := p.arena.Alloc(types.NodeLiteral, token.Position)
	node.Value = types.Text(token.Value)
	return node
}

func (p *Parser) parseBoolean() *types.ASTNode {
	token := p.current
	p.advance()

	node := p.arena.Alloc(types.NodeLiteral, token.Position)
	node.Value = types.Boolean(strings.EqualFold(token.Value, "TRUE"))
	return node
}

// parseName parses a variable reference, or a function call when the name
// is followed by '('.
func (p *Parser) parseName() *types.ASTNode {
	token := p.current
	p.advance()

	if p.current.Type == TokenParenOpen {
		return p.parseFunctionCall(token)
	}

	node := p.arena.Alloc(types.NodeVariable, token.Position)
	node.Name = token.Value
	return node
}

func (p *Parser) parseUnary() *types.ASTNode {
	token := p.current
	p.advance()

	operand := p.parseExpression(bpUnary)

	node := p.arena.Alloc(types.NodeUnary, token.Position)
	node.Operator = types.OpPlus
	if token.Type == TokenMinus {
		node.Operator = types.OpMinus
	}
	node.RHS = operand
	return node
}

// parseGrouping parses a parenthesised expression. No node is created for
// the parentheses themselves.
func (p *Parser) parseGrouping() *types.ASTNode {
	p.advance()

	expr := p.parseExpression(0)

	if p.current.Type != TokenParenClose {
		p.errorUnclosed("Expected ')' after expression")
		return expr
	}
	p.advance()
	return expr
}

// parseFunctionCall parses the argument list of a call. The current token
// is the opening parenthesis.
func (p *Parser) parseFunctionCall(name Token) *types.ASTNode {
	p.advance()

	node := p.arena.Alloc(types.NodeFunction, name.Position)
	node.Name = strings.ToUpper(name.Value)
	node.Arguments = p.parseList(TokenComma, TokenComma)

	if p.current.Type != TokenParenClose {
		p.errorUnclosed("Expected ')' after function arguments")
		return node
	}
	p.advance()
	return node
}

// parseArrayConstructor parses {a, b; c}. Commas and semicolons are both
// element separators.
func (p *Parser) parseArrayConstructor() *types.ASTNode {
	token := p.current
	p.advance()

	node := p.arena.Alloc(types.NodeArray, token.Position)
	node.Expressions = p.parseList(TokenComma, TokenSemicolon)

	if p.current.Type != TokenBraceClose {
		p.errorUnclosed("Expected '}' after array elements")
		return node
	}
	p.advance()
	return node
}

// parseList parses zero or more expressions separated by either separator,
// stopping before the closing delimiter.
func (p *Parser) parseList(sep1, sep2 TokenType) []*types.ASTNode {
	if p.current.Type == TokenParenClose || p.current.Type == TokenBraceClose {
		return nil
	}
	var items []*types.ASTNode
	for {
		items = append(items, p.parseExpression(0))
		if p.current.Type != sep1 && p.current.Type != sep2 {
			return items
		}
		p.advance()
	}
}
