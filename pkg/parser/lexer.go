package parser

import (
	"strings"
	"unicode/utf8"
)

const eof = -1

// Lexer converts a formula into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
//
// The lexer never fails: characters it does not recognise, and string
// literals that are never closed, are returned as TokenInvalid for the
// parser to report.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.acceptAll(isWhitespace)
	l.ignore()

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// Two-character symbols first (<=, >=, <>, !=)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	if tt := lookupSymbol1(ch); tt != TokenEOF {
		return l.newToken(tt)
	}

	if ch == '"' {
		return l.scanString()
	}

	if isDigit(ch) {
		l.backup()
		return l.scanNumber()
	}

	if isIdentStart(ch) {
		l.backup()
		return l.scanIdentifier()
	}

	return l.newToken(TokenInvalid)
}

// scanString reads a double-quoted string literal. The opening quote has
// already been consumed. Recognised escapes are \n \t \r \\ and \"; any other
// escaped character is kept together with its backslash.
func (l *Lexer) scanString() Token {
	var sb strings.Builder
	for {
		ch := l.nextRune()
		switch ch {
		case eof:
			return l.newToken(TokenInvalid)
		case '"':
			t := l.newToken(TokenString)
			t.Value = sb.String()
			return t
		case '\\':
			esc := l.nextRune()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case eof:
				return l.newToken(TokenInvalid)
			default:
				sb.WriteByte('\\')
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(ch)
		}
	}
}

// scanNumber reads a number literal from the current position.
// Format: [0-9]+(\.[0-9]*)?([eE][+-]?[0-9]+)?
// An exponent marker not followed by digits is left for the next token.
func (l *Lexer) scanNumber() Token {
	l.acceptAll(isDigit)

	if l.acceptRune('.') {
		l.acceptAll(isDigit)
	}

	// Exponent part, only when at least one digit follows.
	mark := l.current
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			l.current = mark
		}
	}

	return l.newToken(TokenNumber)
}

// scanIdentifier reads a name from the current position. TRUE and FALSE,
// in any case, are boolean literals unless immediately followed by '(',
// which makes them function names.
func (l *Lexer) scanIdentifier() Token {
	l.acceptAll(isIdentPart)
	t := l.newToken(TokenIdentifier)

	if strings.EqualFold(t.Value, "TRUE") || strings.EqualFold(t.Value, "FALSE") {
		if l.peek() != '(' {
			t.Type = TokenBoolean
		}
	}
	return t
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
		Length:   l.current - l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peek() rune {
	r := l.nextRune()
	l.backup()
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '_'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r) || r == ':'
}
