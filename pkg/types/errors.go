package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of formula error categories. An ErrorKind carries
// no message; diagnostic text travels separately (see ParseError).
type ErrorKind uint8

// Error kinds, in their canonical order.
const (
	ErrorDivZero ErrorKind = iota + 1 // #DIV/0!
	ErrorValue                        // #VALUE!
	ErrorRef                          // #REF!
	ErrorName                         // #NAME?
	ErrorNum                          // #NUM!
	ErrorNA                           // #N/A
	ErrorParse                        // #PARSE!
)

// ErrorKinds lists every ErrorKind.
var ErrorKinds = []ErrorKind{
	ErrorDivZero, ErrorValue, ErrorRef, ErrorName, ErrorNum, ErrorNA, ErrorParse,
}

// String returns the canonical marker text, e.g. "#DIV/0!".
func (k ErrorKind) String() string {
	switch k {
	case ErrorDivZero:
		return "#DIV/0!"
	case ErrorValue:
		return "#VALUE!"
	case ErrorRef:
		return "#REF!"
	case ErrorName:
		return "#NAME?"
	case ErrorNum:
		return "#NUM!"
	case ErrorNA:
		return "#N/A"
	case ErrorParse:
		return "#PARSE!"
	default:
		return "#ERROR!"
	}
}

// ParseErrorKind maps a canonical marker back to its ErrorKind.
func ParseErrorKind(marker string) (ErrorKind, bool) {
	for _, k := range ErrorKinds {
		if k.String() == marker {
			return k, true
		}
	}
	return 0, false
}

// ErrTypeMismatch is returned by the Value accessors when the tag does not
// match the requested payload. It is an internal condition, never a formula error.
var ErrTypeMismatch = errors.New("value type mismatch")

// ParseError is a single lexical or grammatical problem found while parsing.
type ParseError struct {
	Message  string
	Position int
	Length   int
	Token    string
}

// NewParseError creates a ParseError at the given byte offset.
func NewParseError(message string, position int) *ParseError {
	return &ParseError{
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Message)
	}
	return "parse error: " + e.Message
}

// WithToken records the offending token text.
func (e *ParseError) WithToken(token string, length int) *ParseError {
	e.Token = token
	e.Length = length
	return e
}

// ParseErrors is the ordered list of problems collected by a single parse.
type ParseErrors []*ParseError

// Error joins the individual messages.
func (errs ParseErrors) Error() string {
	switch len(errs) {
	case 0:
		return "no parse errors"
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d parse errors: %s", len(errs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is / errors.As.
func (errs ParseErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}
