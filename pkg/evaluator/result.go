package evaluator

import (
	"errors"

	"github.com/sandrolain/goformula/pkg/types"
)

// Result is the outcome of an evaluation.
type Result struct {
	// Value is the formula result, possibly an Error value.
	Value types.Value
	// Warnings lists non-fatal notes collected during evaluation.
	Warnings []string
	// Err carries the internal cause when evaluation was aborted or the
	// formula did not parse. It is nil for ordinary formula errors such
	// as #DIV/0!.
	Err error
}

// Success reports whether the value is not an Error.
func (r Result) Success() bool {
	return !r.Value.IsError()
}

// ErrorKind returns the error kind of a failed result.
func (r Result) ErrorKind() (types.ErrorKind, bool) {
	k, err := r.Value.AsError()
	return k, err == nil
}

// ParseErrors returns the parse errors of a result built by ParseFailure.
func (r Result) ParseErrors() types.ParseErrors {
	var perrs types.ParseErrors
	if errors.As(r.Err, &perrs) {
		return perrs
	}
	return nil
}

// ParseFailure builds the result reported for a formula that did not parse.
func ParseFailure(err error) Result {
	return Result{Value: types.Error(types.ErrorParse), Err: err}
}
