// Package ext provides optional function packs that go beyond the builtin
// catalog. They are registered as user functions, so a builtin of the same
// name always takes precedence.
//
// The packs live in sub-packages grouped by category:
//   - extnumeric   – SIN, COS, ATAN2, DEGREES, CLAMP, PERCENTILE, GEOMEAN, …
//   - extstring    – STARTSWITH, TEXTBEFORE, TEXTJOIN, REVERSE, SNAKECASE, …
//   - extarray     – SEQUENCE, INDEX, TAKE, DROP, UNIQUE, SORT, …
//   - exttypes     – TYPE, ERRORTYPE, ISEVEN, ISODD, N, T, …
//   - extdatetime  – EDATE, EOMONTH, DATEDIF, NETWORKDAYS, WORKDAY, …
//   - extcrypto    – UUID, HASH, HMAC
//   - extformat    – CSVSPLIT, TOCSV, TEMPLATE
//   - extfinancial – PMT, FV, PV, NPER, NPV, IRR
//   - extwasm      – numeric exports of a WebAssembly module
//
// # Integration – all packs at once
//
//	eng := goformula.New(ext.WithAll())
//
// # Integration – by category
//
//	eng := goformula.New(ext.WithString(), ext.WithFinancial())
//
// # Integration – single function from a sub-package
//
//	eng := goformula.New(goformula.WithFunctions(extstring.TextJoin()))
package ext

import (
	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/ext/extarray"
	"github.com/sandrolain/goformula/pkg/ext/extcrypto"
	"github.com/sandrolain/goformula/pkg/ext/extdatetime"
	"github.com/sandrolain/goformula/pkg/ext/extfinancial"
	"github.com/sandrolain/goformula/pkg/ext/extformat"
	"github.com/sandrolain/goformula/pkg/ext/extnumeric"
	"github.com/sandrolain/goformula/pkg/ext/extstring"
	"github.com/sandrolain/goformula/pkg/ext/exttypes"
	"github.com/sandrolain/goformula/pkg/functions"
)

// All returns the definitions of every static pack.
func All() []functions.FunctionDef {
	var all []functions.FunctionDef
	all = append(all, extnumeric.All()...)
	all = append(all, extstring.All()...)
	all = append(all, extarray.All()...)
	all = append(all, exttypes.All()...)
	all = append(all, extdatetime.All()...)
	all = append(all, extcrypto.All()...)
	all = append(all, extformat.All()...)
	all = append(all, extfinancial.All()...)
	return all
}

// Register adds every definition in defs to reg, stopping at the first
// error.
func Register(reg *functions.Registry, defs ...functions.FunctionDef) error {
	for _, def := range defs {
		if err := reg.RegisterDef(def); err != nil {
			return err
		}
	}
	return nil
}

// WithAll returns an Option that registers every static pack.
func WithAll() goformula.Option {
	return goformula.WithFunctions(All()...)
}

// WithNumeric returns an Option for the numeric functions.
func WithNumeric() goformula.Option {
	return goformula.WithFunctions(extnumeric.All()...)
}

// WithString returns an Option for the text functions.
func WithString() goformula.Option {
	return goformula.WithFunctions(extstring.All()...)
}

// WithArray returns an Option for the array functions.
func WithArray() goformula.Option {
	return goformula.WithFunctions(extarray.All()...)
}

// WithTypes returns an Option for the type functions.
func WithTypes() goformula.Option {
	return goformula.WithFunctions(exttypes.All()...)
}

// WithDateTime returns an Option for the calendar functions.
func WithDateTime() goformula.Option {
	return goformula.WithFunctions(extdatetime.All()...)
}

// WithCrypto returns an Option for the hashing functions.
func WithCrypto() goformula.Option {
	return goformula.WithFunctions(extcrypto.All()...)
}

// WithFormat returns an Option for the data-format functions.
func WithFormat() goformula.Option {
	return goformula.WithFunctions(extformat.All()...)
}

// WithFinancial returns an Option for the financial functions.
func WithFinancial() goformula.Option {
	return goformula.WithFunctions(extfinancial.All()...)
}
