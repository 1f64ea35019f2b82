// Package exttypes provides value inspection and conversion functions.
package exttypes

import (
	"math"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all type function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		Type(),
		ErrorType(),
		IsEven(),
		IsOdd(),
		is("ISDATE", types.Value.IsDate),
		is("ISARRAY", types.Value.IsArray),
		is("ISNONTEXT", func(v types.Value) bool { return !v.IsText() }),
		N(),
		T(),
	}
}

func is(name string, test func(types.Value) bool) functions.FunctionDef {
	return extutil.Def(name, 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		return types.Boolean(test(args[0]))
	})
}

// Type returns the definition for TYPE(value): 1 number or date, 2 text,
// 4 boolean, 16 error, 64 array.
func Type() functions.FunctionDef {
	return extutil.Def("TYPE", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		switch args[0].Kind() {
		case types.KindText:
			return types.Number(2)
		case types.KindBoolean:
			return types.Number(4)
		case types.KindError:
			return types.Number(16)
		case types.KindArray:
			return types.Number(64)
		default:
			return types.Number(1)
		}
	})
}

var errorCodes = map[types.ErrorKind]float64{
	types.ErrorDivZero: 2,
	types.ErrorValue:   3,
	types.ErrorRef:     4,
	types.ErrorName:    5,
	types.ErrorNum:     6,
	types.ErrorNA:      7,
	types.ErrorParse:   8,
}

// ErrorType returns the definition for ERRORTYPE(value), the numeric code
// of an error value. Non-error values are #N/A.
func ErrorType() functions.FunctionDef {
	return extutil.Def("ERRORTYPE", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		k, err := args[0].AsError()
		if err != nil {
			return types.Error(types.ErrorNA)
		}
		return types.Number(errorCodes[k])
	})
}

func parity(name string, want float64) functions.FunctionDef {
	return extutil.Def(name, 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		n, errv, ok := functions.ToNumber(args[0])
		if !ok {
			return errv
		}
		return types.Boolean(math.Abs(math.Mod(math.Trunc(n), 2)) == want)
	})
}

// IsEven returns the definition for ISEVEN(n). The fraction is ignored.
func IsEven() functions.FunctionDef { return parity("ISEVEN", 0) }

// IsOdd returns the definition for ISODD(n). The fraction is ignored.
func IsOdd() functions.FunctionDef { return parity("ISODD", 1) }

// N returns the definition for N(value): numbers and dates as numbers,
// TRUE as 1, errors unchanged and everything else 0.
func N() functions.FunctionDef {
	return extutil.Def("N", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		v := args[0]
		switch {
		case v.IsError():
			return v
		case v.IsNumber(), v.IsDate(), v.IsBoolean():
			n, _, _ := functions.ToNumber(v)
			return types.Number(n)
		default:
			return types.Number(0)
		}
	})
}

// T returns the definition for T(value): text as-is, errors unchanged and
// everything else the empty string.
func T() functions.FunctionDef {
	return extutil.Def("T", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		v := args[0]
		if v.IsText() || v.IsError() {
			return v
		}
		return types.Text("")
	})
}
