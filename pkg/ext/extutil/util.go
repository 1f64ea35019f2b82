// Package extutil provides shared helpers for the ext sub-packages.
package extutil

import (
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// Def builds a function definition.
func Def(name string, minArgs, maxArgs int, fn functions.Func) functions.FunctionDef {
	return functions.FunctionDef{Name: name, MinArgs: minArgs, MaxArgs: maxArgs, Impl: fn}
}

// Unary builds a one-argument numeric function. Results that are NaN or
// infinite become #NUM!.
func Unary(name string, op func(float64) float64) functions.FunctionDef {
	return Def(name, 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		x, errv, ok := functions.ToNumber(args[0])
		if !ok {
			return errv
		}
		return functions.CheckNumber(op(x))
	})
}

// Floats coerces every argument to a number, without flattening. The
// first argument that fails is reported as an Error value.
func Floats(args []types.Value) ([]float64, types.Value, bool) {
	out := make([]float64, len(args))
	for i, a := range args {
		n, errv, ok := functions.ToNumber(a)
		if !ok {
			return nil, errv, false
		}
		out[i] = n
	}
	return out, types.Value{}, true
}

// Int coerces an argument and truncates it toward zero.
func Int(v types.Value) (int, types.Value, bool) {
	n, errv, ok := functions.ToNumber(v)
	if !ok {
		return 0, errv, false
	}
	if n > 1e9 || n < -1e9 {
		return 0, types.Error(types.ErrorNum), false
	}
	return int(n), types.Value{}, true
}

// Texts renders every argument as text. The first Error argument is
// reported instead.
func Texts(args []types.Value) ([]string, types.Value, bool) {
	if e, ok := functions.FirstError(args); ok {
		return nil, e, false
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.String()
	}
	return out, types.Value{}, true
}

// Elements returns the elements of an array argument, or the argument
// itself as a single element.
func Elements(v types.Value) []types.Value {
	if v.IsArray() {
		elems, _ := v.AsArray()
		return elems
	}
	return []types.Value{v}
}

// OptionalArg returns args[i], or def when the argument was omitted.
func OptionalArg(args []types.Value, i int, def types.Value) types.Value {
	if i < len(args) {
		return args[i]
	}
	return def
}
