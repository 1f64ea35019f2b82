// Package extarray provides functions over array values such as {1, 2, 3}.
//
// Arrays are one-dimensional. Scalar arguments are treated as arrays of a
// single element.
package extarray

import (
	"slices"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// maxSequence bounds the size of generated arrays.
const maxSequence = 1 << 20

// All returns all array function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		Sequence(),
		Index(),
		Take(),
		Drop(),
		Flatten(),
		Unique(),
		Sort(),
		Size(),
	}
}

// Sequence returns the definition for SEQUENCE(count, [start], [step]).
func Sequence() functions.FunctionDef {
	return extutil.Def("SEQUENCE", 1, 3, func(args []types.Value, _ *types.Context) types.Value {
		n, errv, ok := extutil.Int(args[0])
		if !ok {
			return errv
		}
		xs, errv, ok := extutil.Floats([]types.Value{
			extutil.OptionalArg(args, 1, types.Number(1)),
			extutil.OptionalArg(args, 2, types.Number(1)),
		})
		if !ok {
			return errv
		}
		if n < 1 || n > maxSequence {
			return types.Error(types.ErrorNum)
		}
		out := make([]types.Value, n)
		for i := range out {
			out[i] = types.Number(xs[0] + float64(i)*xs[1])
		}
		return types.Array(out)
	})
}

// Index returns the definition for INDEX(array, position). Positions are
// 1-based; negative positions count from the end. Out of range is #REF!.
func Index() functions.FunctionDef {
	return extutil.Def("INDEX", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		pos, errv, ok := extutil.Int(args[1])
		if !ok {
			return errv
		}
		elems := extutil.Elements(args[0])
		i, ok := normaliseIndex(pos, len(elems))
		if !ok {
			return types.Error(types.ErrorRef)
		}
		return elems[i]
	})
}

// Take returns the definition for TAKE(array, n). A negative n takes from
// the end.
func Take() functions.FunctionDef {
	return extutil.Def("TAKE", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		elems, n, errv, ok := arrayAndCount(args)
		if !ok {
			return errv
		}
		if n >= 0 {
			return types.Array(elems[:min(n, len(elems))])
		}
		return types.Array(elems[max(len(elems)+n, 0):])
	})
}

// Drop returns the definition for DROP(array, n). A negative n drops from
// the end.
func Drop() functions.FunctionDef {
	return extutil.Def("DROP", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		elems, n, errv, ok := arrayAndCount(args)
		if !ok {
			return errv
		}
		if n >= 0 {
			return types.Array(elems[min(n, len(elems)):])
		}
		return types.Array(elems[:max(len(elems)+n, 0)])
	})
}

// Flatten returns the definition for FLATTEN(values...): every argument and
// nested array element, in order.
func Flatten() functions.FunctionDef {
	return extutil.Def("FLATTEN", 0, -1, func(args []types.Value, _ *types.Context) types.Value {
		return types.Array(slices.Clone(functions.Flatten(args)))
	})
}

// Unique returns the definition for UNIQUE(array), keeping first
// occurrences in order.
func Unique() functions.FunctionDef {
	return extutil.Def("UNIQUE", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		var out []types.Value
		for _, v := range extutil.Elements(args[0]) {
			if !slices.ContainsFunc(out, v.Equal) {
				out = append(out, v)
			}
		}
		return types.Array(out)
	})
}

// Sort returns the definition for SORT(array, [order]). Order 1 sorts
// ascending, -1 descending, using the comparison operators' ordering.
func Sort() functions.FunctionDef {
	return extutil.Def("SORT", 1, 2, func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		order, errv, ok := extutil.Int(extutil.OptionalArg(args, 1, types.Number(1)))
		if !ok {
			return errv
		}
		if order != 1 && order != -1 {
			return types.Error(types.ErrorValue)
		}
		out := slices.Clone(extutil.Elements(args[0]))
		slices.SortStableFunc(out, func(a, b types.Value) int {
			switch {
			case a.Less(b):
				return -order
			case b.Less(a):
				return order
			default:
				return 0
			}
		})
		return types.Array(out)
	})
}

// Size returns the definition for SIZE(array), the number of elements.
func Size() functions.FunctionDef {
	return extutil.Def("SIZE", 1, 1, func(args []types.Value, _ *types.Context) types.Value {
		if args[0].IsError() {
			return args[0]
		}
		return types.Number(float64(len(extutil.Elements(args[0]))))
	})
}

func arrayAndCount(args []types.Value) ([]types.Value, int, types.Value, bool) {
	if args[0].IsError() {
		return nil, 0, args[0], false
	}
	n, errv, ok := extutil.Int(args[1])
	if !ok {
		return nil, 0, errv, false
	}
	return extutil.Elements(args[0]), n, types.Value{}, true
}

func normaliseIndex(pos, length int) (int, bool) {
	if pos < 0 {
		pos = length + pos + 1
	}
	if pos < 1 || pos > length {
		return 0, false
	}
	return pos - 1, true
}
