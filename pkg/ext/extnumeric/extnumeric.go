// Package extnumeric provides trigonometric and statistical functions
// beyond the builtin catalog.
package extnumeric

import (
	"math"
	"sort"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all extended numeric function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		extutil.Unary("SIN", math.Sin),
		extutil.Unary("COS", math.Cos),
		extutil.Unary("TAN", math.Tan),
		extutil.Unary("ASIN", math.Asin),
		extutil.Unary("ACOS", math.Acos),
		extutil.Unary("ATAN", math.Atan),
		extutil.Unary("SINH", math.Sinh),
		extutil.Unary("COSH", math.Cosh),
		extutil.Unary("TANH", math.Tanh),
		extutil.Unary("DEGREES", func(x float64) float64 { return x * 180 / math.Pi }),
		extutil.Unary("RADIANS", func(x float64) float64 { return x * math.Pi / 180 }),
		Atan2(),
		Clamp(),
		Percentile(),
		GeoMean(),
		SumSq(),
	}
}

// Atan2 returns the definition for ATAN2(x, y): the angle of the point
// (x, y). Both zero is #DIV/0!.
func Atan2() functions.FunctionDef {
	return extutil.Def("ATAN2", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		xs, errv, ok := extutil.Floats(args)
		if !ok {
			return errv
		}
		if xs[0] == 0 && xs[1] == 0 {
			return types.Error(types.ErrorDivZero)
		}
		return types.Number(math.Atan2(xs[1], xs[0]))
	})
}

// Clamp returns the definition for CLAMP(n, min, max).
func Clamp() functions.FunctionDef {
	return extutil.Def("CLAMP", 3, 3, func(args []types.Value, _ *types.Context) types.Value {
		xs, errv, ok := extutil.Floats(args)
		if !ok {
			return errv
		}
		n, lo, hi := xs[0], xs[1], xs[2]
		if lo > hi {
			return types.Error(types.ErrorNum)
		}
		return types.Number(math.Max(lo, math.Min(hi, n)))
	})
}

// Percentile returns the definition for PERCENTILE(values, k), the k-th
// percentile with linear interpolation between closest ranks, 0 <= k <= 1.
func Percentile() functions.FunctionDef {
	return extutil.Def("PERCENTILE", 2, 2, func(args []types.Value, _ *types.Context) types.Value {
		nums, errv, ok := functions.Numbers(args[:1])
		if !ok {
			return errv
		}
		k, errv, ok := functions.ToNumber(args[1])
		if !ok {
			return errv
		}
		if len(nums) == 0 || k < 0 || k > 1 {
			return types.Error(types.ErrorNum)
		}
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		pos := k * float64(len(sorted)-1)
		lo := int(math.Floor(pos))
		if lo == len(sorted)-1 {
			return types.Number(sorted[lo])
		}
		frac := pos - float64(lo)
		return types.Number(sorted[lo] + frac*(sorted[lo+1]-sorted[lo]))
	})
}

// GeoMean returns the definition for GEOMEAN(values...). Any value not
// strictly positive is #NUM!.
func GeoMean() functions.FunctionDef {
	return extutil.Def("GEOMEAN", 1, -1, func(args []types.Value, _ *types.Context) types.Value {
		nums, errv, ok := functions.Numbers(args)
		if !ok {
			return errv
		}
		if len(nums) == 0 {
			return types.Error(types.ErrorNum)
		}
		var sumLog float64
		for _, n := range nums {
			if n <= 0 {
				return types.Error(types.ErrorNum)
			}
			sumLog += math.Log(n)
		}
		return functions.CheckNumber(math.Exp(sumLog / float64(len(nums))))
	})
}

// SumSq returns the definition for SUMSQ(values...).
func SumSq() functions.FunctionDef {
	return extutil.Def("SUMSQ", 0, -1, func(args []types.Value, _ *types.Context) types.Value {
		nums, errv, ok := functions.Numbers(args)
		if !ok {
			return errv
		}
		var sum float64
		for _, n := range nums {
			sum += n * n
		}
		return functions.CheckNumber(sum)
	})
}
