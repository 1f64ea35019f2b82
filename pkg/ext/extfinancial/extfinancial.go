// Package extfinancial provides time-value-of-money functions.
//
// Cash flows follow the usual spreadsheet sign convention: money paid out
// is negative, money received is positive. The optional type argument is 0
// for payments at the end of each period and 1 for payments at the
// beginning.
package extfinancial

import (
	"math"

	"github.com/sandrolain/goformula/pkg/ext/extutil"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// All returns all financial function definitions.
func All() []functions.FunctionDef {
	return []functions.FunctionDef{
		PMT(),
		FV(),
		PV(),
		NPER(),
		NPV(),
		IRR(),
		MIRR(),
		RATE(),
	}
}

// tvmArgs coerces rate, two required operands and the optional amount and
// type arguments.
func tvmArgs(args []types.Value) (rate, a, b, c float64, due bool, errv types.Value, ok bool) {
	xs, errv, ok := extutil.Floats([]types.Value{
		args[0], args[1], args[2],
		extutil.OptionalArg(args, 3, types.Number(0)),
		extutil.OptionalArg(args, 4, types.Number(0)),
	})
	if !ok {
		return 0, 0, 0, 0, false, errv, false
	}
	return xs[0], xs[1], xs[2], xs[3], xs[4] != 0, types.Value{}, true
}

func dueFactor(rate float64, due bool) float64 {
	if due {
		return 1 + rate
	}
	return 1
}

// PMT returns the definition for PMT(rate, nper, pv, [fv], [type]).
func PMT() functions.FunctionDef {
	return extutil.Def("PMT", 3, 5, func(args []types.Value, _ *types.Context) types.Value {
		rate, nper, pv, fv, due, errv, ok := tvmArgs(args)
		if !ok {
			return errv
		}
		if nper == 0 {
			return types.Error(types.ErrorNum)
		}
		if rate == 0 {
			return functions.CheckNumber(-(pv + fv) / nper)
		}
		g := math.Pow(1+rate, nper)
		return functions.CheckNumber(-rate * (fv + pv*g) / (dueFactor(rate, due) * (g - 1)))
	})
}

// FV returns the definition for FV(rate, nper, pmt, [pv], [type]).
func FV() functions.FunctionDef {
	return extutil.Def("FV", 3, 5, func(args []types.Value, _ *types.Context) types.Value {
		rate, nper, pmt, pv, due, errv, ok := tvmArgs(args)
		if !ok {
			return errv
		}
		if rate == 0 {
			return functions.CheckNumber(-(pv + pmt*nper))
		}
		g := math.Pow(1+rate, nper)
		return functions.CheckNumber(-(pv*g + pmt*dueFactor(rate, due)*(g-1)/rate))
	})
}

// PV returns the definition for PV(rate, nper, pmt, [fv], [type]).
func PV() functions.FunctionDef {
	return extutil.Def("PV", 3, 5, func(args []types.Value, _ *types.Context) types.Value {
		rate, nper, pmt, fv, due, errv, ok := tvmArgs(args)
		if !ok {
			return errv
		}
		if rate == 0 {
			return functions.CheckNumber(-(fv + pmt*nper))
		}
		g := math.Pow(1+rate, nper)
		return functions.CheckNumber(-(fv + pmt*dueFactor(rate, due)*(g-1)/rate) / g)
	})
}

// NPER returns the definition for NPER(rate, pmt, pv, [fv], [type]).
func NPER() functions.FunctionDef {
	return extutil.Def("NPER", 3, 5, func(args []types.Value, _ *types.Context) types.Value {
		rate, pmt, pv, fv, due, errv, ok := tvmArgs(args)
		if !ok {
			return errv
		}
		if rate == 0 {
			if pmt == 0 {
				return types.Error(types.ErrorNum)
			}
			return functions.CheckNumber(-(pv + fv) / pmt)
		}
		p := pmt * dueFactor(rate, due)
		ratio := (p - fv*rate) / (p + pv*rate)
		if ratio <= 0 || rate <= -1 {
			return types.Error(types.ErrorNum)
		}
		return functions.CheckNumber(math.Log(ratio) / math.Log(1+rate))
	})
}

// NPV returns the definition for NPV(rate, values...). The first value is
// discounted by one period.
func NPV() functions.FunctionDef {
	return extutil.Def("NPV", 2, -1, func(args []types.Value, _ *types.Context) types.Value {
		rate, errv, ok := functions.ToNumber(args[0])
		if !ok {
			return errv
		}
		flows, errv, ok := functions.Numbers(args[1:])
		if !ok {
			return errv
		}
		if rate == -1 {
			return types.Error(types.ErrorDivZero)
		}
		return functions.CheckNumber(npv(rate, flows))
	})
}

func npv(rate float64, flows []float64) float64 {
	var sum float64
	for i, f := range flows {
		sum += f / math.Pow(1+rate, float64(i+1))
	}
	return sum
}

// IRR returns the definition for IRR(values, [guess]), the rate at which
// the net present value of values is zero. The first value is not
// discounted. No convergence within the iteration limit is #NUM!.
func IRR() functions.FunctionDef {
	const (
		maxIter = 50
		epsilon = 1e-10
	)
	return extutil.Def("IRR", 1, 2, func(args []types.Value, _ *types.Context) types.Value {
		flows, errv, ok := functions.Numbers(args[:1])
		if !ok {
			return errv
		}
		rate, errv, ok := functions.ToNumber(extutil.OptionalArg(args, 1, types.Number(0.1)))
		if !ok {
			return errv
		}
		var pos, neg bool
		for _, f := range flows {
			pos = pos || f > 0
			neg = neg || f < 0
		}
		if !pos || !neg {
			return types.Error(types.ErrorNum)
		}

		for range maxIter {
			var f, df float64
			for i, c := range flows {
				d := math.Pow(1+rate, float64(i))
				f += c / d
				df -= float64(i) * c / (d * (1 + rate))
			}
			if df == 0 {
				break
			}
			next := rate - f/df
			if math.Abs(next-rate) < epsilon {
				return functions.CheckNumber(next)
			}
			if next <= -1 || math.IsNaN(next) {
				break
			}
			rate = next
		}
		return types.Error(types.ErrorNum)
	})
}

// MIRR returns the definition for MIRR(values, finance_rate,
// reinvest_rate). Outflows are discounted at the finance rate and inflows
// compounded at the reinvestment rate.
func MIRR() functions.FunctionDef {
	return extutil.Def("MIRR", 3, 3, func(args []types.Value, _ *types.Context) types.Value {
		flows, errv, ok := functions.Numbers(args[:1])
		if !ok {
			return errv
		}
		rates, errv, ok := extutil.Floats(args[1:])
		if !ok {
			return errv
		}
		finance, reinvest := rates[0], rates[1]
		n := len(flows)
		if n < 2 || finance == -1 || reinvest == -1 {
			return types.Error(types.ErrorDivZero)
		}
		var outflows, inflows float64
		for i, f := range flows {
			if f < 0 {
				outflows += f / math.Pow(1+finance, float64(i))
			} else {
				inflows += f * math.Pow(1+reinvest, float64(n-1-i))
			}
		}
		if outflows == 0 || inflows == 0 {
			return types.Error(types.ErrorDivZero)
		}
		return functions.CheckNumber(math.Pow(inflows/-outflows, 1/float64(n-1)) - 1)
	})
}

// RATE returns the definition for RATE(nper, pmt, pv, [fv], [type],
// [guess]), solved with Newton's method. No convergence is #NUM!.
func RATE() functions.FunctionDef {
	const (
		maxIter = 100
		epsilon = 1e-10
	)
	return extutil.Def("RATE", 3, 6, func(args []types.Value, _ *types.Context) types.Value {
		nper, pmt, pv, fv, due, errv, ok := tvmArgs(args)
		if !ok {
			return errv
		}
		rate, errv, ok := functions.ToNumber(extutil.OptionalArg(args, 5, types.Number(0.1)))
		if !ok {
			return errv
		}
		if nper <= 0 {
			return types.Error(types.ErrorNum)
		}
		t := 0.0
		if due {
			t = 1
		}
		for range maxIter {
			if math.Abs(rate) < epsilon {
				rate = epsilon
			}
			g := math.Pow(1+rate, nper)
			dg := nper * math.Pow(1+rate, nper-1)
			f := pv*g + pmt*(1+rate*t)*(g-1)/rate + fv
			df := pv*dg + pmt*(t*(g-1)/rate+(1+rate*t)*(dg*rate-(g-1))/(rate*rate))
			if df == 0 || math.IsNaN(df) {
				break
			}
			next := rate - f/df
			if math.Abs(next-rate) < epsilon {
				return functions.CheckNumber(next)
			}
			if next <= -1 || math.IsNaN(next) {
				break
			}
			rate = next
		}
		return types.Error(types.ErrorNum)
	})
}
