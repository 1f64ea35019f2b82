package functions

import (
	"math"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/goformula/pkg/types"
)

// fnSum adds every numeric argument. Text that is not numeric is skipped;
// the first Error wins.
func fnSum(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := numbers(args)
	if !ok {
		return errv
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return checkNumber(total)
}

func fnProduct(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := numbers(args)
	if !ok {
		return errv
	}
	if len(nums) == 0 {
		return types.Number(0)
	}
	total := 1.0
	for _, n := range nums {
		total *= n
	}
	return checkNumber(total)
}

// roundingArgs reads the value and the optional digit count.
func roundingArgs(args []types.Value) (float64, int, types.Value, bool) {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return 0, 0, errv, false
	}
	digits := 0
	if len(args) > 1 {
		d, errv, ok := toInt(args[1])
		if !ok {
			return 0, 0, errv, false
		}
		digits = d
	}
	return x, digits, types.Value{}, true
}

// roundDecimal rounds x to the given number of decimal digits on its
// shortest decimal representation, so 2.675 rounds to 2.68.
func roundDecimal(x float64, digits int, mode apd.Rounder) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || digits > 330 {
		return x
	}
	if digits < -330 {
		return 0
	}
	var d apd.Decimal
	if _, err := d.SetFloat64(x); err != nil {
		return x
	}
	intDigits := max(d.NumDigits()+int64(d.Exponent), 1)
	ctx := apd.BaseContext.WithPrecision(uint32(intDigits + int64(max(digits, 0)) + 2))
	ctx.Rounding = mode

	var out apd.Decimal
	if _, err := ctx.Quantize(&out, &d, int32(-digits)); err != nil {
		return x
	}
	f, err := out.Float64()
	if err != nil {
		return x
	}
	return f
}

func rounding(mode apd.Rounder) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		x, digits, errv, ok := roundingArgs(args)
		if !ok {
			return errv
		}
		return checkNumber(roundDecimal(x, digits, mode))
	}
}

var (
	fnRound     = rounding(apd.RoundHalfUp)
	fnRoundUp   = rounding(apd.RoundUp)
	fnRoundDown = rounding(apd.RoundDown)
	fnTrunc     = rounding(apd.RoundDown)
)

// fnMRound rounds to the nearest multiple, computed in decimal so that
// MROUND(1.3, 0.2) is 1.4.
func fnMRound(args []types.Value, _ *types.Context) types.Value {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	m, errv, ok := toNumber(args[1])
	if !ok {
		return errv
	}
	if m == 0 || x == 0 {
		return types.Number(0)
	}
	if (x > 0) != (m > 0) {
		return types.Error(types.ErrorNum)
	}

	var dx, dm, q, out apd.Decimal
	if _, err := dx.SetFloat64(x); err != nil {
		return types.Error(types.ErrorNum)
	}
	if _, err := dm.SetFloat64(m); err != nil {
		return types.Error(types.ErrorNum)
	}
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	if _, err := ctx.Quo(&q, &dx, &dm); err != nil {
		return types.Error(types.ErrorNum)
	}
	if _, err := ctx.Quantize(&q, &q, 0); err != nil {
		return types.Error(types.ErrorNum)
	}
	if _, err := ctx.Mul(&out, &q, &dm); err != nil {
		return types.Error(types.ErrorNum)
	}
	f, err := out.Float64()
	if err != nil {
		return types.Error(types.ErrorNum)
	}
	return checkNumber(f)
}

func fnInt(args []types.Value, _ *types.Context) types.Value {
	return unary(math.Floor)(args, nil)
}

func fnMod(args []types.Value, _ *types.Context) types.Value {
	n, d, errv, ok := twoNumbers(args)
	if !ok {
		return errv
	}
	if d == 0 {
		return types.Error(types.ErrorDivZero)
	}
	return checkNumber(clean(n - d*math.Floor(n/d)))
}

func fnQuotient(args []types.Value, _ *types.Context) types.Value {
	n, d, errv, ok := twoNumbers(args)
	if !ok {
		return errv
	}
	if d == 0 {
		return types.Error(types.ErrorDivZero)
	}
	return checkNumber(math.Trunc(n / d))
}

func fnPower(args []types.Value, _ *types.Context) types.Value {
	b, e, errv, ok := twoNumbers(args)
	if !ok {
		return errv
	}
	return checkNumber(math.Pow(b, e))
}

func fnSqrt(args []types.Value, _ *types.Context) types.Value {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	if x < 0 {
		return types.Error(types.ErrorNum)
	}
	return types.Number(math.Sqrt(x))
}

func fnExp(args []types.Value, _ *types.Context) types.Value {
	return unary(math.Exp)(args, nil)
}

func fnLn(args []types.Value, _ *types.Context) types.Value {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	if x <= 0 {
		return types.Error(types.ErrorNum)
	}
	return types.Number(math.Log(x))
}

func fnLog(args []types.Value, _ *types.Context) types.Value {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	base := 10.0
	if len(args) > 1 {
		if base, errv, ok = toNumber(args[1]); !ok {
			return errv
		}
	}
	if x <= 0 || base <= 0 {
		return types.Error(types.ErrorNum)
	}
	if base == 1 {
		return types.Error(types.ErrorDivZero)
	}
	return checkNumber(clean(math.Log(x) / math.Log(base)))
}

func fnLog10(args []types.Value, _ *types.Context) types.Value {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	if x <= 0 {
		return types.Error(types.ErrorNum)
	}
	return types.Number(math.Log10(x))
}

func fnPi(_ []types.Value, _ *types.Context) types.Value {
	return types.Number(math.Pi)
}

func absFloat(x float64) float64 { return math.Abs(x) }

func signFloat(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// evenFloat rounds away from zero to the nearest even integer.
func evenFloat(x float64) float64 {
	v := math.Ceil(math.Abs(x)/2) * 2
	return math.Copysign(v, x)
}

// oddFloat rounds away from zero to the nearest odd integer.
func oddFloat(x float64) float64 {
	v := math.Ceil(math.Abs(x))
	if math.Mod(v, 2) == 0 {
		v++
	}
	if x < 0 {
		return -v
	}
	return v
}

// significance reads the optional second argument of CEILING and FLOOR.
func significance(args []types.Value) (float64, float64, types.Value, bool) {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return 0, 0, errv, false
	}
	sig := 1.0
	if len(args) > 1 {
		if sig, errv, ok = toNumber(args[1]); !ok {
			return 0, 0, errv, false
		}
	}
	if x > 0 && sig < 0 {
		return 0, 0, types.Error(types.ErrorNum), false
	}
	return x, sig, types.Value{}, true
}

func fnCeiling(args []types.Value, _ *types.Context) types.Value {
	x, sig, errv, ok := significance(args)
	if !ok {
		return errv
	}
	if sig == 0 {
		return types.Number(0)
	}
	return checkNumber(clean(math.Ceil(snap(x/sig)) * sig))
}

func fnFloor(args []types.Value, _ *types.Context) types.Value {
	x, sig, errv, ok := significance(args)
	if !ok {
		return errv
	}
	if sig == 0 {
		return types.Number(0)
	}
	return checkNumber(clean(math.Floor(snap(x/sig)) * sig))
}

func fnFact(args []types.Value, _ *types.Context) types.Value {
	x, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	n := int(math.Trunc(x))
	if n < 0 || n > 170 {
		return types.Error(types.ErrorNum)
	}
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return types.Number(f)
}

func fnRand(_ []types.Value, vars *types.Context) types.Value {
	return types.Number(vars.Rand().Float64())
}

func fnRandBetween(args []types.Value, vars *types.Context) types.Value {
	lo, hi, errv, ok := twoNumbers(args)
	if !ok {
		return errv
	}
	lo, hi = math.Ceil(lo), math.Floor(hi)
	if lo > hi {
		return types.Error(types.ErrorNum)
	}
	span := hi - lo + 1
	if span > 1<<53 {
		return types.Error(types.ErrorNum)
	}
	return types.Number(lo + float64(vars.Rand().Int64N(int64(span))))
}

func twoNumbers(args []types.Value) (float64, float64, types.Value, bool) {
	a, errv, ok := toNumber(args[0])
	if !ok {
		return 0, 0, errv, false
	}
	b, errv, ok := toNumber(args[1])
	if !ok {
		return 0, 0, errv, false
	}
	return a, b, types.Value{}, true
}

// snap removes representation noise from a quotient that is meant to be
// integral, e.g. 0.3/0.1.
func snap(q float64) float64 {
	if r := math.Round(q); math.Abs(q-r) < 1e-9 {
		return r
	}
	return q
}

// clean rounds to 15 significant digits, the precision spreadsheets display.
func clean(x float64) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, err := strconv.ParseFloat(strconv.FormatFloat(x, 'g', 15, 64), 64)
	if err != nil {
		return x
	}
	return f
}

// integers collects the truncated numeric arguments for GCD and LCM.
// Negative values are #NUM!.
func integers(args []types.Value) ([]float64, types.Value, bool) {
	nums, errv, ok := numbers(args)
	if !ok {
		return nil, errv, false
	}
	for i, n := range nums {
		if n < 0 || n >= 1<<53 {
			return nil, types.Error(types.ErrorNum), false
		}
		nums[i] = math.Trunc(n)
	}
	return nums, types.Value{}, true
}

func gcd(a, b float64) float64 {
	for b != 0 {
		a, b = b, math.Mod(a, b)
	}
	return a
}

func fnGcd(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := integers(args)
	if !ok {
		return errv
	}
	g := 0.0
	for _, n := range nums {
		g = gcd(g, n)
	}
	return types.Number(g)
}

func fnLcm(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := integers(args)
	if !ok {
		return errv
	}
	l := 1.0
	for _, n := range nums {
		if n == 0 {
			return types.Number(0)
		}
		l = l / gcd(l, n) * n
	}
	return checkNumber(l)
}

// fnCombin counts the ways to choose k items out of n.
func fnCombin(args []types.Value, _ *types.Context) types.Value {
	n, k, errv, ok := twoNumbers(args)
	if !ok {
		return errv
	}
	n, k = math.Trunc(n), math.Trunc(k)
	if n < 0 || k < 0 || k > n {
		return types.Error(types.ErrorNum)
	}
	k = min(k, n-k)
	c := 1.0
	for i := 1.0; i <= k; i++ {
		c = c * (n - k + i) / i
	}
	return checkNumber(math.Round(c))
}
