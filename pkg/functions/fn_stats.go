package functions

import (
	"math"
	"slices"

	"github.com/sandrolain/goformula/pkg/types"
)

// fnAverage averages the numeric arguments; with none it is #DIV/0!.
func fnAverage(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := numbers(args)
	if !ok {
		return errv
	}
	if len(nums) == 0 {
		return types.Error(types.ErrorDivZero)
	}
	return checkNumber(mean(nums))
}

func fnMin(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := numbers(args)
	if !ok {
		return errv
	}
	if len(nums) == 0 {
		return types.Number(0)
	}
	return types.Number(slices.Min(nums))
}

func fnMax(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := numbers(args)
	if !ok {
		return errv
	}
	if len(nums) == 0 {
		return types.Number(0)
	}
	return types.Number(slices.Max(nums))
}

// fnCount counts numbers, dates and numeric text. Errors are not counted
// and do not propagate.
func fnCount(args []types.Value, _ *types.Context) types.Value {
	count := 0
	for _, a := range flatten(args) {
		switch {
		case a.IsNumber(), a.IsDate(), a.IsBoolean():
			count++
		case a.IsText() && a.CanConvertToNumber():
			count++
		}
	}
	return types.Number(float64(count))
}

// fnCountA counts every non-empty value, errors included.
func fnCountA(args []types.Value, _ *types.Context) types.Value {
	count := 0
	for _, a := range flatten(args) {
		if !a.IsEmpty() {
			count++
		}
	}
	return types.Number(float64(count))
}

func fnMedian(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := numbers(args)
	if !ok {
		return errv
	}
	if len(nums) == 0 {
		return types.Error(types.ErrorNum)
	}
	sorted := slices.Clone(nums)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return types.Number(sorted[mid])
	}
	return types.Number((sorted[mid-1] + sorted[mid]) / 2)
}

// fnMode returns the most frequent value; ties go to the value seen first.
func fnMode(args []types.Value, _ *types.Context) types.Value {
	nums, errv, ok := numbers(args)
	if !ok {
		return errv
	}
	counts := make(map[float64]int, len(nums))
	best, bestCount := 0.0, 1
	for _, n := range nums {
		counts[n]++
		if c := counts[n]; c > bestCount {
			best, bestCount = n, c
		}
	}
	if bestCount < 2 {
		return types.Error(types.ErrorNA)
	}
	// A later value may reach the same count; prefer the earliest one.
	for _, n := range nums {
		if counts[n] == bestCount {
			return types.Number(n)
		}
	}
	return types.Number(best)
}

func fnStdev(args []types.Value, _ *types.Context) types.Value {
	v, errv, ok := sampleVariance(args)
	if !ok {
		return errv
	}
	return types.Number(math.Sqrt(v))
}

func fnVar(args []types.Value, _ *types.Context) types.Value {
	v, errv, ok := sampleVariance(args)
	if !ok {
		return errv
	}
	return types.Number(v)
}

func sampleVariance(args []types.Value) (float64, types.Value, bool) {
	nums, errv, ok := numbers(args)
	if !ok {
		return 0, errv, false
	}
	if len(nums) < 2 {
		return 0, types.Error(types.ErrorDivZero), false
	}
	m := mean(nums)
	sum := 0.0
	for _, n := range nums {
		d := n - m
		sum += d * d
	}
	return sum / float64(len(nums)-1), types.Value{}, true
}

func fnLarge(args []types.Value, _ *types.Context) types.Value {
	return kth(args, func(sorted []float64, k int) float64 {
		return sorted[len(sorted)-k]
	})
}

func fnSmall(args []types.Value, _ *types.Context) types.Value {
	return kth(args, func(sorted []float64, k int) float64 {
		return sorted[k-1]
	})
}

func kth(args []types.Value, pick func([]float64, int) float64) types.Value {
	nums, errv, ok := numbers(args[:1])
	if !ok {
		return errv
	}
	k, errv, ok := toNumber(args[1])
	if !ok {
		return errv
	}
	ki := int(math.Ceil(k))
	if ki < 1 || ki > len(nums) {
		return types.Error(types.ErrorNum)
	}
	sorted := slices.Clone(nums)
	slices.Sort(sorted)
	return types.Number(pick(sorted, ki))
}

func mean(nums []float64) float64 {
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

// pairedNumbers reads two equally sized ranges and keeps the positions
// where both cells are numeric.
func pairedNumbers(args []types.Value) ([]float64, []float64, types.Value, bool) {
	if e, ok := firstError(args); ok {
		return nil, nil, e, false
	}
	xs, ys := cells(args[0]), cells(args[1])
	if len(xs) != len(ys) {
		return nil, nil, types.Error(types.ErrorNA), false
	}
	var a, b []float64
	for i := range xs {
		x, y := xs[i], ys[i]
		if (x.IsNumber() || x.IsDate()) && (y.IsNumber() || y.IsDate()) {
			xn, _, _ := toNumber(x)
			yn, _, _ := toNumber(y)
			a = append(a, xn)
			b = append(b, yn)
		}
	}
	return a, b, types.Value{}, true
}

// fnCorrel returns the Pearson correlation coefficient of two ranges.
func fnCorrel(args []types.Value, _ *types.Context) types.Value {
	xs, ys, errv, ok := pairedNumbers(args)
	if !ok {
		return errv
	}
	if len(xs) < 2 {
		return types.Error(types.ErrorDivZero)
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return types.Error(types.ErrorDivZero)
	}
	return checkNumber(sxy / math.Sqrt(sxx*syy))
}

// sumPairs builds the SUMX2MY2 family from a per-pair term.
func sumPairs(term func(x, y float64) float64) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		xs, ys, errv, ok := pairedNumbers(args)
		if !ok {
			return errv
		}
		sum := 0.0
		for i := range xs {
			sum += term(xs[i], ys[i])
		}
		return checkNumber(sum)
	}
}

var (
	fnSumX2MY2 = sumPairs(func(x, y float64) float64 { return x*x - y*y })
	fnSumX2PY2 = sumPairs(func(x, y float64) float64 { return x*x + y*y })
	fnSumXMY2  = sumPairs(func(x, y float64) float64 { return (x - y) * (x - y) })
)
