package functions

import (
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// Argument helpers shared by the builtin catalog. They follow the plugin
// contract: the first Error argument is propagated unchanged and anything
// that cannot be coerced becomes #VALUE!.

// firstError returns the first Error among args, looking inside arrays.
func firstError(args []types.Value) (types.Value, bool) {
	for _, a := range args {
		switch {
		case a.IsError():
			return a, true
		case a.IsArray():
			elems, _ := a.AsArray()
			if e, ok := firstError(elems); ok {
				return e, true
			}
		}
	}
	return types.Value{}, false
}

// flatten expands array arguments in place, depth first.
func flatten(args []types.Value) []types.Value {
	hasArray := false
	for _, a := range args {
		if a.IsArray() {
			hasArray = true
			break
		}
	}
	if !hasArray {
		return args
	}
	out := make([]types.Value, 0, len(args))
	for _, a := range args {
		if a.IsArray() {
			elems, _ := a.AsArray()
			out = append(out, flatten(elems)...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// toNumber coerces a single argument. Dates become their serial number.
// On failure the second result is the Error value to return.
func toNumber(v types.Value) (float64, types.Value, bool) {
	switch {
	case v.IsError():
		return 0, v, false
	case v.IsDate():
		t, _ := v.AsDate()
		return TimeToSerial(t), types.Value{}, true
	case v.CanConvertToNumber():
		n, _ := v.ToNumber()
		return n, types.Value{}, true
	default:
		return 0, types.Error(types.ErrorValue), false
	}
}

// toInt coerces a single argument and truncates it toward zero.
func toInt(v types.Value) (int, types.Value, bool) {
	n, errv, ok := toNumber(v)
	if !ok {
		return 0, errv, false
	}
	if n > 1e9 || n < -1e9 {
		return 0, types.Error(types.ErrorNum), false
	}
	return int(n), types.Value{}, true
}

// numbers collects every numeric value from args, flattening arrays.
// Text that does not look like a number, booleans inside arrays and Empty
// values are skipped. The first Error encountered is returned instead.
func numbers(args []types.Value) ([]float64, types.Value, bool) {
	if e, ok := firstError(args); ok {
		return nil, e, false
	}
	var out []float64
	for _, a := range args {
		if a.IsArray() {
			elems, _ := a.AsArray()
			for _, el := range flatten(elems) {
				if el.IsNumber() || el.IsDate() {
					n, _, _ := toNumber(el)
					out = append(out, n)
				}
			}
			continue
		}
		if n, _, ok := toNumber(a); ok {
			out = append(out, n)
		}
	}
	return out, types.Value{}, true
}

// truthy applies the conditional coercion: booleans as-is, numbers non-zero,
// text non-empty. ok is false for values with no truth value.
func truthy(v types.Value) (bool, bool) {
	switch {
	case v.IsBoolean():
		b, _ := v.AsBoolean()
		return b, true
	case v.CanConvertToNumber():
		n, _ := v.ToNumber()
		return n != 0, true
	case v.IsDate():
		return true, true
	case v.IsText():
		s, _ := v.AsText()
		return s != "", true
	case v.IsEmpty():
		return false, true
	default:
		return false, false
	}
}

// toText renders an argument as text.
func toText(v types.Value) string {
	return v.String()
}

// checkNumber turns NaN and infinities into #NUM!.
func checkNumber(n float64) types.Value {
	if n != n || n > maxFloat || n < -maxFloat {
		return types.Error(types.ErrorNum)
	}
	return types.Number(n)
}

const maxFloat = 1.7976931348623157e308

// unary builds a single-argument numeric function.
func unary(op func(float64) float64) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		x, errv, ok := toNumber(args[0])
		if !ok {
			return errv
		}
		return checkNumber(op(x))
	}
}

// runes returns s as runes so text functions count characters, not bytes.
func runes(v types.Value) []rune {
	return []rune(toText(v))
}

func upperName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Helpers for user function authors. They apply the same coercions as the
// builtin catalog.

// FirstError returns the first Error among args, looking inside arrays.
func FirstError(args []types.Value) (types.Value, bool) { return firstError(args) }

// Flatten expands array arguments in place, depth first.
func Flatten(args []types.Value) []types.Value { return flatten(args) }

// ToNumber coerces an argument to a number; Dates become serial numbers.
// When ok is false the second result is the Error value to return.
func ToNumber(v types.Value) (n float64, errv types.Value, ok bool) { return toNumber(v) }

// ToTime coerces an argument to a point in time.
func ToTime(v types.Value) (t time.Time, errv types.Value, ok bool) { return toTime(v) }

// Numbers collects the numeric values of args the way SUM does.
func Numbers(args []types.Value) (ns []float64, errv types.Value, ok bool) { return numbers(args) }

// CheckNumber returns n as a Number, or #NUM! when n is NaN or infinite.
func CheckNumber(n float64) types.Value { return checkNumber(n) }
