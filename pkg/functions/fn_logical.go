package functions

import (
	"math"
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// fnIf selects between its branches. Both branches were already evaluated
// by the caller; an Error in any argument is returned first.
func fnIf(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	cond, ok := truthy(args[0])
	if !ok {
		return types.Error(types.ErrorValue)
	}
	if cond {
		return args[1]
	}
	if len(args) > 2 {
		return args[2]
	}
	return types.Boolean(false)
}

func fnIfError(args []types.Value, _ *types.Context) types.Value {
	if args[0].IsError() {
		return args[1]
	}
	return args[0]
}

func fnIfNA(args []types.Value, _ *types.Context) types.Value {
	if isNA(args[0]) {
		return args[1]
	}
	return args[0]
}

// logicals collects the truth values of args. Text that is neither numeric
// nor a boolean is ignored; no logical value at all is #VALUE!.
func logicals(args []types.Value) ([]bool, types.Value, bool) {
	if e, ok := firstError(args); ok {
		return nil, e, false
	}
	var out []bool
	for _, a := range flatten(args) {
		if a.IsText() && !a.CanConvertToNumber() {
			continue
		}
		if a.IsEmpty() {
			continue
		}
		if b, ok := truthy(a); ok {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, types.Error(types.ErrorValue), false
	}
	return out, types.Value{}, true
}

func fnAnd(args []types.Value, _ *types.Context) types.Value {
	vals, errv, ok := logicals(args)
	if !ok {
		return errv
	}
	for _, b := range vals {
		if !b {
			return types.Boolean(false)
		}
	}
	return types.Boolean(true)
}

func fnOr(args []types.Value, _ *types.Context) types.Value {
	vals, errv, ok := logicals(args)
	if !ok {
		return errv
	}
	for _, b := range vals {
		if b {
			return types.Boolean(true)
		}
	}
	return types.Boolean(false)
}

// fnXor is TRUE when an odd number of arguments are TRUE.
func fnXor(args []types.Value, _ *types.Context) types.Value {
	vals, errv, ok := logicals(args)
	if !ok {
		return errv
	}
	odd := false
	for _, b := range vals {
		if b {
			odd = !odd
		}
	}
	return types.Boolean(odd)
}

func fnNot(args []types.Value, _ *types.Context) types.Value {
	if args[0].IsError() {
		return args[0]
	}
	if args[0].IsText() && !args[0].CanConvertToNumber() {
		return types.Error(types.ErrorValue)
	}
	b, ok := truthy(args[0])
	if !ok {
		return types.Error(types.ErrorValue)
	}
	return types.Boolean(!b)
}

func fnTrue(_ []types.Value, _ *types.Context) types.Value  { return types.Boolean(true) }
func fnFalse(_ []types.Value, _ *types.Context) types.Value { return types.Boolean(false) }
func fnNA(_ []types.Value, _ *types.Context) types.Value    { return types.Error(types.ErrorNA) }

// isKind adapts a predicate into an information function. These never
// propagate errors: inspecting an Error is their purpose.
func isKind(pred func(types.Value) bool) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		return types.Boolean(pred(args[0]))
	}
}

func isError(v types.Value) bool   { return v.IsError() }
func isNumber(v types.Value) bool  { return v.IsNumber() || v.IsDate() }
func isText(v types.Value) bool    { return v.IsText() }
func isLogical(v types.Value) bool { return v.IsBoolean() }
func isBlank(v types.Value) bool   { return v.IsEmpty() }

func isNA(v types.Value) bool {
	k, err := v.AsError()
	return err == nil && k == types.ErrorNA
}

// fnIfs returns the value paired with the first true condition, or #N/A
// when none holds.
func fnIfs(args []types.Value, _ *types.Context) types.Value {
	if len(args)%2 != 0 {
		return types.Error(types.ErrorValue)
	}
	for i := 0; i < len(args); i += 2 {
		cond := args[i]
		if cond.IsError() {
			return cond
		}
		if cond.IsText() && !cond.CanConvertToNumber() {
			return types.Error(types.ErrorValue)
		}
		b, ok := truthy(cond)
		if !ok {
			return types.Error(types.ErrorValue)
		}
		if b {
			return args[i+1]
		}
	}
	return types.Error(types.ErrorNA)
}

// fnSwitch compares its first argument with each case in turn. A trailing
// unpaired argument is the default.
func fnSwitch(args []types.Value, _ *types.Context) types.Value {
	subject := args[0]
	if subject.IsError() {
		return subject
	}
	rest := args[1:]
	for len(rest) >= 2 {
		if rest[0].IsError() {
			return rest[0]
		}
		if sameCase(subject, rest[0]) {
			return rest[1]
		}
		rest = rest[2:]
	}
	if len(rest) == 1 {
		return rest[0]
	}
	return types.Error(types.ErrorNA)
}

// sameCase compares text case-insensitively and dates as serial numbers.
func sameCase(a, b types.Value) bool {
	if a.IsText() && b.IsText() {
		x, _ := a.AsText()
		y, _ := b.AsText()
		return strings.EqualFold(x, y)
	}
	if (a.IsNumber() || a.IsDate()) && (b.IsNumber() || b.IsDate()) {
		x, _, _ := toNumber(a)
		y, _, _ := toNumber(b)
		return x == y
	}
	return a.Equal(b)
}

func fnChoose(args []types.Value, _ *types.Context) types.Value {
	if args[0].IsError() {
		return args[0]
	}
	n, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	if n < 1 || n >= float64(len(args)) {
		return types.Error(types.ErrorValue)
	}
	return args[int(math.Trunc(n))]
}
