package functions

import (
	"math"
	"math/bits"
	"math/cmplx"
	"strconv"
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// radix describes a ten-digit positional notation. Negative numbers use
// the two's complement over all ten digits.
type radix struct {
	base int
	bits uint
}

var (
	radixBin = &radix{base: 2, bits: 10}
	radixOct = &radix{base: 8, bits: 30}
	radixHex = &radix{base: 16, bits: 40}
)

const maxRadixDigits = 10

// parse reads a number written in r. Ten digits with the top bit set are
// negative.
func (r *radix) parse(v types.Value) (int64, types.Value, bool) {
	if v.IsError() {
		return 0, v, false
	}
	if v.IsBoolean() {
		return 0, types.Error(types.ErrorValue), false
	}
	s := strings.TrimSpace(toText(v))
	if s == "" {
		return 0, types.Value{}, true
	}
	if len(s) > maxRadixDigits {
		return 0, types.Error(types.ErrorNum), false
	}
	n, err := strconv.ParseInt(s, r.base, 64)
	if err != nil || n < 0 {
		return 0, types.Error(types.ErrorNum), false
	}
	if n >= 1<<(r.bits-1) {
		n -= 1 << r.bits
	}
	return n, types.Value{}, true
}

// format writes n in r, left-padded with zeros to places when given.
func (r *radix) format(n int64, places []types.Value) types.Value {
	limit := int64(1) << (r.bits - 1)
	if n < -limit || n >= limit {
		return types.Error(types.ErrorNum)
	}
	if n < 0 {
		return types.Text(strings.ToUpper(strconv.FormatInt(n+2*limit, r.base)))
	}
	s := strings.ToUpper(strconv.FormatInt(n, r.base))
	if len(places) == 0 {
		return types.Text(s)
	}
	if places[0].IsError() {
		return places[0]
	}
	p, errv, ok := toInt(places[0])
	if !ok {
		return errv
	}
	if p < len(s) || p > maxRadixDigits {
		return types.Error(types.ErrorNum)
	}
	return types.Text(strings.Repeat("0", p-len(s)) + s)
}

// convert builds a base conversion. A nil radix stands for decimal.
func convert(from, to *radix) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		var n int64
		if from == nil {
			x, errv, ok := toNumber(args[0])
			if !ok {
				return errv
			}
			if math.Abs(x) >= 1<<53 {
				return types.Error(types.ErrorNum)
			}
			n = int64(math.Trunc(x))
		} else {
			var errv types.Value
			var ok bool
			if n, errv, ok = from.parse(args[0]); !ok {
				return errv
			}
		}
		if to == nil {
			return types.Number(float64(n))
		}
		return to.format(n, args[1:])
	}
}

// Bitwise operands are non-negative integers below 2^48.
const maxBitOperand = 1 << 48

func bitOperand(v types.Value) (uint64, types.Value, bool) {
	x, errv, ok := toNumber(v)
	if !ok {
		return 0, errv, false
	}
	if x < 0 || x >= maxBitOperand || x != math.Trunc(x) {
		return 0, types.Error(types.ErrorNum), false
	}
	return uint64(x), types.Value{}, true
}

func bitwise(op func(a, b uint64) uint64) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		if e, ok := firstError(args); ok {
			return e
		}
		a, errv, ok := bitOperand(args[0])
		if !ok {
			return errv
		}
		b, errv, ok := bitOperand(args[1])
		if !ok {
			return errv
		}
		return types.Number(float64(op(a, b)))
	}
}

// shift builds BITLSHIFT (dir 1) and BITRSHIFT (dir -1). A negative shift
// amount moves the other way.
func shift(dir int) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		if e, ok := firstError(args); ok {
			return e
		}
		a, errv, ok := bitOperand(args[0])
		if !ok {
			return errv
		}
		n, errv, ok := toInt(args[1])
		if !ok {
			return errv
		}
		n *= dir
		if n > 53 || n < -53 {
			return types.Error(types.ErrorNum)
		}
		if n < 0 {
			return types.Number(float64(a >> uint(-n)))
		}
		if a != 0 && bits.Len64(a)+n > 48 {
			return types.Error(types.ErrorNum)
		}
		return types.Number(float64(a << uint(n)))
	}
}

var (
	fnBitAnd    = bitwise(func(a, b uint64) uint64 { return a & b })
	fnBitOr     = bitwise(func(a, b uint64) uint64 { return a | b })
	fnBitXor    = bitwise(func(a, b uint64) uint64 { return a ^ b })
	fnBitLShift = shift(1)
	fnBitRShift = shift(-1)
)

// Complex numbers travel as text such as "3+4i" or "-2j".

func parseComplex(v types.Value) (complex128, string, types.Value, bool) {
	if v.IsError() {
		return 0, "", v, false
	}
	if v.IsNumber() {
		n, _ := v.AsNumber()
		return complex(n, 0), "i", types.Value{}, true
	}
	s := strings.TrimSpace(toText(v))
	suffix := "i"
	if strings.HasSuffix(s, "j") {
		suffix = "j"
		s = strings.TrimSuffix(s, "j") + "i"
	}
	if s == "" {
		return 0, suffix, types.Value{}, true
	}
	if strings.HasSuffix(s, "i") {
		if head := s[:len(s)-1]; head == "" || strings.HasSuffix(head, "+") || strings.HasSuffix(head, "-") {
			s = head + "1i"
		}
	}
	c, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return 0, "", types.Error(types.ErrorNum), false
	}
	return c, suffix, types.Value{}, true
}

func formatComplex(c complex128, suffix string) string {
	re, im := real(c), imag(c)
	if im == 0 {
		return types.FormatNumber(re)
	}
	var sb strings.Builder
	if re != 0 {
		sb.WriteString(types.FormatNumber(re))
		if im > 0 {
			sb.WriteByte('+')
		}
	}
	switch im {
	case 1:
	case -1:
		sb.WriteByte('-')
	default:
		sb.WriteString(types.FormatNumber(im))
	}
	sb.WriteString(suffix)
	return sb.String()
}

func fnComplex(args []types.Value, _ *types.Context) types.Value {
	if e, ok := firstError(args); ok {
		return e
	}
	re, errv, ok := toNumber(args[0])
	if !ok {
		return errv
	}
	im, errv, ok := toNumber(args[1])
	if !ok {
		return errv
	}
	suffix := "i"
	if len(args) > 2 && !args[2].IsEmpty() {
		suffix = toText(args[2])
		if suffix != "i" && suffix != "j" {
			return types.Error(types.ErrorValue)
		}
	}
	return types.Text(formatComplex(complex(re, im), suffix))
}

// complexPart builds a function that reduces a complex number to a real.
func complexPart(part func(complex128) float64) Func {
	return func(args []types.Value, _ *types.Context) types.Value {
		c, _, errv, ok := parseComplex(args[0])
		if !ok {
			return errv
		}
		return checkNumber(part(c))
	}
}

var (
	fnImReal     = complexPart(func(c complex128) float64 { return real(c) })
	fnImaginary  = complexPart(func(c complex128) float64 { return imag(c) })
	fnImAbs      = complexPart(cmplx.Abs)
	fnImArgument = complexPart(cmplx.Phase)
)

func fnImConjugate(args []types.Value, _ *types.Context) types.Value {
	c, suffix, errv, ok := parseComplex(args[0])
	if !ok {
		return errv
	}
	return types.Text(formatComplex(cmplx.Conj(c), suffix))
}
