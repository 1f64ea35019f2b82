package types

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which payload a Value carries.
type Kind uint8

// Value kinds. The zero Value is Empty.
const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindBoolean
	KindDate
	KindError
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindError:
		return "error"
	case KindArray:
		return "array"
	default:
		return "empty"
	}
}

// rank is the cross-kind ordering used when two values of different kinds
// are compared.
func (k Kind) rank() int {
	switch k {
	case KindNumber:
		return 0
	case KindText:
		return 1
	case KindBoolean:
		return 2
	case KindDate:
		return 3
	case KindError:
		return 4
	case KindArray:
		return 5
	default:
		return 6
	}
}

// Value is the runtime value of the formula language: a closed tagged union of
// Number, Text, Boolean, Date, Error, Array and Empty.
//
// Values are immutable. Array payloads are shared between copies and must never
// be mutated after construction.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	t    time.Time
	err  ErrorKind
	arr  []Value
}

// Number creates a Number value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Text creates a Text value.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Boolean creates a Boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Date creates a Date value.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Error creates an Error value of the given kind.
func Error(kind ErrorKind) Value { return Value{kind: KindError, err: kind} }

// Empty returns the Empty value.
func Empty() Value { return Value{} }

// Array creates an Array value. The elements are copied once so that later
// changes to the caller's slice cannot leak into the value.
func Array(elements []Value) Value {
	arr := make([]Value, len(elements))
	copy(arr, elements)
	return Value{kind: KindArray, arr: arr}
}

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsText() bool    { return v.kind == KindText }
func (v Value) IsBoolean() bool { return v.kind == KindBoolean }
func (v Value) IsDate() bool    { return v.kind == KindDate }
func (v Value) IsError() bool   { return v.kind == KindError }
func (v Value) IsArray() bool   { return v.kind == KindArray }
func (v Value) IsEmpty() bool   { return v.kind == KindEmpty }

// AsNumber returns the Number payload.
func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, ErrTypeMismatch
	}
	return v.num, nil
}

// AsText returns the Text payload.
func (v Value) AsText() (string, error) {
	if v.kind != KindText {
		return "", ErrTypeMismatch
	}
	return v.str, nil
}

// AsBoolean returns the Boolean payload.
func (v Value) AsBoolean() (bool, error) {
	if v.kind != KindBoolean {
		return false, ErrTypeMismatch
	}
	return v.b, nil
}

// AsDate returns the Date payload.
func (v Value) AsDate() (time.Time, error) {
	if v.kind != KindDate {
		return time.Time{}, ErrTypeMismatch
	}
	return v.t, nil
}

// AsError returns the Error payload.
func (v Value) AsError() (ErrorKind, error) {
	if v.kind != KindError {
		return 0, ErrTypeMismatch
	}
	return v.err, nil
}

// AsArray returns the Array payload. The returned slice is shared and has its
// capacity clipped, so appending to it never writes into the value.
func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, ErrTypeMismatch
	}
	return v.arr[:len(v.arr):len(v.arr)], nil
}

// CanConvertToNumber reports whether ToNumber would succeed: true for Number
// and Boolean, true for Text holding a decimal floating-point literal.
func (v Value) CanConvertToNumber() bool {
	switch v.kind {
	case KindNumber, KindBoolean:
		return true
	case KindText:
		_, ok := parseDecimal(v.str)
		return ok
	default:
		return false
	}
}

// ToNumber coerces the value to a float64.
func (v Value) ToNumber() (float64, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindBoolean:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindText:
		if n, ok := parseDecimal(v.str); ok {
			return n, nil
		}
	}
	return 0, ErrTypeMismatch
}

// String renders the value the way the CONCAT operator sees it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.str
	case KindBoolean:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindError:
		return v.err.String()
	case KindArray:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, el := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(el.String())
		}
		sb.WriteByte('}')
		return sb.String()
	default:
		return ""
	}
}

// FormatNumber prints integral numbers without a decimal point and everything
// else fixed to six decimals with trailing zeros removed.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case n == 0:
		return "0"
	case n == math.Trunc(n):
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	s := strconv.FormatFloat(n, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// Equal reports whether both values have the same tag and equal payloads.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.str == o.str
	case KindBoolean:
		return v.b == o.b
	case KindDate:
		return v.t.Equal(o.t)
	case KindError:
		return v.err == o.err
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Less orders values: differing tags by tag rank, equal tags by payload.
// Errors and Empty values are never less than a value of the same tag.
func (v Value) Less(o Value) bool {
	if v.kind != o.kind {
		return v.kind.rank() < o.kind.rank()
	}
	switch v.kind {
	case KindNumber:
		return v.num < o.num
	case KindText:
		return v.str < o.str
	case KindBoolean:
		return !v.b && o.b
	case KindDate:
		return v.t.Before(o.t)
	case KindArray:
		for i := 0; i < len(v.arr) && i < len(o.arr); i++ {
			if v.arr[i].Less(o.arr[i]) {
				return true
			}
			if o.arr[i].Less(v.arr[i]) {
				return false
			}
		}
		return len(v.arr) < len(o.arr)
	default:
		return false
	}
}

// LessEqual is Less or Equal.
func (v Value) LessEqual(o Value) bool { return v.Less(o) || v.Equal(o) }

// Greater is the negation of LessEqual.
func (v Value) Greater(o Value) bool { return !v.LessEqual(o) }

// GreaterEqual is the negation of Less.
func (v Value) GreaterEqual(o Value) bool { return !v.Less(o) }

// parseDecimal accepts an optionally signed decimal literal with optional
// fraction and exponent, surrounded by optional whitespace. Hex, inf, nan and
// digit separators are rejected.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	i := 0
	if s[i] == '+' || s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return 0, false
		}
	}
	if i != len(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out-of-range literals are well-formed; they coerce to ±Inf.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return n, true
		}
		return 0, false
	}
	return n, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
