package types

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// GoValue decodes the payload into a plain Go value: float64, string, bool,
// time.Time, the error marker string, []any or nil.
func (v Value) GoValue() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.str
	case KindBoolean:
		return v.b
	case KindDate:
		return v.t
	case KindError:
		return v.err.String()
	case KindArray:
		out := make([]any, len(v.arr))
		for i, el := range v.arr {
			out[i] = el.GoValue()
		}
		return out
	default:
		return nil
	}
}

// FromGo converts a decoded Go value (as produced by encoding/json, yaml or
// database/sql scanning) into a Value.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Empty(), nil
	case Value:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Empty(), fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Number(n), nil
	case string:
		return Text(t), nil
	case []byte:
		return Text(string(t)), nil
	case bool:
		return Boolean(t), nil
	case time.Time:
		return Date(t), nil
	case []any:
		elems := make([]Value, len(t))
		for i, el := range t {
			ev, err := FromGo(el)
			if err != nil {
				return Empty(), fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return Array(elems), nil
	case []float64:
		elems := make([]Value, len(t))
		for i, n := range t {
			elems[i] = Number(n)
		}
		return Array(elems), nil
	case []string:
		elems := make([]Value, len(t))
		for i, s := range t {
			elems[i] = Text(s)
		}
		return Array(elems), nil
	default:
		return Empty(), fmt.Errorf("unsupported value type %T", x)
	}
}

// MarshalJSON encodes the value as {"type": kind, "value": payload}.
// Non-finite numbers are encoded as their textual form.
func (v Value) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			payload = FormatNumber(v.num)
		} else {
			payload = v.num
		}
	case KindDate:
		payload = v.t.Format(time.RFC3339)
	case KindArray:
		payload = v.arr
	default:
		payload = v.GoValue()
	}
	return json.Marshal(struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	}{v.kind.String(), payload})
}
