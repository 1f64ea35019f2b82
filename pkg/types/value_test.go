package types_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

func TestValueKinds(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value types.Value
		kind  types.Kind
	}{
		{"number", types.Number(1.5), types.KindNumber},
		{"text", types.Text("x"), types.KindText},
		{"boolean", types.Boolean(true), types.KindBoolean},
		{"date", types.Date(date), types.KindDate},
		{"error", types.Error(types.ErrorNA), types.KindError},
		{"array", types.Array([]types.Value{types.Number(1)}), types.KindArray},
		{"empty", types.Empty(), types.KindEmpty},
		{"zero value", types.Value{}, types.KindEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Kind(); got != tt.kind {
				t.Fatalf("Kind() = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestValueAccessorsMismatch(t *testing.T) {
	v := types.Text("hello")
	if _, err := v.AsNumber(); !errors.Is(err, types.ErrTypeMismatch) {
		t.Fatalf("AsNumber on text: err = %v, want ErrTypeMismatch", err)
	}
	if _, err := v.AsBoolean(); !errors.Is(err, types.ErrTypeMismatch) {
		t.Fatalf("AsBoolean on text: err = %v", err)
	}
	if _, err := v.AsDate(); !errors.Is(err, types.ErrTypeMismatch) {
		t.Fatalf("AsDate on text: err = %v", err)
	}
	if _, err := v.AsArray(); !errors.Is(err, types.ErrTypeMismatch) {
		t.Fatalf("AsArray on text: err = %v", err)
	}
	if _, err := v.AsError(); !errors.Is(err, types.ErrTypeMismatch) {
		t.Fatalf("AsError on text: err = %v", err)
	}
	s, err := v.AsText()
	if err != nil || s != "hello" {
		t.Fatalf("AsText() = %q, %v", s, err)
	}
}

func TestArrayIsImmutable(t *testing.T) {
	src := []types.Value{types.Number(1), types.Number(2)}
	arr := types.Array(src)
	src[0] = types.Number(99)

	elems, _ := arr.AsArray()
	if n, _ := elems[0].AsNumber(); n != 1 {
		t.Fatalf("array changed through constructor input: %v", n)
	}

	grown := append(elems, types.Number(3))
	_ = grown
	again, _ := arr.AsArray()
	if len(again) != 2 {
		t.Fatalf("append through accessor leaked into value: len %d", len(again))
	}
}

func TestCanConvertToNumber(t *testing.T) {
	tests := []struct {
		value types.Value
		ok    bool
		want  float64
	}{
		{types.Number(3), true, 3},
		{types.Boolean(true), true, 1},
		{types.Boolean(false), true, 0},
		{types.Text("42"), true, 42},
		{types.Text("  -1.5e2 "), true, -150},
		{types.Text(".5"), true, 0.5},
		{types.Text("5."), true, 5},
		{types.Text("1e400"), true, math.Inf(1)},
		{types.Text(""), false, 0},
		{types.Text("abc"), false, 0},
		{types.Text("1e"), false, 0},
		{types.Text("0x10"), false, 0},
		{types.Text("inf"), false, 0},
		{types.Text("1,000"), false, 0},
		{types.Date(time.Now()), false, 0},
		{types.Error(types.ErrorValue), false, 0},
		{types.Array(nil), false, 0},
		{types.Empty(), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.value.Kind().String()+"/"+tt.value.String(), func(t *testing.T) {
			if got := tt.value.CanConvertToNumber(); got != tt.ok {
				t.Fatalf("CanConvertToNumber() = %v, want %v", got, tt.ok)
			}
			n, err := tt.value.ToNumber()
			if tt.ok {
				if err != nil {
					t.Fatalf("ToNumber() error: %v", err)
				}
				if n != tt.want {
					t.Fatalf("ToNumber() = %v, want %v", n, tt.want)
				}
			} else if !errors.Is(err, types.ErrTypeMismatch) {
				t.Fatalf("ToNumber() err = %v, want ErrTypeMismatch", err)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	date := time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC)
	tests := []struct {
		value types.Value
		want  string
	}{
		{types.Number(42), "42"},
		{types.Number(-7), "-7"},
		{types.Number(0), "0"},
		{types.Number(math.Copysign(0, -1)), "0"},
		{types.Number(3.14159), "3.14159"},
		{types.Number(1.5), "1.5"},
		{types.Number(1.0 / 3.0), "0.333333"},
		{types.Number(-0.0000001), "0"},
		{types.Number(1e20), "100000000000000000000"},
		{types.Number(math.Inf(1)), "inf"},
		{types.Number(math.NaN()), "nan"},
		{types.Text("abc"), "abc"},
		{types.Boolean(true), "TRUE"},
		{types.Boolean(false), "FALSE"},
		{types.Date(date), "2024-01-05"},
		{types.Error(types.ErrorDivZero), "#DIV/0!"},
		{types.Error(types.ErrorName), "#NAME?"},
		{types.Error(types.ErrorNA), "#N/A"},
		{types.Array([]types.Value{types.Number(1), types.Text("a"), types.Boolean(false)}), "{1, a, FALSE}"},
		{types.Array(nil), "{}"},
		{types.Empty(), ""},
	}
	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorKindMarkers(t *testing.T) {
	want := map[types.ErrorKind]string{
		types.ErrorDivZero: "#DIV/0!",
		types.ErrorValue:   "#VALUE!",
		types.ErrorRef:     "#REF!",
		types.ErrorName:    "#NAME?",
		types.ErrorNum:     "#NUM!",
		types.ErrorNA:      "#N/A",
		types.ErrorParse:   "#PARSE!",
	}
	if len(types.ErrorKinds) != len(want) {
		t.Fatalf("ErrorKinds has %d entries, want %d", len(types.ErrorKinds), len(want))
	}
	for _, k := range types.ErrorKinds {
		if k.String() != want[k] {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want[k])
		}
		back, ok := types.ParseErrorKind(k.String())
		if !ok || back != k {
			t.Errorf("ParseErrorKind(%q) = %v, %v", k.String(), back, ok)
		}
	}
	if _, ok := types.ParseErrorKind("#BOGUS"); ok {
		t.Error("ParseErrorKind accepted an unknown marker")
	}
}

func TestValueEqual(t *testing.T) {
	d := time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b types.Value
		want bool
	}{
		{"same number", types.Number(1), types.Number(1), true},
		{"different number", types.Number(1), types.Number(2), false},
		{"number vs text", types.Number(1), types.Text("1"), false},
		{"number vs boolean", types.Number(1), types.Boolean(true), false},
		{"text case sensitive", types.Text("a"), types.Text("A"), false},
		{"dates", types.Date(d), types.Date(d.In(time.FixedZone("x", 3600))), true},
		{"errors", types.Error(types.ErrorNA), types.Error(types.ErrorNA), true},
		{"different errors", types.Error(types.ErrorNA), types.Error(types.ErrorRef), false},
		{"arrays", types.Array([]types.Value{types.Number(1)}), types.Array([]types.Value{types.Number(1)}), true},
		{"array lengths", types.Array([]types.Value{types.Number(1)}), types.Array(nil), false},
		{"empties", types.Empty(), types.Empty(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueOrdering(t *testing.T) {
	d1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	tests := []struct {
		name string
		a, b types.Value
		less bool
	}{
		{"numbers", types.Number(1), types.Number(2), true},
		{"numbers reversed", types.Number(2), types.Number(1), false},
		{"text lexicographic", types.Text("abc"), types.Text("abd"), true},
		{"text prefix", types.Text("ab"), types.Text("abc"), true},
		{"booleans", types.Boolean(false), types.Boolean(true), true},
		{"dates", types.Date(d1), types.Date(d2), true},
		{"number before text", types.Number(100), types.Text("1"), true},
		{"text before boolean", types.Text("z"), types.Boolean(false), true},
		{"boolean before date", types.Boolean(true), types.Date(d1), true},
		{"date before error", types.Date(d1), types.Error(types.ErrorNA), true},
		{"error before array", types.Error(types.ErrorNA), types.Array(nil), true},
		{"array before empty", types.Array(nil), types.Empty(), true},
		{"errors never less", types.Error(types.ErrorDivZero), types.Error(types.ErrorNA), false},
		{"array elementwise", types.Array([]types.Value{types.Number(1), types.Number(3)}), types.Array([]types.Value{types.Number(2)}), true},
		{"array shorter prefix", types.Array([]types.Value{types.Number(1)}), types.Array([]types.Value{types.Number(1), types.Number(0)}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.less {
				t.Fatalf("Less() = %v, want %v", got, tt.less)
			}
		})
	}
}

func TestDerivedComparisons(t *testing.T) {
	one, two := types.Number(1), types.Number(2)
	if !one.LessEqual(one) || !one.LessEqual(two) || two.LessEqual(one) {
		t.Error("LessEqual mismatch")
	}
	if !two.Greater(one) || one.Greater(one) {
		t.Error("Greater mismatch")
	}
	if !two.GreaterEqual(one) || !one.GreaterEqual(one) || one.GreaterEqual(two) {
		t.Error("GreaterEqual mismatch")
	}

	// Errors are neither less nor equal across kinds, so Greater holds both ways.
	a, b := types.Error(types.ErrorDivZero), types.Error(types.ErrorNA)
	if !a.Greater(b) || !b.Greater(a) {
		t.Error("expected distinct errors to compare greater both ways")
	}
}

func TestGoValueAndFromGo(t *testing.T) {
	v, err := types.FromGo([]any{1, "two", true, nil, []any{2.5}})
	if err != nil {
		t.Fatal(err)
	}
	if got := v.String(); got != "{1, two, TRUE, , {2.5}}" {
		t.Fatalf("FromGo array = %q", got)
	}
	back, ok := v.GoValue().([]any)
	if !ok || len(back) != 5 {
		t.Fatalf("GoValue() = %#v", v.GoValue())
	}
	if back[0] != 1.0 || back[1] != "two" || back[2] != true || back[3] != nil {
		t.Fatalf("GoValue() elements = %#v", back)
	}
	if _, err := types.FromGo(struct{}{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if got := types.Error(types.ErrorRef).GoValue(); got != "#REF!" {
		t.Fatalf("error GoValue() = %v", got)
	}
}

func TestValueMarshalJSON(t *testing.T) {
	tests := []struct {
		value types.Value
		want  string
	}{
		{types.Number(2), `{"type":"number","value":2}`},
		{types.Number(math.Inf(-1)), `{"type":"number","value":"-inf"}`},
		{types.Text("a"), `{"type":"text","value":"a"}`},
		{types.Error(types.ErrorDivZero), `{"type":"error","value":"#DIV/0!"}`},
		{types.Empty(), `{"type":"empty","value":null}`},
		{types.Array([]types.Value{types.Boolean(true)}), `{"type":"array","value":[{"type":"boolean","value":true}]}`},
	}
	for _, tt := range tests {
		b, err := tt.value.MarshalJSON()
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != tt.want {
			t.Errorf("MarshalJSON() = %s, want %s", b, tt.want)
		}
	}
}
