package functions_test

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

func double(args []types.Value, _ *types.Context) types.Value {
	n, err := args[0].ToNumber()
	if err != nil {
		return types.Error(types.ErrorValue)
	}
	return types.Number(n * 2)
}

func TestRegistryCustomCall(t *testing.T) {
	reg := functions.NewRegistry()
	if err := reg.Register("double", double); err != nil {
		t.Fatal(err)
	}
	got := reg.Call("DOUBLE", []types.Value{types.Number(21)}, types.NewContext())
	if !got.Equal(types.Number(42)) {
		t.Fatalf("DOUBLE(21) = %v", got)
	}
	if _, res := reg.Resolve("Double"); res != functions.Custom {
		t.Fatalf("resolution = %v, want custom", res)
	}
}

func TestRegistryUnknownName(t *testing.T) {
	reg := functions.NewRegistry()
	got := reg.Call("UNKNOWNFN", nil, types.NewContext())
	if !got.Equal(types.Error(types.ErrorName)) {
		t.Fatalf("got %v, want #NAME?", got)
	}
	if reg.Has("UNKNOWNFN") {
		t.Fatal("Has reported an unknown function")
	}
}

func TestRegistryBuiltinWinsOverCustom(t *testing.T) {
	var buf bytes.Buffer
	reg := functions.NewRegistry(functions.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	err := reg.Register("SUM", func([]types.Value, *types.Context) types.Value {
		return types.Text("custom")
	})
	if err != nil {
		t.Fatal(err)
	}
	got := reg.Call("sum", []types.Value{types.Number(1), types.Number(2)}, types.NewContext())
	if !got.Equal(types.Number(3)) {
		t.Fatalf("SUM resolved to the custom function: %v", got)
	}
	if !reg.Shadowed("SUM") {
		t.Fatal("Shadowed(SUM) = false")
	}
	if !strings.Contains(buf.String(), "shadowed") {
		t.Fatalf("expected a shadowing warning, log was %q", buf.String())
	}
	if slices.Contains(reg.CustomNames(), "SUM") {
		t.Fatal("shadowed function listed as callable")
	}
}

func TestRegistryArity(t *testing.T) {
	reg := functions.NewRegistry()
	err := reg.RegisterDef(functions.FunctionDef{Name: "PAIR", MinArgs: 2, MaxArgs: 2, Impl: func(args []types.Value, _ *types.Context) types.Value {
		return types.Array(args)
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := reg.Call("PAIR", []types.Value{types.Number(1)}, nil); !got.Equal(types.Error(types.ErrorValue)) {
		t.Fatalf("PAIR(1) = %v, want #VALUE!", got)
	}
	if got := reg.Call("ABS", nil, nil); !got.Equal(types.Error(types.ErrorValue)) {
		t.Fatalf("ABS() = %v, want #VALUE!", got)
	}
	if got := reg.Call("PI", []types.Value{types.Number(1)}, nil); !got.Equal(types.Error(types.ErrorValue)) {
		t.Fatalf("PI(1) = %v, want #VALUE!", got)
	}
}

func TestRegistryRecoversPanics(t *testing.T) {
	reg := functions.NewRegistry(functions.WithLogger(slog.New(slog.DiscardHandler)))
	_ = reg.Register("BOOM", func([]types.Value, *types.Context) types.Value {
		panic("boom")
	})
	if got := reg.Call("BOOM", nil, nil); !got.Equal(types.Error(types.ErrorValue)) {
		t.Fatalf("BOOM() = %v, want #VALUE!", got)
	}
}

func TestRegistryValidation(t *testing.T) {
	reg := functions.NewRegistry()
	tests := []struct {
		def  functions.FunctionDef
		want error
	}{
		{functions.FunctionDef{Name: "", Impl: double}, functions.ErrInvalidName},
		{functions.FunctionDef{Name: "1ABC", Impl: double}, functions.ErrInvalidName},
		{functions.FunctionDef{Name: "A-B", Impl: double}, functions.ErrInvalidName},
		{functions.FunctionDef{Name: "OK"}, functions.ErrNilFunction},
		{functions.FunctionDef{Name: "OK", MinArgs: 3, MaxArgs: 1, Impl: double}, functions.ErrInvalidArity},
	}
	for _, tt := range tests {
		if err := reg.RegisterDef(tt.def); !errors.Is(err, tt.want) {
			t.Errorf("RegisterDef(%q) = %v, want %v", tt.def.Name, err, tt.want)
		}
	}
	if err := reg.Register("ns:fn_2", double); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
}

func TestRegistryUnregisterAndNames(t *testing.T) {
	reg := functions.NewRegistry()
	_ = reg.Register("ZETA", double)
	_ = reg.Register("alpha", double)

	names := reg.Names()
	builtins := functions.BuiltinNames()
	if !slices.Equal(names[:len(builtins)], builtins) {
		t.Fatal("Names does not start with the builtin names")
	}
	if !slices.Equal(names[len(builtins):], []string{"ALPHA", "ZETA"}) {
		t.Fatalf("custom names = %v", names[len(builtins):])
	}
	if !slices.IsSorted(builtins) {
		t.Fatal("builtin names are not sorted")
	}

	if !reg.Unregister("zeta") || reg.Unregister("zeta") {
		t.Fatal("Unregister did not report existence correctly")
	}
	if reg.Has("ZETA") {
		t.Fatal("ZETA still resolvable")
	}
}

func TestNilRegistryDispatchesBuiltins(t *testing.T) {
	var reg *functions.Registry
	if got := reg.Call("ABS", []types.Value{types.Number(-2)}, nil); !got.Equal(types.Number(2)) {
		t.Fatalf("ABS(-2) = %v", got)
	}
	if got := reg.Call("NOPE", nil, nil); !got.Equal(types.Error(types.ErrorName)) {
		t.Fatalf("NOPE() = %v", got)
	}
	if !functions.IsBuiltin("abs") || functions.IsBuiltin("nope") {
		t.Fatal("IsBuiltin mismatch")
	}
}

func TestBuiltinDef(t *testing.T) {
	def, ok := functions.BuiltinDef("sum")
	if !ok {
		t.Fatal("SUM not found")
	}
	if def.Name != "SUM" || def.MinArgs != 0 || def.MaxArgs != -1 {
		t.Fatalf("def = %+v", def)
	}
	if _, res := functions.NewRegistry().Resolve("SUM"); res != functions.Builtin {
		t.Fatalf("resolution = %v, want builtin", res)
	}
	if _, ok := functions.BuiltinDef("NOTABUILTIN"); ok {
		t.Fatal("unexpected definition")
	}
}
