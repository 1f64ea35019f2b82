package extwasm_test

import (
	"context"
	"testing"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/ext/extwasm"
	"github.com/sandrolain/goformula/pkg/types"
)

// addWasm exports add(f64, f64) -> f64.
var addWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa0, 0x0b,
}

func TestLoadAndCall(t *testing.T) {
	ctx := context.Background()
	mod, err := extwasm.Load(ctx, addWasm)
	if err != nil {
		t.Fatal(err)
	}
	defer mod.Close(ctx)

	defs := mod.Functions()
	if len(defs) != 1 || defs[0].Name != "ADD" || defs[0].MinArgs != 2 || defs[0].MaxArgs != 2 {
		t.Fatalf("unexpected definitions: %+v", defs)
	}

	eng := goformula.New(goformula.WithFunctions(defs...))
	tests := []struct {
		formula string
		want    types.Value
	}{
		{"ADD(1.5, 2)", types.Number(3.5)},
		{"add(TRUE, \"2\") * 2", types.Number(6)},
		{"ADD(1)", types.Error(types.ErrorValue)},
		{`ADD("x", 1)`, types.Error(types.ErrorValue)},
		{"ADD(1/0, 1)", types.Error(types.ErrorDivZero)},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			if got := eng.Evaluate(ctx, tt.formula).Value; !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrefix(t *testing.T) {
	ctx := context.Background()
	mod, err := extwasm.Load(ctx, addWasm, extwasm.WithPrefix("wasm_"))
	if err != nil {
		t.Fatal(err)
	}
	defer mod.Close(ctx)
	if defs := mod.Functions(); len(defs) != 1 || defs[0].Name != "WASM_ADD" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
}

func TestLoadInvalidModule(t *testing.T) {
	if _, err := extwasm.Load(context.Background(), []byte("not wasm")); err == nil {
		t.Fatal("expected an error")
	}
}
