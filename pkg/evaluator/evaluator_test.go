package evaluator_test

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

func eval(t *testing.T, formula string, vars *types.Context, opts ...evaluator.EvalOption) evaluator.Result {
	t.Helper()
	expr, err := parser.Parse(formula)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", formula, err)
	}
	return evaluator.New(opts...).Eval(context.Background(), expr, vars)
}

func TestEvalEndToEnd(t *testing.T) {
	tests := []struct {
		formula string
		want    types.Value
	}{
		{"(1 + 2) * 3", types.Number(9)},
		{`"a" & "b"`, types.Text("ab")},
		{"1 = 1", types.Boolean(true)},
		{"1 / 0", types.Error(types.ErrorDivZero)},
		{"UNKNOWNFN()", types.Error(types.ErrorName)},
		{"-(-5)", types.Number(5)},
		{"1 + 2 * 3", types.Number(7)},
		{"2 ^ 3 ^ 2", types.Number(512)},
		{"-2 ^ 2", types.Number(4)},
		{"10 - 4 - 3", types.Number(3)},
		{"1 & 2", types.Text("12")},
		{`TRUE & "x"`, types.Text("TRUEx")},
		{`2.5 & ""`, types.Text("2.5")},
		{`"3" + 4`, types.Number(7)},
		{"TRUE + TRUE", types.Number(2)},
		{`"abc" + 1`, types.Error(types.ErrorValue)},
		{`-"x"`, types.Error(types.ErrorValue)},
		{`+"2"`, types.Number(2)},
		{"0 ^ -1", types.Error(types.ErrorNum)},
		{"(-8) ^ 0.5", types.Error(types.ErrorNum)},
		{"1 <> 2", types.Boolean(true)},
		{`"a" < "b"`, types.Boolean(true)},
		{`1 < "a"`, types.Boolean(true)},
		{`1 = "1"`, types.Boolean(false)},
		{"2 >= 2", types.Boolean(true)},
		{"{1, 2; 3}", types.Array([]types.Value{types.Number(1), types.Number(2), types.Number(3)})},
		{"SUM({1, 2, 3}) * 2", types.Number(12)},
		{`IF(1 > 0, "pos", "neg")`, types.Text("pos")},
		{"TRUE()", types.Boolean(true)},
		{"sum(1, 2)", types.Number(3)},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			res := eval(t, tt.formula, nil)
			if !res.Value.Equal(tt.want) {
				t.Fatalf("got %v (%s), want %v", res.Value, res.Value.Kind(), tt.want)
			}
			if res.Success() == tt.want.IsError() {
				t.Fatalf("Success() = %v for %v", res.Success(), res.Value)
			}
			if res.Err != nil {
				t.Fatalf("unexpected internal error: %v", res.Err)
			}
		})
	}
}

func TestErrorPropagationLeftFirst(t *testing.T) {
	vars := types.NewContext()
	vars.Set("L", types.Error(types.ErrorRef))
	vars.Set("R", types.Error(types.ErrorNA))
	vars.Set("N", types.Number(1))

	for _, op := range []string{"+", "-", "*", "/", "^", "&", "=", "<>", "<", "<=", ">", ">="} {
		t.Run(op, func(t *testing.T) {
			if got := eval(t, "L "+op+" R", vars).Value; !got.Equal(types.Error(types.ErrorRef)) {
				t.Fatalf("L %s R = %v, want #REF!", op, got)
			}
			if got := eval(t, "N "+op+" R", vars).Value; !got.Equal(types.Error(types.ErrorNA)) {
				t.Fatalf("N %s R = %v, want #N/A", op, got)
			}
			if got := eval(t, "L "+op+" N", vars).Value; !got.Equal(types.Error(types.ErrorRef)) {
				t.Fatalf("L %s N = %v, want #REF!", op, got)
			}
		})
	}
	if got := eval(t, "-L", vars).Value; !got.Equal(types.Error(types.ErrorRef)) {
		t.Fatalf("-L = %v", got)
	}
}

func TestDivideByZero(t *testing.T) {
	for _, f := range []string{"1 / 0", "-5 / 0", "0 / 0", "1e300 / 0", `"2" / FALSE`} {
		if got := eval(t, f, nil).Value; !got.Equal(types.Error(types.ErrorDivZero)) {
			t.Errorf("%s = %v, want #DIV/0!", f, got)
		}
	}
}

func TestVariableResolution(t *testing.T) {
	vars := types.NewContext()
	vars.Set("A1", types.Number(10))
	vars.Set("blank", types.Empty())
	vars.Set("a1", types.Number(20))

	tests := []struct {
		formula string
		want    types.Value
	}{
		{"A1 * 2", types.Number(20)},
		{"a1", types.Number(20)},
		{"missing", types.Error(types.ErrorName)},
		{"blank", types.Error(types.ErrorName)},
		{"missing + 1", types.Error(types.ErrorName)},
	}
	for _, tt := range tests {
		if got := eval(t, tt.formula, vars).Value; !got.Equal(tt.want) {
			t.Errorf("%s = %v, want %v", tt.formula, got, tt.want)
		}
	}
}

func TestParseOnceEvaluateMany(t *testing.T) {
	expr, err := parser.Parse("x * x")
	if err != nil {
		t.Fatal(err)
	}
	ev := evaluator.New()
	vars := types.NewContext()
	for i := 1; i <= 5; i++ {
		vars.Set("x", types.Number(float64(i)))
		res := ev.Eval(context.Background(), expr, vars)
		if !res.Value.Equal(types.Number(float64(i * i))) {
			t.Fatalf("x=%d: got %v", i, res.Value)
		}
	}
}

func TestEvalWithBindingsDoesNotMutate(t *testing.T) {
	expr, _ := parser.Parse("x + y")
	vars := types.NewContext()
	vars.Set("x", types.Number(1))
	vars.Set("y", types.Number(2))

	ev := evaluator.New()
	res := ev.EvalWithBindings(context.Background(), expr, vars, map[string]types.Value{"x": types.Number(10)})
	if !res.Value.Equal(types.Number(12)) {
		t.Fatalf("override result = %v", res.Value)
	}
	if v, _ := vars.Get("x"); !v.Equal(types.Number(1)) {
		t.Fatalf("persistent x changed to %v", v)
	}
	if res := ev.Eval(context.Background(), expr, vars); !res.Value.Equal(types.Number(3)) {
		t.Fatalf("after override: %v", res.Value)
	}
}

func TestFunctionArgumentsAreEager(t *testing.T) {
	var calls []string
	reg := functions.NewRegistry()
	_ = reg.Register("TICK", func(args []types.Value, _ *types.Context) types.Value {
		s, _ := args[0].AsText()
		calls = append(calls, s)
		return args[0]
	})

	res := eval(t, `IF(TRUE, TICK("then"), TICK("else"))`, nil, evaluator.WithRegistry(reg))
	if !res.Value.Equal(types.Text("then")) {
		t.Fatalf("IF result = %v", res.Value)
	}
	if strings.Join(calls, ",") != "then,else" {
		t.Fatalf("calls = %v, want both branches once, left to right", calls)
	}

	calls = nil
	eval(t, `TICK("a") & TICK("b")`, nil, evaluator.WithRegistry(reg))
	if strings.Join(calls, ",") != "a,b" {
		t.Fatalf("binary operands evaluated as %v", calls)
	}
}

func TestBuiltinShadowsCustom(t *testing.T) {
	res := eval(t, "ABS(-3)", nil, evaluator.WithCustomFunction("abs", func([]types.Value, *types.Context) types.Value {
		return types.Number(99)
	}))
	if !res.Value.Equal(types.Number(3)) {
		t.Fatalf("ABS resolved to custom: %v", res.Value)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "ABS") {
		t.Fatalf("warnings = %v", res.Warnings)
	}

	res = eval(t, "ABS(-3) + ABS(-1)", nil,
		evaluator.WithWarnings(false),
		evaluator.WithCustomFunction("ABS", func([]types.Value, *types.Context) types.Value { return types.Number(99) }))
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings disabled but got %v", res.Warnings)
	}
}

func TestCustomFunctionPanicIsValueError(t *testing.T) {
	res := eval(t, "BOOM(1) + 1", nil, evaluator.WithCustomFunction("BOOM", func([]types.Value, *types.Context) types.Value {
		panic("boom")
	}))
	if !res.Value.Equal(types.Error(types.ErrorValue)) {
		t.Fatalf("got %v", res.Value)
	}
	if res.Err != nil {
		t.Fatalf("a recovered function panic is a formula error, got Err=%v", res.Err)
	}
}

func TestMaxDepth(t *testing.T) {
	expr, err := parser.Parse(strings.Repeat("-", 100) + "1")
	if err != nil {
		t.Fatal(err)
	}
	res := evaluator.New(evaluator.WithMaxDepth(50)).Eval(context.Background(), expr, nil)
	if !res.Value.Equal(types.Error(types.ErrorValue)) || !errors.Is(res.Err, evaluator.ErrMaxDepth) {
		t.Fatalf("got %v / %v", res.Value, res.Err)
	}
	res = evaluator.New(evaluator.WithMaxDepth(200)).Eval(context.Background(), expr, nil)
	if !res.Value.Equal(types.Number(1)) {
		t.Fatalf("within limit: %v / %v", res.Value, res.Err)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	expr, _ := parser.Parse("1 + 1")
	res := evaluator.New().Eval(ctx, expr, nil)
	if res.Success() || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("got %v / %v", res.Value, res.Err)
	}

	slow := evaluator.WithCustomFunction("SLOW", func(args []types.Value, _ *types.Context) types.Value {
		time.Sleep(20 * time.Millisecond)
		return types.Number(1)
	})
	expr, _ = parser.Parse("SLOW() + SLOW() + SLOW()")
	res = evaluator.New(slow, evaluator.WithTimeout(5*time.Millisecond)).Eval(context.Background(), expr, nil)
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v / %v", res.Value, res.Err)
	}
}

func TestInvalidExpression(t *testing.T) {
	ev := evaluator.New()
	res := ev.Eval(context.Background(), nil, nil)
	if res.Success() || !errors.Is(res.Err, evaluator.ErrInvalidExpression) {
		t.Fatalf("nil expression: %v / %v", res.Value, res.Err)
	}

	broken := types.NewBinary(types.OpAdd, types.NewLiteral(types.Number(1)), nil)
	res = ev.EvalNode(context.Background(), broken, nil)
	if !errors.Is(res.Err, evaluator.ErrInvalidExpression) {
		t.Fatalf("missing operand: %v / %v", res.Value, res.Err)
	}
}

func TestEvalNodeHandBuiltTree(t *testing.T) {
	tree := types.NewFunctionCall("round",
		types.NewBinary(types.OpDivide, types.NewLiteral(types.Number(10)), types.NewVariable("n")),
		types.NewLiteral(types.Number(2)))
	vars := types.NewContext()
	vars.Set("n", types.Number(3))
	res := evaluator.New().EvalNode(context.Background(), tree, vars)
	n, err := res.Value.AsNumber()
	if err != nil || math.Abs(n-3.33) > 1e-12 {
		t.Fatalf("got %v", res.Value)
	}
}

func TestDeterministicRandom(t *testing.T) {
	expr, _ := parser.Parse("RANDBETWEEN(1, 1000000)")
	ev := evaluator.New()
	run := func() types.Value {
		vars := types.NewContext()
		vars.SetRand(newRand(42))
		return ev.Eval(context.Background(), expr, vars).Value
	}
	if a, b := run(), run(); !a.Equal(b) {
		t.Fatalf("seeded runs differ: %v vs %v", a, b)
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}
