package goformula_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/types"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		vars    map[string]types.Value
		want    types.Value
	}{
		{"parenthesised", "(1 + 2) * 3", nil, types.Number(9)},
		{"concat", `"a" & "b"`, nil, types.Text("ab")},
		{"equality", "1 = 1", nil, types.Boolean(true)},
		{"div zero", "1 / 0", nil, types.Error(types.ErrorDivZero)},
		{"unknown function", "UNKNOWNFN()", nil, types.Error(types.ErrorName)},
		{"double negation", "-(-5)", nil, types.Number(5)},
		{"precedence", "1 + 2 * 3", nil, types.Number(7)},
		{"power right assoc", "2 ^ 3 ^ 2", nil, types.Number(512)},
		{"variables", "SUM(A1, A2) * 2", map[string]types.Value{"A1": types.Number(1), "A2": types.Number(2)}, types.Number(6)},
		{"parse error", "1 +", nil, types.Error(types.ErrorParse)},
		{"conditional sum", `SUMIF({1, 5, 10}, ">4")`, nil, types.Number(15)},
		{"conditional count", `COUNTIFS({1, 2, 3}, ">1", {"a", "b", "b"}, "b")`, nil, types.Number(2)},
		{"choose", `CHOOSE(2, "a", "b")`, nil, types.Text("b")},
		{"switch default", `SWITCH(9, 1, "one", "other")`, nil, types.Text("other")},
		{"text format", `TEXT(1234.5, "#,##0.00")`, nil, types.Text("1,234.50")},
		{"engineering", `DEC2HEX(HEX2DEC("FF") + 1)`, nil, types.Text("100")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := goformula.Eval(context.Background(), tt.formula, tt.vars)
			if !res.Value.Equal(tt.want) {
				t.Fatalf("Eval(%q) = %v, want %v", tt.formula, res.Value, tt.want)
			}
		})
	}
}

func TestParseFailureCarriesErrors(t *testing.T) {
	res := goformula.New().Evaluate(context.Background(), `(1 + "x`)
	if res.Success() {
		t.Fatal("expected failure")
	}
	if k, ok := res.ErrorKind(); !ok || k != types.ErrorParse {
		t.Fatalf("kind = %v", res.Value)
	}
	if len(res.ParseErrors()) == 0 {
		t.Fatalf("expected parse errors, got %v", res.Err)
	}
	if res.Value.String() != "#PARSE!" {
		t.Fatalf("marker = %q", res.Value.String())
	}
}

func TestEngineVariables(t *testing.T) {
	eng := goformula.New()
	ctx := context.Background()

	eng.SetVariable("x", types.Number(4))
	eng.SetVariable("name", types.Text("Ada"))
	if got := eng.Evaluate(ctx, `x * 2 & " " & name`).Value; !got.Equal(types.Text("8 Ada")) {
		t.Fatalf("got %v", got)
	}
	if v, ok := eng.GetVariable("x"); !ok || !v.Equal(types.Number(4)) {
		t.Fatalf("GetVariable = %v, %v", v, ok)
	}
	if got := eng.VariableNames(); !slices.Equal(got, []string{"name", "x"}) {
		t.Fatalf("names = %v", got)
	}

	eng.RemoveVariable("x")
	if got := eng.Evaluate(ctx, "x").Value; !got.Equal(types.Error(types.ErrorName)) {
		t.Fatalf("removed variable = %v", got)
	}

	eng.SetVariable("blank", types.Empty())
	if got := eng.Evaluate(ctx, "blank").Value; !got.Equal(types.Error(types.ErrorName)) {
		t.Fatalf("empty variable = %v", got)
	}

	eng.ClearVariables()
	if len(eng.VariableNames()) != 0 {
		t.Fatal("expected no variables after ClearVariables")
	}
}

func TestParseOnceEvaluateMany(t *testing.T) {
	eng := goformula.New()
	ctx := context.Background()
	expr, err := eng.Parse("price * qty")
	if err != nil {
		t.Fatal(err)
	}
	eng.SetVariable("price", types.Number(2.5))
	for _, q := range []float64{1, 2, 4} {
		eng.SetVariable("qty", types.Number(q))
		if got := eng.EvaluateExpression(ctx, expr).Value; !got.Equal(types.Number(2.5 * q)) {
			t.Fatalf("qty %v: got %v", q, got)
		}
	}
}

func TestEvaluateWithOverrides(t *testing.T) {
	eng := goformula.New()
	ctx := context.Background()
	eng.SetVariable("a", types.Number(1))
	eng.SetVariable("b", types.Number(10))

	res := eng.EvaluateWithOverrides(ctx, "a + b", map[string]types.Value{"a": types.Number(5)})
	if !res.Value.Equal(types.Number(15)) {
		t.Fatalf("with overrides = %v", res.Value)
	}
	if v, _ := eng.GetVariable("a"); !v.Equal(types.Number(1)) {
		t.Fatalf("persistent variable changed to %v", v)
	}
	if got := eng.Evaluate(ctx, "a + b").Value; !got.Equal(types.Number(11)) {
		t.Fatalf("after overrides = %v", got)
	}
	if res := eng.EvaluateWithOverrides(ctx, "a +", nil); !res.Value.Equal(types.Error(types.ErrorParse)) {
		t.Fatalf("parse failure = %v", res.Value)
	}
}

func TestRegisterFunction(t *testing.T) {
	eng := goformula.New(goformula.WithFunction("DOUBLE", func(args []types.Value, _ *types.Context) types.Value {
		n, _ := args[0].ToNumber()
		return types.Number(2 * n)
	}))
	ctx := context.Background()
	if got := eng.Evaluate(ctx, "double(21)").Value; !got.Equal(types.Number(42)) {
		t.Fatalf("DOUBLE = %v", got)
	}

	if err := eng.RegisterFunction("SUM", func([]types.Value, *types.Context) types.Value {
		return types.Number(-1)
	}); err != nil {
		t.Fatal(err)
	}
	res := eng.Evaluate(ctx, "SUM(1, 2)")
	if !res.Value.Equal(types.Number(3)) {
		t.Fatalf("builtin must win, got %v", res.Value)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}

	names := eng.FunctionNames()
	if !slices.Contains(names, "DOUBLE") || !slices.Contains(names, "SUM") {
		t.Fatalf("FunctionNames = %v", names)
	}
	if !eng.Registry().IsBuiltin("sum") {
		t.Fatal("SUM must be a builtin")
	}
	if err := eng.RegisterFunction("1bad", nil); err == nil {
		t.Fatal("expected registration error")
	}
}

func TestEvaluateWithTrace(t *testing.T) {
	eng := goformula.New()
	res, trace := eng.EvaluateWithTrace(context.Background(), "1 + 2")
	if !res.Value.Equal(types.Number(3)) {
		t.Fatalf("got %v", res.Value)
	}
	if trace == nil || trace.Kind != evaluator.TraceBinaryOp || len(trace.Children) != 2 {
		t.Fatalf("unexpected trace:\n%s", trace)
	}
	if _, trace := eng.EvaluateWithTrace(context.Background(), "1 +"); trace != nil {
		t.Fatal("expected nil trace for a parse failure")
	}
}

func TestCaching(t *testing.T) {
	eng := goformula.New(goformula.WithCacheSize(8))
	ctx := context.Background()
	a, err := eng.Parse("1 + 1")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := eng.Parse("1 + 1")
	if a != b {
		t.Fatal("expected the cached expression")
	}
	for range 3 {
		eng.Evaluate(ctx, "2 * 2")
	}
	stats, ok := eng.CacheStats()
	if !ok {
		t.Fatal("caching should be enabled")
	}
	if stats.Hits != 3 || stats.Misses != 2 || stats.Len != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	if _, ok := goformula.New().CacheStats(); ok {
		t.Fatal("caching should be disabled by default")
	}
}

func TestDeterministicSources(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	newEngine := func() *goformula.Engine {
		return goformula.New(
			goformula.WithRand(rand.New(rand.NewPCG(7, 7))),
			goformula.WithClock(clock),
		)
	}
	ctx := context.Background()
	a := newEngine().Evaluate(ctx, "RANDBETWEEN(1, 1000000)").Value
	b := newEngine().Evaluate(ctx, "RANDBETWEEN(1, 1000000)").Value
	if !a.Equal(b) {
		t.Fatalf("seeded engines differ: %v vs %v", a, b)
	}
	if got := newEngine().Evaluate(ctx, "YEAR(TODAY()) * 100 + MONTH(NOW())").Value; !got.Equal(types.Number(202403)) {
		t.Fatalf("clock = %v", got)
	}
}

func TestLimits(t *testing.T) {
	ctx := context.Background()
	eng := goformula.New(goformula.WithParseMaxDepth(4))
	res := eng.Evaluate(ctx, "((((((1))))))")
	if k, _ := res.ErrorKind(); k != types.ErrorParse {
		t.Fatalf("deep parse = %v", res.Value)
	}

	eng = goformula.New(goformula.WithMaxDepth(3))
	res = eng.Evaluate(ctx, "1 + (2 + (3 + 4))")
	if !errors.Is(res.Err, evaluator.ErrMaxDepth) {
		t.Fatalf("Err = %v", res.Err)
	}
}

func TestCompile(t *testing.T) {
	expr, err := goformula.Compile("A1+1")
	if err != nil {
		t.Fatal(err)
	}
	if expr.Source() != "A1+1" {
		t.Fatalf("source = %q", expr.Source())
	}
	if _, err := goformula.Compile(""); err == nil {
		t.Fatal("expected error for empty formula")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("MustCompile should panic")
		}
	}()
	goformula.MustCompile("(")
}

func TestVersion(t *testing.T) {
	if goformula.Version() == "" {
		t.Fatal("empty version")
	}
}

func TestConcurrentRandom(t *testing.T) {
	for _, eng := range []*goformula.Engine{
		goformula.New(),
		goformula.New(goformula.WithRand(rand.New(rand.NewPCG(3, 4))), goformula.WithCaching(true)),
	} {
		var wg sync.WaitGroup
		for range 8 {
			wg.Go(func() {
				for range 100 {
					res := eng.Evaluate(context.Background(), "RAND() + RANDBETWEEN(1, 6)")
					n, err := res.Value.AsNumber()
					if err != nil || n < 1 || n >= 7 {
						t.Errorf("got %v", res.Value)
						return
					}
				}
			})
		}
		wg.Wait()
	}
}
