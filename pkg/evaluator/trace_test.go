package evaluator_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

func TestEvalWithTrace(t *testing.T) {
	expr, err := parser.Parse(`SUM(A1, 2) * -x`)
	if err != nil {
		t.Fatal(err)
	}
	vars := types.NewContext()
	vars.Set("A1", types.Number(3))
	vars.Set("x", types.Number(2))

	res, root := evaluator.New().EvalWithTrace(context.Background(), expr, vars)
	if !res.Value.Equal(types.Number(-10)) {
		t.Fatalf("result = %v", res.Value)
	}
	if root == nil {
		t.Fatal("no trace returned")
	}

	type row struct {
		id    int
		kind  string
		label string
		value types.Value
	}
	want := []row{
		{0, evaluator.TraceBinaryOp, "*", types.Number(-10)},
		{1, evaluator.TraceFunctionCall, "SUM", types.Number(5)},
		{2, evaluator.TraceVariable, "A1", types.Number(3)},
		{3, evaluator.TraceLiteral, "2", types.Number(2)},
		{4, evaluator.TraceUnaryOp, "-", types.Number(-2)},
		{5, evaluator.TraceVariable, "x", types.Number(2)},
	}
	var got []row
	root.Walk(func(n *evaluator.TraceNode) {
		got = append(got, row{n.ID, n.Kind, n.Label, n.Value})
	})
	if len(got) != len(want) || root.Count() != len(want) {
		t.Fatalf("trace has %d nodes, want %d:\n%s", len(got), len(want), root)
	}
	for i := range want {
		if got[i].id != want[i].id || got[i].kind != want[i].kind || got[i].label != want[i].label || !got[i].value.Equal(want[i].value) {
			t.Errorf("node %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if len(root.Children) != 2 || len(root.Children[0].Children) != 2 || len(root.Children[1].Children) != 1 {
		t.Fatalf("trace shape does not mirror the tree:\n%s", root)
	}
}

func TestTraceRendering(t *testing.T) {
	expr, _ := parser.Parse(`{"a", 1}`)
	_, root := evaluator.New().EvalWithTrace(context.Background(), expr, nil)

	s := root.String()
	if !strings.HasPrefix(s, "Array { } => {a, 1}\n") || !strings.Contains(s, `  Literal a => "a"`) {
		t.Fatalf("unexpected rendering:\n%s", s)
	}

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"kind":"Array"`) || !strings.Contains(string(data), `"children":[`) {
		t.Fatalf("unexpected JSON: %s", data)
	}
}

func TestTraceDisabledByDefault(t *testing.T) {
	expr, _ := parser.Parse("1 + 1")
	res := evaluator.New().Eval(context.Background(), expr, nil)
	if !res.Value.Equal(types.Number(2)) {
		t.Fatal(res.Value)
	}
	if _, root := evaluator.New().EvalWithTrace(context.Background(), nil, nil); root != nil {
		t.Fatal("trace returned for an invalid expression")
	}
}
