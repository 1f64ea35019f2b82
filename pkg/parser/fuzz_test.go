package parser_test

import (
	"testing"

	"github.com/sandrolain/goformula/pkg/parser"
)

func FuzzParse(f *testing.F) {
	seeds := []string{
		`1 + 2 * 3`,
		`SUM(A1, A2) * 2`,
		`IF(A1 > 0, "pos", "neg")`,
		`{1, 2; 3}`,
		`-(-5)`,
		`2 ^ 3 ^ 2`,
		`"a\"b" & TRUE`,
		``,
		`(`,
		`SUM(`,
		`"unterminated`,
		`1 !`,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, input string) {
		expr, err := parser.Parse(input)
		if (expr == nil) == (err == nil) {
			t.Fatalf("Parse(%q) returned expr=%v err=%v", input, expr, err)
		}
		// Canonical output adds parentheses, so long inputs may exceed the
		// nesting limit once rendered.
		if expr == nil || len(input) > 100 {
			return
		}
		canonical := expr.AST().String()
		again, err := parser.Parse(canonical)
		if err != nil {
			t.Fatalf("canonical form %q of %q does not parse: %v", canonical, input, err)
		}
		if again.AST().String() != canonical {
			t.Fatalf("canonical form unstable: %q -> %q", canonical, again.AST().String())
		}
	})
}

func BenchmarkParse(b *testing.B) {
	formula := `IF(AND(A1 > 0, B1 < 10), SUM(A1, B1, {1, 2, 3}) * 2 ^ 3, "n/a" & C1)`
	b.ReportAllocs()
	for b.Loop() {
		if _, err := parser.Parse(formula); err != nil {
			b.Fatal(err)
		}
	}
}
