package bindings_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandrolain/goformula/pkg/bindings"
	"github.com/sandrolain/goformula/pkg/types"
)

func TestLoadYAML(t *testing.T) {
	doc := `
A1: 10
rate: 0.25
name: Widget
active: true
missing: null
items: [1, 2.5, "x"]
due: 2024-01-15
`
	vars := types.NewContext()
	n, err := bindings.LoadYAML(strings.NewReader(doc), vars)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Fatalf("bound %d variables, want 7", n)
	}

	tests := []struct {
		name string
		want types.Value
	}{
		{"A1", types.Number(10)},
		{"rate", types.Number(0.25)},
		{"name", types.Text("Widget")},
		{"active", types.Boolean(true)},
		{"missing", types.Empty()},
		{"items", types.Array([]types.Value{types.Number(1), types.Number(2.5), types.Text("x")})},
		{"due", types.Date(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := vars.Get(tt.name)
			if !ok {
				t.Fatal("not bound")
			}
			if got.Kind() != tt.want.Kind() || !got.Equal(tt.want) {
				t.Fatalf("got %v (%s), want %v", got, got.Kind(), tt.want)
			}
		})
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"sequence root", "- 1\n- 2\n"},
		{"nested mapping", "a:\n  b: 1\n"},
		{"malformed", "a: [1, 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := types.NewContext()
			if _, err := bindings.LoadYAML(strings.NewReader(tt.doc), vars); err == nil {
				t.Fatal("expected error")
			}
			if vars.Len() != 0 {
				t.Fatal("a failed load must not bind anything")
			}
		})
	}

	_, err := bindings.LoadYAML(strings.NewReader("[1]"), types.NewContext())
	if !errors.Is(err, bindings.ErrNotMapping) {
		t.Fatalf("err = %v", err)
	}
	if n, err := bindings.LoadYAML(strings.NewReader(""), types.NewContext()); err != nil || n != 0 {
		t.Fatalf("empty document: %d, %v", n, err)
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE cells (name TEXT, value)`,
		`INSERT INTO cells VALUES ('A1', 3), ('A2', 4.5), ('label', 'total'), ('blank', NULL)`,
		`CREATE TABLE orders (qty INTEGER, price REAL, sku TEXT)`,
		`INSERT INTO orders VALUES (2, 9.99, 'X-1')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return db
}

func TestLoadRow(t *testing.T) {
	db := openDB(t)
	vars := types.NewContext()
	n, err := bindings.LoadRow(context.Background(), db, vars, `SELECT qty, price, sku FROM orders`)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("bound %d, want 3", n)
	}
	if v, _ := vars.Get("qty"); !v.Equal(types.Number(2)) {
		t.Fatalf("qty = %v", v)
	}
	if v, _ := vars.Get("price"); !v.Equal(types.Number(9.99)) {
		t.Fatalf("price = %v", v)
	}
	if v, _ := vars.Get("sku"); !v.Equal(types.Text("X-1")) {
		t.Fatalf("sku = %v", v)
	}

	_, err = bindings.LoadRow(context.Background(), db, vars, `SELECT qty FROM orders WHERE qty > ?`, 100)
	if !errors.Is(err, bindings.ErrNoRows) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadPairs(t *testing.T) {
	db := openDB(t)
	vars := types.NewContext()
	n, err := bindings.LoadPairs(context.Background(), db, vars, `SELECT name, value FROM cells ORDER BY rowid`)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("read %d rows, want 4", n)
	}
	want := map[string]types.Value{
		"A1":    types.Number(3),
		"A2":    types.Number(4.5),
		"label": types.Text("total"),
		"blank": types.Empty(),
	}
	for name, w := range want {
		got, ok := vars.Get(name)
		if !ok || got.Kind() != w.Kind() || !got.Equal(w) {
			t.Errorf("%s = %v, want %v", name, got, w)
		}
	}

	if _, err := bindings.LoadPairs(context.Background(), db, vars, `SELECT qty, price, sku FROM orders`); !errors.Is(err, bindings.ErrColumnCount) {
		t.Fatalf("err = %v, want ErrColumnCount", err)
	}
	if _, err := bindings.LoadPairs(context.Background(), db, vars, `SELECT NULL, 1`); err == nil || errors.Is(err, bindings.ErrColumnCount) {
		t.Fatalf("empty name: err = %v", err)
	}
	if _, err := bindings.LoadPairs(context.Background(), db, vars, `SELECT * FROM nowhere`); err == nil {
		t.Fatal("expected query error")
	}
}
