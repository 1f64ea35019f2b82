package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunOneShot(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"flag", []string{"-e", "1 + 2 * 3"}, 0, "7\n"},
		{"positional", []string{"SUM(1,", "2)"}, 0, "3\n"},
		{"text", []string{"-e", `"a" & 1`}, 0, "\"a1\"\n"},
		{"error value", []string{"-e", "1/0"}, 1, "#DIV/0!\n"},
		{"extension", []string{"-e", "CLAMP(15, 0, 10)"}, 0, "10\n"},
		{"no extensions", []string{"-ext=false", "-e", "CLAMP(15, 0, 10)"}, 1, "#NAME?\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := runCLI(t, tt.args...)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			if !strings.HasPrefix(out, tt.out) {
				t.Errorf("output = %q, want prefix %q", out, tt.out)
			}
		})
	}
}

func TestRunParseError(t *testing.T) {
	code, out, _ := runCLI(t, "-e", "1 +")
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "#PARSE!") || !strings.Contains(out, "^") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunJSON(t *testing.T) {
	code, out, _ := runCLI(t, "-json", "-trace", "-e", "ABS(-2)")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var got struct {
		Success bool `json:"success"`
		Value   struct {
			Type  string  `json:"type"`
			Value float64 `json:"value"`
		} `json:"value"`
		Trace *struct {
			Kind string `json:"kind"`
		} `json:"trace"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if !got.Success || got.Value.Value != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.Trace == nil || got.Trace.Kind != "FunctionCall" {
		t.Fatalf("trace = %+v", got.Trace)
	}
}

func TestRunVariables(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "vars.yaml")
	if err := os.WriteFile(yamlPath, []byte("price: 4\nqty: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, out, _ := runCLI(t, "-vars", yamlPath, "-e", "price * qty")
	if code != 0 || out != "12\n" {
		t.Fatalf("yaml: code %d, output %q", code, out)
	}

	dbPath := filepath.Join(dir, "vars.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{
		`CREATE TABLE cells (name TEXT, value)`,
		`INSERT INTO cells VALUES ('A1', 5), ('A2', 7)`,
		`CREATE TABLE orders (qty INTEGER, price REAL, sku TEXT)`,
		`INSERT INTO orders VALUES (2, 1.5, 'X')`,
	} {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	code, out, _ = runCLI(t, "-db", dbPath, "-query", "SELECT name, value FROM cells", "-e", "A1 + A2")
	if code != 0 || out != "12\n" {
		t.Fatalf("pairs: code %d, output %q", code, out)
	}
	code, out, _ = runCLI(t, "-db", dbPath, "-query", "SELECT qty, price, sku FROM orders", "-e", "qty * price")
	if code != 0 || out != "3\n" {
		t.Fatalf("row: code %d, output %q", code, out)
	}

	code, out, errOut := runCLI(t, "-db", dbPath, "-query", "SELECT '', 1", "-e", "value")
	if code != 1 || out != "" || !strings.Contains(errOut, "empty variable name") {
		t.Fatalf("malformed pairs: code %d, output %q, stderr %q", code, out, errOut)
	}

	if code, _, errOut := runCLI(t, "-db", dbPath, "-e", "1"); code != 1 || errOut == "" {
		t.Fatalf("missing -query: code %d, stderr %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "-vars", filepath.Join(dir, "nope.yaml"), "-e", "1"); code != 1 {
		t.Fatalf("missing file: code %d", code)
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"SUM(1, 2", true},
		{"{1, 2", true},
		{`"abc`, true},
		{"1 +", true},
		{"(1 + 2", true},
		{"1 + )", false},
		{"1 2", false},
		{"@", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := parser.Parse(tt.src)
			if err == nil {
				t.Fatal("expected a parse error")
			}
			if got := incomplete(tt.src, err); got != tt.want {
				t.Fatalf("incomplete = %v (%v)", got, err)
			}
		})
	}
}

func TestCompleter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, cleanup, err := newEngine(t.Context(), config{ext: true}, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	eng.SetVariable("total", types.Number(1))

	got := completer(eng)("1 + SU")
	if !slices.Contains(got, "1 + SUM(") {
		t.Fatalf("completions = %v", got)
	}
	got = completer(eng)("to")
	if !slices.Contains(got, "total") {
		t.Fatalf("completions = %v", got)
	}
}
