// Command goformula evaluates spreadsheet formulas from the command line or
// in an interactive session.
//
// Usage:
//
//	goformula [flags] [formula]
//
// With a formula (or -e) the result is printed and the exit code is 1 when
// the result is an error value. Without one an interactive session starts.
//
// Flags:
//
//	-e formula    formula to evaluate
//	-vars file    YAML mapping of variable names to values
//	-db dsn       sqlite3 database to load variables from
//	-query sql    query run against -db; a two-column (name, value) result
//	              binds one variable per row, otherwise the first row binds
//	              one variable per column
//	-wasm file    WebAssembly module whose numeric exports become functions
//	-ext          enable the extension function packs (default true)
//	-trace        print the evaluation trace
//	-json         print results as JSON
//	-v            verbose (debug) logging
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/bindings"
	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/ext"
	"github.com/sandrolain/goformula/pkg/ext/extwasm"
	"github.com/sandrolain/goformula/pkg/types"
)

const appName = "goformula"

type config struct {
	formula  string
	varsFile string
	dsn      string
	query    string
	wasmFile string
	ext      bool
	trace    bool
	json     bool
	verbose  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var cfg config
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.formula, "e", "", "formula to evaluate")
	fs.StringVar(&cfg.varsFile, "vars", "", "YAML file of variable bindings")
	fs.StringVar(&cfg.dsn, "db", "", "sqlite3 database to load variables from")
	fs.StringVar(&cfg.query, "query", "", "SQL query producing variable bindings")
	fs.StringVar(&cfg.wasmFile, "wasm", "", "WebAssembly module providing functions")
	fs.BoolVar(&cfg.ext, "ext", true, "enable the extension function packs")
	fs.BoolVar(&cfg.trace, "trace", false, "print the evaluation trace")
	fs.BoolVar(&cfg.json, "json", false, "print results as JSON")
	fs.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cfg.formula == "" && fs.NArg() > 0 {
		cfg.formula = strings.Join(fs.Args(), " ")
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()
	eng, cleanup, err := newEngine(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	defer cleanup()

	if cfg.formula == "" {
		return runREPL(ctx, eng, cfg, stdout)
	}
	if ok := evalAndPrint(ctx, eng, cfg, cfg.formula, stdout); !ok {
		return 1
	}
	return 0
}

func newEngine(ctx context.Context, cfg config, logger *slog.Logger) (*goformula.Engine, func(), error) {
	opts := []goformula.Option{
		goformula.WithLogger(logger),
		goformula.WithDebug(cfg.verbose),
		goformula.WithCaching(true),
	}
	if cfg.ext {
		opts = append(opts, ext.WithAll())
	}

	cleanup := func() {}
	if cfg.wasmFile != "" {
		wasm, err := os.ReadFile(cfg.wasmFile)
		if err != nil {
			return nil, nil, err
		}
		mod, err := extwasm.Load(ctx, wasm, extwasm.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = mod.Close(ctx) }
		opts = append(opts, goformula.WithFunctions(mod.Functions()...))
		logger.Debug("wasm module loaded", "file", cfg.wasmFile, "functions", len(mod.Functions()))
	}

	eng := goformula.New(opts...)
	if err := loadVariables(ctx, eng.Context(), cfg, logger); err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}

func loadVariables(ctx context.Context, vars *types.Context, cfg config, logger *slog.Logger) error {
	if cfg.varsFile != "" {
		if err := loadYAMLFile(cfg.varsFile, vars, logger); err != nil {
			return err
		}
	}

	if cfg.dsn == "" && cfg.query == "" {
		return nil
	}
	if cfg.dsn == "" || cfg.query == "" {
		return errors.New("-db and -query must be used together")
	}
	db, err := sql.Open("sqlite3", cfg.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := bindings.LoadPairs(ctx, db, vars, cfg.query)
	if errors.Is(err, bindings.ErrColumnCount) {
		// Not a (name, value) result: bind the first row by column.
		n, err = bindings.LoadRow(ctx, db, vars, cfg.query)
	}
	if err != nil {
		return err
	}
	logger.Debug("variables loaded", "source", cfg.dsn, "count", n)
	return nil
}

func loadYAMLFile(path string, vars *types.Context, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := bindings.LoadYAML(f, vars)
	if err != nil {
		return err
	}
	logger.Debug("variables loaded", "source", path, "count", n)
	return nil
}

// output is the JSON form of a result.
type output struct {
	Formula  string               `json:"formula"`
	Success  bool                 `json:"success"`
	Value    types.Value          `json:"value"`
	Error    string               `json:"error,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
	Trace    *evaluator.TraceNode `json:"trace,omitempty"`
}

func evalAndPrint(ctx context.Context, eng *goformula.Engine, cfg config, formula string, w io.Writer) bool {
	var (
		res   evaluator.Result
		trace *evaluator.TraceNode
	)
	if cfg.trace {
		res, trace = eng.EvaluateWithTrace(ctx, formula)
	} else {
		res = eng.Evaluate(ctx, formula)
	}

	if cfg.json {
		out := output{
			Formula:  formula,
			Success:  res.Success(),
			Value:    res.Value,
			Warnings: res.Warnings,
			Trace:    trace,
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return res.Success()
	}

	if trace != nil {
		fmt.Fprint(w, trace.String())
	}
	fmt.Fprintln(w, display(res.Value))
	for _, perr := range res.ParseErrors() {
		fmt.Fprintf(w, "  %s\n", describeParseError(formula, perr))
	}
	if res.Err != nil && len(res.ParseErrors()) == 0 {
		fmt.Fprintf(w, "  %v\n", res.Err)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	return res.Success()
}

// display renders a value for the terminal: text is quoted so that "1"
// and 1 can be told apart.
func display(v types.Value) string {
	switch {
	case v.IsText():
		return types.QuoteText(v.String())
	case v.IsArray():
		elems, _ := v.AsArray()
		parts := make([]string, len(elems))
		for i, el := range elems {
			parts[i] = display(el)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case v.IsDate():
		t, _ := v.AsDate()
		return t.Format("2006-01-02 15:04:05")
	default:
		return v.String()
	}
}

// describeParseError points at the offending position of formula.
func describeParseError(formula string, perr *types.ParseError) string {
	pos := min(max(perr.Position, 0), len(formula))
	return fmt.Sprintf("%s\n    %s\n    %s^", perr.Error(), formula, strings.Repeat(" ", pos))
}
