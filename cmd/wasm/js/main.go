//go:build js && wasm

// Command goformula-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `goformula` object with the following API:
//
//	goformula.version()                  → string
//	goformula.eval(formula, varsJSON)    → resultJSON  (throws on parse errors)
//	goformula.compile(formula)           → { eval(varsJSON) → resultJSON }
//	goformula.functions()                → string[]
//
// varsJSON is an object mapping variable names to JSON values. Results are
// encoded as {"type": kind, "value": payload}; formula errors such as
// #DIV/0! are ordinary results and do not throw.
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o goformula.wasm ./cmd/wasm/js/
//
// Usage in a browser:
//
//	<script src="wasm_exec.js"></script>
//	<script type="module">
//	  const r = goformula.eval('A1 * 2', JSON.stringify({A1: 21}))
//	  console.log(JSON.parse(r).value) // 42
//	</script>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/ext"
	"github.com/sandrolain/goformula/pkg/types"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	js.Global().Get("Error").New(msg)
	panic(msg)
}

func decodeVars(fn string, args []js.Value, i int) map[string]types.Value {
	if len(args) <= i || args[i].IsUndefined() || args[i].IsNull() {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(args[i].String()), &raw); err != nil {
		jsThrow(fmt.Sprintf("%s: invalid variables JSON: %v", fn, err))
	}
	vars := make(map[string]types.Value, len(raw))
	for name, x := range raw {
		v, err := types.FromGo(x)
		if err != nil {
			jsThrow(fmt.Sprintf("%s: variable %q: %v", fn, name, err))
		}
		vars[name] = v
	}
	return vars
}

func encode(fn string, v types.Value) string {
	out, err := json.Marshal(v)
	if err != nil {
		jsThrow(fmt.Sprintf("%s: marshal result: %v", fn, err))
	}
	return string(out)
}

func newEngine(vars map[string]types.Value) *goformula.Engine {
	eng := goformula.New(ext.WithAll())
	for name, v := range vars {
		eng.SetVariable(name, v)
	}
	return eng
}

// jsEval implements goformula.eval(formula, varsJSON) → resultJSON.
func jsEval(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("goformula.eval requires a formula (string)")
	}
	eng := newEngine(decodeVars("goformula.eval", args, 1))
	res := eng.Evaluate(context.Background(), args[0].String())
	if len(res.ParseErrors()) > 0 {
		jsThrow(fmt.Sprintf("goformula.eval: %v", res.Err))
	}
	return encode("goformula.eval", res.Value)
}

// jsCompile implements goformula.compile(formula) → { eval(varsJSON) → resultJSON }.
func jsCompile(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		jsThrow("goformula.compile requires a formula (string)")
	}
	expr, err := goformula.Compile(args[0].String())
	if err != nil {
		jsThrow(fmt.Sprintf("goformula.compile: %v", err))
	}

	evalFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) any {
		eng := newEngine(decodeVars("compiled.eval", innerArgs, 0))
		res := eng.EvaluateExpression(context.Background(), expr)
		return encode("compiled.eval", res.Value)
	})
	return js.ValueOf(map[string]any{
		"eval":      evalFn,
		"canonical": expr.Canonical(),
	})
}

func jsFunctions(_ js.Value, _ []js.Value) any {
	names := newEngine(nil).FunctionNames()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return js.ValueOf(out)
}

func main() {
	api := map[string]any{
		"eval":      js.FuncOf(jsEval),
		"compile":   js.FuncOf(jsCompile),
		"functions": js.FuncOf(jsFunctions),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) any {
			return goformula.Version()
		}),
	}
	js.Global().Set("goformula", js.ValueOf(api))

	// The JS event loop owns execution from here.
	select {}
}
