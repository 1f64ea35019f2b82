//go:build wasip1

// Command goformula-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin, single JSON object on stdout.
//
//	stdin:  { "formula": "<formula>", "variables": { "<name>": <JSON value> },
//	          "extensions": true }
//	stdout: { "result": { "type": "<kind>", "value": <payload> } }
//	        { "result": ..., "error": "<message>" }   on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o goformula.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"formula":"A1*2","variables":{"A1":21}}' | wasmtime goformula.wasm
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/ext"
	"github.com/sandrolain/goformula/pkg/types"
)

type request struct {
	Formula    string         `json:"formula"`
	Variables  map[string]any `json:"variables"`
	Extensions bool           `json:"extensions"`
}

type response struct {
	Result   *types.Value `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: "invalid request JSON: " + err.Error()}, 1)
	}

	vars := make(map[string]types.Value, len(req.Variables))
	for name, x := range req.Variables {
		v, err := types.FromGo(x)
		if err != nil {
			writeResponse(response{Error: fmt.Sprintf("variable %q: %v", name, err)}, 1)
		}
		vars[name] = v
	}

	var opts []goformula.Option
	if req.Extensions {
		opts = append(opts, ext.WithAll())
	}
	res := goformula.Eval(context.Background(), req.Formula, vars, opts...)

	out := response{Result: &res.Value, Warnings: res.Warnings}
	if !res.Success() {
		out.Error = res.Value.String()
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		writeResponse(out, 1)
	}
	writeResponse(out, 0)
}
