// Package extwasm exposes the numeric exports of a WebAssembly module as
// formula functions.
//
// Every exported function whose parameters and single result are numeric
// (i32, i64, f32, f64) becomes a function of the same name, upper-cased.
// Arguments are coerced like builtin numeric arguments; a trap or a
// non-finite result is #NUM!. Modules may import WASI; reactor modules are
// initialized through their _initialize export.
//
// # Example
//
//	mod, err := extwasm.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//	eng := goformula.New(goformula.WithFunctions(mod.Functions()...))
package extwasm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/sandrolain/goformula/pkg/functions"
	"github.com/sandrolain/goformula/pkg/types"
)

// DefaultMemoryLimitPages caps module memory at 16 MiB.
const DefaultMemoryLimitPages = 256

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures Load.
type Options struct {
	// Prefix is prepended to every function name, e.g. "WASM_".
	Prefix string
	// MemoryLimitPages caps module memory in 64 KiB pages.
	MemoryLimitPages uint32
	// Logger receives notes about skipped exports.
	Logger *slog.Logger
}

// Option configures Load.
type Option func(*Options)

// WithPrefix sets a prefix for the registered function names.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// WithMemoryLimitPages caps module memory.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *Options) {
		o.MemoryLimitPages = pages
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Module is an instantiated WebAssembly module. Calls into the module are
// serialized, so its functions may be used from several engines.
type Module struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	mod     api.Module
	defs    []functions.FunctionDef
}

// Load compiles and instantiates a module and collects its numeric exports.
func Load(ctx context.Context, wasm []byte, opts ...Option) (*Module, error) {
	options := Options{MemoryLimitPages: DefaultMemoryLimitPages}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(options.MemoryLimitPages).
		WithCloseOnContextDone(true)
	r := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("extwasm: wasi: %w", err)
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("extwasm: compile: %w", err)
	}
	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize"))
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("extwasm: instantiate: %w", err)
	}

	m := &Module{runtime: r, mod: mod}
	exports := compiled.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := exports[name]
		if !nameRe.MatchString(name) || !numeric(def) {
			options.Logger.Debug("wasm export skipped", "name", name,
				"params", def.ParamTypes(), "results", def.ResultTypes())
			continue
		}
		m.defs = append(m.defs, functions.FunctionDef{
			Name:    strings.ToUpper(options.Prefix + name),
			MinArgs: len(def.ParamTypes()),
			MaxArgs: len(def.ParamTypes()),
			Impl:    m.bind(mod.ExportedFunction(name), def),
		})
	}
	return m, nil
}

// Functions returns the function definitions, sorted by name.
func (m *Module) Functions() []functions.FunctionDef {
	return append([]functions.FunctionDef(nil), m.defs...)
}

// Close releases the module and its runtime.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

func numeric(def api.FunctionDefinition) bool {
	if len(def.ResultTypes()) != 1 {
		return false
	}
	for _, t := range slices.Concat(def.ParamTypes(), def.ResultTypes()) {
		switch t {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

func encode(t api.ValueType, x float64) (uint64, bool) {
	switch t {
	case api.ValueTypeF64:
		return api.EncodeF64(x), true
	case api.ValueTypeF32:
		return api.EncodeF32(float32(x)), true
	case api.ValueTypeI32:
		if x < math.MinInt32 || x > math.MaxInt32 {
			return 0, false
		}
		return api.EncodeI32(int32(x)), true
	default:
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		return api.EncodeI64(int64(x)), true
	}
}

func decode(t api.ValueType, raw uint64) float64 {
	switch t {
	case api.ValueTypeF64:
		return api.DecodeF64(raw)
	case api.ValueTypeF32:
		return float64(api.DecodeF32(raw))
	case api.ValueTypeI32:
		return float64(api.DecodeI32(raw))
	default:
		return float64(int64(raw))
	}
}

func (m *Module) bind(fn api.Function, def api.FunctionDefinition) functions.Func {
	params := def.ParamTypes()
	result := def.ResultTypes()[0]
	return func(args []types.Value, _ *types.Context) types.Value {
		stack := make([]uint64, len(params))
		for i, a := range args {
			x, errv, ok := functions.ToNumber(a)
			if !ok {
				return errv
			}
			if stack[i], ok = encode(params[i], x); !ok {
				return types.Error(types.ErrorNum)
			}
		}

		m.mu.Lock()
		out, err := fn.Call(context.Background(), stack...)
		m.mu.Unlock()
		if err != nil || len(out) != 1 {
			return types.Error(types.ErrorNum)
		}
		return functions.CheckNumber(decode(result, out[0]))
	}
}
