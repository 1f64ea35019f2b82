// Package functions implements the two-tier function dispatcher used by the
// evaluator, together with the builtin function catalog.
//
// Builtins live in a closed table indexed by a hash of the upper-cased name.
// The hash is verified collision-free over the catalog when the table is
// built. User functions live in a [Registry] and are consulted only when no
// builtin of the same name exists, so a builtin can never be shadowed.
//
// # Example
//
//	reg := functions.NewRegistry()
//	_ = reg.Register("DOUBLE", func(args []types.Value, _ *types.Context) types.Value {
//	    n, err := args[0].ToNumber()
//	    if err != nil {
//	        return types.Error(types.ErrorValue)
//	    }
//	    return types.Number(n * 2)
//	})
//	v := reg.Call("double", []types.Value{types.Number(21)}, types.NewContext())
//	// v == types.Number(42)
package functions

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sandrolain/goformula/pkg/types"
)

// Func is the call contract shared by builtins and user functions. It
// receives the evaluated arguments in order and the variable context, and
// reports failures as Error values rather than panicking.
type Func func(args []types.Value, vars *types.Context) types.Value

// FunctionDef describes a callable function.
type FunctionDef struct {
	// Name is the upper-cased name used in formulas.
	Name string
	// MinArgs is the minimum number of arguments.
	MinArgs int
	// MaxArgs is the maximum number of arguments, -1 for unlimited.
	MaxArgs int
	// Impl is the implementation.
	Impl Func
}

// accepts reports whether n arguments satisfy the arity.
func (d *FunctionDef) accepts(n int) bool {
	return n >= d.MinArgs && (d.MaxArgs < 0 || n <= d.MaxArgs)
}

// Resolution reports which tier a name resolved to.
type Resolution uint8

// Resolution outcomes.
const (
	NotFound Resolution = iota
	Builtin
	Custom
)

// String returns the resolution name.
func (r Resolution) String() string {
	switch r {
	case Builtin:
		return "builtin"
	case Custom:
		return "custom"
	default:
		return "not found"
	}
}

// Registration errors.
var (
	ErrInvalidName  = errors.New("invalid function name")
	ErrNilFunction  = errors.New("function implementation is nil")
	ErrInvalidArity = errors.New("invalid function arity")
)

// Registry holds user-registered functions and dispatches calls across both
// tiers. The zero value is not usable; create one with NewRegistry. A nil
// *Registry dispatches builtins only.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	custom map[string]*FunctionDef
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration warnings and recovered
// panics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		custom: make(map[string]*FunctionDef),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Register adds a user function that accepts any number of arguments.
// The name is matched case-insensitively.
func (r *Registry) Register(name string, fn Func) error {
	return r.RegisterDef(FunctionDef{Name: name, MinArgs: 0, MaxArgs: -1, Impl: fn})
}

// RegisterDef adds a user function with an explicit arity. A function
// registered under a builtin name is accepted but never called.
func (r *Registry) RegisterDef(def FunctionDef) error {
	name := upperName(def.Name)
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, def.Name)
	}
	if def.Impl == nil {
		return fmt.Errorf("%w: %s", ErrNilFunction, name)
	}
	if def.MinArgs < 0 || (def.MaxArgs >= 0 && def.MaxArgs < def.MinArgs) {
		return fmt.Errorf("%w: %s(%d..%d)", ErrInvalidArity, name, def.MinArgs, def.MaxArgs)
	}
	def.Name = name

	if IsBuiltin(name) {
		r.logger.Warn("custom function is shadowed by builtin", "name", name)
	}

	r.mu.Lock()
	r.custom[name] = &def
	r.mu.Unlock()
	return nil
}

// Unregister removes a user function and reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	if r == nil {
		return false
	}
	name = upperName(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.custom[name]
	delete(r.custom, name)
	return ok
}

// Resolve finds the definition a call to name would invoke.
func (r *Registry) Resolve(name string) (*FunctionDef, Resolution) {
	name = upperName(name)
	if def, ok := lookupBuiltin(name); ok {
		return def, Builtin
	}
	if r == nil {
		return nil, NotFound
	}
	r.mu.RLock()
	def, ok := r.custom[name]
	r.mu.RUnlock()
	if ok {
		return def, Custom
	}
	return nil, NotFound
}

// Has reports whether name resolves to any function.
func (r *Registry) Has(name string) bool {
	_, res := r.Resolve(name)
	return res != NotFound
}

// IsBuiltin reports whether name is a builtin function.
func (r *Registry) IsBuiltin(name string) bool {
	return IsBuiltin(name)
}

// Shadowed reports whether a user function registered as name is hidden by
// a builtin.
func (r *Registry) Shadowed(name string) bool {
	if r == nil {
		return false
	}
	name = upperName(name)
	if !IsBuiltin(name) {
		return false
	}
	r.mu.RLock()
	_, ok := r.custom[name]
	r.mu.RUnlock()
	return ok
}

// Names lists builtin names followed by user function names, each group
// sorted. Shadowed user functions are not listed twice.
func (r *Registry) Names() []string {
	names := BuiltinNames()
	return append(names, r.CustomNames()...)
}

// CustomNames lists the callable user function names, sorted.
func (r *Registry) CustomNames() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.custom))
	for name := range r.custom {
		if !IsBuiltin(name) {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Call dispatches a function call. Unknown names yield #NAME?, a wrong
// argument count yields #VALUE!, and a panicking implementation is
// recovered as #VALUE!.
func (r *Registry) Call(name string, args []types.Value, vars *types.Context) (result types.Value) {
	def, res := r.Resolve(name)
	if res == NotFound {
		return types.Error(types.ErrorName)
	}
	if !def.accepts(len(args)) {
		return types.Error(types.ErrorValue)
	}
	if vars == nil {
		vars = types.NewContext()
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log().Error("function panicked", "name", def.Name, "tier", res.String(), "panic", rec)
			result = types.Error(types.ErrorValue)
		}
	}()
	return def.Impl(args, vars)
}

func (r *Registry) log() *slog.Logger {
	if r == nil || r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// validName checks the identifier charset accepted by the lexer.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'):
		case i > 0 && ((c >= '0' && c <= '9') || c == ':'):
		default:
			return false
		}
	}
	return true
}
