package flux

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Function is a helper callable from discriminant and key expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry holds expression helpers. Names are case-insensitive and
// exposed lowercased.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. Registering a name twice is an error.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case key == "":
		return fmt.Errorf("flux: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("flux: function %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("flux: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone copies the registry so evaluators keep a stable set of functions.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	functions := maps.Clone(r.functions)
	if functions == nil {
		functions = map[string]Function{}
	}
	return &FunctionRegistry{functions: functions}
}

// Call invokes the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("flux: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("flux: function %q not registered", name)
	}
	return fn(args...)
}

// Names lists the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

func (r *FunctionRegistry) bound(name string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// WithFunctionRegistry exposes a copy of registry to the default evaluators.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *runtimeConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

// WithCustomFunction registers fn under name for the runtime evaluators.
// Invalid or duplicate registrations are ignored.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *runtimeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}
