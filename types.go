package flux

import (
	"maps"
	"slices"
	"time"
)

// Accessor is the common read/write surface of states, proxies and snapshots.
type Accessor interface {
	Get(name string) (any, error)
	Set(name string, value any) error
	Call(name string, args ...any) (any, error)
	Keys() []string
	State() *State
}

// Method is a model behaviour. self is the accessor the call was made
// through, so methods invoked on a proxy read and write through the proxy.
type Method func(self Accessor, args ...any) (any, error)

// EvalContext carries inputs needed when evaluating an expression against a
// state. Fields are exposed as top-level variables; the remaining values are
// grouped under the "ctx" variable.
type EvalContext struct {
	Fields   map[string]any
	Model    string
	Key      any
	PropName string
	Item     any
	Index    int
	Now      *time.Time
	Args     map[string]any
}

func (ctx EvalContext) withDefaultNow() EvalContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx EvalContext) withDefaultMaps() EvalContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Fields == nil {
		ctx.Fields = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) binding() map[string]any {
	return map[string]any{
		"model": ctx.Model,
		"key":   ctx.Key,
		"prop":  ctx.PropName,
		"item":  ctx.Item,
		"index": ctx.Index,
	}
}

// reservedVariables are bound by the evaluators and take precedence over
// owner fields of the same name. Every field stays reachable as
// fields.<name>.
var reservedVariables = []string{"now", "args", "ctx", "fields", "call"}

// variables is the environment an expression sees: the owner's fields at the
// top level, the reserved bindings over them, then the registered functions.
func (ctx EvalContext) variables(registry *FunctionRegistry) map[string]any {
	vars := make(map[string]any, len(ctx.Fields)+len(reservedVariables))
	maps.Copy(vars, ctx.Fields)
	vars["now"] = ctx.timestamp()
	vars["args"] = ctx.Args
	vars["ctx"] = ctx.binding()
	vars["fields"] = ctx.Fields
	if registry != nil {
		vars["call"] = registry.Call
		for _, name := range registry.Names() {
			vars[name] = registry.bound(name)
		}
	}
	return vars
}

// fieldNames lists the owner fields visible at the top level, sorted.
func (ctx EvalContext) fieldNames() []string {
	names := make([]string, 0, len(ctx.Fields))
	for _, name := range slices.Sorted(maps.Keys(ctx.Fields)) {
		if !slices.Contains(reservedVariables, name) {
			names = append(names, name)
		}
	}
	return names
}

// Evaluator executes expressions against an evaluation context.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}
