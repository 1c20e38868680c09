package flux

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/goliatone/go-fluxmodels/schema"
)

// InjectContext describes the injected field being resolved.
type InjectContext struct {
	Owner    Accessor
	PropName string
	// Item and Index are set when resolving one element of an injected array.
	Item  any
	Index int
}

// Field returns the stored value of a field of the owning state. Reading it
// never resolves injections nor marks the field as observed.
func (c InjectContext) Field(name string) any {
	if c.Owner == nil {
		return nil
	}
	state := c.Owner.State()
	if !state.valid() {
		return nil
	}
	value, _ := state.object.RawValue(name)
	return value
}

// ModelRef resolves the model of an injected field. A nil model resolves to
// no state.
type ModelRef interface {
	resolveModel(rt *Runtime, ctx InjectContext) (*Model, error)
}

func (m *Model) resolveModel(*Runtime, InjectContext) (*Model, error) {
	return m, nil
}

// ModelFunc picks the model from the owning state.
type ModelFunc func(ctx InjectContext) (*Model, error)

func (fn ModelFunc) resolveModel(_ *Runtime, ctx InjectContext) (*Model, error) {
	return fn(ctx)
}

type lazyModel func() *Model

func (fn lazyModel) resolveModel(*Runtime, InjectContext) (*Model, error) {
	return fn(), nil
}

// Lazy defers the model lookup to resolution time, for models declared
// after the field referencing them.
func Lazy(fn func() *Model) ModelRef {
	return lazyModel(fn)
}

// Cases maps discriminant values to models.
type Cases map[string]*Model

type switchModel struct {
	discriminant func(InjectContext) (string, error)
	expr         string
	cases        Cases
}

// Switch resolves the model from a closed set of cases. A discriminant
// value without a case resolves to no state.
func Switch(discriminant func(ctx InjectContext) (string, error), cases Cases) ModelRef {
	return &switchModel{discriminant: discriminant, cases: maps.Clone(cases)}
}

// SwitchExpr is Switch with the discriminant computed by the runtime
// evaluator against the owner's stored field values. A nil result resolves
// to no state.
func SwitchExpr(expr string, cases Cases) ModelRef {
	return &switchModel{expr: expr, cases: maps.Clone(cases)}
}

func (s *switchModel) resolveModel(rt *Runtime, ctx InjectContext) (*Model, error) {
	var (
		value string
		err   error
	)
	switch {
	case s.discriminant != nil:
		value, err = s.discriminant(ctx)
	case s.expr != "":
		var (
			result any
			found  bool
		)
		result, found, err = evaluateOnOwner(rt, ctx, s.expr)
		if err == nil && (!found || result == nil) {
			return nil, nil
		}
		value = fmt.Sprint(result)
	}
	if err != nil {
		return nil, err
	}
	return s.cases[value], nil
}

func evaluateOnOwner(rt *Runtime, ctx InjectContext, expr string) (any, bool, error) {
	evalCtx, err := evalContextOf(ctx.Owner)
	if err != nil {
		return nil, false, err
	}
	evalCtx.PropName = ctx.PropName
	evalCtx.Item = ctx.Item
	evalCtx.Index = ctx.Index
	value, err := rt.Evaluate(evalCtx, expr)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

type inheritKey struct{}

// InheritKey makes an injected state use the key of its owner.
var InheritKey any = inheritKey{}

// InjectArgs selects where and under which key the injected state lives.
type InjectArgs struct {
	// Key of the injected state. Nil uses DefaultKey, InheritKey uses the
	// owner's key.
	Key any
	// KeyExpr computes the key with the runtime evaluator. It wins over Key.
	KeyExpr string
	// Store holding the injected state. The runtime default store is used
	// when nil, unless InheritStore selects the owner's store.
	Store        *Store
	InheritStore bool
	// KeyEqual matches keys as KeyEqual(storedKey, requestedKey).
	KeyEqual func(a, b any) bool
	// NoAutoResolve disables read inference on the injected proxy.
	NoAutoResolve bool
}

// ArgsRef resolves injection arguments.
type ArgsRef interface {
	resolveArgs(ctx InjectContext) (InjectArgs, error)
}

func (a InjectArgs) resolveArgs(InjectContext) (InjectArgs, error) {
	return a, nil
}

// ArgsFunc computes injection arguments from the owning state.
type ArgsFunc func(ctx InjectContext) (InjectArgs, error)

func (fn ArgsFunc) resolveArgs(ctx InjectContext) (InjectArgs, error) {
	return fn(ctx)
}

type injection struct {
	model ModelRef
	args  ArgsRef
}

func newInjection(model ModelRef, args []ArgsRef) injection {
	inj := injection{model: model}
	for _, ref := range args {
		if ref != nil {
			inj.args = ref
			break
		}
	}
	return inj
}

func (inj injection) resolveArgs(ctx InjectContext) (InjectArgs, error) {
	if inj.args == nil {
		return InjectArgs{}, nil
	}
	return inj.args.resolveArgs(ctx)
}

// resolve returns the injected state for ctx, creating it when missing. A
// nil state means the model resolved to nothing.
func (inj injection) resolve(owner *StateManager, ctx InjectContext) (state *State, created bool, args InjectArgs, err error) {
	args, err = inj.resolveArgs(ctx)
	if err != nil {
		return nil, false, args, err
	}
	state, created, err = inj.resolveWith(owner, ctx, args)
	return state, created, args, err
}

func (inj injection) resolveWith(owner *StateManager, ctx InjectContext, args InjectArgs) (*State, bool, error) {
	if inj.model == nil {
		return nil, false, nil
	}
	rt := owner.runtime
	model, err := inj.model.resolveModel(rt, ctx)
	if err != nil || model == nil {
		return nil, false, err
	}

	key := args.Key
	switch {
	case args.KeyExpr != "":
		key, _, err = evaluateOnOwner(rt, ctx, args.KeyExpr)
		if err != nil {
			return nil, false, err
		}
	case key == InheritKey:
		key = owner.key
	}
	store := args.Store
	if store == nil && args.InheritStore {
		store = owner.store
	}

	return rt.GetOrCreateState(model, WithKey(key), InStore(store), WithKeyEqual(args.KeyEqual))
}

func (inj injection) staticModel() *Model {
	switch ref := inj.model.(type) {
	case *Model:
		return ref
	case lazyModel:
		return ref()
	}
	return nil
}

func (inj injection) modelName() string {
	if model := inj.staticModel(); model != nil {
		return model.Name()
	}
	return "dynamic"
}

// Inject declares a field holding another state. Read through a state the
// field returns the injected *State; read through a proxy it returns the
// injected *Proxy, cached per proxy tree. The field cannot be assigned; a
// deserialized map payload is written into the injected state.
func Inject(model ModelRef, args ...ArgsRef) schema.Type {
	return &injectType{injection: newInjection(model, args)}
}

type injectType struct {
	injection
}

func (t *injectType) Name() string {
	return "inject:" + t.modelName()
}

func (t *injectType) Default() any {
	return nil
}

func (t *injectType) Deserialize(args schema.DeserializeArgs) (any, error) {
	payload, ok := args.Value.(map[string]any)
	if !ok || args.Action != schema.ActionDeserialize {
		return args.Value, nil
	}
	owner := Instance(args.Target)
	if owner == nil {
		return nil, ErrNotState
	}
	ctx := InjectContext{Owner: accessorOf(args.Target), PropName: args.Field}
	state, _, _, err := t.resolve(owner, ctx)
	if err != nil {
		owner.logger().Error("flux: injection failed", "state", owner.String(), "field", args.Field, "error", err)
		return nil, err
	}
	if state != nil {
		if err := deserializeInto(state, payload); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (t *injectType) Validate(args schema.ValidateArgs) error {
	if args.Value != nil {
		return ErrInjectedReadOnly
	}
	return nil
}

func (t *injectType) Serialize(args schema.SerializeArgs) (any, error) {
	owner := Instance(args.Target)
	if owner == nil {
		return nil, ErrNotState
	}
	ctx := InjectContext{Owner: accessorOf(args.Target), PropName: args.Field}
	state, created, injectArgs, err := t.resolve(owner, ctx)
	if err != nil {
		owner.logger().Error("flux: injection failed", "state", owner.String(), "field", args.Field, "error", err)
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	proxy, ok := args.Target.(*Proxy)
	if !ok {
		return state, nil
	}
	child, err := proxy.manager.injectedProxy(state, created, args.Field, injectArgs)
	if err != nil {
		return nil, err
	}
	return child, nil
}

// deserializeInto writes payload into state unless state is already being
// deserialized further up the stack.
func deserializeInto(state *State, payload map[string]any) error {
	m := state.manager
	if m.deserializing {
		return nil
	}
	m.deserializing = true
	defer func() { m.deserializing = false }()
	return state.Deserialize(payload)
}

func accessorOf(target any) Accessor {
	if accessor, ok := target.(Accessor); ok {
		return accessor
	}
	return nil
}

// injectedModel returns the fixed model behind an injected field type.
func injectedModel(t schema.Type) *Model {
	switch typed := t.(type) {
	case *injectType:
		return typed.staticModel()
	case *injectArrayType:
		return typed.staticModel()
	}
	return nil
}

// IsInjected reports whether t is an injected field type.
func IsInjected(t schema.Type) bool {
	switch t.(type) {
	case *injectType, *injectArrayType:
		return true
	}
	return false
}

var errInjectItem = errors.New("flux: injected array item")

func injectItemError(index int, err error) error {
	return fmt.Errorf("%w %d: %w", errInjectItem, index, err)
}

func cloneStates(states []*State) []*State {
	if states == nil {
		return nil
	}
	return slices.Clone(states)
}
