package flux

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/goliatone/go-fluxmodels/internal/hydrate"
	"github.com/goliatone/go-fluxmodels/schema"
)

// InjectArray declares a field holding a list of states. Assigned items may
// be states, proxies or plain objects; plain objects are written into the
// state resolved for them. Items without an explicit key are keyed by the
// SHA-256 digest of their JSON encoding. Read through a proxy the field
// returns []*Proxy, otherwise []*State.
func InjectArray(model ModelRef, args ...ArgsRef) schema.Type {
	return &injectArrayType{injection: newInjection(model, args)}
}

type injectArrayType struct {
	injection
}

func (t *injectArrayType) Name() string {
	return "inject[]:" + t.modelName()
}

func (t *injectArrayType) Default() any {
	return []*State(nil)
}

func (t *injectArrayType) Deserialize(args schema.DeserializeArgs) (any, error) {
	if args.Value == nil {
		return []*State(nil), nil
	}
	if states, ok := args.Value.([]*State); ok {
		return cloneStates(states), nil
	}
	items := reflect.ValueOf(args.Value)
	if items.Kind() != reflect.Slice && items.Kind() != reflect.Array {
		return args.Value, nil
	}
	owner := Instance(args.Target)
	if owner == nil {
		return nil, ErrNotState
	}

	out := make([]*State, 0, items.Len())
	for i := range items.Len() {
		item := items.Index(i).Interface()
		if manager := Instance(item); manager != nil {
			out = append(out, manager.state)
			continue
		}
		state, err := t.resolveItem(owner, InjectContext{
			Owner:    accessorOf(args.Target),
			PropName: args.Field,
			Item:     item,
			Index:    i,
		})
		if err != nil {
			owner.logger().Error("flux: injection failed", "state", owner.String(), "field", args.Field, "index", i, "error", err)
			return nil, injectItemError(i, err)
		}
		if state != nil {
			out = append(out, state)
		}
	}
	return out, nil
}

func (t *injectArrayType) resolveItem(owner *StateManager, ctx InjectContext) (*State, error) {
	args, err := t.resolveArgs(ctx)
	if err != nil {
		return nil, err
	}
	if args.Key == nil && args.KeyExpr == "" {
		if args.Key, err = contentKey(ctx.Item); err != nil {
			return nil, err
		}
	}
	state, _, err := t.resolveWith(owner, ctx, args)
	if err != nil || state == nil {
		return nil, err
	}
	payload, err := hydrate.Encode(ctx.Item)
	if err != nil {
		return nil, err
	}
	if err := deserializeInto(state, payload); err != nil {
		return nil, err
	}
	return state, nil
}

func (t *injectArrayType) Validate(args schema.ValidateArgs) error {
	switch typed := args.Value.(type) {
	case nil:
		return nil
	case []*State:
		for i, state := range typed {
			if !state.valid() {
				return injectItemError(i, ErrNotState)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: expected a list of states, got %T", schema.ErrInvalidValue, args.Value)
}

func (t *injectArrayType) Serialize(args schema.SerializeArgs) (any, error) {
	states, _ := args.Value.([]*State)
	proxy, ok := args.Target.(*Proxy)
	if !ok {
		return cloneStates(states), nil
	}

	out := make([]*Proxy, 0, len(states))
	for i, state := range states {
		injectArgs, err := t.resolveArgs(InjectContext{
			Owner:    proxy,
			PropName: args.Field,
			Item:     state,
			Index:    i,
		})
		if err != nil {
			return nil, injectItemError(i, err)
		}
		child, err := proxy.manager.injectedProxy(state, false, args.Field, injectArgs)
		if err != nil {
			return nil, injectItemError(i, err)
		}
		out = append(out, child)
	}
	return out, nil
}

// contentKey derives a stable key from the JSON encoding of item. Map keys
// are encoded in sorted order, so equal maps share a key.
func contentKey(item any) (string, error) {
	encoded, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("flux: content key: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
