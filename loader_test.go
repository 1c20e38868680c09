package flux

import (
	"errors"
	"testing"
)

func TestUseLoaderWrapsMethod(t *testing.T) {
	errFetch := errors.New("fetch failed")
	model := NewModel("Remote", Value("loading", false), Value("data", ""))
	loader := func(self Accessor, loading bool) {
		_ = self.Set("loading", loading)
	}

	var during any
	model.Extend(
		WithMethod("load", UseLoader(func(self Accessor, args ...any) (any, error) {
			during, _ = self.Get("loading")
			if len(args) > 0 {
				return nil, errFetch
			}
			return nil, self.Set("data", "ready")
		}, loader)),
	)

	rt := New()
	state, err := rt.CreateState(model)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}

	var transitions []any
	state.Manager().Events().Subscribe(OnChange, OnChange.Handler(func(_ any, args ChangeArgs) error {
		if args.PropName == "loading" {
			transitions = append(transitions, args.NewValue)
		}
		return nil
	}))

	if _, err := state.Call("load"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if during != true {
		t.Fatalf("expected loading=true during the call, got %v", during)
	}
	if loading, _ := state.Get("loading"); loading != false {
		t.Fatalf("expected loading reset, got %v", loading)
	}
	if _, err := state.Call("load", "fail"); !errors.Is(err, errFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if loading, _ := state.Get("loading"); loading != false {
		t.Fatalf("expected loading reset after error, got %v", loading)
	}
	if len(transitions) != 4 {
		t.Fatalf("expected four loading transitions, got %v", transitions)
	}
}

func TestKeyAndStoreHelpers(t *testing.T) {
	rt := New()
	state, err := rt.CreateState(NewModel("Keyed"), WithKey(42))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	proxy, err := CreateProxy(state)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}
	if KeyOf(proxy) != 42 || StoreOf(proxy) != rt.DefaultStore() {
		t.Fatalf("helpers should resolve through proxies")
	}
	if KeyOf("nope") != nil || StoreOf("nope") != nil {
		t.Fatalf("helpers should return nil for unmanaged values")
	}
}
