package flux

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/goliatone/go-fluxmodels/schema"
)

func TestSnapshotIsImmutable(t *testing.T) {
	rt := New()
	model := NewModel("Doc", Value("title", "draft"), Value("tags", []string{"a"}))
	state, err := rt.CreateState(model)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	proxy, err := CreateProxy(state)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}
	snap, err := proxy.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if err := proxy.Set("title", "final"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if title, _ := snap.Get("title"); title != "draft" {
		t.Fatalf("snapshot changed after write, got %v", title)
	}

	tags, _ := snap.Get("tags")
	tags.([]any)[0] = "mutated"
	again, _ := snap.Get("tags")
	if again.([]any)[0] != "a" {
		t.Fatalf("snapshot values must be copied on read, got %v", again)
	}

	if err := snap.Set("title", "x"); !errors.Is(err, ErrSnapshotFrozen) {
		t.Fatalf("expected frozen error, got %v", err)
	}
	if err := snap.Deserialize(map[string]any{"title": "x"}); !errors.Is(err, ErrSnapshotFrozen) {
		t.Fatalf("expected frozen error, got %v", err)
	}
	if _, err := snap.Get("missing"); !errors.Is(err, schema.ErrUnknownField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
}

func TestSnapshotDoesNotObserve(t *testing.T) {
	_, _, proxy := newCounterProxy(t)
	if _, err := proxy.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(proxy.Manager().ObservableProps()) != 0 {
		t.Fatalf("snapshot must not add observed properties, got %v", proxy.Manager().ObservableProps())
	}
	if !proxy.Manager().AutoResolve() {
		t.Fatalf("auto resolution should be restored after snapshot")
	}
}

func TestSnapshotCircularGraph(t *testing.T) {
	rt := New()
	a, _ := newCircularModels()
	aState, _, err := rt.GetOrCreateState(a)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	proxy, err := CreateProxy(aState)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}
	snap, err := proxy.Manager().CreateSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	value, err := snap.Get("b")
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	nested, ok := value.(*Snapshot)
	if !ok {
		t.Fatalf("expected nested snapshot, got %T", value)
	}
	back, err := nested.Get("a")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if back != snap {
		t.Fatalf("expected the cycle to resolve to the root snapshot")
	}

	rendered := snap.Map()
	b, ok := rendered["b"].(map[string]any)
	if !ok || b["a"] != nil || b["x"] != 0 {
		t.Fatalf("unexpected rendered snapshot %v", rendered)
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if snap.String() != "StateProxySnapshot(model: A)" {
		t.Fatalf("unexpected string %q", snap.String())
	}
}

func TestSnapshotArraysAndCalls(t *testing.T) {
	rt := New()
	list, _ := newListModels()
	list.Extend(WithMethod("count", func(self Accessor, _ ...any) (any, error) {
		items, err := self.Get("items")
		if err != nil {
			return nil, err
		}
		return len(items.([]*Proxy)), nil
	}))
	state, err := rt.CreateState(list)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if err := state.Set("items", []any{map[string]any{"id": 1, "title": "one"}}); err != nil {
		t.Fatalf("set items: %v", err)
	}
	proxy, err := CreateProxy(state)
	if err != nil {
		t.Fatalf("create proxy: %v", err)
	}
	snap, err := proxy.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	value, _ := snap.Get("items")
	items, ok := value.([]*Snapshot)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one item snapshot, got %v", value)
	}
	if title, _ := items[0].Get("title"); title != "one" {
		t.Fatalf("unexpected item title %v", title)
	}
	count, err := snap.Call("count")
	if err != nil || count != 1 {
		t.Fatalf("call through snapshot: count=%v err=%v", count, err)
	}
	if Instance(snap) != state.Manager() || ProxyInstance(snap) != proxy.Manager() {
		t.Fatalf("snapshot should resolve to its state and proxy")
	}
}
