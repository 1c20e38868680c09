package flux

import "testing"

func TestStoreAddStateOverwritesSameKey(t *testing.T) {
	rt := New()
	model := NewModel("Item", Value("name", ""))
	first, err := rt.CreateState(model, WithKey("a"))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	second, err := rt.CreateState(model, WithKey("a"))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}

	states := rt.DefaultStore().GetStates(model, nil)
	if len(states) != 1 {
		t.Fatalf("expected one state, got %d", len(states))
	}
	if states[0] != second {
		t.Fatalf("expected latest state to win, got %v", states[0])
	}
	if states[0] == first {
		t.Fatalf("first state should have been replaced")
	}
}

func TestStoreFindStateInInsertionOrder(t *testing.T) {
	store := NewStore()
	model := NewModel("Item")
	rt := New(WithStore(store))

	var created []*State
	for _, key := range []string{"x", "y", "z"} {
		state, err := rt.CreateState(model, WithKey(key))
		if err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
		created = append(created, state)
	}

	found := store.FindState(model, func(key any) bool {
		s, _ := key.(string)
		return s >= "y"
	})
	if found != created[1] {
		t.Fatalf("expected first matching state y, got %v", found)
	}
	if got := store.FindState(model, func(any) bool { return false }); got != nil {
		t.Fatalf("expected no match, got %v", got)
	}

	filtered := store.GetStates(model, func(key any) bool { return key != "x" })
	if len(filtered) != 2 || filtered[0] != created[1] || filtered[1] != created[2] {
		t.Fatalf("unexpected filtered states %v", filtered)
	}
}

func TestStoreNilKeyUsesDefaultKey(t *testing.T) {
	store := NewStore()
	rt := New(WithStore(store))
	model := NewModel("Settings")

	state, err := rt.CreateState(model)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if KeyOf(state) != DefaultKey {
		t.Fatalf("expected default key, got %v", KeyOf(state))
	}
	if found := store.FindState(model, func(key any) bool { return key == DefaultKey }); found != state {
		t.Fatalf("expected state under default key")
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore()
	rt := New(WithStore(store))
	model := NewModel("Item")
	state, err := rt.CreateState(model, WithKey(1))
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if len(store.Models()) != 1 {
		t.Fatalf("expected one model, got %d", len(store.Models()))
	}

	store.Clear()
	if len(store.GetStates(model, nil)) != 0 {
		t.Fatalf("expected empty store after clear")
	}
	if len(store.Models()) != 0 {
		t.Fatalf("expected no models after clear")
	}
	if StoreOf(state) != store {
		t.Fatalf("state should keep its store reference")
	}
}
