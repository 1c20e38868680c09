package flux

import (
	"slices"
	"sync"

	"github.com/goliatone/go-fluxmodels/internal/compare"
)

type defaultKey struct{}

func (defaultKey) String() string { return "<default>" }

// DefaultKey is used for states created without a key, which makes them
// per-model singletons within a store.
var DefaultKey any = defaultKey{}

func normalizeKey(key any) any {
	if key == nil {
		return DefaultKey
	}
	return key
}

// KeyMatch reports whether a stored key matches.
type KeyMatch func(key any) bool

// Store registers states by model identity and key. Entries keep insertion
// order per model.
type Store struct {
	mu    sync.RWMutex
	slots map[*Model][]storeEntry
	order []*Model
}

type storeEntry struct {
	key   any
	state *State
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{slots: map[*Model][]storeEntry{}}
}

// AddState registers state under (model, key). A nil key becomes DefaultKey.
// An existing entry with the identical key is overwritten in place.
func (s *Store) AddState(model *Model, state *State, key any) {
	if model == nil || state == nil {
		return
	}
	key = normalizeKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.slots[model]
	if !ok {
		s.order = append(s.order, model)
	}
	for i := range entries {
		if compare.Same(entries[i].key, key) {
			entries[i].state = state
			return
		}
	}
	s.slots[model] = append(entries, storeEntry{key: key, state: state})
}

// FindState returns the first state of model whose key satisfies match, or
// nil. A nil match matches every key.
func (s *Store) FindState(model *Model, match KeyMatch) *State {
	for _, entry := range s.entries(model) {
		if match == nil || match(entry.key) {
			return entry.state
		}
	}
	return nil
}

// GetStates returns the states of model in insertion order, optionally
// filtered by key.
func (s *Store) GetStates(model *Model, filter KeyMatch) []*State {
	entries := s.entries(model)
	out := make([]*State, 0, len(entries))
	for _, entry := range entries {
		if filter == nil || filter(entry.key) {
			out = append(out, entry.state)
		}
	}
	return out
}

// Models lists models with at least one registered state, in registration
// order.
func (s *Store) Models() []*Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Clear drops every registration. States keep their own back references.
func (s *Store) Clear() {
	s.mu.Lock()
	s.slots = map[*Model][]storeEntry{}
	s.order = nil
	s.mu.Unlock()
}

// entries copies the slot so callbacks can re-enter the store.
func (s *Store) entries(model *Model) []storeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.slots[model])
}
