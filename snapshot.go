package flux

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/goliatone/go-fluxmodels/internal/clone"
	"github.com/goliatone/go-fluxmodels/schema"
)

var managedTypes = []reflect.Type{
	reflect.TypeFor[*State](),
	reflect.TypeFor[*Proxy](),
	reflect.TypeFor[*Snapshot](),
}

// Snapshot is a read-only copy of a proxy graph taken at one point in time.
// Injected proxies become nested snapshots; a state reachable twice in the
// graph maps to a single snapshot node.
type Snapshot struct {
	proxy  *Proxy
	keys   []string
	values map[string]any
}

// CreateSnapshot copies every field of the proxy and its injected proxies.
// Taking a snapshot never adds observed properties.
func (m *ProxyManager) CreateSnapshot() (*Snapshot, error) {
	return createSnapshot(m.proxy, map[*Proxy]*Snapshot{})
}

func createSnapshot(p *Proxy, seen map[*Proxy]*Snapshot) (*Snapshot, error) {
	if snap, ok := seen[p]; ok {
		return snap, nil
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	keys := p.Keys()
	snap := &Snapshot{
		proxy:  p,
		keys:   keys,
		values: make(map[string]any, len(keys)),
	}
	seen[p] = snap

	m := p.manager
	autoResolve := m.autoResolve
	m.autoResolve = false
	defer func() { m.autoResolve = autoResolve }()

	for _, name := range keys {
		value, err := p.Get(name)
		if err != nil {
			return nil, err
		}
		switch typed := value.(type) {
		case *Proxy:
			if typed == nil {
				snap.values[name] = nil
				continue
			}
			nested, err := createSnapshot(typed, seen)
			if err != nil {
				return nil, err
			}
			snap.values[name] = nested
		case []*Proxy:
			items := make([]*Snapshot, 0, len(typed))
			for _, item := range typed {
				if item == nil {
					items = append(items, nil)
					continue
				}
				nested, err := createSnapshot(item, seen)
				if err != nil {
					return nil, err
				}
				items = append(items, nested)
			}
			snap.values[name] = items
		default:
			snap.values[name] = clone.Any(value, clone.KeepType(managedTypes...))
		}
	}
	return snap, nil
}

// Get returns a copy of the value captured for name. Nested snapshots are
// returned as is.
func (s *Snapshot) Get(name string) (any, error) {
	value, ok := s.values[name]
	if !ok {
		return nil, fmt.Errorf("flux: snapshot %s: %w: %s", s.modelName(), schema.ErrUnknownField, name)
	}
	switch typed := value.(type) {
	case *Snapshot:
		return typed, nil
	case []*Snapshot:
		return slices.Clone(typed), nil
	}
	return clone.Any(value, clone.KeepType(managedTypes...)), nil
}

// Set always fails.
func (s *Snapshot) Set(name string, _ any) error {
	return fmt.Errorf("%w: %s", ErrSnapshotFrozen, name)
}

// Deserialize always fails.
func (s *Snapshot) Deserialize(map[string]any) error {
	return ErrSnapshotFrozen
}

// Call invokes a model method on the live proxy the snapshot was taken from.
func (s *Snapshot) Call(name string, args ...any) (any, error) {
	return s.proxy.Call(name, args...)
}

// Keys lists the captured field names.
func (s *Snapshot) Keys() []string {
	return slices.Clone(s.keys)
}

// State returns the live state behind the snapshot.
func (s *Snapshot) State() *State {
	return s.proxy.State()
}

// Proxy returns the proxy the snapshot was taken from.
func (s *Snapshot) Proxy() *Proxy {
	return s.proxy
}

// Map renders the snapshot as plain values. A snapshot already rendered
// higher up the same branch becomes nil.
func (s *Snapshot) Map() map[string]any {
	return s.render(map[*Snapshot]bool{})
}

func (s *Snapshot) render(visiting map[*Snapshot]bool) map[string]any {
	visiting[s] = true
	defer delete(visiting, s)

	out := make(map[string]any, len(s.keys))
	for _, name := range s.keys {
		switch typed := s.values[name].(type) {
		case *Snapshot:
			if typed == nil || visiting[typed] {
				out[name] = nil
				continue
			}
			out[name] = typed.render(visiting)
		case []*Snapshot:
			items := make([]any, 0, len(typed))
			for _, item := range typed {
				if item == nil || visiting[item] {
					items = append(items, nil)
					continue
				}
				items = append(items, item.render(visiting))
			}
			out[name] = items
		default:
			out[name] = clone.Any(typed, clone.KeepType(managedTypes...))
		}
	}
	return out
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s *Snapshot) String() string {
	if s == nil || s.proxy == nil {
		return "StateProxySnapshot(<invalid>)"
	}
	return describeState("StateProxySnapshot", s.proxy.state.manager)
}

func (s *Snapshot) modelName() string {
	if manager := Instance(s); manager != nil {
		return manager.model.Name()
	}
	return "unknown"
}
