package flux

import (
	"maps"
	"slices"
)

type observeMode int

const (
	observeInfer observeMode = iota
	observeAll
	observeNone
)

// Observe selects the properties a proxy reports changes for. The zero value
// infers observed properties from reads.
type Observe struct {
	mode    observeMode
	entries map[string]any
}

// ObserveAll reports changes to every property.
func ObserveAll() Observe {
	return Observe{mode: observeAll}
}

// ObserveNone never reports changes.
func ObserveNone() Observe {
	return Observe{mode: observeNone}
}

// ObserveNames marks names as observed. Reads still add further names unless
// auto resolution is disabled.
func ObserveNames(names ...string) Observe {
	entries := make(map[string]any, len(names))
	for _, name := range names {
		entries[name] = true
	}
	return Observe{entries: entries}
}

// ObserveTree builds a nested configuration. Values may be bool, Observe,
// a nested map[string]any or a []string of names; an entry configured for an
// injected field applies to the injected state's proxy.
func ObserveTree(tree map[string]any) Observe {
	return Observe{entries: maps.Clone(tree)}
}

func (o Observe) build() *observableProps {
	props := &observableProps{
		mode:    o.mode,
		entries: map[string]*observableEntry{},
	}
	for name, value := range o.entries {
		switch typed := value.(type) {
		case bool:
			props.entries[name] = &observableEntry{enabled: typed}
		case Observe:
			props.entries[name] = &observableEntry{enabled: true, nested: typed.build()}
		case map[string]any:
			props.entries[name] = &observableEntry{enabled: true, nested: ObserveTree(typed).build()}
		case []string:
			props.entries[name] = &observableEntry{enabled: true, nested: ObserveNames(typed...).build()}
		}
	}
	return props
}

type observableProps struct {
	mode    observeMode
	entries map[string]*observableEntry
}

type observableEntry struct {
	enabled bool
	nested  *observableProps
}

func (o *observableProps) observes(name string) bool {
	switch o.mode {
	case observeAll:
		return true
	case observeNone:
		return false
	}
	entry := o.entries[name]
	return entry != nil && (entry.enabled || entry.nested != nil)
}

// infer marks name as observed unless it was configured explicitly.
func (o *observableProps) infer(name string) {
	if o.mode != observeInfer {
		return
	}
	if _, exists := o.entries[name]; exists {
		return
	}
	o.entries[name] = &observableEntry{enabled: true}
}

// child returns the configuration shared with the proxy of an injected field,
// or nil when the field has no nested configuration.
func (o *observableProps) child(name string) *observableProps {
	if entry := o.entries[name]; entry != nil {
		return entry.nested
	}
	return nil
}

// export renders the configuration as plain values: true/false per name or a
// nested map for injected fields.
func (o *observableProps) export() map[string]any {
	out := make(map[string]any, len(o.entries))
	for _, name := range slices.Sorted(maps.Keys(o.entries)) {
		entry := o.entries[name]
		if entry.nested != nil {
			out[name] = entry.nested.export()
			continue
		}
		out[name] = entry.enabled
	}
	return out
}
