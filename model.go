package flux

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goliatone/go-fluxmodels/schema"
)

// Model is the blueprint for states: declared fields, methods, listeners and
// handler chains. Models are compared by identity; two models with the same
// name are different models.
type Model struct {
	name           string
	fields         []schema.Field
	methods        map[string]Method
	registrations  []Registration
	changeHandlers []schema.ChangeHandler
	errorHandlers  []schema.ErrorHandler
	dynamic        bool
}

// ModelOption configures a model.
type ModelOption func(*Model)

// NewModel declares a model named name.
func NewModel(name string, opts ...ModelOption) *Model {
	m := &Model{
		name:    name,
		methods: map[string]Method{},
	}
	m.Extend(opts...)
	return m
}

// Extend applies further options to the model. It is how mutually
// referencing models are completed after both have been declared. States
// created before Extend keep their original fields.
func (m *Model) Extend(opts ...ModelOption) *Model {
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Field declares name with an explicit type. Redeclaring a field replaces
// its type and keeps its position.
func Field(name string, t schema.Type) ModelOption {
	return func(m *Model) {
		for i := range m.fields {
			if m.fields[i].Name == name {
				m.fields[i].Type = t
				return
			}
		}
		m.fields = append(m.fields, schema.Field{Name: name, Type: t})
	}
}

// Value declares name with a type inferred from value, which also becomes
// the default.
func Value(name string, value any) ModelOption {
	return Field(name, schema.Infer(value))
}

// Fields declares every entry of values via Value, in sorted name order.
func Fields(values map[string]any) ModelOption {
	return func(m *Model) {
		for _, name := range slices.Sorted(maps.Keys(values)) {
			Value(name, values[name])(m)
		}
	}
}

// WithMethod attaches a method callable through Call on states, proxies and
// snapshots.
func WithMethod(name string, method Method) ModelOption {
	return func(m *Model) {
		if method == nil {
			delete(m.methods, name)
			return
		}
		m.methods[name] = method
	}
}

// Listen subscribes registrations on every state created from the model.
func Listen(registrations ...Registration) ModelOption {
	return func(m *Model) {
		for _, r := range registrations {
			if r != nil {
				m.registrations = append(m.registrations, r)
			}
		}
	}
}

// WithChangeHandler threads handler into every state of the model, before the
// built-in change detection.
func WithChangeHandler(handler schema.ChangeHandler) ModelOption {
	return func(m *Model) {
		m.changeHandlers = append(m.changeHandlers, handler)
	}
}

// WithErrorHandler threads handler into every state of the model, before the
// built-in error reporting.
func WithErrorHandler(handler schema.ErrorHandler) ModelOption {
	return func(m *Model) {
		m.errorHandlers = append(m.errorHandlers, handler)
	}
}

// Dynamic lets states of the model accept writes to undeclared fields.
func Dynamic() ModelOption {
	return func(m *Model) {
		m.dynamic = true
	}
}

// Name returns the model name given to NewModel.
func (m *Model) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// Fields returns the declared fields in declaration order.
func (m *Model) Fields() []schema.Field {
	return slices.Clone(m.fields)
}

// Method returns the method registered under name.
func (m *Model) Method(name string) (Method, bool) {
	method, ok := m.methods[name]
	return method, ok
}

// Methods lists method names in sorted order.
func (m *Model) Methods() []string {
	return slices.Sorted(maps.Keys(m.methods))
}

func (m *Model) String() string {
	if m == nil {
		return "Model(<nil>)"
	}
	return fmt.Sprintf("Model(%s)", m.name)
}

// FieldDescriptor describes a field path and its type name.
type FieldDescriptor struct {
	Path string
	Type string
}

// Describe flattens the model's fields. Fields injecting a fixed model are
// expanded with dotted paths; each model is expanded once per path so
// circular injections terminate.
func (m *Model) Describe() []FieldDescriptor {
	return m.describe("", map[*Model]bool{})
}

func (m *Model) describe(prefix string, visiting map[*Model]bool) []FieldDescriptor {
	if m == nil {
		return nil
	}
	visiting[m] = true
	defer delete(visiting, m)

	var out []FieldDescriptor
	for _, field := range m.fields {
		path := joinPath(prefix, field.Name)
		out = append(out, FieldDescriptor{Path: path, Type: field.Type.Name()})

		nested := injectedModel(field.Type)
		if nested == nil || visiting[nested] {
			continue
		}
		out = append(out, nested.describe(path, visiting)...)
	}
	return out
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
