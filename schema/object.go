package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Field declares a named, typed field.
type Field struct {
	Name string
	Type Type
}

// Descriptor captures a field value together with its type.
type Descriptor struct {
	Value any
	Type  Type
}

// ChangeInfo describes a completed write.
type ChangeInfo struct {
	Target any
	Field  string
	Action Action
	Prev   Descriptor
	Next   Descriptor
}

// ErrorInfo describes a failure reported to error handlers.
type ErrorInfo struct {
	Target any
	Field  string
	Place  Place
	Err    error
}

// ChangeHandler observes writes. An empty Actions list matches every action.
type ChangeHandler struct {
	Handle  func(ChangeInfo) error
	Actions []Action
}

// ErrorHandler observes failures. An empty Places list matches every place.
type ErrorHandler struct {
	Handle func(ErrorInfo) error
	Places []Place
}

func (h ChangeHandler) matches(action Action) bool {
	return h.Handle != nil && (len(h.Actions) == 0 || slices.Contains(h.Actions, action))
}

func (h ErrorHandler) matches(place Place) bool {
	return h.Handle != nil && (len(h.Places) == 0 || slices.Contains(h.Places, place))
}

// Config describes the fields and handlers of an Object.
type Config struct {
	Fields         []Field
	ChangeHandlers []ChangeHandler
	ErrorHandlers  []ErrorHandler
	// Ignore marks names stored verbatim without types or handlers.
	// IsPrivate is used when nil.
	Ignore func(name string) bool
	// Dynamic allows writes to undeclared fields, inferring their type.
	Dynamic bool
}

// IsPrivate reports whether name is reserved for internal bookkeeping.
func IsPrivate(name string) bool {
	return name == "" || strings.HasPrefix(name, "_")
}

// Object holds typed field values for one target.
type Object struct {
	names   []string
	types   map[string]Type
	values  map[string]any
	private map[string]any
	changes []ChangeHandler
	errors  []ErrorHandler
	ignore  func(string) bool
	dynamic bool
}

// New builds an Object for target, assigning every field its default value
// through the regular write path with ActionInit.
func New(target any, cfg Config) (*Object, error) {
	o := &Object{
		types:   make(map[string]Type, len(cfg.Fields)),
		values:  make(map[string]any, len(cfg.Fields)),
		private: map[string]any{},
		changes: slices.Clone(cfg.ChangeHandlers),
		errors:  slices.Clone(cfg.ErrorHandlers),
		ignore:  cfg.Ignore,
		dynamic: cfg.Dynamic,
	}
	if o.ignore == nil {
		o.ignore = IsPrivate
	}

	for _, field := range cfg.Fields {
		if o.ignore(field.Name) {
			return nil, o.fail(target, PlaceInit, field.Name, ErrPrivateField)
		}
		if field.Type == nil {
			return nil, o.fail(target, PlaceInit, field.Name, errors.New("schema: field type is nil"))
		}
		if _, exists := o.types[field.Name]; !exists {
			o.names = append(o.names, field.Name)
		}
		o.types[field.Name] = field.Type
	}

	for _, name := range o.names {
		t := o.types[name]
		if err := o.write(target, name, t, t.Default(), ActionInit); err != nil {
			var fieldErr *FieldError
			if errors.As(err, &fieldErr) {
				return nil, err
			}
			return nil, o.fail(target, PlaceInit, name, err)
		}
	}
	return o, nil
}

// Keys lists declared field names in declaration order.
func (o *Object) Keys() []string {
	return slices.Clone(o.names)
}

// Has reports whether name is a declared field.
func (o *Object) Has(name string) bool {
	_, ok := o.types[name]
	return ok
}

// TypeOf returns the type declared for name.
func (o *Object) TypeOf(name string) (Type, bool) {
	t, ok := o.types[name]
	return t, ok
}

// Ignored reports whether name bypasses types and handlers.
func (o *Object) Ignored(name string) bool {
	return o.ignore(name)
}

// Raw returns the stored values without running serializers.
func (o *Object) Raw() map[string]any {
	out := make(map[string]any, len(o.names))
	for _, name := range o.names {
		out[name] = o.values[name]
	}
	return out
}

// RawValue returns the stored value of a declared or private field.
func (o *Object) RawValue(name string) (any, bool) {
	if o.ignore(name) {
		v, ok := o.private[name]
		return v, ok
	}
	v, ok := o.values[name]
	return v, ok
}

// Get reads a field through its serializer.
func (o *Object) Get(target any, name string) (any, error) {
	if o.ignore(name) {
		return o.private[name], nil
	}
	t, ok := o.types[name]
	if !ok {
		return nil, o.fail(target, PlaceGet, name, ErrUnknownField)
	}
	out, err := t.Serialize(SerializeArgs{Target: target, Field: name, Value: o.values[name]})
	if err != nil {
		return nil, o.fail(target, PlaceSerialize, name, err)
	}
	return out, nil
}

// Set writes a field through its deserializer and validator.
func (o *Object) Set(target any, name string, value any) error {
	if o.ignore(name) {
		o.private[name] = value
		return nil
	}
	t, ok := o.types[name]
	if !ok {
		if !o.dynamic {
			return o.fail(target, PlaceSet, name, ErrUnknownField)
		}
		return o.Define(target, name, Infer(value), value)
	}
	return o.write(target, name, t, value, ActionSet)
}

// Define declares (or redeclares) a field and assigns value. A nil type is
// inferred from value; a nil value falls back to the type default.
func (o *Object) Define(target any, name string, t Type, value any) error {
	if o.ignore(name) {
		return o.fail(target, PlaceDefine, name, ErrPrivateField)
	}
	if t == nil {
		t = Infer(value)
	}
	if value == nil {
		value = t.Default()
	}
	_, existed := o.types[name]
	prevType := o.types[name]
	o.types[name] = t
	if err := o.write(target, name, t, value, ActionDefine); err != nil {
		if existed {
			o.types[name] = prevType
		} else {
			delete(o.types, name)
		}
		return err
	}
	if !existed {
		o.names = append(o.names, name)
	}
	return nil
}

// Delete removes a declared field.
func (o *Object) Delete(target any, name string) error {
	if o.ignore(name) {
		delete(o.private, name)
		return nil
	}
	t, ok := o.types[name]
	if !ok {
		return o.fail(target, PlaceDelete, name, ErrUnknownField)
	}
	prev := o.values[name]
	delete(o.types, name)
	delete(o.values, name)
	o.names = slices.DeleteFunc(o.names, func(n string) bool { return n == name })
	return o.notify(ChangeInfo{
		Target: target,
		Field:  name,
		Action: ActionDelete,
		Prev:   Descriptor{Value: prev, Type: t},
	})
}

// Deserialize writes every declared field present in payload, in declaration
// order. Private keys are stored verbatim; other unknown keys are ignored
// unless the object is dynamic.
func (o *Object) Deserialize(target any, payload map[string]any) error {
	for _, name := range o.Keys() {
		value, ok := payload[name]
		if !ok {
			continue
		}
		t, declared := o.types[name]
		if !declared {
			continue
		}
		if err := o.write(target, name, t, value, ActionDeserialize); err != nil {
			return err
		}
	}

	extra := make([]string, 0)
	for name := range payload {
		if !o.Has(name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		switch {
		case o.ignore(name):
			o.private[name] = payload[name]
		case o.dynamic:
			if err := o.Define(target, name, nil, payload[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Serialize reads every declared field through its serializer.
func (o *Object) Serialize(target any) (map[string]any, error) {
	out := make(map[string]any, len(o.names))
	for _, name := range o.Keys() {
		value, err := o.Get(target, name)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func (o *Object) write(target any, name string, t Type, value any, action Action) error {
	next, err := t.Deserialize(DeserializeArgs{Target: target, Field: name, Value: value, Action: action})
	if err != nil {
		return o.fail(target, PlaceDeserialize, name, err)
	}
	if err := t.Validate(ValidateArgs{Target: target, Field: name, Value: next}); err != nil {
		return o.fail(target, PlaceValidate, name, err)
	}

	prev := o.values[name]
	o.values[name] = next
	return o.notify(ChangeInfo{
		Target: target,
		Field:  name,
		Action: action,
		Prev:   Descriptor{Value: prev, Type: t},
		Next:   Descriptor{Value: next, Type: t},
	})
}

func (o *Object) notify(info ChangeInfo) error {
	for _, handler := range o.changes {
		if !handler.matches(info.Action) {
			continue
		}
		if err := handler.Handle(info); err != nil {
			return err
		}
	}
	return nil
}

// fail wraps err in a FieldError and reports it to matching error handlers.
// Handler failures are joined with the original error.
func (o *Object) fail(target any, place Place, name string, err error) error {
	fieldErr := &FieldError{Place: place, Field: name, Err: err}
	var handlerErrs []error
	for _, handler := range o.errors {
		if !handler.matches(place) {
			continue
		}
		if herr := handler.Handle(ErrorInfo{Target: target, Field: name, Place: place, Err: fieldErr}); herr != nil {
			handlerErrs = append(handlerErrs, fmt.Errorf("schema: error handler: %w", herr))
		}
	}
	if len(handlerErrs) == 0 {
		return fieldErr
	}
	return errors.Join(append([]error{fieldErr}, handlerErrs...)...)
}
