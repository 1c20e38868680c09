package schema

import "github.com/goliatone/go-fluxmodels/internal/clone"

// Action names the kind of write that produced a change.
type Action string

const (
	ActionInit        Action = "init"
	ActionSet         Action = "set"
	ActionDeserialize Action = "deserialize"
	ActionDefine      Action = "define"
	ActionDelete      Action = "delete"
)

// Type describes how a field value is defaulted, converted and checked.
type Type interface {
	Name() string
	Default() any
	Deserialize(DeserializeArgs) (any, error)
	Validate(ValidateArgs) error
	Serialize(SerializeArgs) (any, error)
}

// DeserializeArgs is passed to deserializers on every write.
type DeserializeArgs struct {
	Target any
	Field  string
	Value  any
	Action Action
}

// ValidateArgs is passed to validators after deserialization.
type ValidateArgs struct {
	Target any
	Field  string
	Value  any
}

// SerializeArgs is passed to serializers on every read.
type SerializeArgs struct {
	Target any
	Field  string
	Value  any
}

type (
	Validator    func(ValidateArgs) error
	Serializer   func(SerializeArgs) (any, error)
	Deserializer func(DeserializeArgs) (any, error)
)

// Option customises a Base type.
type Option func(*Base)

// Default sets the value assigned to the field on init.
func Default(value any) Option {
	return func(b *Base) {
		b.def = value
		b.hasDefault = true
	}
}

// Nullable allows nil values to pass validation.
func Nullable() Option {
	return func(b *Base) {
		b.nullable = true
	}
}

// WithValidator appends a validator run after the kind check.
func WithValidator(v Validator) Option {
	return func(b *Base) {
		if v != nil {
			b.validators = append(b.validators, v)
		}
	}
}

// WithSerializer appends a serializer run on reads.
func WithSerializer(s Serializer) Option {
	return func(b *Base) {
		if s != nil {
			b.serializers = append(b.serializers, s)
		}
	}
}

// WithDeserializer appends a deserializer run on writes, before coercion.
func WithDeserializer(d Deserializer) Option {
	return func(b *Base) {
		if d != nil {
			b.deserializers = append(b.deserializers, d)
		}
	}
}

// Coercer converts a raw value into the type's canonical representation.
// It reports false when the value cannot be represented.
type Coercer func(any) (any, bool)

// Base is a Type assembled from a coercer and optional hook chains.
type Base struct {
	name          string
	def           any
	hasDefault    bool
	nullable      bool
	coerce        Coercer
	validators    []Validator
	serializers   []Serializer
	deserializers []Deserializer
}

// NewType builds a Type named name. A nil coercer accepts any value.
func NewType(name string, coerce Coercer, opts ...Option) *Base {
	b := &Base{name: name, coerce: coerce}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name returns the type label used in validation errors.
func (b *Base) Name() string {
	return b.name
}

// Default returns a copy of the configured default so states never share
// mutable defaults.
func (b *Base) Default() any {
	if !b.hasDefault {
		return nil
	}
	if b.coerce != nil {
		if out, ok := b.coerce(b.def); ok {
			return clone.Any(out)
		}
	}
	return clone.Any(b.def)
}

// Deserialize runs the deserializers in order, then coerces the result.
func (b *Base) Deserialize(args DeserializeArgs) (any, error) {
	value := args.Value
	for _, deserialize := range b.deserializers {
		next, err := deserialize(DeserializeArgs{
			Target: args.Target,
			Field:  args.Field,
			Value:  value,
			Action: args.Action,
		})
		if err != nil {
			return nil, err
		}
		value = next
	}
	if value == nil || b.coerce == nil {
		return value, nil
	}
	if out, ok := b.coerce(value); ok {
		return out, nil
	}
	return value, nil
}

// Validate checks nullability and the coerced type before the custom
// validators.
func (b *Base) Validate(args ValidateArgs) error {
	switch {
	case args.Value == nil:
		if !b.nullable && b.coerce != nil {
			return ErrNilValue
		}
	case b.coerce != nil:
		if _, ok := b.coerce(args.Value); !ok {
			return invalid("expected %s, got %T", b.name, args.Value)
		}
	}
	for _, validate := range b.validators {
		if err := validate(args); err != nil {
			return err
		}
	}
	return nil
}

// Serialize runs the serializers in order.
func (b *Base) Serialize(args SerializeArgs) (any, error) {
	value := args.Value
	for _, serialize := range b.serializers {
		next, err := serialize(SerializeArgs{
			Target: args.Target,
			Field:  args.Field,
			Value:  value,
		})
		if err != nil {
			return nil, err
		}
		value = next
	}
	return value, nil
}
