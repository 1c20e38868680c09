package schema

import (
	"errors"
	"fmt"
)

// Place identifies the lifecycle stage where a field error surfaced.
type Place string

const (
	PlaceInit        Place = "init"
	PlaceGet         Place = "get"
	PlaceSet         Place = "set"
	PlaceDefine      Place = "define"
	PlaceDelete      Place = "delete"
	PlaceValidate    Place = "validate"
	PlaceDeserialize Place = "deserialize"
	PlaceSerialize   Place = "serialize"
)

// Places lists every place an error can be reported from.
func Places() []Place {
	return []Place{
		PlaceInit,
		PlaceGet,
		PlaceSet,
		PlaceDefine,
		PlaceDelete,
		PlaceValidate,
		PlaceDeserialize,
		PlaceSerialize,
	}
}

var (
	ErrUnknownField = errors.New("schema: unknown field")
	ErrInvalidValue = errors.New("schema: invalid value")
	ErrNilValue     = errors.New("schema: value must not be nil")
	ErrPrivateField = errors.New("schema: private field")
)

// FieldError describes a failure tied to a single field.
type FieldError struct {
	Place Place
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return fmt.Sprintf("schema: %s: %v", e.Place, e.Err)
	}
	return fmt.Sprintf("schema: %s %q: %v", e.Place, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PlaceOf returns the place recorded on the first FieldError in err's chain.
func PlaceOf(err error) (Place, bool) {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Place, true
	}
	return "", false
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...))
}
