package flux

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-fluxmodels/internal/compare"
	"github.com/goliatone/go-fluxmodels/schema"
)

var (
	typeInterface   = reflect.TypeFor[schema.Type]()
	methodSignature = reflect.TypeFor[Method]()
)

// ModelFromStruct declares a model from a struct template. Every exported
// field becomes a model field named after its json tag: schema.Type values
// are used as the field type, Method values become methods and any other
// value becomes the default of an inferred type. opts are applied after the
// template.
func ModelFromStruct(name string, template any, opts ...ModelOption) (*Model, error) {
	rv := reflect.ValueOf(template)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("flux: model %s: nil template", name)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("flux: model %s: template must be a struct, got %T", name, template)
	}

	var fromTemplate []ModelOption
	rt := rv.Type()
	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		fieldName, skip := structFieldName(sf)
		if skip {
			continue
		}
		value := rv.Field(i)

		switch {
		case sf.Type.Kind() == reflect.Func && sf.Type.ConvertibleTo(methodSignature):
			if value.IsNil() {
				continue
			}
			fromTemplate = append(fromTemplate, WithMethod(fieldName, value.Convert(methodSignature).Interface().(Method)))
		case sf.Type.Implements(typeInterface):
			if compare.IsNil(value.Interface()) {
				return nil, fmt.Errorf("flux: model %s: field %s has a nil type", name, fieldName)
			}
			fromTemplate = append(fromTemplate, Field(fieldName, value.Interface().(schema.Type)))
		default:
			fromTemplate = append(fromTemplate, Value(fieldName, value.Interface()))
		}
	}
	return NewModel(name, append(fromTemplate, opts...)...), nil
}

func structFieldName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return sf.Name, false
}
