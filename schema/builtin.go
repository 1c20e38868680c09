package schema

import (
	"math"
	"reflect"
)

// Number stores any numeric value as float64.
func Number(opts ...Option) Type {
	return NewType("number", coerceNumber, withZero(0.0, opts)...)
}

// Integer stores integral numeric values as int.
func Integer(opts ...Option) Type {
	return NewType("integer", coerceInteger, withZero(0, opts)...)
}

// String stores string values, including named string types.
func String(opts ...Option) Type {
	return NewType("string", coerceString, withZero("", opts)...)
}

// Boolean stores bool values.
func Boolean(opts ...Option) Type {
	return NewType("boolean", coerceBoolean, withZero(false, opts)...)
}

// Map stores objects as map[string]any. Other maps with string keys are
// converted on write.
func Map(opts ...Option) Type {
	return NewType("map", coerceMap, append([]Option{Nullable()}, opts...)...)
}

// Slice stores lists as []any. Other slices and arrays are converted on write.
func Slice(opts ...Option) Type {
	return NewType("slice", coerceSlice, append([]Option{Nullable()}, opts...)...)
}

// Any accepts every value, including nil.
func Any(opts ...Option) Type {
	return NewType("any", nil, append([]Option{Nullable()}, opts...)...)
}

// Infer picks a Type for value and uses value as its default. Types are
// returned unchanged.
func Infer(value any) Type {
	if t, ok := value.(Type); ok {
		return t
	}
	if value == nil {
		return Any()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		return Boolean(Default(value))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer(Default(value))
	case reflect.Float32, reflect.Float64:
		return Number(Default(value))
	case reflect.String:
		return String(Default(value))
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return Map(Default(value))
		}
	case reflect.Slice, reflect.Array:
		return Slice(Default(value))
	}
	return Any(Default(value))
}

func withZero(zero any, opts []Option) []Option {
	return append([]Option{Default(zero)}, opts...)
}

func coerceNumber(value any) (any, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return nil, false
}

func coerceInteger(value any) (any, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt {
			return nil, false
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt || f < math.MinInt {
			return nil, false
		}
		return int(f), true
	}
	return nil, false
}

func coerceString(value any) (any, bool) {
	if s, ok := value.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return nil, false
}

func coerceBoolean(value any) (any, bool) {
	if b, ok := value.(bool); ok {
		return b, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Bool {
		return rv.Bool(), true
	}
	return nil, false
}

func coerceMap(value any) (any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	if rv.IsNil() {
		return map[string]any(nil), true
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func coerceSlice(value any) (any, bool) {
	if s, ok := value.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return []any(nil), true
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
