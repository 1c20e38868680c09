// Package clone deep copies arbitrary Go values so snapshots and defaults
// never share mutable storage with live state.
package clone

import "reflect"

// Option configures a copy operation.
type Option func(*cloner)

// KeepType leaves values of the given types shared instead of copying them.
// Managed handles such as states and proxies are kept this way.
func KeepType(types ...reflect.Type) Option {
	return func(c *cloner) {
		for _, t := range types {
			if t != nil {
				c.keep[t] = struct{}{}
			}
		}
	}
}

type cloner struct {
	keep map[reflect.Type]struct{}
	seen map[uintptr]reflect.Value
}

// Any returns a deep copy of v. Maps, slices, arrays and pointers are copied
// recursively; functions and channels are shared; unexported struct fields are
// copied shallowly. Pointer cycles are preserved in the copy.
func Any(v any, opts ...Option) any {
	if v == nil {
		return nil
	}
	c := &cloner{
		keep: map[reflect.Type]struct{}{},
		seen: map[uintptr]reflect.Value{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	out := c.value(reflect.ValueOf(v))
	if !out.IsValid() {
		return nil
	}
	return out.Interface()
}

// Value is the typed form of Any.
func Value[T any](v T, opts ...Option) T {
	out, ok := Any(v, opts...).(T)
	if !ok {
		return v
	}
	return out
}

func (c *cloner) value(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	if _, ok := c.keep[v.Type()]; ok {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		if existing, ok := c.seen[v.Pointer()]; ok {
			return existing
		}
		result := reflect.New(v.Type().Elem())
		c.seen[v.Pointer()] = result
		result.Elem().Set(c.value(v.Elem()))
		return result
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := c.value(v.Elem())
		result := reflect.New(v.Type()).Elem()
		result.Set(inner)
		return result
	case reflect.Struct:
		result := reflect.New(v.Type()).Elem()
		result.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := result.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(c.value(v.Field(i)))
		}
		return result
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		result := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			result.SetMapIndex(iter.Key(), c.value(iter.Value()))
		}
		return result
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		result := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			result.Index(i).Set(c.value(v.Index(i)))
		}
		return result
	case reflect.Array:
		result := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			result.Index(i).Set(c.value(v.Index(i)))
		}
		return result
	default:
		return v
	}
}
