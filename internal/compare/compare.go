// Package compare provides the identity and deep equality checks used when
// deciding whether a write changed a field or whether two state keys match.
package compare

import "reflect"

// Same reports whether a and b hold the identical value. Comparable values are
// compared with ==, reference kinds (maps, pointers, channels, slices) match
// only when they share the same backing storage. Functions and values that
// cannot be compared are never the same unless both are nil.
func Same(a, b any) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}

	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	}

	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return false
}

// Equal reports whether a and b are the same value or deeply equal.
func Equal(a, b any) bool {
	if Same(a, b) {
		return true
	}
	if IsNil(a) || IsNil(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// IsNil reports whether v is nil or an interface holding a nil reference.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}
