package flux

// UseLoader wraps method so loader observes the call: loader(self, true)
// runs before it and loader(self, false) after it returns, errors included.
func UseLoader(method Method, loader func(self Accessor, loading bool)) Method {
	if method == nil || loader == nil {
		return method
	}
	return func(self Accessor, args ...any) (any, error) {
		loader(self, true)
		defer loader(self, false)
		return method(self, args...)
	}
}

// KeyOf returns the key of the state behind v, or nil.
func KeyOf(v any) any {
	if manager := Instance(v); manager != nil {
		return manager.key
	}
	return nil
}

// StoreOf returns the store owning the state behind v, or nil.
func StoreOf(v any) *Store {
	if manager := Instance(v); manager != nil {
		return manager.store
	}
	return nil
}
