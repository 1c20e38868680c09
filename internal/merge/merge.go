// Package merge composes layered string-keyed documents.
package merge

import "github.com/goliatone/go-fluxmodels/internal/clone"

// Layers composes documents ordered from strongest to weakest. Keys missing
// from a stronger layer are filled from weaker ones; nested maps merge
// recursively and any other value from a stronger layer replaces the weaker
// one wholesale. Inputs are never modified.
func Layers(layers ...map[string]any) map[string]any {
	if len(layers) == 0 {
		return nil
	}
	merged := copyMap(layers[len(layers)-1])
	for i := len(layers) - 2; i >= 0; i-- {
		merged = mergeMaps(layers[i], merged)
	}
	return merged
}

func mergeMaps(strong, weak map[string]any) map[string]any {
	if strong == nil {
		return weak
	}
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = value
	}
	for key, value := range strong {
		strongMap, strongOK := asMap(value)
		weakMap, weakOK := asMap(result[key])
		if strongOK && weakOK {
			result[key] = mergeMaps(strongMap, weakMap)
			continue
		}
		result[key] = clone.Any(value)
	}
	return result
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return clone.Any(m).(map[string]any)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}
