// Package releasedecoder resolves devalue-style reference-encoded JSON
// graphs, the wire format SvelteKit's __data.json endpoints (and similar
// frameworks) use: a flat array of values where non-negative integers are
// back-references into that same array rather than literal numbers.
package releasedecoder

// Decode resolves data[0] against the reference table data, returning the
// fully-dereferenced root value. Booleans are never treated as references
// even though Go's `any` holding a bool can satisfy an int-like check in
// careless code; this implementation keeps the bool/number distinction
// explicit throughout.
func Decode(data []any) any {
	if len(data) == 0 {
		return nil
	}
	return resolveValue(data, data[0])
}

func resolveValue(data []any, value any) any {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = resolveItem(data, item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = resolveItem(data, item)
		}
		return out
	default:
		return value
	}
}

func resolveItem(data []any, item any) any {
	if idx, ok := asRefIndex(item); ok {
		return resolveRef(data, idx)
	}
	return resolveValue(data, item)
}

func resolveRef(data []any, index int) any {
	if index < 0 || index >= len(data) {
		return nil
	}
	return resolveValue(data, data[index])
}

// asRefIndex reports whether v is a non-negative integral JSON number (not
// a bool, not a fractional float) and, if so, returns it as an int.
func asRefIndex(v any) (int, bool) {
	switch n := v.(type) {
	case bool:
		return 0, false
	case float64:
		if n < 0 || n != float64(int64(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
