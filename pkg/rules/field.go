package rules

import "strings"

// missingSentinel is the distinguished value returned when a field path does
// not resolve. It is distinct from an explicit null in the input: a document
// carrying {"flag": null} resolves to nil, while an absent key resolves to
// the sentinel. The exists operator is the only one that treats the two
// alike.
type missingSentinel struct{}

// Missing is the sentinel value for unresolvable field paths.
var Missing = missingSentinel{}

// IsMissing reports whether v is the missing-field sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missingSentinel)
	return ok
}

// ResolveField walks a dot-separated path through nested maps. Each segment
// dereferences the current map; if any segment is absent, or an intermediate
// value is not a map, resolution yields Missing. Both map[string]any (the
// JSON shape) and map[any]any (a legacy YAML shape) containers are handled.
func ResolveField(path string, input map[string]any) any {
	if path == "" || input == nil {
		return Missing
	}

	var current any = input
	for _, segment := range strings.Split(path, ".") {
		switch m := current.(type) {
		case map[string]any:
			v, ok := m[segment]
			if !ok {
				return Missing
			}
			current = v
		case map[any]any:
			v, ok := m[segment]
			if !ok {
				return Missing
			}
			current = v
		default:
			return Missing
		}
	}
	return current
}
