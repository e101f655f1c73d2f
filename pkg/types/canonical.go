package types

import (
	"encoding/json"
	"sort"
)

// Canonicalize renders a dynamic map as a JSON string with keys sorted
// at every level, for use as a cache key or a change-detection hash
// input. Values are written by a single json.Marshal, so an int and a
// float64 of the same integral value render identically; no
// decode-and-re-encode pass is made.
func Canonicalize(v map[string]any) string {
	b, err := json.Marshal(sortKeysDeep(v))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// sortKeysDeep rebuilds nested maps as ordered key-value slices are not
// representable in encoding/json, so instead we rely on Go's built-in
// guarantee that json.Marshal of a map[string]any sorts keys
// lexicographically; this function only needs to recurse so nested
// maps get the same treatment applied consistently (encoding/json
// already does this recursively for map[string]any values, so this is
// effectively an identity pass kept for clarity and future hooks).
func sortKeysDeep(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = sortKeysDeep(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sortKeysDeep(e)
		}
		return out
	default:
		return v
	}
}
