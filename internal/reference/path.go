package reference

import (
	"fmt"
	"maps"
	"strings"
)

// SetPath writes value at a dot-separated path inside root, creating
// intermediate maps. When both the existing and the new value at the leaf are
// maps they are merged (new keys win) so earlier writes to sibling keys
// survive. It refuses to descend through a non-map value.
func SetPath(root map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	cur := root
	for i, seg := range segments[:len(segments)-1] {
		next, exists := cur[seg]
		if !exists || next == nil {
			m := map[string]any{}
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("path %q: %q is a %T, not an object", path, strings.Join(segments[:i+1], "."), next)
		}
		cur = m
	}

	leaf := segments[len(segments)-1]
	if existing, ok := cur[leaf].(map[string]any); ok {
		if incoming, ok := value.(map[string]any); ok {
			merged := maps.Clone(existing)
			maps.Copy(merged, incoming)
			cur[leaf] = merged
			return nil
		}
	}
	cur[leaf] = value
	return nil
}

// GetPath reads the value at a dot-separated path.
func GetPath(root map[string]any, path string) (any, bool) {
	var cur any = root
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
