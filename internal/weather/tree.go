package weather

import "strings"

// Tree nests the batch's dotted paths into objects. A path that is both a
// leaf and a branch ("temperature" and "temperature.minimum") keeps its own
// value under "value".
func (b Batch) Tree() map[string]any {
	root := make(map[string]any)
	for _, d := range b.Deltas {
		parts := strings.Split(d.Path, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			switch child := node[part].(type) {
			case map[string]any:
				node = child
			default:
				branch := make(map[string]any)
				if _, exists := node[part]; exists {
					branch["value"] = child
				}
				node[part] = branch
				node = branch
			}
		}
		leaf := parts[len(parts)-1]
		if branch, ok := node[leaf].(map[string]any); ok {
			branch["value"] = d.Value
			continue
		}
		node[leaf] = d.Value
	}
	return root
}
