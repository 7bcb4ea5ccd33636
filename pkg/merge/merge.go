package merge

import "strings"

// ItemSeparator joins a node id and an item key in override patterns
// ("<nodeId>@<itemKey>").
const ItemSeparator = "@"

// AnyItem matches every item of a repeated node ("<nodeId>@*").
const AnyItem = "*"

// Overrides maps node ids or item patterns to top-level prop overrides.
type Overrides map[string]map[string]any

// Layers holds the override layers, lowest priority first.
type Layers struct {
	Scenario Overrides
	CallSite Overrides
}

// Key builds the override key for a node or one of its items.
func Key(nodeID, itemKey string) string {
	if itemKey == "" {
		return nodeID
	}
	return nodeID + ItemSeparator + itemKey
}

// ParseKey splits an override key into node id and item key. Keys without a
// separator target the whole node.
func ParseKey(key string) (nodeID, itemKey string) {
	trimmed := strings.TrimSpace(key)
	idx := strings.LastIndex(trimmed, ItemSeparator)
	if idx <= 0 {
		return trimmed, ""
	}
	return trimmed[:idx], trimmed[idx+len(ItemSeparator):]
}

// Resolve returns the effective props for nodeID (and itemKey, when the node
// renders repeated items). Layers apply in order: own props, then scenario,
// then call-site. Within a layer the exact id applies first, then the
// "id@*" blanket, then "id@itemKey". Later entries win ties on the same
// top-level key. own is never mutated.
func Resolve(nodeID, itemKey string, own map[string]any, layers Layers) map[string]any {
	out := make(map[string]any, len(own))
	apply(out, own)
	for _, layer := range []Overrides{layers.Scenario, layers.CallSite} {
		for _, key := range candidateKeys(nodeID, itemKey) {
			apply(out, layer[key])
		}
	}
	return out
}

// Matches reports whether any override in the layers targets the node.
func (o Overrides) Matches(nodeID string) bool {
	for key := range o {
		if id, _ := ParseKey(key); id == nodeID {
			return true
		}
	}
	return false
}

// Clone copies the override table. Prop maps are copied one level deep,
// matching the shallow merge semantics.
func (o Overrides) Clone() Overrides {
	if o == nil {
		return nil
	}
	out := make(Overrides, len(o))
	for key, props := range o {
		copied := make(map[string]any, len(props))
		apply(copied, props)
		out[key] = copied
	}
	return out
}

func candidateKeys(nodeID, itemKey string) []string {
	keys := []string{nodeID}
	if itemKey == "" {
		return keys
	}
	keys = append(keys, Key(nodeID, AnyItem))
	if itemKey != AnyItem {
		keys = append(keys, Key(nodeID, itemKey))
	}
	return keys
}

func apply(dst, src map[string]any) {
	for key, value := range src {
		dst[key] = value
	}
}
