package protocol

import "strings"

// Mode tells the store how to apply an incoming document.
type Mode string

const (
	// ModeFull replaces the whole tree. Node state omitted by the incoming
	// document is still carried over from the previous one.
	ModeFull Mode = "full"
	// ModePartial merges the incoming components and structure entries into
	// the current document.
	ModePartial Mode = "partial"
)

// Scenario identifies the backend scenario that produced a document.
type Scenario struct {
	Key  string `json:"key" yaml:"key"`
	Type string `json:"type" yaml:"type"`
}

// Hierarchy describes the tree shape as a flat id graph.
type Hierarchy struct {
	Root      string              `json:"root" yaml:"root"`
	Structure map[string][]string `json:"structure,omitempty" yaml:"structure,omitempty"`
}

// Document is the Protocol Document: one renderable tree for a scenario
// instance.
type Document struct {
	Scenario   Scenario                  `json:"scenario" yaml:"scenario"`
	Mode       Mode                      `json:"mode,omitempty" yaml:"mode,omitempty"`
	Hierarchy  Hierarchy                 `json:"hierarchy" yaml:"hierarchy"`
	Components map[string]*ComponentSpec `json:"components" yaml:"components"`
}

// ComponentSpec is the per-node payload. A nil State means the document did
// not mention state for the node; an empty map explicitly clears it.
type ComponentSpec struct {
	Type       string               `json:"type" yaml:"type"`
	Props      map[string]any       `json:"props,omitempty" yaml:"props,omitempty"`
	State      map[string]any       `json:"state,omitempty" yaml:"state,omitempty"`
	Data       map[string]any       `json:"data,omitempty" yaml:"data,omitempty"`
	Operations map[string]Operation `json:"operations,omitempty" yaml:"operations,omitempty"`
}

// IsPartial reports whether the document should be merged rather than
// replace the current tree.
func (d *Document) IsPartial() bool {
	if d == nil {
		return false
	}
	return Mode(strings.ToLower(strings.TrimSpace(string(d.Mode)))) == ModePartial
}

// Component returns the spec for id, or nil when the node is absent.
func (d *Document) Component(id string) *ComponentSpec {
	if d == nil || d.Components == nil {
		return nil
	}
	return d.Components[id]
}

// Children returns the declared child ids of id in display order.
func (d *Document) Children(id string) []string {
	if d == nil || d.Hierarchy.Structure == nil {
		return nil
	}
	return d.Hierarchy.Structure[id]
}

// Operation looks up an operation on the node. The returned operation has its
// Key populated from the map key when the payload left it empty.
func (s *ComponentSpec) Operation(key string) (Operation, bool) {
	if s == nil || s.Operations == nil {
		return Operation{}, false
	}
	op, ok := s.Operations[key]
	if !ok {
		return Operation{}, false
	}
	if op.Key == "" {
		op.Key = key
	}
	return op, true
}
