package protocol

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Scenario:  d.Scenario,
		Mode:      d.Mode,
		Hierarchy: d.Hierarchy.Clone(),
	}
	if d.Components != nil {
		out.Components = make(map[string]*ComponentSpec, len(d.Components))
		for id, spec := range d.Components {
			out.Components[id] = spec.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the hierarchy.
func (h Hierarchy) Clone() Hierarchy {
	out := Hierarchy{Root: h.Root}
	if h.Structure != nil {
		out.Structure = make(map[string][]string, len(h.Structure))
		for id, children := range h.Structure {
			out.Structure[id] = append([]string(nil), children...)
		}
	}
	return out
}

// Clone returns a deep copy of the component spec. Nil maps stay nil so the
// omitted/empty distinction for state survives.
func (s *ComponentSpec) Clone() *ComponentSpec {
	if s == nil {
		return nil
	}
	out := &ComponentSpec{
		Type:  s.Type,
		Props: CloneMap(s.Props),
		State: CloneMap(s.State),
		Data:  CloneMap(s.Data),
	}
	if s.Operations != nil {
		out.Operations = make(map[string]Operation, len(s.Operations))
		for key, op := range s.Operations {
			out.Operations[key] = op.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the operation.
func (o Operation) Clone() Operation {
	out := o
	if o.ClientData != nil {
		out.ClientData = &ClientData{DataRef: CloneMap(o.ClientData.DataRef)}
	}
	if o.ServerData != nil {
		sd := *o.ServerData
		sd.Params = CloneMap(o.ServerData.Params)
		sd.Query = CloneMap(o.ServerData.Query)
		out.ServerData = &sd
	}
	return out
}

// CloneMap deep copies a JSON-like map, preserving nil.
func CloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = CloneValue(value)
	}
	return out
}

// CloneValue deep copies JSON-like values (maps, slices, scalars).
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return CloneMap(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = CloneValue(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
