package protocol

import "strings"

// Operation is a named action attached to a node.
type Operation struct {
	Key         string      `json:"key,omitempty" yaml:"key,omitempty"`
	Reload      bool        `json:"reload,omitempty" yaml:"reload,omitempty"`
	Confirm     string      `json:"confirm,omitempty" yaml:"confirm,omitempty"`
	Disabled    bool        `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	DisabledTip string      `json:"disabledTip,omitempty" yaml:"disabledTip,omitempty"`
	Tip         string      `json:"tip,omitempty" yaml:"tip,omitempty"`
	ClientData  *ClientData `json:"clientData,omitempty" yaml:"clientData,omitempty"`
	ServerData  *ServerData `json:"serverData,omitempty" yaml:"serverData,omitempty"`
	SkipRender  bool        `json:"skipRender,omitempty" yaml:"skipRender,omitempty"`
}

// ClientData carries a payload that is applied to local state without any
// network interaction.
type ClientData struct {
	DataRef map[string]any `json:"dataRef,omitempty" yaml:"dataRef,omitempty"`
}

// ServerData carries the payload for a server round trip or a pure
// navigation.
type ServerData struct {
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Query   map[string]any `json:"query,omitempty" yaml:"query,omitempty"`
	Target  string         `json:"target,omitempty" yaml:"target,omitempty"`
	JumpOut bool           `json:"jumpOut,omitempty" yaml:"jumpOut,omitempty"`
}

// DisabledReason returns the tip shown for a disabled operation, preferring
// disabledTip over the generic tip.
func (o Operation) DisabledReason() string {
	if tip := strings.TrimSpace(o.DisabledTip); tip != "" {
		return tip
	}
	return strings.TrimSpace(o.Tip)
}

// NeedsConfirmation reports whether the user must confirm before dispatch.
func (o Operation) NeedsConfirmation() bool {
	return strings.TrimSpace(o.Confirm) != ""
}

// NavigateOnly reports whether the operation only navigates away and never
// exchanges a document.
func (o Operation) NavigateOnly() bool {
	return o.ServerData != nil && o.ServerData.JumpOut && !o.Reload
}

// ClientPayload merges the clientData dataRef with extra caller supplied
// values. Extra values win ties. The result is always a fresh map, or nil
// when both inputs are empty.
func (o Operation) ClientPayload(extra map[string]any) map[string]any {
	var base map[string]any
	if o.ClientData != nil {
		base = o.ClientData.DataRef
	}
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(extra))
	for key, value := range base {
		out[key] = CloneValue(value)
	}
	for key, value := range extra {
		out[key] = CloneValue(value)
	}
	return out
}
