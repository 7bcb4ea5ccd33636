package protocol

import "context"

// Identity names a scenario instance: which scenario, with which external
// parameters.
type Identity struct {
	ScenarioKey  string         `json:"scenarioKey"`
	ScenarioType string         `json:"scenarioType"`
	InParams     map[string]any `json:"inParams,omitempty"`
}

// Event describes the user interaction that triggered a fetch.
type Event struct {
	NodeID        string         `json:"nodeId"`
	OperationKey  string         `json:"operationKey"`
	ClientPayload map[string]any `json:"clientPayload,omitempty"`
}

// FetchRequest is the payload a Source receives. Event is nil for initial
// loads and watch triggered refreshes. Batch lists every event folded into a
// combined request; when set, Event is its first entry.
type FetchRequest struct {
	RequestID    string         `json:"requestId,omitempty"`
	ScenarioKey  string         `json:"scenarioKey"`
	ScenarioType string         `json:"scenarioType"`
	InParams     map[string]any `json:"inParams,omitempty"`
	Event        *Event         `json:"event,omitempty"`
	Batch        []Event        `json:"batch,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
	Query        map[string]any `json:"query,omitempty"`
	Target       string         `json:"target,omitempty"`
}

// Identity extracts the scenario identity from the request.
func (r FetchRequest) Identity() Identity {
	return Identity{
		ScenarioKey:  r.ScenarioKey,
		ScenarioType: r.ScenarioType,
		InParams:     r.InParams,
	}
}

// Source produces Protocol Documents. Implementations may return a full or a
// partial document (see Document.Mode).
type Source interface {
	Fetch(ctx context.Context, req FetchRequest) (*Document, error)
}

// SourceFunc adapts plain functions to the Source interface.
type SourceFunc func(ctx context.Context, req FetchRequest) (*Document, error)

// Fetch executes the wrapped function.
func (fn SourceFunc) Fetch(ctx context.Context, req FetchRequest) (*Document, error) {
	return fn(ctx, req)
}
