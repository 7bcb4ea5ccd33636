package render

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

// DispatchFunc triggers an operation on the node being rendered. Payload is
// merged into the operation's client payload.
type DispatchFunc func(ctx context.Context, operationKey string, payload map[string]any) error

// Input carries everything a capability needs to render one node.
type Input struct {
	NodeID     string
	Type       string
	Props      map[string]any
	Data       map[string]any
	State      map[string]any
	Operations map[string]protocol.Operation
	Dispatch   DispatchFunc

	// ItemProps returns the effective props for one item of a repeated node,
	// applying "<nodeId>@<itemKey>" overrides on top of Props.
	ItemProps func(itemKey string) map[string]any

	// RenderChildren renders the resolved children in display order.
	RenderChildren func(ctx context.Context) (string, error)
}

// Children renders child nodes, returning an empty string when the engine did
// not provide a child renderer.
func (in Input) Children(ctx context.Context) (string, error) {
	if in.RenderChildren == nil {
		return "", nil
	}
	return in.RenderChildren(ctx)
}

// PropsForItem resolves item props, falling back to the node props.
func (in Input) PropsForItem(itemKey string) map[string]any {
	if in.ItemProps == nil {
		return in.Props
	}
	return in.ItemProps(itemKey)
}

// Capability renders one component type. Concrete widgets implement this and
// are registered against a type string.
type Capability interface {
	Render(ctx context.Context, buf *bytes.Buffer, in Input) error
}

// CapabilityFunc adapts plain functions to the Capability interface.
type CapabilityFunc func(ctx context.Context, buf *bytes.Buffer, in Input) error

// Render executes the wrapped function when non-nil.
func (fn CapabilityFunc) Render(ctx context.Context, buf *bytes.Buffer, in Input) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, buf, in)
}

// Placeholder is the inert capability used for unregistered types and for
// nodes whose capability failed. It renders an empty marker element and never
// dispatches.
var Placeholder Capability = placeholder{}

type placeholder struct{}

func (placeholder) Render(_ context.Context, buf *bytes.Buffer, in Input) error {
	fmt.Fprintf(buf, `<div data-cp-node="%s" data-cp-placeholder="%s"></div>`,
		html.EscapeString(in.NodeID), html.EscapeString(in.Type))
	return nil
}

// IsPlaceholder reports whether capability is the built-in placeholder.
func IsPlaceholder(capability Capability) bool {
	_, ok := capability.(placeholder)
	return ok
}
