package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goliatone/go-configpage/pkg/hierarchy"
	"github.com/goliatone/go-configpage/pkg/merge"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/render"
)

// RenderOptions tunes one render pass.
type RenderOptions struct {
	// CustomProps replaces the host's call-site overrides for this pass
	// when non-nil.
	CustomProps merge.Overrides
}

// Render renders the current document. A capability that fails or panics is
// logged and replaced by a placeholder; the rest of the tree still renders.
func (i *Instance) Render(ctx context.Context, opts RenderOptions) (string, error) {
	tree, err := i.Tree()
	if err != nil {
		return "", err
	}

	callSite := i.customProps
	if opts.CustomProps != nil {
		callSite = opts.CustomProps
	}
	pass := renderPass{
		instance: i,
		layers:   merge.Layers{Scenario: i.scenario, CallSite: callSite},
	}

	var buf bytes.Buffer
	pass.node(ctx, &buf, tree.Root)
	return buf.String(), nil
}

type renderPass struct {
	instance *Instance
	layers   merge.Layers
}

func (p renderPass) node(ctx context.Context, buf *bytes.Buffer, node *hierarchy.Node) {
	if node == nil {
		return
	}
	in := p.input(node)
	capability := p.instance.engine.registry.Resolve(node.Spec.Type)

	var out bytes.Buffer
	if err := safeRender(ctx, capability, &out, in); err != nil {
		p.instance.logger.Warn().
			Err(err).
			Str("node", node.ID).
			Str("type", node.Spec.Type).
			Msg("capability failed; rendering placeholder")
		_ = render.Placeholder.Render(ctx, buf, in)
		return
	}
	buf.Write(out.Bytes())
}

func (p renderPass) input(node *hierarchy.Node) render.Input {
	spec := node.Spec
	id := node.ID
	inst := p.instance

	return render.Input{
		NodeID:     id,
		Type:       spec.Type,
		Props:      merge.Resolve(id, "", spec.Props, p.layers),
		Data:       protocol.CloneMap(spec.Data),
		State:      protocol.CloneMap(spec.State),
		Operations: spec.Operations,
		Dispatch: func(ctx context.Context, operationKey string, payload map[string]any) error {
			_, err := inst.Dispatch(ctx, id, operationKey, payload)
			return err
		},
		ItemProps: func(itemKey string) map[string]any {
			return merge.Resolve(id, itemKey, spec.Props, p.layers)
		},
		RenderChildren: func(ctx context.Context) (string, error) {
			var children bytes.Buffer
			for _, child := range node.Children {
				p.node(ctx, &children, child)
			}
			return children.String(), nil
		},
	}
}

func safeRender(ctx context.Context, capability render.Capability, buf *bytes.Buffer, in render.Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: capability panic: %v", r)
		}
	}()
	return capability.Render(ctx, buf, in)
}
