package html

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strconv"

	"github.com/goliatone/go-configpage/pkg/render"
	"github.com/goliatone/go-configpage/pkg/render/template"
	"github.com/goliatone/go-configpage/pkg/render/template/pongo"
)

// Component type names registered by Register.
const (
	TypeContainer = "Container"
	TypeText      = "Text"
	TypeList      = "List"
	TypeActions   = "Actions"
)

// Option customises a Renderer.
type Option func(*Renderer)

// WithTemplatesFS replaces the bundled templates. The filesystem must
// provide container, text, list, actions and page templates.
func WithTemplatesFS(files fs.FS) Option {
	return func(r *Renderer) {
		r.templatesFS = files
	}
}

// WithTemplateRenderer injects a ready template engine, bypassing the
// bundled pongo2 engine.
func WithTemplateRenderer(engine template.Renderer) Option {
	return func(r *Renderer) {
		r.engine = engine
	}
}

// Renderer renders the built-in capabilities through a template engine.
type Renderer struct {
	engine      template.Renderer
	templatesFS fs.FS
}

// New constructs a Renderer using the bundled templates unless overridden.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.engine == nil {
		files := r.templatesFS
		if files == nil {
			files = TemplatesFS()
		}
		engine, err := pongo.New(pongo.WithFS(files))
		if err != nil {
			return nil, fmt.Errorf("html: template engine: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// Register adds the built-in capabilities to reg, replacing existing
// entries of the same type.
func (r *Renderer) Register(reg *render.Registry) error {
	for name, capability := range map[string]render.Capability{
		TypeContainer: render.CapabilityFunc(r.container),
		TypeText:      render.CapabilityFunc(r.text),
		TypeList:      render.CapabilityFunc(r.list),
		TypeActions:   render.CapabilityFunc(r.actions),
	} {
		if err := reg.Register(name, capability); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) container(ctx context.Context, buf *bytes.Buffer, in render.Input) error {
	children, err := in.Children(ctx)
	if err != nil {
		return err
	}
	return r.execute(buf, "container", map[string]any{
		"node":      in.NodeID,
		"title":     stringProp(in.Props, "title"),
		"css_class": stringProp(in.Props, "class"),
		"children":  children,
	})
}

func (r *Renderer) text(_ context.Context, buf *bytes.Buffer, in render.Input) error {
	text := stringProp(in.Props, "text")
	if v := stringProp(in.Data, "text"); v != "" {
		text = v
	}
	return r.execute(buf, "text", map[string]any{
		"node":   in.NodeID,
		"text":   text,
		"markup": sanitizeMarkup(stringProp(in.Props, "markup")),
		"tip":    stringProp(in.Props, "tip"),
	})
}

func (r *Renderer) list(_ context.Context, buf *bytes.Buffer, in render.Input) error {
	keyField := stringOr(in.Props, "keyField", "id")
	labelField := stringOr(in.Props, "labelField", "label")
	selected := fmt.Sprint(in.State["selected"])
	if in.State["selected"] == nil {
		selected = ""
	}

	raw, _ := in.Data["items"].([]any)
	items := make([]any, 0, len(raw))
	for idx, item := range raw {
		key, label := itemKeyAndLabel(item, idx, keyField, labelField)
		props := in.PropsForItem(key)
		items = append(items, map[string]any{
			"key":      key,
			"label":    label,
			"tone":     stringProp(props, "tone"),
			"selected": selected != "" && key == selected,
		})
	}

	return r.execute(buf, "list", map[string]any{
		"node":       in.NodeID,
		"items":      items,
		"empty_text": stringOr(in.Props, "emptyText", "No items"),
	})
}

func (r *Renderer) actions(_ context.Context, buf *bytes.Buffer, in render.Input) error {
	labels, _ := in.Props["labels"].(map[string]any)

	keys := make([]string, 0, len(in.Operations))
	for key := range in.Operations {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ops := make([]any, 0, len(keys))
	for _, key := range keys {
		op := in.Operations[key]
		label := stringProp(labels, key)
		if label == "" {
			label = key
		}
		tip := op.Tip
		if op.Disabled {
			tip = op.DisabledReason()
		}
		ops = append(ops, map[string]any{
			"key":      key,
			"label":    label,
			"reload":   op.Reload,
			"confirm":  op.Confirm,
			"tip":      tip,
			"disabled": op.Disabled,
		})
	}

	return r.execute(buf, "actions", map[string]any{
		"node":       in.NodeID,
		"operations": ops,
	})
}

func (r *Renderer) execute(buf *bytes.Buffer, name string, data map[string]any) error {
	_, err := r.engine.RenderTemplate(name, data, buf)
	return err
}

// itemKeyAndLabel uses scalar items as their own key. Map items use
// keyField, falling back to the item index.
func itemKeyAndLabel(item any, idx int, keyField, labelField string) (string, string) {
	fields, ok := item.(map[string]any)
	if !ok {
		label := fmt.Sprint(item)
		return label, label
	}
	key := strconv.Itoa(idx)
	if v, ok := fields[keyField]; ok && v != nil {
		key = fmt.Sprint(v)
	}
	label := key
	if v, ok := fields[labelField]; ok && v != nil {
		label = fmt.Sprint(v)
	}
	return key, label
}

func stringProp(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func stringOr(props map[string]any, key, fallback string) string {
	if v := stringProp(props, key); v != "" {
		return v
	}
	return fallback
}
