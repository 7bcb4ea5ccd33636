// Package pongo implements template.Renderer on top of a pongo2 template set.
package pongo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-configpage/pkg/render/template"
)

const defaultExtension = ".tmpl"

// Option configures an Engine.
type Option func(*Engine)

// WithFS sets the filesystem templates are loaded from.
func WithFS(files fs.FS) Option {
	return func(e *Engine) { e.files = files }
}

// WithExtension changes the suffix appended to template names.
func WithExtension(ext string) Option {
	return func(e *Engine) {
		ext = strings.TrimSpace(ext)
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" {
			e.ext = ext
		}
	}
}

// WithGlobalData exposes values to every template.
func WithGlobalData(data map[string]any) Option {
	return func(e *Engine) {
		for key, value := range data {
			e.globals[key] = value
		}
	}
}

// WithFilters registers filters when the engine is built.
func WithFilters(filters map[string]template.FilterFunc) Option {
	return func(e *Engine) {
		for name, fn := range filters {
			e.filters[name] = fn
		}
	}
}

// Engine renders templates from an fs.FS. Compiled templates are cached by
// the underlying set.
type Engine struct {
	files   fs.FS
	ext     string
	globals pongo2.Context
	filters map[string]template.FilterFunc
	set     *pongo2.TemplateSet
}

var _ template.Renderer = (*Engine)(nil)

// New builds an Engine. WithFS is required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		ext:     defaultExtension,
		globals: pongo2.Context{},
		filters: map[string]template.FilterFunc{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.files == nil {
		return nil, errors.New("pongo: templates filesystem required")
	}

	e.set = pongo2.NewSet("configpage", pongo2.NewFSLoader(e.files))
	e.set.Globals.Update(e.globals)

	for name, fn := range e.filters {
		if err := e.RegisterFilter(name, fn); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// RegisterFilter adds a filter. Filters are process wide in pongo2, so a
// name can only be registered once.
func (e *Engine) RegisterFilter(name string, fn template.FilterFunc) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("pongo: filter needs a name and a function")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("pongo: filter %q already registered", name)
	}
	return pongo2.RegisterFilter(name, func(in, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		out, err := fn(in.Interface(), param.Interface())
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(out), nil
	})
}

// RenderTemplate renders name plus the configured extension.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	path := name
	if !strings.HasSuffix(path, e.ext) {
		path += e.ext
	}
	tpl, err := e.set.FromCache(path)
	if err != nil {
		return "", fmt.Errorf("pongo: load %s: %w", path, err)
	}
	return execute(tpl, data, out)
}

// RenderString compiles and renders src without caching it.
func (e *Engine) RenderString(src string, data any, out ...io.Writer) (string, error) {
	tpl, err := e.set.FromString(src)
	if err != nil {
		return "", fmt.Errorf("pongo: compile: %w", err)
	}
	return execute(tpl, data, out)
}

func execute(tpl *pongo2.Template, data any, out []io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(ctx, &buf); err != nil {
		return "", fmt.Errorf("pongo: execute: %w", err)
	}
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// toContext passes maps through and flattens anything else via its JSON
// form so struct tags name the template variables.
func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case map[string]any:
		return pongo2.Context(v), nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("pongo: context: %w", err)
	}
	ctx := pongo2.Context{}
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return nil, fmt.Errorf("pongo: context must be an object, got %T", data)
	}
	return ctx, nil
}
