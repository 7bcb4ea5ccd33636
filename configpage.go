package configpage

import (
	"context"
	"fmt"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-configpage/pkg/engine"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/render"
	"github.com/goliatone/go-configpage/pkg/renderers/html"
)

// Document is the Protocol Document served by backends.
type Document = protocol.Document

// HostConfig configures one mounted scenario instance.
type HostConfig = engine.HostConfig

// RenderOptions carries per-render overrides such as call-site props.
type RenderOptions = engine.RenderOptions

// Instance is a mounted scenario.
type Instance = engine.Instance

// NewEngine exposes the engine constructor from the top-level module.
func NewEngine(options ...engine.Option) *engine.Engine {
	return engine.New(options...)
}

// NewHTMLEngine builds an engine whose registry carries the bundled HTML
// capabilities. Options may still replace the registry or add sources.
func NewHTMLEngine(options ...engine.Option) (*engine.Engine, *html.Renderer, error) {
	renderer, err := html.New()
	if err != nil {
		return nil, nil, err
	}
	reg := render.NewRegistry()
	if err := renderer.Register(reg); err != nil {
		return nil, nil, err
	}
	opts := append([]engine.Option{engine.WithRegistry(reg)}, options...)
	return engine.New(opts...), renderer, nil
}

// RenderPage mounts cfg, renders the tree once, and wraps it in a themed HTML
// page. The instance is unmounted before returning.
func RenderPage(ctx context.Context, cfg HostConfig, pageOptions []html.PageOption, options ...engine.Option) ([]byte, error) {
	eng, renderer, err := NewHTMLEngine(options...)
	if err != nil {
		return nil, err
	}
	inst, err := eng.Mount(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer inst.Unmount()

	body, err := inst.Render(ctx, RenderOptions{})
	if err != nil {
		return nil, fmt.Errorf("configpage: render %q: %w", cfg.ScenarioKey, err)
	}
	page, err := renderer.Page(pageOptions...).Wrap(body)
	if err != nil {
		return nil, err
	}
	return []byte(page), nil
}

// WithThemeSelector resolves the page theme through a go-theme selector.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) html.PageOption {
	return html.WithThemeSelector(selector, name, variant)
}
