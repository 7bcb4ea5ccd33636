package html

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// StylesheetAsset is the theme asset key linked from the page head.
const StylesheetAsset = "stylesheet"

// PageOption customises a Page.
type PageOption func(*Page)

// WithTitle sets the document title.
func WithTitle(title string) PageOption {
	return func(p *Page) {
		p.title = title
	}
}

// WithLang sets the html lang attribute.
func WithLang(lang string) PageOption {
	return func(p *Page) {
		if strings.TrimSpace(lang) != "" {
			p.lang = lang
		}
	}
}

// WithThemeSelector resolves the theme through a go-theme selector on every
// Wrap call.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) PageOption {
	return func(p *Page) {
		p.selector = selector
		p.themeName = name
		p.variant = variant
	}
}

// WithThemeConfig uses an already resolved renderer configuration.
func WithThemeConfig(cfg *theme.RendererConfig) PageOption {
	return func(p *Page) {
		p.config = cfg
	}
}

// Page wraps rendered scenario markup in a full HTML document, exposing
// theme tokens as CSS custom properties.
type Page struct {
	renderer  *Renderer
	title     string
	lang      string
	selector  theme.ThemeSelector
	themeName string
	variant   string
	config    *theme.RendererConfig
}

// Page builds a page wrapper that renders through r.
func (r *Renderer) Page(options ...PageOption) *Page {
	p := &Page{renderer: r, lang: "en"}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p
}

// Wrap renders body inside the page template.
func (p *Page) Wrap(body string) (string, error) {
	cfg := p.config
	if p.selector != nil {
		selection, err := p.selector.Select(p.themeName, p.variant)
		if err != nil {
			return "", fmt.Errorf("html: select theme %q: %w", p.themeName, err)
		}
		cfg = ThemeConfig(selection)
	}

	data := map[string]any{
		"title": p.title,
		"lang":  p.lang,
		"body":  body,
	}
	if cfg != nil {
		data["theme_name"] = cfg.Theme
		data["theme_variant"] = cfg.Variant
		data["css_vars"] = cssVarsStyle(cfg.CSSVars)
		if cfg.AssetURL != nil {
			data["stylesheet"] = cfg.AssetURL(StylesheetAsset)
		}
	}

	var buf bytes.Buffer
	if err := p.renderer.execute(&buf, "page", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ThemeConfig flattens a theme selection: variant tokens, templates and
// asset files override the base manifest, and every token becomes a
// "--<token>" CSS variable.
func ThemeConfig(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil || selection.Manifest == nil {
		return nil
	}
	manifest := selection.Manifest
	variant := manifest.Variants[selection.Variant]

	tokens := mergeStrings(manifest.Tokens, variant.Tokens)
	files := mergeStrings(manifest.Assets.Files, variant.Assets.Files)
	prefix := manifest.Assets.Prefix
	if variant.Assets.Prefix != "" {
		prefix = variant.Assets.Prefix
	}

	cssVars := make(map[string]string, len(tokens))
	for key, value := range tokens {
		cssVars["--"+strings.TrimPrefix(key, "--")] = value
	}

	name := selection.Theme
	if name == "" {
		name = manifest.Name
	}

	return &theme.RendererConfig{
		Theme:    name,
		Variant:  selection.Variant,
		Partials: mergeStrings(manifest.Templates, variant.Templates),
		Tokens:   tokens,
		CSSVars:  cssVars,
		AssetURL: func(key string) string {
			file, ok := files[key]
			if !ok || file == "" {
				return ""
			}
			if prefix == "" || strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
				return file
			}
			return strings.TrimSuffix(prefix, "/") + "/" + file
		},
	}
}

func mergeStrings(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range overlay {
		out[key] = value
	}
	return out
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+vars[key]+";")
	}
	return strings.Join(parts, " ")
}
