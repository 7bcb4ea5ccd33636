package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-configpage/pkg/renderers/html"
)

// Source kinds accepted in [source].kind.
const (
	sourceFS     = "fs"
	sourceRemote = "remote"
	sourceMock   = "mock"
)

// Config is the TOML file read by -config.
type Config struct {
	Scenario  ScenarioConfig  `toml:"scenario"`
	Source    SourceConfig    `toml:"source"`
	Cache     CacheConfig     `toml:"cache"`
	Overrides OverridesConfig `toml:"overrides"`
	Theme     ThemeConfig     `toml:"theme"`
	Log       LogConfig       `toml:"log"`
}

type ScenarioConfig struct {
	Key             string         `toml:"key"`
	Type            string         `toml:"type"`
	InParams        map[string]any `toml:"in_params"`
	ForceUpdateKeys []string       `toml:"force_update_keys"`
	AbortStale      bool           `toml:"abort_stale"`
}

type SourceConfig struct {
	Kind     string            `toml:"kind"`
	Dir      string            `toml:"dir"`
	Endpoint string            `toml:"endpoint"`
	Timeout  duration          `toml:"timeout"`
	Headers  map[string]string `toml:"headers"`
	// MockFile is decoded once and served for every request when Kind is
	// "mock".
	MockFile string `toml:"mock_file"`
}

type CacheConfig struct {
	RedisURL string   `toml:"redis_url"`
	TTL      duration `toml:"ttl"`
	Prefix   string   `toml:"prefix"`
}

type OverridesConfig struct {
	Dir string `toml:"dir"`
}

type ThemeConfig struct {
	Name        string                       `toml:"name"`
	Variant     string                       `toml:"variant"`
	AssetPrefix string                       `toml:"asset_prefix"`
	Stylesheet  string                       `toml:"stylesheet"`
	Tokens      map[string]string            `toml:"tokens"`
	Variants    map[string]map[string]string `toml:"variants"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
}

// duration decodes TOML strings such as "15s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func defaultConfig() Config {
	return Config{
		Source: SourceConfig{Kind: sourceFS, Dir: "."},
		Log:    LogConfig{Level: "info"},
	}
}

// loadConfig decodes path over the defaults. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("source", "kind") && cfg.Source.Endpoint != "" {
		cfg.Source.Kind = sourceRemote
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Source.Kind {
	case sourceFS:
	case sourceRemote:
		if strings.TrimSpace(c.Source.Endpoint) == "" {
			return fmt.Errorf("config: source.endpoint is required for kind %q", sourceRemote)
		}
	case sourceMock:
		if strings.TrimSpace(c.Source.MockFile) == "" {
			return fmt.Errorf("config: source.mock_file is required for kind %q", sourceMock)
		}
	default:
		return fmt.Errorf("config: unknown source.kind %q", c.Source.Kind)
	}
	if c.Theme.Variant != "" && c.Theme.Name == "" {
		return fmt.Errorf("config: theme.variant requires theme.name")
	}
	return nil
}

// manifest converts the [theme] table into a go-theme manifest. It returns
// nil when no theme is configured.
func (t ThemeConfig) manifest() *theme.Manifest {
	if strings.TrimSpace(t.Name) == "" {
		return nil
	}
	m := &theme.Manifest{
		Name:   t.Name,
		Tokens: t.Tokens,
		Assets: theme.Assets{
			Prefix: t.AssetPrefix,
			Files:  map[string]string{},
		},
		Variants: make(map[string]theme.Variant, len(t.Variants)),
	}
	if t.Stylesheet != "" {
		m.Assets.Files[html.StylesheetAsset] = t.Stylesheet
	}
	for name, tokens := range t.Variants {
		m.Variants[name] = theme.Variant{Tokens: tokens}
	}
	return m
}

// manifestSelector serves a single configured manifest.
type manifestSelector struct {
	manifest *theme.Manifest
}

func (s manifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name != "" && name != s.manifest.Name {
		return nil, fmt.Errorf("theme %q not configured", name)
	}
	if variant != "" {
		if _, ok := s.manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("theme %q has no variant %q", s.manifest.Name, variant)
		}
	}
	return &theme.Selection{Theme: s.manifest.Name, Variant: variant, Manifest: s.manifest}, nil
}
