package pagehost

import (
	"net/http"

	"github.com/goliatone/go-configpage/pkg/renderers/html"
)

const (
	defaultRoutePath    = "/scenario"
	defaultReloadParam  = "reload"
	defaultMaxBodyBytes = 1 << 20
)

// GuardFunc rejects requests before they reach the instance. Returning an
// HTTPError selects the response status.
type GuardFunc func(r *http.Request) error

// Options configures the page handler. Zero fields fall back to defaults.
type Options struct {
	RoutePath    string
	ReloadParam  string
	MaxBodyBytes int64
	Guard        GuardFunc
	PageOptions  []html.PageOption
}

type OptionFn func(*Options)

// DefaultOptions mounts at /scenario with a 1 MiB body limit.
func DefaultOptions() Options {
	return Options{
		RoutePath:    defaultRoutePath,
		ReloadParam:  defaultReloadParam,
		MaxBodyBytes: defaultMaxBodyBytes,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = defaultRoutePath
	}
	if opts.ReloadParam == "" {
		opts.ReloadParam = defaultReloadParam
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.PageOptions != nil {
		opts.PageOptions = append([]html.PageOption{}, opts.PageOptions...)
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		o.RoutePath = path
	}
}

func WithReloadParam(name string) OptionFn {
	return func(o *Options) {
		o.ReloadParam = name
	}
}

func WithMaxBodyBytes(limit int64) OptionFn {
	return func(o *Options) {
		o.MaxBodyBytes = limit
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		o.Guard = guard
	}
}

// WithPageOptions configures the page wrapper (title, theme) used by GET.
func WithPageOptions(options ...html.PageOption) OptionFn {
	return func(o *Options) {
		o.PageOptions = append(o.PageOptions, options...)
	}
}
