package pagehost

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/goliatone/go-configpage/pkg/engine"
	"github.com/goliatone/go-configpage/pkg/renderers/html"
)

// Mux is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// MountPath reports where RegisterRoutes would mount the page under basePath.
func MountPath(basePath string, fns ...OptionFn) string {
	return mountPath(basePath, NewOptions(fns...).RoutePath)
}

// RegisterRoutes mounts the scenario page on mux and returns the pattern used.
func RegisterRoutes(mux Mux, basePath string, inst *engine.Instance, renderer *html.Renderer, fns ...OptionFn) (string, error) {
	switch {
	case mux == nil:
		return "", errors.New("pagehost: missing mux")
	case inst == nil:
		return "", errors.New("pagehost: missing instance")
	case renderer == nil:
		return "", errors.New("pagehost: missing renderer")
	}
	opts := NewOptions(fns...)
	pattern := mountPath(basePath, opts.RoutePath)
	mux.Handle(pattern, HandlerWithOptions(inst, renderer, opts))
	return pattern, nil
}

// mountPath keeps a trailing slash on routePath so ServeMux treats it as a
// subtree.
func mountPath(basePath, routePath string) string {
	routePath = strings.TrimSpace(routePath)
	joined := path.Join("/", strings.TrimSpace(basePath), routePath)
	if strings.HasSuffix(routePath, "/") && joined != "/" {
		joined += "/"
	}
	return joined
}
