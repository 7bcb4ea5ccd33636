package engine

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/dispatch"
	"github.com/goliatone/go-configpage/pkg/overrides"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/render"
)

// Option customises the engine configuration.
type Option func(*Engine)

// WithRegistry injects the capability registry.
func WithRegistry(registry *render.Registry) Option {
	return func(e *Engine) {
		e.registry = registry
	}
}

// WithSource sets the document source used by instances that are not in mock
// mode.
func WithSource(source protocol.Source) Option {
	return func(e *Engine) {
		e.source = source
	}
}

// WithOverrides supplies scenario-level prop overrides.
func WithOverrides(store *overrides.Store) Option {
	return func(e *Engine) {
		e.overrides = store
	}
}

// WithLogger sets the logger shared by every instance.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfirmer sets the handler for operations that require confirmation.
func WithConfirmer(confirmer dispatch.Confirmer) Option {
	return func(e *Engine) {
		e.confirmer = confirmer
	}
}

// WithNavigator sets the handler for jump-out operations.
func WithNavigator(navigator dispatch.Navigator) Option {
	return func(e *Engine) {
		e.navigator = navigator
	}
}

// WithAbortStale cancels superseded fetches instead of letting them finish.
func WithAbortStale(enabled bool) Option {
	return func(e *Engine) {
		e.abortStale = enabled
	}
}
