package coordinator

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for stale and rejected responses.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithAbortStale cancels the context of an in-flight fetch as soon as a newer
// fetch is issued. Without it superseded requests run to completion and their
// results are discarded.
func WithAbortStale(enabled bool) Option {
	return func(c *Coordinator) {
		c.abortStale = enabled
	}
}

// WithIdentity sets the scenario identity sent with every request.
func WithIdentity(identity protocol.Identity) Option {
	return func(c *Coordinator) {
		c.identity = protocol.Identity{
			ScenarioKey:  identity.ScenarioKey,
			ScenarioType: identity.ScenarioType,
			InParams:     protocol.CloneMap(identity.InParams),
		}
	}
}

// WithForceUpdateKeys sets the inParams keys whose change triggers a refetch
// from Watch.
func WithForceUpdateKeys(keys ...string) Option {
	return func(c *Coordinator) {
		c.forceUpdateKeys = append([]string(nil), keys...)
	}
}

// WithRequestID replaces the request id generator.
func WithRequestID(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}
