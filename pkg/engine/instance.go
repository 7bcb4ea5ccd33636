package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/coordinator"
	"github.com/goliatone/go-configpage/pkg/dispatch"
	"github.com/goliatone/go-configpage/pkg/hierarchy"
	"github.com/goliatone/go-configpage/pkg/merge"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/store"
)

// Instance is one mounted scenario. It exclusively owns its store; nothing
// is shared with other instances except the engine wiring.
type Instance struct {
	ID string

	engine      *Engine
	logger      zerolog.Logger
	store       *store.Store
	coordinator *coordinator.Coordinator
	dispatcher  *dispatch.Dispatcher
	resolver    *hierarchy.Resolver
	scenario    merge.Overrides
	customProps merge.Overrides
	onError     func(error)
	unsubscribe func()

	mu        sync.Mutex
	unmounted bool
}

// Identity returns the scenario identity, including the latest inParams.
func (i *Instance) Identity() protocol.Identity {
	return i.coordinator.Identity()
}

// Document returns the current document snapshot. Treat it as read-only.
func (i *Instance) Document() *protocol.Document {
	return i.store.Document()
}

// Generation returns the generation of the latest fetch.
func (i *Instance) Generation() uint64 {
	return i.coordinator.Generation()
}

// Tree resolves the current document. Missing and truncated ids are logged.
func (i *Instance) Tree() (hierarchy.Result, error) {
	if i.isUnmounted() {
		return hierarchy.Result{}, ErrUnmounted
	}
	result, err := i.resolver.ResolveDocument(i.store.Document())
	if err != nil {
		return hierarchy.Result{}, err
	}
	if len(result.Missing) > 0 {
		i.logger.Warn().Strs("ids", result.Missing).Msg("hierarchy references missing components")
	}
	if len(result.Truncated) > 0 {
		i.logger.Warn().Strs("ids", result.Truncated).Msg("hierarchy cycle truncated")
	}
	return result, nil
}

// Dispatch runs an operation on a node. Operation failures are also passed
// to HostConfig.OnError.
func (i *Instance) Dispatch(ctx context.Context, nodeID, operationKey string, extra map[string]any) (dispatch.Result, error) {
	if i.isUnmounted() {
		return dispatch.Result{}, ErrUnmounted
	}
	res, err := i.dispatcher.Dispatch(ctx, nodeID, operationKey, extra)
	i.report(err)
	return res, err
}

// DispatchBatch runs several operations as one interaction.
func (i *Instance) DispatchBatch(ctx context.Context, calls []dispatch.Call) ([]dispatch.Result, error) {
	if i.isUnmounted() {
		return nil, ErrUnmounted
	}
	res, err := i.dispatcher.DispatchBatch(ctx, calls)
	i.report(err)
	return res, err
}

// UpdateInParams records new external parameters and refetches when a
// force-update key changed.
func (i *Instance) UpdateInParams(ctx context.Context, inParams map[string]any) (coordinator.Result, error) {
	if i.isUnmounted() {
		return coordinator.Result{}, ErrUnmounted
	}
	res, err := i.coordinator.Watch(ctx, inParams)
	i.report(err)
	return res, err
}

// Reload refetches the whole document.
func (i *Instance) Reload(ctx context.Context) (coordinator.Result, error) {
	if i.isUnmounted() {
		return coordinator.Result{}, ErrUnmounted
	}
	res, err := i.coordinator.Reload(ctx)
	i.report(err)
	return res, err
}

// Unmount abandons in-flight fetches and clears the store. It is safe to
// call more than once.
func (i *Instance) Unmount() {
	i.mu.Lock()
	if i.unmounted {
		i.mu.Unlock()
		return
	}
	i.unmounted = true
	i.mu.Unlock()

	if i.unsubscribe != nil {
		i.unsubscribe()
	}
	i.coordinator.Close()
	i.store.Clear()
	i.resolver.Reset()
	i.logger.Debug().Msg("scenario unmounted")
}

func (i *Instance) isUnmounted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unmounted
}

// report forwards transport and operation failures to the host. Malformed
// documents and unknown targets are structural and only logged.
func (i *Instance) report(err error) {
	if err == nil {
		return
	}
	if isStructural(err) {
		i.logger.Warn().Err(err).Msg("structural error")
		return
	}
	i.logger.Error().Err(err).Msg("operation failed")
	if i.onError != nil {
		i.onError(err)
	}
}

func isStructural(err error) bool {
	return errors.Is(err, protocol.ErrMalformedDocument) ||
		errors.Is(err, dispatch.ErrUnknownNode) ||
		errors.Is(err, dispatch.ErrUnknownOperation) ||
		errors.Is(err, coordinator.ErrClosed)
}
