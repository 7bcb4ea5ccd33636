package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/coordinator"
	"github.com/goliatone/go-configpage/pkg/dispatch"
	"github.com/goliatone/go-configpage/pkg/hierarchy"
	"github.com/goliatone/go-configpage/pkg/merge"
	"github.com/goliatone/go-configpage/pkg/overrides"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/render"
	"github.com/goliatone/go-configpage/pkg/source/mock"
	"github.com/goliatone/go-configpage/pkg/store"
)

var (
	// ErrScenarioKeyRequired is returned by Mount when the host omits the
	// scenario key.
	ErrScenarioKeyRequired = errors.New("engine: scenario key is required")
	// ErrNoSource is returned by Mount when neither a source nor mock mode is
	// configured.
	ErrNoSource = errors.New("engine: document source not configured")
	// ErrUnmounted is returned by instance methods after Unmount.
	ErrUnmounted = errors.New("engine: instance unmounted")
)

// HostConfig is what a host page supplies when mounting a scenario.
type HostConfig struct {
	ScenarioKey  string
	ScenarioType string
	InParams     map[string]any

	// ForceUpdateKeys lists the InParams keys whose change triggers a
	// refetch from UpdateInParams.
	ForceUpdateKeys []string

	// CustomProps are call-site overrides applied on every render unless
	// RenderOptions supplies its own.
	CustomProps merge.Overrides

	// UseMock serves MockDocument (passed through MockEnhance) instead of
	// the engine source.
	UseMock      bool
	MockDocument *protocol.Document
	MockEnhance  mock.EnhanceFunc

	// OnError receives transport and operation failures. Structural
	// anomalies are logged only.
	OnError func(error)

	// OnChange runs after every store mutation, typically to schedule a
	// re-render. No engine lock is held while it runs, so it may call back
	// into the instance.
	OnChange func(store.Change)
}

// Engine is safe for concurrent use; each Mount returns an independent
// Instance.
type Engine struct {
	registry   *render.Registry
	source     protocol.Source
	overrides  *overrides.Store
	logger     zerolog.Logger
	confirmer  dispatch.Confirmer
	navigator  dispatch.Navigator
	abortStale bool
}

// New constructs an Engine applying any provided options.
func New(options ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	e.applyDefaults()
	return e
}

func (e *Engine) applyDefaults() {
	if e.registry == nil {
		e.registry = render.NewRegistry()
	}
}

// Registry exposes the capability registry so hosts can register widgets
// after construction.
func (e *Engine) Registry() *render.Registry {
	return e.registry
}

// Mount creates a scenario instance and loads its initial document. When the
// initial fetch fails the instance is discarded and the error returned.
func (e *Engine) Mount(ctx context.Context, cfg HostConfig) (*Instance, error) {
	key := strings.TrimSpace(cfg.ScenarioKey)
	if key == "" {
		return nil, ErrScenarioKeyRequired
	}

	source := e.source
	if cfg.UseMock {
		source = mock.New(cfg.MockDocument, cfg.MockEnhance)
	}
	if source == nil {
		return nil, ErrNoSource
	}

	id := uuid.NewString()
	logger := e.logger.With().
		Str("instance", id).
		Str("scenario", key).
		Logger()

	identity := protocol.Identity{
		ScenarioKey:  key,
		ScenarioType: cfg.ScenarioType,
		InParams:     cfg.InParams,
	}
	st := store.New()
	coord := coordinator.New(source, st,
		coordinator.WithIdentity(identity),
		coordinator.WithForceUpdateKeys(cfg.ForceUpdateKeys...),
		coordinator.WithAbortStale(e.abortStale),
		coordinator.WithLogger(logger),
	)
	disp := dispatch.New(st, coord,
		dispatch.WithConfirmer(e.confirmer),
		dispatch.WithNavigator(e.navigator),
		dispatch.WithLogger(logger),
	)

	inst := &Instance{
		ID:          id,
		engine:      e,
		logger:      logger,
		store:       st,
		coordinator: coord,
		dispatcher:  disp,
		resolver:    hierarchy.NewResolver(),
		scenario:    e.overrides.Scenario(key),
		customProps: cfg.CustomProps.Clone(),
		onError:     cfg.OnError,
	}
	if cfg.OnChange != nil {
		inst.unsubscribe = st.Subscribe(cfg.OnChange)
	}

	if _, err := coord.Reload(ctx); err != nil {
		inst.Unmount()
		return nil, fmt.Errorf("engine: mount %q: %w", key, err)
	}
	logger.Debug().Msg("scenario mounted")
	return inst, nil
}
