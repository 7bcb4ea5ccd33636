package coordinator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/store"
)

var (
	// ErrClosed is returned by fetches issued after Close.
	ErrClosed = errors.New("coordinator: closed")
	// ErrTransport wraps every error returned by the document source.
	ErrTransport = errors.New("coordinator: transport failed")
	// ErrNoSource is returned when the coordinator was built without a source.
	ErrNoSource = errors.New("coordinator: source not configured")
)

// Request describes one fetch. The zero value performs a plain reload.
type Request struct {
	Event  *protocol.Event
	Batch  []protocol.Event
	Params map[string]any
	Query  map[string]any
	Target string
	// Partial forces the response to be merged even when its mode says full.
	Partial bool
}

// Result reports what happened to a fetch.
type Result struct {
	Generation uint64
	RequestID  string
	// Stale is set when a newer fetch was issued before this one returned.
	// Stale results never reach the store.
	Stale bool
	// Applied is set when the response was installed in the store.
	Applied bool
	// Skipped is set by Watch when no watched key changed.
	Skipped bool
	Change  store.Change
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	source protocol.Source
	store  *store.Store
	logger zerolog.Logger

	newRequestID func() string
	abortStale   bool

	mu              sync.Mutex
	identity        protocol.Identity
	forceUpdateKeys []string
	generation      uint64
	cancelInFlight  context.CancelFunc
	closed          bool
}

// New builds a coordinator that fetches from source and applies into st.
func New(source protocol.Source, st *store.Store, options ...Option) *Coordinator {
	c := &Coordinator{
		source:       source,
		store:        st,
		logger:       zerolog.Nop(),
		newRequestID: func() string { return ulid.Make().String() },
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.store == nil {
		c.store = store.New()
	}
	return c
}

// Store exposes the store the coordinator applies into.
func (c *Coordinator) Store() *store.Store {
	return c.store
}

// Generation returns the generation of the most recently issued fetch.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Identity returns a copy of the current scenario identity.
func (c *Coordinator) Identity() protocol.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.Identity{
		ScenarioKey:  c.identity.ScenarioKey,
		ScenarioType: c.identity.ScenarioType,
		InParams:     protocol.CloneMap(c.identity.InParams),
	}
}

// SetForceUpdateKeys replaces the inParams keys watched by Watch.
func (c *Coordinator) SetForceUpdateKeys(keys []string) {
	c.mu.Lock()
	c.forceUpdateKeys = append([]string(nil), keys...)
	c.mu.Unlock()
}

// Fetch issues a request and applies the response if it is still current.
// Transport failures wrap ErrTransport; a response the store rejects wraps
// protocol.ErrMalformedDocument. Neither touches the store.
func (c *Coordinator) Fetch(ctx context.Context, req Request) (Result, error) {
	if c.source == nil {
		return Result{}, ErrNoSource
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{}, ErrClosed
	}
	c.generation++
	gen := c.generation

	fetchCtx := ctx
	var cancel context.CancelFunc
	if c.abortStale {
		if c.cancelInFlight != nil {
			c.cancelInFlight()
		}
		fetchCtx, cancel = context.WithCancel(ctx)
		c.cancelInFlight = cancel
	}

	fetchReq := c.buildRequest(req)
	c.mu.Unlock()

	if cancel != nil {
		defer cancel()
	}

	logger := c.logger.With().
		Str("request_id", fetchReq.RequestID).
		Uint64("generation", gen).
		Str("scenario", fetchReq.ScenarioKey).
		Logger()
	result := Result{Generation: gen, RequestID: fetchReq.RequestID}

	doc, fetchErr := c.source.Fetch(fetchCtx, fetchReq)

	result, notify, err := c.settle(logger, gen, result, fetchReq.RequestID, doc, fetchErr, req.Partial)
	if notify != nil {
		notify()
	}
	return result, err
}

// settle compares gen and applies doc under the lock. Listener delivery is
// handed back so it runs after the lock is released.
func (c *Coordinator) settle(logger zerolog.Logger, gen uint64, result Result, requestID string, doc *protocol.Document, fetchErr error, partial bool) (Result, store.Notify, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		logger.Debug().Uint64("current", c.generation).Msg("discarding stale response")
		result.Stale = true
		return result, nil, nil
	}
	if c.abortStale {
		c.cancelInFlight = nil
	}

	if fetchErr != nil {
		logger.Warn().Err(fetchErr).Msg("fetch failed")
		return result, nil, fmt.Errorf("coordinator: request %s: %w: %w", requestID, ErrTransport, fetchErr)
	}

	change, notify, err := c.store.ApplyDocumentDeferred(doc, store.ApplyOptions{Partial: partial})
	if err != nil {
		logger.Warn().Err(err).Msg("response rejected")
		return result, nil, fmt.Errorf("coordinator: request %s: %w", requestID, err)
	}

	logger.Debug().Int("changed_nodes", len(change.Nodes)).Msg("response applied")
	result.Applied = true
	result.Change = change
	return result, notify, nil
}

// Reload refetches the document for the current identity.
func (c *Coordinator) Reload(ctx context.Context) (Result, error) {
	return c.Fetch(ctx, Request{})
}

// Watch records new inParams and refetches when any force-update key changed
// value. With no force-update keys configured it never refetches.
func (c *Coordinator) Watch(ctx context.Context, inParams map[string]any) (Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{}, ErrClosed
	}
	previous := c.identity.InParams
	c.identity.InParams = protocol.CloneMap(inParams)
	changed := watchedKeysChanged(c.forceUpdateKeys, previous, inParams)
	gen := c.generation
	c.mu.Unlock()

	if !changed {
		return Result{Generation: gen, Skipped: true}, nil
	}
	return c.Fetch(ctx, Request{})
}

// Close abandons in-flight fetches and refuses new ones. It is safe to call
// more than once.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
}

// buildRequest must be called with the lock held.
func (c *Coordinator) buildRequest(req Request) protocol.FetchRequest {
	out := protocol.FetchRequest{
		RequestID:    c.newRequestID(),
		ScenarioKey:  c.identity.ScenarioKey,
		ScenarioType: c.identity.ScenarioType,
		InParams:     protocol.CloneMap(c.identity.InParams),
		Params:       protocol.CloneMap(req.Params),
		Query:        protocol.CloneMap(req.Query),
		Target:       req.Target,
	}
	if len(req.Batch) > 0 {
		out.Batch = make([]protocol.Event, len(req.Batch))
		for i, ev := range req.Batch {
			out.Batch[i] = cloneEvent(ev)
		}
		first := out.Batch[0]
		out.Event = &first
	} else if req.Event != nil {
		ev := cloneEvent(*req.Event)
		out.Event = &ev
	}
	return out
}

func cloneEvent(ev protocol.Event) protocol.Event {
	ev.ClientPayload = protocol.CloneMap(ev.ClientPayload)
	return ev
}

func watchedKeysChanged(keys []string, previous, next map[string]any) bool {
	for _, key := range keys {
		before, hadBefore := previous[key]
		after, hasAfter := next[key]
		if hadBefore != hasAfter || !reflect.DeepEqual(before, after) {
			return true
		}
	}
	return false
}
