package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-configpage/pkg/coordinator"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/store"
)

var (
	// ErrUnknownNode is returned when the node is absent from the current
	// document.
	ErrUnknownNode = errors.New("dispatch: unknown node")
	// ErrUnknownOperation is returned when the node has no such operation.
	ErrUnknownOperation = errors.New("dispatch: unknown operation")
	// ErrOperationFailed wraps remote and navigation failures.
	ErrOperationFailed = errors.New("dispatch: operation failed")
)

// Outcome names where the state machine stopped.
type Outcome string

const (
	OutcomeDisabled  Outcome = "disabled"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeNavigated Outcome = "navigated"
	OutcomeLocal     Outcome = "local"
	OutcomeRemote    Outcome = "remote"
	// OutcomeStale means a newer fetch superseded this one; its response was
	// dropped.
	OutcomeStale Outcome = "stale"
	// OutcomeRejected means the response was malformed and the previous
	// document was kept.
	OutcomeRejected Outcome = "rejected"
)

// Result reports one dispatch.
type Result struct {
	NodeID       string
	OperationKey string
	Outcome      Outcome
	// Tip is the disabled reason for OutcomeDisabled.
	Tip        string
	Generation uint64
	RequestID  string
	// Navigated is set when a reload operation with jumpOut navigated after
	// its response was applied.
	Navigated bool
	Change    store.Change
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithConfirmer sets the confirmation handler.
func WithConfirmer(confirmer Confirmer) Option {
	return func(d *Dispatcher) {
		d.confirmer = confirmer
	}
}

// WithNavigator sets the navigation handler.
func WithNavigator(navigator Navigator) Option {
	return func(d *Dispatcher) {
		d.navigator = navigator
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher executes operations against one scenario instance.
type Dispatcher struct {
	store     *store.Store
	fetcher   Fetcher
	confirmer Confirmer
	navigator Navigator
	logger    zerolog.Logger
}

// New builds a dispatcher. Without a Confirmer every confirmation is
// declined; without a Navigator navigations are only logged.
func New(st *store.Store, fetcher Fetcher, options ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   st,
		fetcher: fetcher,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	d.applyDefaults()
	return d
}

func (d *Dispatcher) applyDefaults() {
	if d.confirmer == nil {
		d.confirmer = rejectConfirmer{logger: d.logger}
	}
	if d.navigator == nil {
		d.navigator = logNavigator{logger: d.logger}
	}
}

// Dispatch runs operationKey on nodeID. extra is merged over the operation's
// clientData payload.
func (d *Dispatcher) Dispatch(ctx context.Context, nodeID, operationKey string, extra map[string]any) (Result, error) {
	p, err := d.prepare(ctx, Call{NodeID: nodeID, OperationKey: operationKey, Extra: extra})
	if err != nil {
		return p.result, err
	}
	if p.done() {
		return p.result, nil
	}

	switch {
	case p.op.NavigateOnly():
		if err = d.navigate(ctx, p); err == nil {
			p.result.Outcome = OutcomeNavigated
		}
	case !p.op.Reload:
		err = d.applyLocal(p)
	default:
		if p.op.SkipRender {
			if err := d.applyLocal(p); err != nil {
				return p.result, err
			}
		}
		err = d.remote(ctx, []*pending{p}, p.request())
		if err == nil && p.result.Outcome == OutcomeRemote && p.jumpOut() {
			if err = d.navigate(ctx, p); err == nil {
				p.result.Navigated = true
			}
		}
	}
	return p.result, err
}

// pending tracks one call between the gate and its effect.
type pending struct {
	call    Call
	op      protocol.Operation
	payload map[string]any
	result  Result
}

func (p *pending) done() bool {
	return p.result.Outcome == OutcomeDisabled || p.result.Outcome == OutcomeCancelled
}

func (p *pending) jumpOut() bool {
	return p.op.ServerData != nil && p.op.ServerData.JumpOut
}

func (p *pending) event() protocol.Event {
	return protocol.Event{
		NodeID:        p.call.NodeID,
		OperationKey:  p.call.OperationKey,
		ClientPayload: p.payload,
	}
}

func (p *pending) request() coordinator.Request {
	ev := p.event()
	req := coordinator.Request{Event: &ev}
	if sd := p.op.ServerData; sd != nil {
		req.Params = sd.Params
		req.Query = sd.Query
		req.Target = sd.Target
	}
	return req
}

// prepare resolves the operation, applies the gate, and asks for
// confirmation.
func (d *Dispatcher) prepare(ctx context.Context, call Call) (*pending, error) {
	p := &pending{
		call:   call,
		result: Result{NodeID: call.NodeID, OperationKey: call.OperationKey},
	}

	spec := d.store.Document().Component(call.NodeID)
	if spec == nil {
		return p, fmt.Errorf("dispatch: %q: %w", call.NodeID, ErrUnknownNode)
	}
	op, ok := spec.Operation(call.OperationKey)
	if !ok {
		return p, fmt.Errorf("dispatch: %s.%s: %w", call.NodeID, call.OperationKey, ErrUnknownOperation)
	}
	p.op = op
	p.payload = op.ClientPayload(call.Extra)

	logger := d.logger.With().Str("node", call.NodeID).Str("operation", call.OperationKey).Logger()

	if op.Disabled {
		p.result.Outcome = OutcomeDisabled
		p.result.Tip = op.DisabledReason()
		logger.Debug().Str("tip", p.result.Tip).Msg("operation disabled")
		return p, nil
	}

	if op.NeedsConfirmation() {
		confirmed, err := d.confirmer.Confirm(ctx, Prompt{
			NodeID:       call.NodeID,
			OperationKey: call.OperationKey,
			Message:      op.Confirm,
		})
		if err != nil {
			return p, fmt.Errorf("dispatch: %s.%s: confirm: %w", call.NodeID, call.OperationKey, err)
		}
		if !confirmed {
			p.result.Outcome = OutcomeCancelled
			logger.Debug().Msg("operation cancelled at confirmation")
			return p, nil
		}
	}
	return p, nil
}

func (d *Dispatcher) applyLocal(p *pending) error {
	if !p.op.Reload {
		p.result.Outcome = OutcomeLocal
	}
	if len(p.payload) == 0 {
		return nil
	}
	change, err := d.store.ApplyLocalPatch(p.call.NodeID, store.Patch{State: p.payload})
	if err != nil {
		return fmt.Errorf("dispatch: %s.%s: local patch: %w", p.call.NodeID, p.call.OperationKey, err)
	}
	p.result.Change = change
	return nil
}

func (d *Dispatcher) navigate(ctx context.Context, p *pending) error {
	nav := Navigation{NodeID: p.call.NodeID, OperationKey: p.call.OperationKey}
	if sd := p.op.ServerData; sd != nil {
		nav.Target = sd.Target
		nav.Params = protocol.CloneMap(sd.Params)
		nav.Query = protocol.CloneMap(sd.Query)
	}
	if err := d.navigator.Navigate(ctx, nav); err != nil {
		return fmt.Errorf("dispatch: %s.%s: navigate: %w: %w", p.call.NodeID, p.call.OperationKey, ErrOperationFailed, err)
	}
	return nil
}

// remote sends one request on behalf of every call in group and records the
// shared outcome on each of them.
func (d *Dispatcher) remote(ctx context.Context, group []*pending, req coordinator.Request) error {
	if d.fetcher == nil {
		return fmt.Errorf("dispatch: %w: no fetcher configured", ErrOperationFailed)
	}

	res, err := d.fetcher.Fetch(ctx, req)
	outcome := OutcomeRemote
	switch {
	case err != nil && errors.Is(err, protocol.ErrMalformedDocument):
		d.logger.Warn().Err(err).Str("request_id", res.RequestID).Msg("operation response rejected")
		outcome = OutcomeRejected
		err = nil
	case err != nil:
		first := group[0]
		err = fmt.Errorf("dispatch: %s.%s: %w: %w", first.call.NodeID, first.call.OperationKey, ErrOperationFailed, err)
	case res.Stale:
		outcome = OutcomeStale
	}

	for _, p := range group {
		p.result.Generation = res.Generation
		p.result.RequestID = res.RequestID
		if err != nil {
			continue
		}
		p.result.Outcome = outcome
		if outcome == OutcomeRemote {
			p.result.Change = res.Change
		}
	}
	return err
}
