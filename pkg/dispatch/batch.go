package dispatch

import (
	"context"
	"errors"

	"github.com/goliatone/go-configpage/pkg/coordinator"
	"github.com/goliatone/go-configpage/pkg/protocol"
)

// Call names one operation in a batch.
type Call struct {
	NodeID       string
	OperationKey string
	Extra        map[string]any
}

// DispatchBatch runs several operations as one interaction. Every call is
// gated and confirmed first; an unknown node or operation, or a confirmer
// error, aborts the batch before any effect. Local patches are then applied
// in call order, remote operations sharing a serverData target are folded
// into one request, and navigations run last.
//
// Results are returned in call order. Failures of independent remote groups
// are joined.
func (d *Dispatcher) DispatchBatch(ctx context.Context, calls []Call) ([]Result, error) {
	prepared := make([]*pending, 0, len(calls))
	results := func() []Result {
		out := make([]Result, len(prepared))
		for i, p := range prepared {
			out[i] = p.result
		}
		return out
	}

	for _, call := range calls {
		p, err := d.prepare(ctx, call)
		prepared = append(prepared, p)
		if err != nil {
			return results(), err
		}
	}

	var (
		groups     = make(map[string][]*pending)
		order      []string
		navigating []*pending
	)
	for _, p := range prepared {
		if p.done() {
			continue
		}
		switch {
		case p.op.NavigateOnly():
			navigating = append(navigating, p)
		case !p.op.Reload:
			if err := d.applyLocal(p); err != nil {
				return results(), err
			}
		default:
			if p.op.SkipRender {
				if err := d.applyLocal(p); err != nil {
					return results(), err
				}
			}
			target := ""
			if p.op.ServerData != nil {
				target = p.op.ServerData.Target
			}
			if _, seen := groups[target]; !seen {
				order = append(order, target)
			}
			groups[target] = append(groups[target], p)
		}
	}

	var errs []error
	for _, target := range order {
		group := groups[target]
		if err := d.remote(ctx, group, combinedRequest(target, group)); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, p := range group {
			if p.result.Outcome == OutcomeRemote && p.jumpOut() {
				navigating = append(navigating, p)
			}
		}
	}

	for _, p := range navigating {
		if err := d.navigate(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		if p.op.Reload {
			p.result.Navigated = true
		} else {
			p.result.Outcome = OutcomeNavigated
		}
	}

	return results(), errors.Join(errs...)
}

// combinedRequest folds a target group into one request. Params and query
// maps are merged in call order, later calls winning ties.
func combinedRequest(target string, group []*pending) coordinator.Request {
	if len(group) == 1 {
		return group[0].request()
	}
	req := coordinator.Request{
		Target: target,
		Batch:  make([]protocol.Event, 0, len(group)),
	}
	for _, p := range group {
		req.Batch = append(req.Batch, p.event())
		if sd := p.op.ServerData; sd != nil {
			req.Params = mergeInto(req.Params, sd.Params)
			req.Query = mergeInto(req.Query, sd.Query)
		}
	}
	return req
}

func mergeInto(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, value := range src {
		dst[key] = protocol.CloneValue(value)
	}
	return dst
}
