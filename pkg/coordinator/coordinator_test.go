package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configpage/pkg/coordinator"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/store"
)

type reply struct {
	doc *protocol.Document
	err error
}

// gatedSource blocks every fetch until the test releases it.
type gatedSource struct {
	mu      sync.Mutex
	pending []chan reply
	started chan protocol.FetchRequest
}

func newGatedSource() *gatedSource {
	return &gatedSource{started: make(chan protocol.FetchRequest, 8)}
}

func (g *gatedSource) Fetch(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
	ch := make(chan reply, 1)
	g.mu.Lock()
	g.pending = append(g.pending, ch)
	g.mu.Unlock()
	g.started <- req

	select {
	case r := <-ch:
		return r.doc, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSource) release(t *testing.T, idx int, r reply) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if idx >= len(g.pending) {
		t.Fatalf("no pending fetch %d", idx)
	}
	g.pending[idx] <- r
}

func (g *gatedSource) waitStarted(t *testing.T) protocol.FetchRequest {
	t.Helper()
	select {
	case req := <-g.started:
		return req
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch did not start")
		return protocol.FetchRequest{}
	}
}

type outcome struct {
	result coordinator.Result
	err    error
}

func startFetch(c *coordinator.Coordinator, ctx context.Context, req coordinator.Request) <-chan outcome {
	out := make(chan outcome, 1)
	go func() {
		res, err := c.Fetch(ctx, req)
		out <- outcome{res, err}
	}()
	return out
}

func await(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch did not finish")
		return outcome{}
	}
}

func labelled(label string) *protocol.Document {
	return &protocol.Document{
		Hierarchy: protocol.Hierarchy{Root: "page"},
		Components: map[string]*protocol.ComponentSpec{
			"page": {Type: "Container", Props: map[string]any{"label": label}},
		},
	}
}

func currentLabel(st *store.Store) any {
	doc := st.Document()
	if doc == nil {
		return nil
	}
	return doc.Components["page"].Props["label"]
}

func TestFetch_OnlyHigherGenerationApplies(t *testing.T) {
	for _, order := range []string{"newer-first", "older-first"} {
		t.Run(order, func(t *testing.T) {
			src := newGatedSource()
			st := store.New()
			c := coordinator.New(src, st)
			ctx := context.Background()

			first := startFetch(c, ctx, coordinator.Request{})
			src.waitStarted(t)
			second := startFetch(c, ctx, coordinator.Request{})
			src.waitStarted(t)

			var older, newer outcome
			if order == "newer-first" {
				src.release(t, 1, reply{doc: labelled("second")})
				newer = await(t, second)
				src.release(t, 0, reply{doc: labelled("first")})
				older = await(t, first)
			} else {
				src.release(t, 0, reply{doc: labelled("first")})
				older = await(t, first)
				if st.Document() != nil {
					t.Fatalf("stale response touched the store")
				}
				src.release(t, 1, reply{doc: labelled("second")})
				newer = await(t, second)
			}

			if older.err != nil || !older.result.Stale || older.result.Applied {
				t.Fatalf("older fetch should be stale: %+v, %v", older.result, older.err)
			}
			if newer.err != nil || newer.result.Stale || !newer.result.Applied {
				t.Fatalf("newer fetch should apply: %+v, %v", newer.result, newer.err)
			}
			if newer.result.Generation != 2 || older.result.Generation != 1 {
				t.Fatalf("unexpected generations %d/%d", older.result.Generation, newer.result.Generation)
			}
			if got := currentLabel(st); got != "second" {
				t.Fatalf("store holds %v, want second", got)
			}
			if st.Version() != 1 {
				t.Fatalf("store applied %d times, want 1", st.Version())
			}
		})
	}
}

func TestFetch_AbortStaleCancelsPrevious(t *testing.T) {
	src := newGatedSource()
	st := store.New()
	c := coordinator.New(src, st, coordinator.WithAbortStale(true))
	ctx := context.Background()

	first := startFetch(c, ctx, coordinator.Request{})
	src.waitStarted(t)
	second := startFetch(c, ctx, coordinator.Request{})
	src.waitStarted(t)

	older := await(t, first)
	if older.err != nil || !older.result.Stale {
		t.Fatalf("cancelled fetch should report stale without error: %+v, %v", older.result, older.err)
	}

	src.release(t, 1, reply{doc: labelled("second")})
	newer := await(t, second)
	if newer.err != nil || !newer.result.Applied {
		t.Fatalf("second fetch: %+v, %v", newer.result, newer.err)
	}
}

func TestFetch_TransportErrorKeepsDocument(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	src := protocol.SourceFunc(func(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
		calls++
		if calls == 1 {
			return labelled("ok"), nil
		}
		return nil, boom
	})
	st := store.New()
	c := coordinator.New(src, st)

	if _, err := c.Reload(context.Background()); err != nil {
		t.Fatalf("first reload: %v", err)
	}
	res, err := c.Reload(context.Background())
	if !errors.Is(err, coordinator.ErrTransport) || !errors.Is(err, boom) {
		t.Fatalf("expected transport error wrapping boom, got %v", err)
	}
	if res.Applied || res.Stale {
		t.Fatalf("failed fetch reported %+v", res)
	}
	if currentLabel(st) != "ok" {
		t.Fatalf("failed fetch replaced the document")
	}
}

func TestFetch_MalformedResponseRejected(t *testing.T) {
	src := protocol.SourceFunc(func(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
		return &protocol.Document{Hierarchy: protocol.Hierarchy{Root: "ghost"}}, nil
	})
	c := coordinator.New(src, store.New())
	_, err := c.Reload(context.Background())
	if !errors.Is(err, protocol.ErrMalformedDocument) {
		t.Fatalf("expected malformed document error, got %v", err)
	}
	if errors.Is(err, coordinator.ErrTransport) {
		t.Fatalf("malformed response must not be reported as transport failure")
	}
}

func TestFetch_BuildsRequest(t *testing.T) {
	var got protocol.FetchRequest
	src := protocol.SourceFunc(func(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
		got = req
		return labelled("x"), nil
	})
	ids := 0
	c := coordinator.New(src, store.New(),
		coordinator.WithIdentity(protocol.Identity{
			ScenarioKey:  "orders",
			ScenarioType: "page",
			InParams:     map[string]any{"tenant": "t1"},
		}),
		coordinator.WithRequestID(func() string {
			ids++
			return fmt.Sprintf("req-%d", ids)
		}),
	)

	_, err := c.Fetch(context.Background(), coordinator.Request{
		Batch: []protocol.Event{
			{NodeID: "filter", OperationKey: "submit", ClientPayload: map[string]any{"q": "a"}},
			{NodeID: "list", OperationKey: "refresh"},
		},
		Params: map[string]any{"page": 1},
		Target: "orders",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	first := protocol.Event{NodeID: "filter", OperationKey: "submit", ClientPayload: map[string]any{"q": "a"}}
	want := protocol.FetchRequest{
		RequestID:    "req-1",
		ScenarioKey:  "orders",
		ScenarioType: "page",
		InParams:     map[string]any{"tenant": "t1"},
		Event:        &first,
		Batch: []protocol.Event{
			first,
			{NodeID: "list", OperationKey: "refresh"},
		},
		Params: map[string]any{"page": 1},
		Target: "orders",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestWatch_RefetchesOnlyOnWatchedKeys(t *testing.T) {
	var fetched []map[string]any
	src := protocol.SourceFunc(func(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
		fetched = append(fetched, req.InParams)
		return labelled("x"), nil
	})
	c := coordinator.New(src, store.New(),
		coordinator.WithIdentity(protocol.Identity{ScenarioKey: "orders", InParams: map[string]any{"orderId": "1", "tab": "a"}}),
		coordinator.WithForceUpdateKeys("orderId"),
	)
	ctx := context.Background()

	res, err := c.Watch(ctx, map[string]any{"orderId": "1", "tab": "b"})
	if err != nil || !res.Skipped {
		t.Fatalf("unwatched change should skip: %+v, %v", res, err)
	}
	if c.Identity().InParams["tab"] != "b" {
		t.Fatalf("inParams not updated on skipped watch")
	}

	res, err = c.Watch(ctx, map[string]any{"orderId": "2", "tab": "b"})
	if err != nil || !res.Applied {
		t.Fatalf("watched change should refetch: %+v, %v", res, err)
	}

	c.SetForceUpdateKeys(nil)
	if res, _ := c.Watch(ctx, map[string]any{"orderId": "3"}); !res.Skipped {
		t.Fatalf("no force keys means no refetch")
	}

	want := []map[string]any{{"orderId": "2", "tab": "b"}}
	if diff := cmp.Diff(want, fetched); diff != "" {
		t.Fatalf("fetches mismatch (-want +got):\n%s", diff)
	}
}

func TestClose_AbandonsInFlight(t *testing.T) {
	src := newGatedSource()
	st := store.New()
	c := coordinator.New(src, st)

	pending := startFetch(c, context.Background(), coordinator.Request{})
	src.waitStarted(t)
	c.Close()
	c.Close()

	src.release(t, 0, reply{doc: labelled("late")})
	o := await(t, pending)
	if !o.result.Stale || o.err != nil {
		t.Fatalf("in-flight fetch should be stale after close: %+v, %v", o.result, o.err)
	}
	if st.Document() != nil {
		t.Fatalf("closed coordinator applied a document")
	}
	if _, err := c.Reload(context.Background()); !errors.Is(err, coordinator.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := c.Watch(context.Background(), nil); !errors.Is(err, coordinator.ErrClosed) {
		t.Fatalf("expected ErrClosed from Watch, got %v", err)
	}
}

func TestFetch_NoSource(t *testing.T) {
	c := coordinator.New(nil, nil)
	if _, err := c.Reload(context.Background()); !errors.Is(err, coordinator.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}
