package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/source/cache"
)

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Fetch(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &protocol.Document{
		Scenario:  protocol.Scenario{Key: req.ScenarioKey},
		Hierarchy: protocol.Hierarchy{Root: "page"},
		Components: map[string]*protocol.ComponentSpec{
			"page": {Type: "Container", Props: map[string]any{"tenant": req.InParams["tenant"]}},
		},
	}, nil
}

func setup(t *testing.T, upstream protocol.Source, opts ...cache.Option) (*cache.Source, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	src, err := cache.Dial(context.Background(), upstream, "redis://"+mr.Addr(), opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src, mr
}

func TestFetch_ReadThrough(t *testing.T) {
	upstream := &countingSource{}
	src, mr := setup(t, upstream)
	ctx := context.Background()
	req := protocol.FetchRequest{ScenarioKey: "orders", InParams: map[string]any{"tenant": "t1"}}

	first, err := src.Fetch(ctx, req)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := src.Fetch(ctx, req)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", upstream.calls)
	}
	if second.Components["page"].Props["tenant"] != first.Components["page"].Props["tenant"] {
		t.Fatalf("cached document differs from upstream")
	}

	key, _ := src.Key(req.Identity())
	if !mr.Exists(key) {
		t.Fatalf("expected key %s in redis", key)
	}

	other := protocol.FetchRequest{ScenarioKey: "orders", InParams: map[string]any{"tenant": "t2"}}
	if _, err := src.Fetch(ctx, other); err != nil {
		t.Fatalf("other fetch: %v", err)
	}
	if upstream.calls != 2 {
		t.Fatalf("different inParams must not share a cache entry")
	}
}

func TestFetch_TTLAndInvalidate(t *testing.T) {
	upstream := &countingSource{}
	src, mr := setup(t, upstream, cache.WithTTL(time.Minute), cache.WithPrefix("test:"))
	ctx := context.Background()
	req := protocol.FetchRequest{ScenarioKey: "orders"}

	if _, err := src.Fetch(ctx, req); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	key, _ := src.Key(req.Identity())
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := src.Fetch(ctx, req); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if upstream.calls != 2 {
		t.Fatalf("expired entry should refetch, calls=%d", upstream.calls)
	}

	if err := src.Invalidate(ctx, req.Identity()); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("key still present after invalidate")
	}
}

func TestFetch_EventsBypassCache(t *testing.T) {
	upstream := &countingSource{}
	src, mr := setup(t, upstream)
	ctx := context.Background()
	req := protocol.FetchRequest{
		ScenarioKey: "orders",
		Event:       &protocol.Event{NodeID: "filter", OperationKey: "submit"},
	}

	for i := 0; i < 2; i++ {
		if _, err := src.Fetch(ctx, req); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if upstream.calls != 2 {
		t.Fatalf("event requests must not be cached, calls=%d", upstream.calls)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("unexpected keys %v", mr.Keys())
	}
}

func TestFetch_UpstreamErrorNotCached(t *testing.T) {
	boom := errors.New("boom")
	upstream := &countingSource{err: boom}
	src, mr := setup(t, upstream)

	if _, err := src.Fetch(context.Background(), protocol.FetchRequest{ScenarioKey: "orders"}); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("failed fetch was cached")
	}
}

func TestFetch_RedisDownFallsBack(t *testing.T) {
	upstream := &countingSource{}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	src, err := cache.New(upstream, client)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mr.Close()

	doc, err := src.Fetch(context.Background(), protocol.FetchRequest{ScenarioKey: "orders"})
	if err != nil || doc == nil {
		t.Fatalf("expected upstream fallback, got %v", err)
	}
	if upstream.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", upstream.calls)
	}
}

func TestCacheable(t *testing.T) {
	if !cache.Cacheable(protocol.FetchRequest{ScenarioKey: "a", InParams: map[string]any{"x": 1}}) {
		t.Fatalf("initial load should be cacheable")
	}
	if cache.Cacheable(protocol.FetchRequest{Batch: []protocol.Event{{NodeID: "n"}}}) {
		t.Fatalf("batch should not be cacheable")
	}
	if cache.Cacheable(protocol.FetchRequest{Params: map[string]any{"p": 1}}) {
		t.Fatalf("params should not be cacheable")
	}
}
