package engine_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configpage/pkg/dispatch"
	"github.com/goliatone/go-configpage/pkg/engine"
	"github.com/goliatone/go-configpage/pkg/protocol"
	"github.com/goliatone/go-configpage/pkg/store"
)

func TestInstance_OnChangeMayCallBackIntoInstance(t *testing.T) {
	ctx := context.Background()

	var (
		mu       sync.Mutex
		current  *engine.Instance
		gens     []uint64
		rendered []string
	)
	onChange := func(store.Change) {
		mu.Lock()
		inst := current
		mu.Unlock()
		if inst == nil {
			return
		}
		gen := inst.Generation()
		html, err := inst.Render(ctx, engine.RenderOptions{})
		if err != nil {
			t.Errorf("render from OnChange: %v", err)
			return
		}
		mu.Lock()
		gens = append(gens, gen)
		rendered = append(rendered, html)
		mu.Unlock()
	}

	inst, err := engine.New(engine.WithRegistry(testRegistry())).Mount(ctx, engine.HostConfig{
		ScenarioKey:  "orders",
		UseMock:      true,
		MockDocument: exampleDocument(),
		OnChange:     onChange,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer inst.Unmount()
	mu.Lock()
	current = inst
	mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := inst.Reload(ctx)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Reload: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Reload did not return while OnChange read the instance")
	}

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]uint64{2}, gens); diff != "" {
		t.Fatalf("generations seen by OnChange (-want +got):\n%s", diff)
	}
	want := []string{"<page title=<nil>><filter query=abc/><list n=0/></page>"}
	if diff := cmp.Diff(want, rendered); diff != "" {
		t.Fatalf("renders from OnChange (-want +got):\n%s", diff)
	}
}

// gatedSource holds every fetch issued after gate is set until the test
// releases it. Each response marks its list with the request kind.
type gatedSource struct {
	gate    atomic.Bool
	arrived chan string
	release map[string]chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		arrived: make(chan string, 2),
		release: map[string]chan struct{}{
			"watch":  make(chan struct{}),
			"submit": make(chan struct{}),
		},
	}
}

func (g *gatedSource) Fetch(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
	kind := "watch"
	if req.Event != nil {
		kind = req.Event.OperationKey
	}
	doc := exampleDocument()
	doc.Components["list"].Data = map[string]any{"items": []any{kind}}
	if !g.gate.Load() {
		return doc, nil
	}
	g.arrived <- kind
	select {
	case <-g.release[kind]:
		return doc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestInstance_ReloadAndWatchShareGenerations(t *testing.T) {
	cases := []struct {
		name         string
		first        string
		newestFirst  bool
		wantDocument string
	}{
		{name: "watch overtakes submit", first: "submit", wantDocument: "watch"},
		{name: "watch overtakes submit, newest answers first", first: "submit", newestFirst: true, wantDocument: "watch"},
		{name: "submit overtakes watch", first: "watch", wantDocument: "submit"},
		{name: "submit overtakes watch, newest answers first", first: "watch", newestFirst: true, wantDocument: "submit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			src := newGatedSource()
			inst, err := engine.New(engine.WithSource(src)).Mount(ctx, engine.HostConfig{
				ScenarioKey:     "orders",
				InParams:        map[string]any{"orderId": "1"},
				ForceUpdateKeys: []string{"orderId"},
			})
			if err != nil {
				t.Fatalf("Mount: %v", err)
			}
			defer inst.Unmount()
			src.gate.Store(true)

			type outcome struct {
				stale bool
				err   error
			}
			results := map[string]chan outcome{
				"submit": make(chan outcome, 1),
				"watch":  make(chan outcome, 1),
			}
			start := map[string]func(){
				"submit": func() {
					res, err := inst.Dispatch(ctx, "filter", "submit", nil)
					results["submit"] <- outcome{stale: res.Outcome == dispatch.OutcomeStale, err: err}
				},
				"watch": func() {
					res, err := inst.UpdateInParams(ctx, map[string]any{"orderId": "2"})
					results["watch"] <- outcome{stale: res.Stale, err: err}
				},
			}

			second := "watch"
			if tc.first == "watch" {
				second = "submit"
			}
			go start[tc.first]()
			if got := <-src.arrived; got != tc.first {
				t.Fatalf("expected %s in flight, got %s", tc.first, got)
			}
			go start[second]()
			if got := <-src.arrived; got != second {
				t.Fatalf("expected %s in flight, got %s", second, got)
			}

			order := []string{tc.first, second}
			if tc.newestFirst {
				order = []string{second, tc.first}
			}
			got := map[string]outcome{}
			for _, kind := range order {
				close(src.release[kind])
				got[kind] = <-results[kind]
			}

			if got[tc.first].err != nil || !got[tc.first].stale {
				t.Fatalf("older %s should be dropped as stale, got %+v", tc.first, got[tc.first])
			}
			if got[second].err != nil || got[second].stale {
				t.Fatalf("newer %s should apply, got %+v", second, got[second])
			}
			items := inst.Document().Components["list"].Data["items"]
			if diff := cmp.Diff([]any{tc.wantDocument}, items); diff != "" {
				t.Fatalf("applied document mismatch (-want +got):\n%s", diff)
			}
			if inst.Generation() != 3 {
				t.Fatalf("expected generation 3, got %d", inst.Generation())
			}
		})
	}
}
