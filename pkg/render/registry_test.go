package render_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configpage/pkg/render"
)

func TestRegistry_ResolveUnknownIsPlaceholder(t *testing.T) {
	reg := render.NewRegistry()

	capability := reg.Resolve("Chart")
	if !render.IsPlaceholder(capability) {
		t.Fatalf("expected placeholder for unknown type")
	}

	var buf bytes.Buffer
	err := capability.Render(context.Background(), &buf, render.Input{NodeID: `a"b`, Type: "<Chart>"})
	if err != nil {
		t.Fatalf("placeholder render: %v", err)
	}
	want := `<div data-cp-node="a&#34;b" data-cp-placeholder="&lt;Chart&gt;"></div>`
	if buf.String() != want {
		t.Fatalf("unexpected placeholder markup:\nwant %s\ngot  %s", want, buf.String())
	}
}

func TestRegistry_RegisterReplacesAndValidates(t *testing.T) {
	reg := render.NewRegistry()
	first := render.CapabilityFunc(func(_ context.Context, buf *bytes.Buffer, _ render.Input) error {
		buf.WriteString("first")
		return nil
	})
	second := render.CapabilityFunc(func(_ context.Context, buf *bytes.Buffer, _ render.Input) error {
		buf.WriteString("second")
		return nil
	})

	if err := reg.Register(" ", first); err == nil {
		t.Fatalf("expected error for empty type")
	}
	if err := reg.Register("List", nil); err == nil {
		t.Fatalf("expected error for nil capability")
	}

	reg.MustRegister("List", first)
	reg.MustRegister(" List ", second)

	var buf bytes.Buffer
	if err := reg.Resolve("List").Render(context.Background(), &buf, render.Input{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "second" {
		t.Fatalf("latest registration should win, got %q", buf.String())
	}
	if reg.Has("list") {
		t.Fatalf("type lookup is case-sensitive")
	}
}

func TestRegistry_CloneIsIsolated(t *testing.T) {
	reg := render.NewRegistry()
	reg.MustRegister("Container", render.Placeholder)

	cloned := reg.Clone()
	cloned.MustRegister("Filter", render.Placeholder)

	if diff := cmp.Diff([]string{"Container"}, reg.Types()); diff != "" {
		t.Fatalf("original mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Container", "Filter"}, cloned.Types()); diff != "" {
		t.Fatalf("clone types mismatch (-want +got):\n%s", diff)
	}
}

func TestInput_Helpers(t *testing.T) {
	in := render.Input{Props: map[string]any{"a": 1}}
	if got, err := in.Children(context.Background()); err != nil || got != "" {
		t.Fatalf("expected empty children, got %q, %v", got, err)
	}
	if diff := cmp.Diff(map[string]any{"a": 1}, in.PropsForItem("x")); diff != "" {
		t.Fatalf("item props fallback mismatch (-want +got):\n%s", diff)
	}
}
