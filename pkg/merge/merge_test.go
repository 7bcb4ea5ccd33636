package merge_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configpage/pkg/merge"
)

func TestResolve_PrecedenceChain(t *testing.T) {
	own := map[string]any{"label": "own", "a": "own", "b": "own", "c": "own", "d": "own"}
	layers := merge.Layers{
		Scenario: merge.Overrides{
			"nodeA": {"label": "scenario", "b": "scenario", "c": "scenario", "d": "scenario"},
		},
		CallSite: merge.Overrides{
			"nodeA":       {"label": "call", "c": "call", "d": "call"},
			"nodeA@item1": {"label": "item", "d": "item"},
		},
	}

	got := merge.Resolve("nodeA", "item1", own, layers)
	want := map[string]any{"label": "item", "a": "own", "b": "scenario", "c": "call", "d": "item"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("effective props mismatch (-want +got):\n%s", diff)
	}

	other := merge.Resolve("nodeA", "item2", own, layers)
	if other["label"] != "call" {
		t.Fatalf("item override must not leak to other items, got %v", other["label"])
	}

	node := merge.Resolve("nodeA", "", own, layers)
	if node["label"] != "call" || node["d"] != "call" {
		t.Fatalf("node-level resolution must ignore item patterns, got %v", node)
	}
}

func TestResolve_BlanketItemPattern(t *testing.T) {
	layers := merge.Layers{
		CallSite: merge.Overrides{
			"list":         {"tone": "node"},
			"list@*":       {"tone": "any", "size": "s"},
			"list@row-7":   {"tone": "row"},
			"listing@row7": {"tone": "wrong node"},
		},
	}

	if got := merge.Resolve("list", "row-1", nil, layers); got["tone"] != "any" || got["size"] != "s" {
		t.Fatalf("blanket pattern should apply to every item, got %v", got)
	}
	if got := merge.Resolve("list", "row-7", nil, layers); got["tone"] != "row" {
		t.Fatalf("specific item must beat blanket pattern, got %v", got)
	}
}

func TestResolve_ScenarioLayerLosesToCallSite(t *testing.T) {
	layers := merge.Layers{
		Scenario: merge.Overrides{"nodeA@item1": {"label": "scenario item"}},
		CallSite: merge.Overrides{"nodeA": {"label": "call node"}},
	}
	if got := merge.Resolve("nodeA", "item1", nil, layers); got["label"] != "call node" {
		t.Fatalf("call-site layer must win over any scenario entry, got %v", got["label"])
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	own := map[string]any{"a": 1}
	layers := merge.Layers{CallSite: merge.Overrides{"n": {"a": 2}}}

	got := merge.Resolve("n", "", own, layers)
	got["b"] = 3

	if diff := cmp.Diff(map[string]any{"a": 1}, own); diff != "" {
		t.Fatalf("own props mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"a": 2}, layers.CallSite["n"]); diff != "" {
		t.Fatalf("override mutated (-want +got):\n%s", diff)
	}
}

func TestParseKey(t *testing.T) {
	cases := map[string][2]string{
		"nodeA":         {"nodeA", ""},
		"nodeA@item1":   {"nodeA", "item1"},
		"node@a@b":      {"node@a", "b"},
		"@item":         {"@item", ""},
		" list@* ":      {"list", "*"},
		"table@row:7:x": {"table", "row:7:x"},
	}
	for input, want := range cases {
		id, item := merge.ParseKey(input)
		if id != want[0] || item != want[1] {
			t.Fatalf("ParseKey(%q) = %q, %q; want %q, %q", input, id, item, want[0], want[1])
		}
	}
	if merge.Key("a", "") != "a" || merge.Key("a", "b") != "a@b" {
		t.Fatalf("Key did not build expected patterns")
	}
}

func TestOverrides_MatchesAndClone(t *testing.T) {
	o := merge.Overrides{"list@row": {"a": 1}}
	if !o.Matches("list") || o.Matches("row") {
		t.Fatalf("unexpected match results")
	}
	cloned := o.Clone()
	cloned["list@row"]["a"] = 2
	if o["list@row"]["a"] != 1 {
		t.Fatalf("clone aliased prop maps")
	}
}
