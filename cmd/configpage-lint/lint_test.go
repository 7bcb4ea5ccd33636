package main

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configpage/pkg/overrides"
)

func messages(vs []violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.location+": "+v.message)
	}
	return out
}

func TestLintDocument_CleanDocument(t *testing.T) {
	l := newLinter(defaultTypes())
	l.lintDocument("orders.yaml", []byte(`
scenario: {key: orders}
hierarchy: {root: page, structure: {page: [list, toolbar]}}
components:
  page: {type: Container}
  list: {type: List}
  toolbar:
    type: Actions
    operations:
      refresh: {reload: true}
      delete: {disabled: true, disabledTip: Locked}
`))
	if len(l.violations) != 0 {
		t.Fatalf("unexpected violations: %v", messages(l.sorted()))
	}
}

func TestLintDocument_ReportsProblems(t *testing.T) {
	l := newLinter(defaultTypes())
	l.lintDocument("broken.yaml", []byte(`
scenario: {key: broken}
hierarchy:
  root: page
  structure:
    page: [list, ghost]
    list: [page]
components:
  page: {type: Container}
  list: {type: Grid}
  orphan: {type: Text}
  toolbar:
    type: Actions
    operations:
      delete: {disabled: true}
      leave: {serverData: {jumpOut: true}}
      peek: {skipRender: true}
`))

	want := []string{
		"components > list > type: no capability for type \"Grid\", renders as placeholder",
		"components > orphan: component is unreachable from root",
		"components > toolbar: component is unreachable from root",
		"components > toolbar > operations.delete: disabled operation has no tip",
		"components > toolbar > operations.leave: jumpOut requires serverData.target",
		"components > toolbar > operations.peek: skipRender without clientData has nothing to apply",
		"hierarchy > structure: child \"ghost\" has no component",
		"hierarchy > structure: cycle re-enters \"page\"",
	}
	if diff := cmp.Diff(want, messages(l.sorted())); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestLintDocument_DecodeAndRootErrors(t *testing.T) {
	l := newLinter(nil)
	l.lintDocument("bad.json", []byte(`{"components": {"a": {}}}`))
	l.lintDocument("noroot.yaml", []byte("hierarchy: {root: page}\ncomponents: {}\n"))

	got := l.sorted()
	if len(got) != 2 {
		t.Fatalf("expected 2 violations, got %v", messages(got))
	}
	if got[0].file != "bad.json" || got[0].location != "document" {
		t.Fatalf("unexpected decode violation %+v", got[0])
	}
	if got[1].location != "hierarchy > root" {
		t.Fatalf("unexpected root violation %+v", got[1])
	}
}

func TestLintOverrides_UnknownNodes(t *testing.T) {
	l := newLinter(nil)
	l.lintDocument("orders.yaml", []byte(`
scenario: {key: orders}
hierarchy: {root: page, structure: {page: [list]}}
components:
  page: {type: Container}
  list: {type: List}
`))
	store, err := overrides.LoadFS(fstest.MapFS{
		"orders.yaml": {Data: []byte(`
scenarios:
  orders:
    nodes:
      list@row-1: {tone: warning}
      lsit: {title: typo}
  other:
    nodes:
      anything: {x: 1}
`)},
	})
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	l.lintOverrides("overrides", store)

	want := []string{`scenarios > orders > nodes > lsit: node "lsit" not found in scenario documents`}
	if diff := cmp.Diff(want, messages(l.sorted())); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
	if l.violations[0].file != "overrides/orders.yaml" {
		t.Fatalf("unexpected file %q", l.violations[0].file)
	}
}

func TestSplitTypes(t *testing.T) {
	if diff := cmp.Diff([]string{"A", "B"}, splitTypes(" A, ,B ")); diff != "" {
		t.Fatalf("splitTypes mismatch:\n%s", diff)
	}
	if splitTypes("") != nil {
		t.Fatalf("empty input should disable type checks")
	}
}
