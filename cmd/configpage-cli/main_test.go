package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ordersDocument = `
scenario: {key: orders, type: page}
hierarchy:
  root: page
  structure:
    page: [list, toolbar]
components:
  page: {type: Container, props: {title: Orders}}
  list:
    type: List
    data: {items: [a]}
  toolbar:
    type: Actions
    operations:
      refresh: {reload: true}
      archive: {reload: true, confirm: Archive everything?}
`

const refreshDocument = `
mode: partial
components:
  list:
    type: List
    data: {items: [a, b, c]}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func scenarioDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "orders.yaml"), ordersDocument)
	writeFile(t, filepath.Join(dir, "docs", "orders", "toolbar.refresh.yaml"), refreshDocument)
	writeFile(t, filepath.Join(dir, "docs", "orders", "toolbar.archive.yaml"), refreshDocument)
	writeFile(t, filepath.Join(dir, "overrides", "orders.yaml"), "scenarios:\n  orders:\n    nodes:\n      list@b:\n        tone: warning\n")
	return dir
}

func TestRun_RendersAfterDispatch(t *testing.T) {
	dir := scenarioDir(t)
	configPath := filepath.Join(dir, "configpage.toml")
	writeFile(t, configPath, `
[scenario]
key = "orders"
type = "page"

[source]
kind = "fs"
dir = "`+filepath.ToSlash(filepath.Join(dir, "docs"))+`"

[overrides]
dir = "`+filepath.ToSlash(filepath.Join(dir, "overrides"))+`"

[theme]
name = "acme"
variant = "dark"
stylesheet = "acme.css"
asset_prefix = "/static"
tokens = { brand = "#123456" }

[theme.variants.dark]
brand = "#000000"

[log]
level = "off"
`)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", configPath, "-dispatch", "toolbar:refresh"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, stderr.String())
	}
	page := stdout.String()
	for _, fragment := range []string{
		`data-cp-item="c">c</li>`,
		`cp-tone-warning" data-cp-item="b"`,
		`href="/static/acme.css"`,
		"--brand: #000000;",
		"<title>orders</title>",
	} {
		if !strings.Contains(page, fragment) {
			t.Fatalf("page missing %q:\n%s", fragment, page)
		}
	}
}

func TestRun_ConfirmedBatchWritesOutput(t *testing.T) {
	dir := scenarioDir(t)
	out := filepath.Join(dir, "page.html")

	var stdout, stderr bytes.Buffer
	args := []string{
		"-scenario", "orders",
		"-log-level", "off",
		"-yes",
		"-batch",
		"-dispatch", "toolbar:archive",
		"-output", out,
	}
	configPath := filepath.Join(dir, "configpage.toml")
	writeFile(t, configPath, "[source]\ndir = \""+filepath.ToSlash(filepath.Join(dir, "docs"))+"\"\n")
	args = append([]string{"-config", configPath}, args...)

	if code := run(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("run exit %d: %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout should stay empty when -output is set")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), `data-cp-item="c"`) {
		t.Fatalf("archive response not rendered:\n%s", data)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]string{
		"missing config": {"-config", filepath.Join(dir, "nope.toml")},
		"no scenario":    {"-log-level", "off"},
		"bad dispatch":   {"-dispatch", "toolbar"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), args, &stdout, &stderr); code == 0 {
				t.Fatalf("expected failure")
			}
		})
	}
}

func TestCallList_Set(t *testing.T) {
	var calls callList
	if err := calls.Set("filter:select"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := calls.Set(`filter:type:{"query":"abc"}`); err != nil {
		t.Fatalf("Set with payload: %v", err)
	}
	want := callList{
		{NodeID: "filter", OperationKey: "select"},
		{NodeID: "filter", OperationKey: "type", Extra: map[string]any{"query": "abc"}},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if calls.String() != "filter:select,filter:type" {
		t.Fatalf("unexpected String %q", calls.String())
	}
	for _, bad := range []string{"", "node", ":op", "node:", `n:o:{bad`} {
		if err := calls.Set(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
