// Package testsupport holds fixture helpers shared by package tests.
package testsupport

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

// LoadDocument decodes a JSON or YAML fixture, failing the test on error.
func LoadDocument(t *testing.T, path string) *protocol.Document {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	doc, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode fixture %s: %v", path, err)
	}
	return doc
}

// CompareGolden returns a cmp diff, empty when want and got match.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

func Context() context.Context {
	return context.Background()
}

// CaptureTemplateOutput returns what render returned alongside what it wrote.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (returned, written string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
