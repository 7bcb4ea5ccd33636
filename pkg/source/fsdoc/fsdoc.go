// Package fsdoc serves Protocol Documents from an fs.FS.
//
// The initial document of a scenario lives at "<scenarioKey>.json" (or .yaml,
// .yml). A response for an operation may be stored at
// "<scenarioKey>/<nodeId>.<operationKey>.json"; when it is absent the
// scenario document is returned again.
package fsdoc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

// ErrNotFound is returned when no file matches the request.
var ErrNotFound = errors.New("fsdoc: document not found")

var extensions = []string{".json", ".yaml", ".yml"}

// Source implements protocol.Source.
type Source struct {
	fsys fs.FS
	dir  string
}

var _ protocol.Source = (*Source)(nil)

// New builds a source reading from fsys. dir scopes lookups to a
// subdirectory; pass "" or "." for the root.
func New(fsys fs.FS, dir string) (*Source, error) {
	if fsys == nil {
		return nil, errors.New("fsdoc: fs is nil")
	}
	clean := path.Clean(strings.TrimSpace(dir))
	if clean == "" {
		clean = "."
	}
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("fsdoc: invalid directory %q", dir)
	}
	return &Source{fsys: fsys, dir: clean}, nil
}

// Fetch reads and decodes the document that matches the request.
func (s *Source) Fetch(ctx context.Context, req protocol.FetchRequest) (*protocol.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	key := strings.TrimSpace(req.ScenarioKey)
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return nil, fmt.Errorf("fsdoc: invalid scenario key %q", req.ScenarioKey)
	}

	for _, base := range s.candidates(key, req.Event) {
		for _, ext := range extensions {
			name := base + ext
			data, err := fs.ReadFile(s.fsys, name)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("fsdoc: read %s: %w", name, err)
			}
			doc, err := protocol.Decode(data)
			if err != nil {
				return nil, fmt.Errorf("fsdoc: %s: %w", name, err)
			}
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: scenario %q", ErrNotFound, key)
}

func (s *Source) candidates(key string, event *protocol.Event) []string {
	var out []string
	if event != nil && event.NodeID != "" && event.OperationKey != "" && !strings.ContainsAny(event.NodeID+event.OperationKey, `/\`) {
		out = append(out, path.Join(s.dir, key, event.NodeID+"."+event.OperationKey))
	}
	return append(out, path.Join(s.dir, key))
}
