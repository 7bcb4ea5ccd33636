package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-configpage/pkg/hierarchy"
	"github.com/goliatone/go-configpage/pkg/merge"
	"github.com/goliatone/go-configpage/pkg/overrides"
	"github.com/goliatone/go-configpage/pkg/protocol"
)

type violation struct {
	file     string
	location string
	message  string
}

type linter struct {
	types      map[string]bool
	violations []violation
	// nodes records the component ids seen per scenario key so override
	// patterns can be checked against real nodes.
	nodes map[string]map[string]bool
}

func newLinter(types []string) *linter {
	l := &linter{nodes: make(map[string]map[string]bool)}
	if len(types) > 0 {
		l.types = make(map[string]bool, len(types))
		for _, name := range types {
			l.types[name] = true
		}
	}
	return l
}

func (l *linter) report(file string, path []string, format string, args ...any) {
	l.violations = append(l.violations, violation{
		file:     file,
		location: formatLocation(path),
		message:  fmt.Sprintf(format, args...),
	})
}

func (l *linter) lintDocument(file string, raw []byte) {
	doc, err := protocol.Decode(raw)
	if err != nil {
		l.report(file, []string{"document"}, "%v", err)
		return
	}

	scenario := doc.Scenario.Key
	if scenario == "" {
		scenario = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	seen := l.nodes[scenario]
	if seen == nil {
		seen = make(map[string]bool)
		l.nodes[scenario] = seen
	}
	for id := range doc.Components {
		seen[id] = true
	}

	reachable := make(map[string]bool)
	if doc.IsPartial() {
		// Partial documents patch an existing tree; their root may live
		// elsewhere.
		for id := range doc.Components {
			reachable[id] = true
		}
	} else {
		result, err := hierarchy.NewResolver().ResolveDocument(doc)
		switch {
		case errors.Is(err, hierarchy.ErrRootMissing):
			l.report(file, []string{"hierarchy", "root"}, "root %q has no component", doc.Hierarchy.Root)
		case err != nil:
			l.report(file, []string{"hierarchy"}, "%v", err)
		default:
			for _, id := range hierarchy.IDs(result.Root) {
				reachable[id] = true
			}
			for _, id := range result.Missing {
				l.report(file, []string{"hierarchy", "structure"}, "child %q has no component", id)
			}
			for _, id := range result.Truncated {
				l.report(file, []string{"hierarchy", "structure"}, "cycle re-enters %q", id)
			}
		}
	}

	ids := make([]string, 0, len(doc.Components))
	for id := range doc.Components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		spec := doc.Components[id]
		base := []string{"components", id}
		if spec == nil {
			l.report(file, base, "component is null")
			continue
		}
		if len(reachable) > 0 && !reachable[id] {
			l.report(file, base, "component is unreachable from root")
		}
		if l.types != nil && !l.types[spec.Type] {
			l.report(file, appendPath(base, "type"), "no capability for type %q, renders as placeholder", spec.Type)
		}
		l.lintOperations(file, base, spec.Operations)
	}
}

func (l *linter) lintOperations(file string, base []string, ops map[string]protocol.Operation) {
	keys := make([]string, 0, len(ops))
	for key := range ops {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		op := ops[key]
		path := appendPath(base, "operations."+key)
		if op.Disabled && op.DisabledReason() == "" {
			l.report(file, path, "disabled operation has no tip")
		}
		if op.ServerData != nil && op.ServerData.JumpOut && strings.TrimSpace(op.ServerData.Target) == "" {
			l.report(file, path, "jumpOut requires serverData.target")
		}
		if op.SkipRender && (op.ClientData == nil || len(op.ClientData.DataRef) == 0) {
			l.report(file, path, "skipRender without clientData has nothing to apply")
		}
		if !op.Reload && op.ServerData != nil && !op.ServerData.JumpOut && (len(op.ServerData.Params) > 0 || len(op.ServerData.Query) > 0) {
			l.report(file, path, "serverData params are ignored unless reload or jumpOut is set")
		}
	}
}

// lintOverrides flags override patterns that name nodes no linted document
// declares. Scenarios without a linted document are skipped.
func (l *linter) lintOverrides(dir string, store *overrides.Store) {
	for _, scenario := range store.Scenarios() {
		seen, ok := l.nodes[scenario]
		if !ok {
			continue
		}
		patterns := make([]string, 0)
		for pattern := range store.Scenario(scenario) {
			patterns = append(patterns, pattern)
		}
		sort.Strings(patterns)
		for _, pattern := range patterns {
			id, _ := merge.ParseKey(pattern)
			if seen[id] {
				continue
			}
			file, _ := store.Source(scenario, pattern)
			l.report(filepath.Join(dir, file), []string{"scenarios", scenario, "nodes", pattern}, "node %q not found in scenario documents", id)
		}
	}
}

func (l *linter) sorted() []violation {
	out := append([]violation(nil), l.violations...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].file == out[j].file {
			if out[i].location == out[j].location {
				return out[i].message < out[j].message
			}
			return out[i].location < out[j].location
		}
		return out[i].file < out[j].file
	})
	return out
}

func appendPath(path []string, segment string) []string {
	next := append([]string(nil), path...)
	next = append(next, segment)
	return next
}

func formatLocation(path []string) string {
	return strings.Join(path, " > ")
}
