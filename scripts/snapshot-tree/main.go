package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	configpage "github.com/goliatone/go-configpage"
	"github.com/goliatone/go-configpage/pkg/engine"
	"github.com/goliatone/go-configpage/pkg/hierarchy"
	"github.com/goliatone/go-configpage/pkg/merge"
)

// treeNode is the serialized snapshot of one resolved node with its
// effective props.
type treeNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Children []treeNode     `json:"children,omitempty"`
}

type snapshot struct {
	Scenario  string   `json:"scenario"`
	Root      treeNode `json:"root"`
	Missing   []string `json:"missing,omitempty"`
	Truncated []string `json:"truncated,omitempty"`
}

func main() {
	var (
		documentPath = flag.String("document", "examples/fixtures/orders.yaml", "Protocol Document fixture")
		overridesDir = flag.String("overrides", "", "directory of scenario override files")
		outputPath   = flag.String("output", "", "output path for the snapshot (stdout if empty)")
	)
	flag.Parse()

	payload, err := snapshotTree(context.Background(), *documentPath, *overridesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to snapshot tree: %v\n", err)
		os.Exit(1)
	}

	if *outputPath == "" {
		fmt.Println(string(payload))
		return
	}
	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outputPath, payload, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Wrote tree snapshot to %s\n", *outputPath)
}

func snapshotTree(ctx context.Context, documentPath, overridesDir string) ([]byte, error) {
	raw, err := os.ReadFile(documentPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := configpage.DecodeDocument(raw)
	if err != nil {
		return nil, err
	}

	key := doc.Scenario.Key
	if key == "" {
		key = "snapshot"
	}
	var layers merge.Layers
	if overridesDir != "" {
		store, err := configpage.LoadOverrides(os.DirFS(overridesDir))
		if err != nil {
			return nil, err
		}
		layers.Scenario = store.Scenario(key)
	}

	inst, err := configpage.NewEngine().Mount(ctx, engine.HostConfig{
		ScenarioKey:  key,
		UseMock:      true,
		MockDocument: doc,
	})
	if err != nil {
		return nil, err
	}
	defer inst.Unmount()

	tree, err := inst.Tree()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snapshot{
		Scenario:  key,
		Root:      convert(tree.Root, layers),
		Missing:   tree.Missing,
		Truncated: tree.Truncated,
	}, "", "  ")
}

func convert(node *hierarchy.Node, layers merge.Layers) treeNode {
	out := treeNode{
		ID:    node.ID,
		Type:  node.Spec.Type,
		Props: merge.Resolve(node.ID, "", node.Spec.Props, layers),
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, convert(child, layers))
	}
	return out
}
