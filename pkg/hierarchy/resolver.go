package hierarchy

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

// ErrRootMissing is returned when the hierarchy root is empty or has no
// component entry.
var ErrRootMissing = fmt.Errorf("%w: root missing", protocol.ErrMalformedDocument)

// Node is one resolved tree entry. Nodes are shared between resolutions when
// their spec pointer and resolved children did not change; treat them as
// read-only.
type Node struct {
	ID       string
	Spec     *protocol.ComponentSpec
	Children []*Node
}

// Result bundles the resolved tree with the anomalies found on the way.
// Missing lists child ids without a component entry; Truncated lists ids
// dropped because they re-entered an ancestor on the same path.
type Result struct {
	Root      *Node
	Missing   []string
	Truncated []string
}

// Resolver memoizes nodes across resolutions. A Resolver belongs to a single
// scenario instance; it is safe for concurrent use but callers gain nothing
// from sharing one between instances.
type Resolver struct {
	mu    sync.Mutex
	cache map[string][]*Node
}

// NewResolver constructs an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string][]*Node)}
}

// ResolveDocument resolves the tree of a document.
func (r *Resolver) ResolveDocument(doc *protocol.Document) (Result, error) {
	if doc == nil {
		return Result{}, ErrRootMissing
	}
	return r.Resolve(doc.Hierarchy, doc.Components)
}

// Resolve walks the structure depth-first from the root, preserving declared
// child order.
func (r *Resolver) Resolve(h protocol.Hierarchy, components map[string]*protocol.ComponentSpec) (Result, error) {
	if h.Root == "" || components[h.Root] == nil {
		return Result{}, fmt.Errorf("hierarchy: root %q: %w", h.Root, ErrRootMissing)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	w := walker{
		structure:  h.Structure,
		components: components,
		previous:   r.cache,
		next:       make(map[string][]*Node, len(components)),
		settled:    make(map[string]*Node, len(components)),
		onPath:     make(map[string]bool),
	}
	root := w.visit(h.Root)
	r.cache = w.next

	return Result{
		Root:      root,
		Missing:   w.missing,
		Truncated: w.truncated,
	}, nil
}

// Reset drops the memoized nodes.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.cache = make(map[string][]*Node)
	r.mu.Unlock()
}

type walker struct {
	structure  map[string][]string
	components map[string]*protocol.ComponentSpec
	previous   map[string][]*Node
	next       map[string][]*Node
	settled    map[string]*Node
	onPath     map[string]bool
	missing    []string
	truncated  []string
}

// visit resolves id on the current path. A subtree that finished without
// truncating anything reaches no cycle, so it resolves the same way from
// every path and is settled for the rest of the pass.
func (w *walker) visit(id string) *Node {
	if node, ok := w.settled[id]; ok {
		return node
	}
	spec := w.components[id]
	if spec == nil {
		w.missing = append(w.missing, id)
		return nil
	}
	if w.onPath[id] {
		w.truncated = append(w.truncated, id)
		return nil
	}

	w.onPath[id] = true
	truncated := len(w.truncated)
	var children []*Node
	for _, childID := range w.structure[id] {
		if child := w.visit(childID); child != nil {
			children = append(children, child)
		}
	}
	delete(w.onPath, id)

	node := match(w.next[id], spec, children)
	if node == nil {
		node = match(w.previous[id], spec, children)
		if node == nil {
			node = &Node{ID: id, Spec: spec, Children: children}
		}
		w.next[id] = append(w.next[id], node)
	}
	if len(w.truncated) == truncated {
		w.settled[id] = node
	}
	return node
}

// match finds a memoized variant with the same spec pointer and children. An
// id reached along different paths can legitimately resolve to different
// subtrees when cycles are truncated, so every variant is kept.
func match(candidates []*Node, spec *protocol.ComponentSpec, children []*Node) *Node {
	for _, candidate := range candidates {
		if candidate.Spec == spec && sameChildren(candidate.Children, children) {
			return candidate
		}
	}
	return nil
}

func sameChildren(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Walk visits the tree depth-first in display order. Returning false from fn
// skips the node's children.
func Walk(node *Node, fn func(*Node) bool) {
	if node == nil || fn == nil {
		return
	}
	if !fn(node) {
		return
	}
	for _, child := range node.Children {
		Walk(child, fn)
	}
}

// IDs lists the ids of the tree in depth-first display order.
func IDs(node *Node) []string {
	var out []string
	Walk(node, func(n *Node) bool {
		out = append(out, n.ID)
		return true
	})
	return out
}
