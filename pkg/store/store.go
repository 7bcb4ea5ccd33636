package store

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/goliatone/go-configpage/pkg/protocol"
)

// ErrNodeNotFound is returned when a local patch targets a node absent from
// the current document.
var ErrNodeNotFound = errors.New("store: node not found")

// ErrEmpty is returned when a local patch arrives before any document.
var ErrEmpty = errors.New("store: no document")

// ApplyOptions controls how ApplyDocument merges an incoming document.
type ApplyOptions struct {
	// Partial forces a partial merge regardless of the document mode.
	Partial bool
}

// Patch is a local, non-reload update for one node. Top-level keys replace
// the matching keys of the node's state. Local updates never write data;
// data only changes through documents from the backend.
type Patch struct {
	State map[string]any
}

// Empty reports whether the patch carries no keys.
func (p Patch) Empty() bool {
	return len(p.State) == 0
}

// ChangeKind classifies store mutations.
type ChangeKind string

const (
	ChangeDocument ChangeKind = "document"
	ChangeLocal    ChangeKind = "local"
	ChangeCleared  ChangeKind = "cleared"
)

// Change describes one applied mutation. Nodes lists the ids whose spec
// pointer changed, sorted.
type Change struct {
	Kind    ChangeKind
	Version uint64
	Nodes   []string
}

// Listener observes applied changes. Listeners run synchronously after the
// store lock is released, or when the Notify returned by ApplyDocumentDeferred
// is called.
type Listener func(Change)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	doc       *protocol.Document
	version   uint64
	listeners map[int]Listener
	nextID    int
}

// New constructs an empty store.
func New() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Document returns the current snapshot, or nil before the first apply.
// Snapshots are shared; callers must not mutate them.
func (s *Store) Document() *protocol.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Version increments on every applied change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ApplyDocument installs an incoming document. A full apply replaces the
// tree but keeps each node's previous state when the incoming spec omits it.
// A partial apply merges the incoming components field by field and the
// structure entry by entry. When the result has no usable root the error
// wraps protocol.ErrMalformedDocument and the previous document is kept.
func (s *Store) ApplyDocument(doc *protocol.Document, opts ApplyOptions) (Change, error) {
	change, notify, err := s.ApplyDocumentDeferred(doc, opts)
	if err != nil {
		return Change{}, err
	}
	notify()
	return change, nil
}

// Notify delivers a committed change to the listeners registered at commit
// time.
type Notify func()

// ApplyDocumentDeferred commits like ApplyDocument but leaves listener
// delivery to the caller, so callers holding their own locks can notify after
// releasing them. notify is never nil.
func (s *Store) ApplyDocumentDeferred(doc *protocol.Document, opts ApplyOptions) (Change, Notify, error) {
	if doc == nil {
		return Change{}, func() {}, fmt.Errorf("store: apply: %w: document is nil", protocol.ErrMalformedDocument)
	}

	s.mu.Lock()
	prev := s.doc
	var next *protocol.Document
	if prev != nil && (opts.Partial || doc.IsPartial()) {
		next = mergePartial(prev, doc)
	} else {
		next = replaceFull(prev, doc)
	}

	if err := protocol.CheckRoot(next); err != nil {
		s.mu.Unlock()
		return Change{}, func() {}, fmt.Errorf("store: apply: %w", err)
	}

	change := s.commit(ChangeDocument, next, changedNodes(prev, next))
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	return change, func() { notify(listeners, change) }, nil
}

// ApplyLocalPatch merges patch into the node's state. The update is
// visible to Document as soon as the call returns.
func (s *Store) ApplyLocalPatch(nodeID string, patch Patch) (Change, error) {
	s.mu.Lock()
	prev := s.doc
	if prev == nil {
		s.mu.Unlock()
		return Change{}, fmt.Errorf("store: patch %q: %w", nodeID, ErrEmpty)
	}
	spec := prev.Components[nodeID]
	if spec == nil {
		s.mu.Unlock()
		return Change{}, fmt.Errorf("store: patch %q: %w", nodeID, ErrNodeNotFound)
	}
	if patch.Empty() {
		version := s.version
		s.mu.Unlock()
		return Change{Kind: ChangeLocal, Version: version}, nil
	}

	updated := *spec
	updated.State = patchMap(spec.State, patch.State)

	next := shallowCopy(prev)
	next.Components[nodeID] = &updated

	change := s.commit(ChangeLocal, next, []string{nodeID})
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, change)
	return change, nil
}

// Clear drops the current document.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return
	}
	change := s.commit(ChangeCleared, nil, nil)
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, change)
}

// commit must be called with the write lock held.
func (s *Store) commit(kind ChangeKind, next *protocol.Document, nodes []string) Change {
	s.doc = next
	s.version++
	return Change{Kind: kind, Version: s.version, Nodes: nodes}
}

func (s *Store) snapshotListeners() []Listener {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func notify(listeners []Listener, change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}

func replaceFull(prev, incoming *protocol.Document) *protocol.Document {
	next := &protocol.Document{
		Scenario:  incoming.Scenario,
		Mode:      protocol.ModeFull,
		Hierarchy: incoming.Hierarchy.Clone(),
	}
	if incoming.Components != nil {
		next.Components = make(map[string]*protocol.ComponentSpec, len(incoming.Components))
	}
	for id, spec := range incoming.Components {
		if spec == nil {
			continue
		}
		candidate := spec.Clone()
		old := prev.Component(id)
		if candidate.State == nil && old != nil {
			candidate.State = old.State
		}
		next.Components[id] = keepIfEqual(old, candidate)
	}
	return next
}

func mergePartial(prev, incoming *protocol.Document) *protocol.Document {
	next := shallowCopy(prev)
	next.Mode = protocol.ModeFull
	if incoming.Scenario.Key != "" {
		next.Scenario.Key = incoming.Scenario.Key
	}
	if incoming.Scenario.Type != "" {
		next.Scenario.Type = incoming.Scenario.Type
	}
	if incoming.Hierarchy.Root != "" {
		next.Hierarchy.Root = incoming.Hierarchy.Root
	}
	for id, children := range incoming.Hierarchy.Structure {
		if next.Hierarchy.Structure == nil {
			next.Hierarchy.Structure = make(map[string][]string)
		}
		next.Hierarchy.Structure[id] = append([]string(nil), children...)
	}

	for id, spec := range incoming.Components {
		if spec == nil {
			continue
		}
		old := prev.Component(id)
		if old == nil {
			next.Components[id] = spec.Clone()
			continue
		}
		next.Components[id] = keepIfEqual(old, mergeSpec(old, spec))
	}
	return next
}

// mergeSpec overlays the fields the incoming spec set on top of old.
func mergeSpec(old, incoming *protocol.ComponentSpec) *protocol.ComponentSpec {
	out := *old
	in := incoming.Clone()
	if in.Type != "" {
		out.Type = in.Type
	}
	if in.Props != nil {
		out.Props = in.Props
	}
	if in.State != nil {
		out.State = in.State
	}
	if in.Data != nil {
		out.Data = in.Data
	}
	if in.Operations != nil {
		out.Operations = in.Operations
	}
	return &out
}

// shallowCopy duplicates the maps that hold spec pointers and structure
// entries so the copy can be edited without touching prev.
func shallowCopy(prev *protocol.Document) *protocol.Document {
	next := &protocol.Document{
		Scenario:  prev.Scenario,
		Mode:      prev.Mode,
		Hierarchy: protocol.Hierarchy{Root: prev.Hierarchy.Root},
	}
	if prev.Hierarchy.Structure != nil {
		next.Hierarchy.Structure = make(map[string][]string, len(prev.Hierarchy.Structure))
		for id, children := range prev.Hierarchy.Structure {
			next.Hierarchy.Structure[id] = children
		}
	}
	next.Components = make(map[string]*protocol.ComponentSpec, len(prev.Components))
	for id, spec := range prev.Components {
		next.Components[id] = spec
	}
	return next
}

func keepIfEqual(old, candidate *protocol.ComponentSpec) *protocol.ComponentSpec {
	if old != nil && reflect.DeepEqual(old, candidate) {
		return old
	}
	return candidate
}

func patchMap(base, patch map[string]any) map[string]any {
	if len(patch) == 0 {
		return base
	}
	out := make(map[string]any, len(base)+len(patch))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range patch {
		out[key] = protocol.CloneValue(value)
	}
	return out
}

func changedNodes(prev, next *protocol.Document) []string {
	var ids []string
	for id, spec := range next.Components {
		if prev.Component(id) != spec {
			ids = append(ids, id)
		}
	}
	if prev != nil {
		for id := range prev.Components {
			if _, ok := next.Components[id]; !ok {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}
