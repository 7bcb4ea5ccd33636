package render

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps component type strings to capabilities. Lookups never fail:
// unknown types resolve to Placeholder so one unsupported node cannot block
// the rest of the tree.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		capabilities: make(map[string]Capability),
	}
}

// Register associates a capability with a component type. Existing entries
// are replaced so hosts can override built-in capabilities.
func (r *Registry) Register(componentType string, capability Capability) error {
	name := normalize(componentType)
	if name == "" {
		return fmt.Errorf("render: component type is required")
	}
	if capability == nil {
		return fmt.Errorf("render: capability for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.capabilities[name] = capability
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(componentType string, capability Capability) {
	if err := r.Register(componentType, capability); err != nil {
		panic(err)
	}
}

// Lookup returns the capability registered for a type.
func (r *Registry) Lookup(componentType string) (Capability, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	capability, ok := r.capabilities[normalize(componentType)]
	return capability, ok
}

// Resolve returns the capability for a type, or Placeholder when none is
// registered.
func (r *Registry) Resolve(componentType string) Capability {
	if capability, ok := r.Lookup(componentType); ok {
		return capability
	}
	return Placeholder
}

// Has reports whether a capability is registered.
func (r *Registry) Has(componentType string) bool {
	_, ok := r.Lookup(componentType)
	return ok
}

// Types returns a sorted list of registered component types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy of the registry to allow isolated registrations.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := NewRegistry()
	for name, capability := range r.capabilities {
		cloned.capabilities[name] = capability
	}
	return cloned
}

// Type strings are matched case-sensitively; only surrounding whitespace is
// ignored.
func normalize(componentType string) string {
	return strings.TrimSpace(componentType)
}
