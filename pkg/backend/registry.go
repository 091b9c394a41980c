package backend

import (
	"fmt"
	"sync"
)

// Registry maps backend families to their factories, filtered by platform
// support. It is built once at startup by the host; lookups afterwards are
// concurrent-safe. Registration order is preserved so candidate iteration is
// deterministic.
type Registry struct {
	// mu protects the registry state.
	mu sync.RWMutex

	// platform is the platform the registry filters for.
	platform Platform

	// factories maps family to constructor.
	factories map[Family]Factory

	// order preserves registration order for deterministic iteration.
	order []Family
}

// NewRegistry creates an empty registry filtered for the given platform.
func NewRegistry(platform Platform) *Registry {
	return &Registry{
		platform:  platform,
		factories: make(map[Family]Factory),
	}
}

// NewDefaultRegistry creates a registry for the current platform with the
// in-tree reference backends (software and null) pre-registered. Hosts
// register their real backend factories on top.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(CurrentPlatform())
	// Reference backends support every platform; Register cannot fail here.
	_ = r.Register(FamilySoftware, NewSoftwareBackend)
	_ = r.Register(FamilyNull, NewNullBackend)
	return r
}

// Platform returns the platform this registry filters for.
func (r *Registry) Platform() Platform {
	return r.platform
}

// Register adds a factory for a family. Registering an unknown family, a
// family that does not support the registry's platform, or a duplicate is an
// error.
func (r *Registry) Register(family Family, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := family.Info(); !ok {
		return fmt.Errorf("unknown backend family %q", family)
	}
	if factory == nil {
		return fmt.Errorf("nil factory for backend family %q", family)
	}
	if !family.SupportsPlatform(r.platform) {
		return fmt.Errorf("backend family %q does not support platform %q", family, r.platform)
	}
	if _, exists := r.factories[family]; exists {
		return fmt.Errorf("backend family %q already registered", family)
	}

	r.factories[family] = factory
	r.order = append(r.order, family)
	return nil
}

// ForFamily returns the factory for a family, or false when the family is
// not registered.
func (r *Registry) ForFamily(family Family) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[family]
	return factory, ok
}

// Families returns the registered families in registration order.
func (r *Registry) Families() []Family {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Family, len(r.order))
	copy(out, r.order)
	return out
}
