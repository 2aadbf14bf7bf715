package di

import (
	"reflect"
	"sync"
)

// Factory produces a service instance. It receives the owning container so it
// can resolve its own dependencies.
type Factory func(c *Container) (any, error)

// registration pairs a factory with a lifetime and, for singletons, the cache
// slot for the produced instance.
//
// One registration exists per type per container. Re-registering a type
// replaces the record wholesale; records are never merged.
type registration struct {
	typ      reflect.Type
	lifetime Lifetime
	factory  Factory

	// Singleton cache. created distinguishes "not yet produced" from a
	// factory that legitimately produced a nil-ish value.
	mu       sync.Mutex
	created  bool
	instance any
}

// resolve produces an instance under the registration's lifetime policy.
//
// Transient invokes the factory on every call and enrolls each product for
// disposal. Singleton creates at most once: the per-registration mutex closes
// the concurrent first-resolution race, so the factory runs exactly once even
// when several goroutines race the first resolve. A singleton factory that
// resolves its own type recursively will deadlock here unless the owning
// container runs with diagnostics enabled, which detects the cycle first.
func (r *registration) resolve(c *Container) (any, error) {
	if r.lifetime == Transient {
		v, err := r.factory(c)
		if err != nil {
			return nil, err
		}
		c.track(v)
		return v, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.created {
		return r.instance, nil
	}

	v, err := r.factory(c)
	if err != nil {
		return nil, err
	}

	r.instance = v
	r.created = true
	c.track(v)
	return v, nil
}
