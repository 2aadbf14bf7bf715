package di

import (
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// binding is the registry-side record for one live container: the container
// itself plus its optional namespace and owner scope bindings. The owner
// reference is held for lookup only; the registry never disposes it.
type binding struct {
	container *Container
	namespace string // "" when unbound
	owner     any    // nil when unbound
}

// Registry is the process-wide container provider.
//
// It tracks all live containers in a flat index plus two auxiliary indices
// (namespace scope string → binding, owner pointer identity → binding), caches
// computed namespace resolution chains, and keeps an atomic fast path that is
// valid exactly while one single container is registered.
//
// All indices are safe under arbitrary concurrent registration, removal, and
// resolution. The chain cache is invalidate-and-recompute: every registry
// mutation flushes it entirely, and a miss rebuilds the chain from the
// namespace index under a read lock only.
type Registry struct {
	log    *zap.Logger
	scopes *scopeController

	mu          sync.RWMutex
	containers  map[*Container]*binding
	byNamespace map[string]*binding
	byOwner     map[any]*binding

	// chains caches queried namespace → ordered container chain. gen counts
	// index mutations so a chain built against a superseded index is never
	// cached after the flush that invalidated it.
	chains *gocache.Cache
	gen    atomic.Uint64

	// single holds the lone container while exactly one is registered.
	// Written inside the registry mutex together with the index mutation, so
	// readers never observe a value inconsistent with the live count.
	single atomic.Pointer[Container]
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		log:         zap.NewNop(),
		scopes:      newScopeController(),
		containers:  make(map[*Container]*binding),
		byNamespace: make(map[string]*binding),
		byOwner:     make(map[any]*binding),
		chains:      gocache.New(gocache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the process-wide registry most callers share. Tests and
// hot-reload cycles can reset it wholesale via Dispose.
var Default = NewRegistry()

// RegisterContainer adds a container to the registry, optionally binding it to
// a namespace scope and/or an owner identity.
//
// It rejects a nil container, a whitespace-only namespace, a non-pointer
// owner, and any binding already claimed by a live container
// (DuplicateRegistrationError). On success the chain cache is flushed, the
// single-container fast path is recomputed, and the container's dispose hook
// is claimed so teardown auto-unregisters it.
func (r *Registry) RegisterContainer(c *Container, opts ...BindOption) error {
	if c == nil {
		return ErrNilContainer
	}

	var spec bindSpec
	for _, opt := range opts {
		opt(&spec)
	}

	if spec.hasNamespace && strings.TrimSpace(spec.namespace) == "" {
		return ErrEmptyNamespace
	}
	if spec.owner != nil && !isPointerIdentity(spec.owner) {
		return ErrNotPointerOwner
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.containers[c]; exists {
		return DuplicateRegistrationError{Kind: "container", Key: c.id.String()}
	}
	if spec.hasNamespace {
		if _, exists := r.byNamespace[spec.namespace]; exists {
			return DuplicateRegistrationError{Kind: "namespace", Key: spec.namespace}
		}
	}
	if spec.owner != nil {
		if _, exists := r.byOwner[spec.owner]; exists {
			return DuplicateRegistrationError{Kind: "owner", Key: producedType(spec.owner)}
		}
	}

	b := &binding{container: c, owner: spec.owner}
	if spec.hasNamespace {
		b.namespace = spec.namespace
	}

	r.containers[c] = b
	if b.namespace != "" {
		r.byNamespace[b.namespace] = b
	}
	if b.owner != nil {
		r.byOwner[b.owner] = b
	}

	r.afterMutation()
	c.OnDispose(func(dc *Container) { r.UnregisterContainer(dc) })

	r.log.Debug("container registered",
		zap.Stringer("container", c.id),
		zap.String("namespace", b.namespace),
		zap.Int("live", len(r.containers)))
	return nil
}

// UnregisterContainer removes a container from every index it is present in.
// Unknown (or nil) containers are a no-op. The chain cache is flushed and the
// fast path recomputed — restored when exactly one container remains.
func (r *Registry) UnregisterContainer(c *Container) {
	if c == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, exists := r.containers[c]
	if !exists {
		return
	}

	delete(r.containers, c)
	if b.namespace != "" {
		delete(r.byNamespace, b.namespace)
	}
	if b.owner != nil {
		delete(r.byOwner, b.owner)
	}

	r.afterMutation()

	r.log.Debug("container unregistered",
		zap.Stringer("container", c.id),
		zap.Int("live", len(r.containers)))
}

// Count returns the number of live containers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.containers)
}

// Dispose resets the registry wholesale: all indices and the chain cache are
// cleared, the fast path is dropped, and every goroutine's ambient scope stack
// is emptied. Registered containers are not disposed; they merely stop being
// resolvable through this registry. Intended for full process-wide resets
// between test runs or hot-reload cycles.
func (r *Registry) Dispose() {
	r.mu.Lock()
	n := len(r.containers)
	r.containers = make(map[*Container]*binding)
	r.byNamespace = make(map[string]*binding)
	r.byOwner = make(map[any]*binding)
	r.gen.Add(1)
	r.chains.Flush()
	r.single.Store(nil)
	r.mu.Unlock()

	r.scopes.reset()

	r.log.Debug("registry disposed", zap.Int("dropped", n))
}

// ResolveFrom resolves T without an explicit scope.
//
// If the calling goroutine has an active ambient scope frame, resolution is
// delegated to the matching scoped path. Otherwise the single-container fast
// path is used when it holds; with zero containers the call fails with
// NotRegisteredError, and with several it fails with ErrAmbiguousScope.
func ResolveFrom[T any](r *Registry) (T, error) {
	if frame := r.scopes.current(goroutineID()); frame != nil {
		if frame.kind == frameOwner {
			return ResolveFor[T](r, frame.owner)
		}
		return ResolveIn[T](r, frame.namespace)
	}

	if c := r.single.Load(); c != nil {
		return Resolve[T](c)
	}

	var zero T
	if r.Count() == 0 {
		return zero, NotRegisteredError{Type: typeOf[T]()}
	}
	return zero, ErrAmbiguousScope
}

// TryResolveFrom is ResolveFrom except a missing registration yields ok=false
// instead of an error. Every other failure kind is still returned as an error.
func TryResolveFrom[T any](r *Registry) (val T, ok bool, err error) {
	return tryConvert(ResolveFrom[T](r))
}

// ResolveIn resolves T against the hierarchical namespace scope: the cached
// ancestor chain for namespace (most specific first) is tried in order, and
// the first container that can resolve T wins. A chain entry lacking a
// registration for T is skipped; any other failure propagates immediately.
// When no ancestor namespace is bound at all, the single-container fast path
// applies as a fallback.
func ResolveIn[T any](r *Registry, namespace string) (T, error) {
	var zero T
	if strings.TrimSpace(namespace) == "" {
		return zero, ErrEmptyNamespace
	}

	chain := r.chainFor(namespace)
	for _, c := range chain {
		v, err := Resolve[T](c)
		if err == nil {
			return v, nil
		}
		if notRegistered(err) {
			continue
		}
		return zero, err
	}

	if len(chain) == 0 {
		if c := r.single.Load(); c != nil {
			return Resolve[T](c)
		}
	}
	return zero, NotRegisteredError{Type: typeOf[T]()}
}

// TryResolveIn is ResolveIn except a missing registration yields ok=false
// instead of an error.
func TryResolveIn[T any](r *Registry, namespace string) (val T, ok bool, err error) {
	return tryConvert(ResolveIn[T](r, namespace))
}

// ResolveFor resolves T from the container bound to the owner's identity.
// Identity means pointer equality; no value-based matching is attempted.
func ResolveFor[T any](r *Registry, owner any) (T, error) {
	var zero T
	if !isPointerIdentity(owner) {
		return zero, ErrNotPointerOwner
	}

	r.mu.RLock()
	b, exists := r.byOwner[owner]
	r.mu.RUnlock()

	if !exists {
		return zero, NotRegisteredError{Type: typeOf[T]()}
	}
	return Resolve[T](b.container)
}

// TryResolveFor is ResolveFor except a missing registration yields ok=false
// instead of an error.
func TryResolveFor[T any](r *Registry, owner any) (val T, ok bool, err error) {
	return tryConvert(ResolveFor[T](r, owner))
}

// chainFor returns the ordered ancestor chain for a queried namespace,
// building and caching it on a miss.
func (r *Registry) chainFor(namespace string) []*Container {
	if v, ok := r.chains.Get(namespace); ok {
		return v.([]*Container)
	}

	gen := r.gen.Load()
	chain := r.buildChain(namespace)
	if r.gen.Load() == gen {
		r.chains.Set(namespace, chain, gocache.NoExpiration)
	}
	return chain
}

// buildChain walks the namespace toward its root, stripping one dot-delimited
// segment at a time, and collects the container bound at each level. The
// result is ordered most specific first.
func (r *Registry) buildChain(namespace string) []*Container {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []*Container
	for s := namespace; ; {
		if b, ok := r.byNamespace[s]; ok {
			chain = append(chain, b.container)
		}
		i := strings.LastIndexByte(s, '.')
		if i < 0 {
			break
		}
		s = s[:i]
	}
	return chain
}

// afterMutation re-establishes the mutation-sensitive caches. Must be called
// with r.mu held by every code path that changes an index: the chain cache is
// flushed entirely, and the fast path is set exactly when one container is
// live.
func (r *Registry) afterMutation() {
	r.gen.Add(1)
	r.chains.Flush()

	if len(r.containers) == 1 {
		for c := range r.containers {
			r.single.Store(c)
		}
		return
	}
	r.single.Store(nil)
}

// tryConvert maps a (val, err) resolve result onto the Try* (val, ok, err)
// shape: NotRegisteredError becomes ok=false, everything else stays an error.
func tryConvert[T any](val T, err error) (T, bool, error) {
	if err != nil {
		var zero T
		if notRegistered(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return val, true, nil
}

// isPointerIdentity reports whether owner can serve as an identity key.
// Go map lookup on interface values uses structural equality (and panics on
// unhashable kinds), so owner scopes are restricted to plain pointers, where
// equality and identity coincide.
func isPointerIdentity(owner any) bool {
	if owner == nil {
		return false
	}
	return reflect.TypeOf(owner).Kind() == reflect.Ptr
}
