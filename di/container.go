package di

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Disposable is the teardown capability a container looks for on every
// instance it produces. Instances implementing it are enrolled in the owning
// container's disposal list at creation time.
type Disposable interface {
	Dispose() error
}

// Container owns registrations and resolves instances from them.
//
// A container maps each service type to exactly one registration, tracks every
// disposable instance it produced (in creation order), and exposes a single
// dispose-notification hook. Containers are safe for concurrent use.
//
// The typed operations (RegisterSingletonLazy, Resolve, ...) are package-level
// generic functions because Go methods cannot carry type parameters.
type Container struct {
	id            uuid.UUID
	log           *zap.Logger
	ownsInstances bool
	diagnostics   bool

	mu          sync.RWMutex
	regs        map[reflect.Type]*registration
	disposables []Disposable
	disposed    bool
	onDispose   func(*Container)

	// Per-goroutine stacks of types currently being resolved.
	// Only maintained when diagnostics is on.
	resolvingMu sync.Mutex
	resolving   map[int64][]reflect.Type
}

// NewContainer creates an empty container.
//
// By default the container owns the instances it produces and disposes them on
// teardown; see OwnInstances. Cycle detection is off by default; see
// WithDiagnostics.
func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{
		id:            uuid.New(),
		log:           zap.NewNop(),
		ownsInstances: true,
		regs:          make(map[reflect.Type]*registration),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.diagnostics {
		c.resolving = make(map[int64][]reflect.Type)
	}
	return c
}

// ID returns the container's unique identity.
func (c *Container) ID() uuid.UUID { return c.id }

// OnDispose installs the container's single dispose-notification hook,
// replacing any previous one. The registry claims this hook when the container
// is registered, so it auto-unregisters on teardown.
func (c *Container) OnDispose(fn func(*Container)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDispose = fn
}

// RegisterFactory installs (or replaces) the registration for typ with an
// untyped factory. This is the raw surface used by generated wiring code; the
// produced value is verified against the requested type at resolution time.
func (c *Container) RegisterFactory(typ reflect.Type, lifetime Lifetime, factory Factory) error {
	if typ == nil {
		return ErrNilType
	}
	if factory == nil {
		return ErrNilFactory
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	c.regs[typ] = &registration{typ: typ, lifetime: lifetime, factory: factory}
	return nil
}

// RegisterSingletonLazy installs (or replaces) a lazy singleton registration
// for T. The factory runs on first resolution; the product is cached and
// reused for the container's lifetime.
func RegisterSingletonLazy[T any](c *Container, factory func(c *Container) (T, error)) error {
	if factory == nil {
		return ErrNilFactory
	}
	return c.RegisterFactory(typeOf[T](), Singleton, func(c *Container) (any, error) {
		return factory(c)
	})
}

// RegisterSingleton installs (or replaces) a pre-built instance as the
// singleton for T. The instance is enrolled for disposal tracking immediately,
// mirroring eager creation.
func RegisterSingleton[T any](c *Container, instance T) error {
	if any(instance) == nil {
		return ErrNilInstance
	}

	typ := typeOf[T]()
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.regs[typ] = &registration{
		typ:      typ,
		lifetime: Singleton,
		created:  true,
		instance: instance,
		factory: func(*Container) (any, error) {
			return instance, nil
		},
	}
	c.mu.Unlock()

	c.track(instance)
	return nil
}

// RegisterTransient installs (or replaces) a transient registration for T.
// The factory runs on every resolution.
func RegisterTransient[T any](c *Container, factory func(c *Container) (T, error)) error {
	if factory == nil {
		return ErrNilFactory
	}
	return c.RegisterFactory(typeOf[T](), Transient, func(c *Container) (any, error) {
		return factory(c)
	})
}

// Resolve resolves an instance of T from the container under the registered
// lifetime policy.
//
// It fails with ErrDisposed on a torn-down container, NotRegisteredError when
// no registration exists for T, TypeMismatchError when the produced value does
// not satisfy T, and CircularDependencyError (diagnostic containers only) on
// re-entrant resolution of T.
func Resolve[T any](c *Container) (T, error) {
	var zero T
	v, err := c.resolveType(typeOf[T]())
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, TypeMismatchError{Type: typeOf[T](), GotType: producedType(v)}
	}
	return out, nil
}

// TryResolve is Resolve except a missing registration yields ok=false instead
// of an error. Every other failure kind is still returned as an error.
func TryResolve[T any](c *Container) (val T, ok bool, err error) {
	val, err = Resolve[T](c)
	if err != nil {
		var zero T
		if notRegistered(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return val, true, nil
}

// Has reports whether a registration exists for T.
func Has[T any](c *Container) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.regs[typeOf[T]()]
	return ok
}

// Types returns the service types currently registered, in no particular
// order. Intended for introspection and tests.
func (c *Container) Types() []reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]reflect.Type, 0, len(c.regs))
	for t := range c.regs {
		types = append(types, t)
	}
	return types
}

// Dispose tears the container down. It is idempotent.
//
// On first call: if the container owns its instances, every tracked disposable
// is disposed in the exact order it was created (errors are aggregated, not
// short-circuited); the disposal list and all registrations are cleared; the
// disposed flag is set; the dispose hook fires. In-flight resolutions on other
// goroutines are not waited for — any of them observing the disposed flag
// fails with ErrDisposed.
func (c *Container) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	disposables := c.disposables
	c.disposables = nil
	c.regs = map[reflect.Type]*registration{}
	hook := c.onDispose
	c.onDispose = nil
	c.mu.Unlock()

	var err error
	if c.ownsInstances {
		for _, d := range disposables {
			err = multierr.Append(err, d.Dispose())
		}
	}

	if hook != nil {
		hook(c)
	}

	c.log.Debug("container disposed",
		zap.Stringer("container", c.id),
		zap.Int("instances", len(disposables)),
		zap.Bool("owned", c.ownsInstances))
	return err
}

// resolveType is the untyped resolution core shared by the typed helpers.
func (c *Container) resolveType(typ reflect.Type) (any, error) {
	c.mu.RLock()
	if c.disposed {
		c.mu.RUnlock()
		return nil, ErrDisposed
	}
	reg, ok := c.regs[typ]
	c.mu.RUnlock()

	if !ok {
		return nil, NotRegisteredError{Type: typ}
	}

	if c.diagnostics {
		if err := c.enterResolve(typ); err != nil {
			return nil, err
		}
		defer c.exitResolve(typ)
	}

	return reg.resolve(c)
}

// track enrolls an instance for disposal if it exposes the Disposable
// capability. Called once per produced instance, in creation order.
func (c *Container) track(v any) {
	d, ok := v.(Disposable)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposables = append(c.disposables, d)
}

// enterResolve pushes typ onto the calling goroutine's resolution stack,
// failing if typ is already on it.
func (c *Container) enterResolve(typ reflect.Type) error {
	gid := goroutineID()

	c.resolvingMu.Lock()
	defer c.resolvingMu.Unlock()

	stack := c.resolving[gid]
	for _, t := range stack {
		if t == typ {
			chain := make([]reflect.Type, len(stack), len(stack)+1)
			copy(chain, stack)
			return CircularDependencyError{Chain: append(chain, typ)}
		}
	}
	c.resolving[gid] = append(stack, typ)
	return nil
}

// exitResolve pops the calling goroutine's resolution stack.
func (c *Container) exitResolve(typ reflect.Type) {
	gid := goroutineID()

	c.resolvingMu.Lock()
	defer c.resolvingMu.Unlock()

	stack := c.resolving[gid]
	if n := len(stack); n > 0 && stack[n-1] == typ {
		if n == 1 {
			delete(c.resolving, gid)
		} else {
			c.resolving[gid] = stack[:n-1]
		}
	}
}

// typeOf returns the reflect.Type for T, including interface types.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// producedType renders the runtime type of a produced value for error
// messages.
func producedType(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
