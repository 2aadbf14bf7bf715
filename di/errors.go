package di

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrDisposed is returned when an operation is attempted on a container
	// that has already been torn down.
	ErrDisposed = errors.New("di: container disposed")

	// ErrAmbiguousScope is returned by an unscoped resolve when more than one
	// container is registered and no ambient scope frame selects one of them.
	ErrAmbiguousScope = errors.New("di: multiple containers registered, scope required")

	// ErrNilContainer is returned when a nil container is handed to the
	// registry.
	ErrNilContainer = errors.New("di: nil container")

	// ErrNilInstance is returned when a nil pre-built instance is registered
	// as a singleton.
	ErrNilInstance = errors.New("di: nil instance")

	// ErrNilFactory is returned when a registration is created with a nil
	// factory function.
	ErrNilFactory = errors.New("di: nil factory function")

	// ErrNilType is returned when a registration is created with a nil
	// service type.
	ErrNilType = errors.New("di: nil service type")

	// ErrEmptyNamespace is returned when a namespace scope string is empty or
	// whitespace-only.
	ErrEmptyNamespace = errors.New("di: empty namespace scope")

	// ErrNotPointerOwner is returned when a scope owner is not a pointer.
	// Owner scopes are keyed by identity, which in Go means pointer equality.
	ErrNotPointerOwner = errors.New("di: scope owner must be a pointer")

	// ErrOutOfOrderScopeRelease is returned when a scope handle is released
	// while it is not the top of the calling goroutine's scope stack, or when
	// it is released twice. Ambient scopes are strictly LIFO.
	ErrOutOfOrderScopeRelease = errors.New("di: scope released out of order")
)

// NotRegisteredError is returned when no registration exists for the requested
// type in the resolvable container set.
//
// It is the only failure kind the Try* resolve variants convert into a boolean
// false instead of an error.
type NotRegisteredError struct {
	// Type is the requested service type.
	Type reflect.Type
}

// Error implements the error interface.
func (e NotRegisteredError) Error() string {
	// Example: di: type *mypkg.DB not registered
	return "di: type " + typeName(e.Type) + " not registered"
}

// TypeMismatchError is returned when a factory produced a value whose runtime
// type does not satisfy the requested type. This is a registration bug, not a
// transient condition.
type TypeMismatchError struct {
	// Type is the requested service type.
	Type reflect.Type

	// GotType is reflect.TypeOf(produced).String() for the produced value.
	GotType string
}

// Error implements the error interface.
func (e TypeMismatchError) Error() string {
	// Example: di: type mismatch for db.Store (got *mypkg.Logger)
	return "di: type mismatch for " + typeName(e.Type) + " (got " + e.GotType + ")"
}

// DuplicateRegistrationError is returned when a container, a namespace scope
// string, or an owner identity is already bound in the registry.
type DuplicateRegistrationError struct {
	// Kind names what collided: "container", "namespace", or "owner".
	Kind string

	// Key is a printable rendering of the colliding key.
	Key string
}

// Error implements the error interface.
func (e DuplicateRegistrationError) Error() string {
	// Example: di: duplicate namespace registration "app.ui"
	return "di: duplicate " + e.Kind + " registration " + strconv.Quote(e.Key)
}

// CircularDependencyError is returned by diagnostic containers when a type's
// factory resolves the same type again, directly or through intermediaries.
type CircularDependencyError struct {
	// Chain is the resolution stack at detection time, outermost first, with
	// the re-entered type appended.
	Chain []reflect.Type
}

// Error implements the error interface.
func (e CircularDependencyError) Error() string {
	names := make([]string, 0, len(e.Chain))
	for _, t := range e.Chain {
		names = append(names, typeName(t))
	}
	// Example: di: circular dependency: *A -> *B -> *A
	return "di: circular dependency: " + strings.Join(names, " -> ")
}

// typeName renders a reflect.Type for error messages, tolerating nil.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// notRegistered reports whether err is (or wraps) a NotRegisteredError.
func notRegistered(err error) bool {
	var nr NotRegisteredError
	return errors.As(err, &nr)
}
