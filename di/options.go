package di

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

// ContainerOption configures a container at creation time.
type ContainerOption func(*Container)

// OwnInstances controls whether the container disposes its tracked instances
// on teardown. The default is true; pass false when instances outlive the
// container and are torn down elsewhere.
func OwnInstances(own bool) ContainerOption {
	return func(c *Container) { c.ownsInstances = own }
}

// WithDiagnostics enables cycle detection: each goroutine's in-flight
// resolution stack is tracked, and re-entering a type already on the stack
// fails with CircularDependencyError instead of recursing. This is a debug
// aid with per-resolve bookkeeping cost; leave it off in production builds.
func WithDiagnostics() ContainerOption {
	return func(c *Container) { c.diagnostics = true }
}

// DiagnosticsFromEnv enables cycle detection when the SDI_DIAGNOSTICS
// environment variable holds a truthy value ("1", "true", ...).
// Intentionally simple; expand via your own ContainerOption if you need more.
func DiagnosticsFromEnv() ContainerOption {
	return func(c *Container) {
		if v, err := strconv.ParseBool(os.Getenv("SDI_DIAGNOSTICS")); err == nil && v {
			c.diagnostics = true
		}
	}
}

// WithContainerLogger installs a structured logger on the container. The
// default is a nop logger; the container stays silent unless a caller opts in.
func WithContainerLogger(log *zap.Logger) ContainerOption {
	return func(c *Container) {
		if log != nil {
			c.log = log
		}
	}
}

// RegistryOption configures a registry at creation time.
type RegistryOption func(*Registry)

// WithLogger installs a structured logger on the registry. The default is a
// nop logger.
func WithLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// BindOption attaches auxiliary scope bindings when a container is registered
// with a registry.
type BindOption func(*bindSpec)

// bindSpec collects the optional scope bindings for RegisterContainer.
type bindSpec struct {
	namespace    string
	hasNamespace bool
	owner        any
}

// InNamespace binds the container to a dot-delimited namespace scope string
// (e.g. "app.ui"). A namespace can be claimed by at most one live container.
func InNamespace(namespace string) BindOption {
	return func(b *bindSpec) {
		b.namespace = namespace
		b.hasNamespace = true
	}
}

// ForOwner binds the container to an owner object's identity. The owner must
// be a pointer; it is held for lookup only and is never disposed by the
// registry. An owner identity can be claimed by at most one live container.
func ForOwner(owner any) BindOption {
	return func(b *bindSpec) { b.owner = owner }
}
