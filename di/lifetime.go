package di

// Lifetime controls how a container reuses instances produced by a
// registration.
type Lifetime uint8

const (
	// Transient produces a fresh instance on every resolution.
	Transient Lifetime = iota

	// Singleton produces one instance on first resolution and reuses it for
	// the lifetime of the owning container.
	Singleton
)

// String implements fmt.Stringer.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	default:
		return "unknown"
	}
}
