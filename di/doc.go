// Package di implements a scoped dependency-resolution registry.
//
// The package is built from four pieces:
//
//   - Container — owns one registration per type (factory + lifetime + cached
//     instance), resolves instances under the lifetime policy, tracks every
//     disposable it produced, and tears them down in creation order.
//
//   - Registry — the process-wide provider. It tracks all live containers in a
//     flat index plus two auxiliary indices (namespace scope string → container,
//     owner pointer identity → container), caches ordered namespace resolution
//     chains, and keeps an atomic "exactly one container" fast path.
//
//   - Ambient scopes — BeginScope pushes a frame onto the calling goroutine's
//     scope stack so resolution calls can omit an explicit scope. Frames must be
//     released in exact reverse order of creation; violating that is a
//     programmer error and fails loudly.
//
//   - Typed operations — Go methods cannot carry type parameters, so the typed
//     surface is package-level generic functions (RegisterSingletonLazy,
//     Resolve, ResolveIn, ...) in the style of the odi v1 helpers.
//
// Resolution failure modes are deliberate and narrow: every error in the
// taxonomy (ErrDisposed, ErrAmbiguousScope, NotRegisteredError, ...) is fatal
// to the current call. The registry never retries or self-heals. The Try*
// variants convert exactly one failure kind — "nothing registered" — into a
// boolean false; everything else still surfaces as an error.
//
// Guidance
//
// Prefer passing containers (or explicit namespace scopes) through your call
// chains; reach for ambient scopes only at boundaries where callers cannot
// carry a scope argument. The registry-level resolve paths exist for generated
// wiring code and hot paths, not as the default style.
//
// Import
//
//	"github.com/sghaida/sdi/di"
package di
