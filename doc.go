// Package sdi provides a scoped dependency-resolution registry for Go.
//
// The repository is one small core package plus runnable examples:
//
//   - di: containers, lifetimes, the process-wide registry, and ambient scopes
//   - examples/basic: single ambient container, the smallest useful setup
//   - examples/scoped: hierarchical namespace scopes, object scopes, and
//     ambient scope frames
//
// The goal is the same as in the sibling odi project: keep wiring explicit,
// avoid reflection-heavy containers, and keep the surface area intentionally
// small. A Container stores one registration per type under a lifetime policy
// (singleton or transient). The Registry tracks every live container and picks
// the right one for a resolution call: an explicit namespace or owner scope,
// an ambient per-goroutine scope frame, or a fast path when exactly one
// container exists.
//
// Start with the examples in the repo for end-to-end wiring style.
package sdi
