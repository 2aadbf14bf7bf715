package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

//
// -----------------------------------------------------------------------------
// BeginScope / Release: LIFO discipline
// -----------------------------------------------------------------------------

// TestScope_ReleaseInOrder verifies nested scopes released in exact reverse
// order succeed.
func TestScope_ReleaseInOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a, err := r.BeginScope("a")
	require.NoError(t, err)
	b, err := r.BeginScope("b")
	require.NoError(t, err)

	assert.NoError(t, b.Release())
	assert.NoError(t, a.Release())
}

// TestScope_ReleaseOutOfOrder verifies releasing an inner handle's
// predecessor first is a LIFO violation.
func TestScope_ReleaseOutOfOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a, err := r.BeginScope("a")
	require.NoError(t, err)
	b, err := r.BeginScope("b")
	require.NoError(t, err)

	assert.ErrorIs(t, a.Release(), ErrOutOfOrderScopeRelease)

	// The stack is intact; the correct order still works.
	assert.NoError(t, b.Release())
	assert.NoError(t, a.Release())
}

// TestScope_DoubleRelease verifies a handle cannot be released twice.
func TestScope_DoubleRelease(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	h, err := r.BeginScope("a")
	require.NoError(t, err)

	require.NoError(t, h.Release())
	assert.ErrorIs(t, h.Release(), ErrOutOfOrderScopeRelease)
}

// TestScope_BlankNamespace verifies blank namespaces cannot open a scope.
func TestScope_BlankNamespace(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.BeginScope(" ")
	assert.ErrorIs(t, err, ErrEmptyNamespace)
}

// TestScope_OwnerMustBePointer verifies owner scopes demand pointer identity.
func TestScope_OwnerMustBePointer(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.BeginOwnerScope("not a pointer")
	assert.ErrorIs(t, err, ErrNotPointerOwner)
}

// TestScope_LIFOProperty property-checks the stack discipline: for any
// sequence of pushes, releasing in reverse order always succeeds and
// releasing any non-top frame always fails without corrupting the stack.
func TestScope_LIFOProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		r := NewRegistry()

		depth := rapid.IntRange(1, 8).Draw(rt, "depth")
		handles := make([]*ScopeHandle, 0, depth)
		for i := 0; i < depth; i++ {
			h, err := r.BeginScope(rapid.StringMatching(`[a-z]{1,5}(\.[a-z]{1,5}){0,3}`).Draw(rt, "ns"))
			if err != nil {
				rt.Fatalf("begin scope: %v", err)
			}
			handles = append(handles, h)
		}

		// Any non-top release must fail and leave the stack usable.
		if depth > 1 {
			victim := rapid.IntRange(0, depth-2).Draw(rt, "victim")
			if err := handles[victim].Release(); err == nil {
				rt.Fatalf("released non-top frame %d of %d", victim, depth)
			}
		}

		// Reverse order drains the stack completely.
		for i := depth - 1; i >= 0; i-- {
			if err := handles[i].Release(); err != nil {
				rt.Fatalf("in-order release of frame %d: %v", i, err)
			}
		}
		if frame := r.scopes.current(goroutineID()); frame != nil {
			rt.Fatalf("stack not empty after draining")
		}
	})
}

//
// -----------------------------------------------------------------------------
// Ambient resolution
// -----------------------------------------------------------------------------

// TestAmbient_NamespaceFrame verifies an unscoped resolve inside a namespace
// scope behaves like the scoped call.
func TestAmbient_NamespaceFrame(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	newScopedContainer(t, r, "app")
	newScopedContainer(t, r, "app.ui")

	h, err := r.BeginScope("app.ui.widgets")
	require.NoError(t, err)
	defer func() { require.NoError(t, h.Release()) }()

	got, err := ResolveFrom[*svcDB](r)
	require.NoError(t, err)
	assert.Equal(t, "app.ui", got.DSN)
}

// TestAmbient_OwnerFrame verifies an unscoped resolve inside an owner scope
// resolves from the owner-bound container.
func TestAmbient_OwnerFrame(t *testing.T) {
	t.Parallel()

	type widget struct{}
	owner := &widget{}

	r := NewRegistry()
	newScopedContainer(t, r, "decoy")
	c := NewContainer()
	require.NoError(t, RegisterSingleton(c, &svcDB{DSN: "owned"}))
	require.NoError(t, r.RegisterContainer(c, ForOwner(owner)))

	h, err := r.BeginOwnerScope(owner)
	require.NoError(t, err)
	defer func() { require.NoError(t, h.Release()) }()

	got, err := ResolveFrom[*svcDB](r)
	require.NoError(t, err)
	assert.Equal(t, "owned", got.DSN)
}

// TestAmbient_InnermostFrameWins verifies nested frames shadow their
// predecessors until released.
func TestAmbient_InnermostFrameWins(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	newScopedContainer(t, r, "a")
	newScopedContainer(t, r, "b")

	outer, err := r.BeginScope("a")
	require.NoError(t, err)
	inner, err := r.BeginScope("b")
	require.NoError(t, err)

	got, err := ResolveFrom[*svcDB](r)
	require.NoError(t, err)
	assert.Equal(t, "b", got.DSN)

	require.NoError(t, inner.Release())

	got, err = ResolveFrom[*svcDB](r)
	require.NoError(t, err)
	assert.Equal(t, "a", got.DSN)

	require.NoError(t, outer.Release())

	_, err = ResolveFrom[*svcDB](r)
	assert.ErrorIs(t, err, ErrAmbiguousScope)
}

// TestAmbient_InvisibleToOtherGoroutines verifies a scope opened on one
// goroutine does not leak into another.
func TestAmbient_InvisibleToOtherGoroutines(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	newScopedContainer(t, r, "a")
	newScopedContainer(t, r, "b")

	h, err := r.BeginScope("a")
	require.NoError(t, err)
	defer func() { require.NoError(t, h.Release()) }()

	done := make(chan error, 1)
	go func() {
		_, err := ResolveFrom[*svcDB](r)
		done <- err
	}()

	assert.ErrorIs(t, <-done, ErrAmbiguousScope)
}

// TestAmbient_ReleaseOnWrongGoroutine verifies a handle must be released on
// the goroutine that opened it.
func TestAmbient_ReleaseOnWrongGoroutine(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	h, err := r.BeginScope("a")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Release() }()
	assert.ErrorIs(t, <-done, ErrOutOfOrderScopeRelease)

	// Still releasable where it was opened.
	assert.NoError(t, h.Release())
}

// TestAmbient_ClearedByRegistryDispose verifies a full registry reset empties
// ambient stacks on every goroutine, not just the caller's.
func TestAmbient_ClearedByRegistryDispose(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	newScopedContainer(t, r, "a")

	opened := make(chan struct{})
	proceed := make(chan struct{})
	checked := make(chan error, 1)
	go func() {
		_, err := r.BeginScope("a")
		if err != nil {
			checked <- err
			return
		}
		close(opened)
		<-proceed
		// The frame opened above is gone after the reset.
		if frame := r.scopes.current(goroutineID()); frame != nil {
			checked <- assert.AnError
			return
		}
		checked <- nil
	}()

	<-opened
	r.Dispose()
	close(proceed)
	require.NoError(t, <-checked)
}
