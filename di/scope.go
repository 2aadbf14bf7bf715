package di

import (
	"strings"
	"sync"
)

// frameKind discriminates ambient scope frames.
type frameKind uint8

const (
	frameNamespace frameKind = iota
	frameOwner
)

// scopeFrame is one entry on a goroutine's ambient scope stack. Frames link to
// their predecessor, forming a singly linked stack per goroutine.
type scopeFrame struct {
	kind      frameKind
	namespace string
	owner     any
	prev      *scopeFrame
}

// scopeController owns the ambient scope stacks of all goroutines, keyed by
// goroutine ID. A scope opened on one goroutine is invisible to all others.
type scopeController struct {
	mu   sync.Mutex
	tops map[int64]*scopeFrame
}

func newScopeController() *scopeController {
	return &scopeController{tops: make(map[int64]*scopeFrame)}
}

// current returns the calling goroutine's active frame, or nil.
func (s *scopeController) current(gid int64) *scopeFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tops[gid]
}

// push makes frame the calling goroutine's active frame.
func (s *scopeController) push(gid int64, frame *scopeFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame.prev = s.tops[gid]
	s.tops[gid] = frame
}

// release pops frame off the calling goroutine's stack. Releasing any frame
// other than the top one — including releasing the same frame twice — is a
// LIFO violation and fails.
func (s *scopeController) release(gid int64, frame *scopeFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tops[gid] != frame {
		return ErrOutOfOrderScopeRelease
	}
	if frame.prev == nil {
		delete(s.tops, gid)
	} else {
		s.tops[gid] = frame.prev
	}
	return nil
}

// reset drops every goroutine's ambient stack.
func (s *scopeController) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tops = make(map[int64]*scopeFrame)
}

// ScopeHandle is the releasable handle returned by BeginScope and
// BeginOwnerScope. It is bound to the exact frame it was created for.
type ScopeHandle struct {
	controller *scopeController
	frame      *scopeFrame
}

// Release pops the handle's frame off the calling goroutine's ambient stack.
//
// It fails with ErrOutOfOrderScopeRelease when the frame is not the top of the
// calling goroutine's stack: nested scopes must be released in exact reverse
// order of creation, a handle must not be released twice, and a handle must be
// released on the goroutine that opened it.
func (h *ScopeHandle) Release() error {
	return h.controller.release(goroutineID(), h.frame)
}

// BeginScope pushes an ambient namespace scope frame onto the calling
// goroutine's stack. Until the returned handle is released, unscoped registry
// resolves on this goroutine behave as Resolve-in-namespace calls.
func (r *Registry) BeginScope(namespace string) (*ScopeHandle, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, ErrEmptyNamespace
	}

	frame := &scopeFrame{kind: frameNamespace, namespace: namespace}
	r.scopes.push(goroutineID(), frame)
	return &ScopeHandle{controller: r.scopes, frame: frame}, nil
}

// BeginOwnerScope pushes an ambient owner scope frame onto the calling
// goroutine's stack. Until the returned handle is released, unscoped registry
// resolves on this goroutine behave as Resolve-for-owner calls.
func (r *Registry) BeginOwnerScope(owner any) (*ScopeHandle, error) {
	if !isPointerIdentity(owner) {
		return nil, ErrNotPointerOwner
	}

	frame := &scopeFrame{kind: frameOwner, owner: owner}
	r.scopes.push(goroutineID(), frame)
	return &ScopeHandle{controller: r.scopes, frame: frame}, nil
}
