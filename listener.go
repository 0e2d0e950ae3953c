// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import (
	"sync"
	"weak"
)

// StatusListener is notified of every status transition on an ItemState,
// including the transient MODIFIED pulse.
type StatusListener interface {
	StatusChanged(state *ItemState, previous Status)
}

// NodeListener is notified of structural changes to a NodeState's child
// collection. Only NodeState fires these; PropertyState has no children.
type NodeListener interface {
	NodeAdded(parent *NodeState, name Name, index int, id NodeID)
	NodeRemoved(parent *NodeState, name Name, index int, id NodeID)
	NodesReplaced(parent *NodeState)
}

// weakEntry holds a listener weakly, keyed for removal by the
// weak.Pointer itself. Per the weak package's documentation, two
// weak.Pointer values created from the same object compare equal with
// == even after the referent is collected, which is exactly the
// identity-semantics equality spec.md §9 asks for ("key on
// pointer/identity, never on equality") — and, critically, storing the
// weak.Pointer (rather than an unsafe.Pointer or uintptr derived from
// the listener) does not itself keep the listener reachable.
type weakEntry struct {
	key     any // weak.Pointer[T], boxed for heterogeneous storage
	resolve func() (any, bool)
}

func newWeakEntry[T any](l *T) weakEntry {
	wp := weak.Make(l)
	return weakEntry{
		key: wp,
		resolve: func() (any, bool) {
			p := wp.Value()
			if p == nil {
				return nil, false
			}
			return p, true
		},
	}
}

// listenerSet is an identity-semantics, weakly-referenced collection of
// listeners. addListener/removeListener are serialized on mu; iteration
// for notification is always done on a snapshot taken under mu and then
// released before callbacks fire (spec.md §5's listener-collection
// lock), so a callback may itself add or remove listeners without
// deadlocking or corrupting the set.
type listenerSet struct {
	mu      sync.Mutex
	entries []weakEntry
}

func (ls *listenerSet) add(e weakEntry) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.entries = append(ls.entries, e)
}

func (ls *listenerSet) removeKey(key any) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i, e := range ls.entries {
		if e.key == key {
			ls.entries = append(ls.entries[:i], ls.entries[i+1:]...)
			return
		}
	}
}

// snapshot resolves every still-live listener under the lock, silently
// dropping dead weak handles from the backing store as it goes (spec.md
// §8's "weak listener collection" testable property), and returns the
// resolved listeners for the caller to notify outside the lock.
func (ls *listenerSet) snapshot() []any {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	out := make([]any, 0, len(ls.entries))
	alive := ls.entries[:0]
	for _, e := range ls.entries {
		if v, ok := e.resolve(); ok {
			out = append(out, v)
			alive = append(alive, e)
		}
	}
	ls.entries = alive
	return out
}

// wpKey returns the weak.Pointer for l, boxed as any, so it can be
// compared against the key stored in a weakEntry for removal.
func wpKey[T any](l *T) any { return weak.Make(l) }

// AddListener registers l on s weakly. l is typically a *SomeListener
// value implementing StatusListener and/or NodeListener; the generic
// parameter lets AddListener accept any pointer type without the caller
// threading an interface conversion through weak.Make, which needs the
// concrete pointee type at the call site.
func AddListener[T any](s *ItemState, l *T) {
	s.listeners.add(newWeakEntry(l))
}

// RemoveListener detaches l from s, if still registered. A listener that
// has already been collected is simply absent; RemoveListener is then a
// no-op, matching weak-collection semantics.
func RemoveListener[T any](s *ItemState, l *T) {
	s.listeners.removeKey(wpKey(l))
}
