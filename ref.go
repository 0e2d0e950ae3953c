// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "weak"

// ChildReference is a lazily-resolved pointer to a child NodeState,
// addressed by NodeID. It is the only reference type: there are no
// separate UUID-based and path-element-based variants, and resolution
// does not consult a Manager's identity map.
// Resolution always goes through a Factory, never a stored pointer
// directly, since the referenced state may not be loaded yet (or may
// have been evicted and need reloading) — grounded on gaissmai/bart's
// own lazy-resolution-at-access pattern, where a bartNode's children
// slice holds untyped entries resolved (type-switched) only when a
// caller actually walks into them, rather than eagerly materializing
// an entire subtree.
//
// A resolved NodeState is cached weakly: repeated resolution within a
// window where nothing else dropped the state is cheap (a single
// atomic load through weak.Pointer), but ChildReference itself never
// keeps the state alive past whatever other owner (a Manager's identity
// map, for instance) is already holding it.
type ChildReference struct {
	id    NodeID
	cache weak.Pointer[NodeState]
}

// NewChildReference builds an unresolved reference to id.
func NewChildReference(id NodeID) *ChildReference {
	return &ChildReference{id: id}
}

// ID returns the referenced NodeID without resolving it.
func (r *ChildReference) ID() NodeID { return r.id }

// Resolve returns the referenced NodeState, consulting the weak cache
// first and falling back to factory.GetNode on a cache miss (nil cached
// value, or a collected one). A cache miss repopulates the cache.
//
// Resolve surfaces *NoSuchItemError if factory has no state for this
// id, wrapped as *ItemStateError if the factory's own lookup fails for
// some other reason (a storage I/O error, for instance), matching
// spec.md §7's distinction between "no such item" and "the store
// misbehaved."
func (r *ChildReference) Resolve(factory Factory) (*NodeState, error) {
	if n := r.cache.Value(); n != nil {
		return n, nil
	}

	n, err := factory.GetNode(r.id)
	if err != nil {
		return nil, &ItemStateError{Op: "Resolve", Cause: err}
	}
	if n == nil {
		return nil, &NoSuchItemError{ID: r.id}
	}
	r.cache = weak.Make(n)
	return n, nil
}

// Invalidate clears the cached resolution, forcing the next Resolve to
// consult the factory again — used when a commit or external event
// means the cached state may no longer be current.
func (r *ChildReference) Invalidate() {
	r.cache = weak.Pointer[NodeState]{}
}
