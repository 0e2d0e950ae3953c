// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import (
	"fmt"
	"sync"
	"weak"

	itemstatus "github.com/arbortree/arbor/internal/status"
)

// Status and Layer are re-exported from internal/status so that callers
// never need to import the internal package directly; the legality
// table itself stays an implementation detail behind internal/status.
type (
	Status = itemstatus.Status
	Layer  = itemstatus.Layer
)

const (
	New               = itemstatus.New
	Existing          = itemstatus.Existing
	ExistingModified  = itemstatus.ExistingModified
	ExistingRemoved   = itemstatus.ExistingRemoved
	StaleModified     = itemstatus.StaleModified
	StaleDestroyed    = itemstatus.StaleDestroyed
	Removed           = itemstatus.Removed
	Invalidated       = itemstatus.Invalidated
	Modified          = itemstatus.Modified
	Workspace         = itemstatus.Workspace
	Session           = itemstatus.Session
)

// ItemState is the shared base of NodeState and PropertyState: status,
// the listener protocol, the parent back-reference, the overlayed-state
// link, and bottom-up path construction.
//
// This is spec.md's "abstract base" expressed as Go composition rather
// than inheritance — the tagged-variant design spec.md §9 recommends:
// NodeState and PropertyState each embed ItemState and add their own
// kind-specific data and views, mirroring gaissmai/bart's noder /
// nodeReader split between capabilities every node has and capabilities
// only a full (non-leaf) node exposes.
//
// A *ItemState's monitor (mu) serializes status transitions and is the
// same monitor NodeState uses to serialize child-collection and
// property-set mutation (spec.md §5's "per-state monitor"). The listener
// collection has its own, separate lock (see listenerSet) — lock order
// is always state-monitor-then-release, then (independently)
// listener-collection-lock, never both held at once.
type ItemState struct {
	mu sync.Mutex

	layer  Layer
	status Status

	isNode bool
	isRoot bool
	name   Name // property name, or this node's own name as a child; zero for the root node

	nodeID NodeID     // valid iff isNode
	propID PropertyID // valid iff !isNode

	parentW weak.Pointer[NodeState] // weak: child -> parent is observational only

	overlayed *ItemState // strong: session -> workspace; nil for NEW or workspace states

	listeners listenerSet

	// onResync is invoked by the commit-propagation reaction (see
	// StatusChanged) just before the session state re-settles at
	// EXISTING, to pull fresh data from the workspace twin. NodeState
	// and PropertyState each install their own copy-on-write "pull".
	onResync func()

	// owner is the concrete *NodeState or *PropertyState that embeds
	// this ItemState. ItemState itself only ever hands out *ItemState
	// (Overlayed, StatusChanged's parameter, ...); collaborators that
	// need the concrete overlayed twin back (e.g. NodeState.pull) get
	// there via owner, since Go has no reverse-embedding reflection.
	owner any
}

func newItemState(layer Layer, isNode bool) *ItemState {
	return &ItemState{layer: layer, status: New, isNode: isNode}
}

// Status returns the item's current status.
func (s *ItemState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Layer reports whether s is a workspace or session state.
func (s *ItemState) Layer() Layer { return s.layer }

// IsNode reports whether s backs a NodeState (as opposed to a
// PropertyState).
func (s *ItemState) IsNode() bool { return s.isNode }

// Parent resolves the weak parent back-reference. ok is false if the
// parent has been reclaimed or was never set (e.g. for a detached or
// root state).
func (s *ItemState) Parent() (*NodeState, bool) {
	p := s.parentW.Value()
	return p, p != nil
}

func (s *ItemState) setParent(p *NodeState) {
	s.parentW = weak.Make(p)
}

// Overlayed returns the workspace counterpart of a session state, if
// connected.
func (s *ItemState) Overlayed() (*ItemState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlayed, s.overlayed != nil
}

// Connect binds a session state to its workspace counterpart and
// registers itself as a status listener on it. Connect is one-shot:
// connecting to the same workspace state twice is a no-op, but
// connecting to a *different* workspace state after the first connect
// fails with IllegalStateError — spec.md §4.3's "rebinding to a
// different workspace is forbidden."
func (s *ItemState) Connect(overlayed *ItemState) error {
	if s.layer != Session {
		return illegalState("Connect", "Connect is only valid on session states")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlayed != nil {
		if s.overlayed == overlayed {
			return nil
		}
		return illegalState("Connect", "session state is already connected to a different workspace state")
	}
	s.overlayed = overlayed
	AddListener(overlayed, s)
	return nil
}

// SetStatus implements spec.md §4.3's seven-step contract: no-op on
// from==to; reject from a terminal status; validate against the
// layer's transition table; update; snapshot listeners under their own
// lock; notify outside any lock; collapse the transient MODIFIED pulse
// back to EXISTING once notification has completed.
func (s *ItemState) SetStatus(to Status) error {
	s.mu.Lock()
	from := s.status
	if from == to {
		s.mu.Unlock()
		return nil
	}
	if itemstatus.IsTerminal(from) {
		s.mu.Unlock()
		return illegalState("SetStatus", fmt.Sprintf("%s is terminal, cannot transition to %s", from, to))
	}
	if !itemstatus.IsLegal(s.layer, from, to) {
		s.mu.Unlock()
		return illegalArgument("SetStatus", fmt.Sprintf("illegal %s transition %s -> %s", s.layer, from, to))
	}
	s.status = to
	s.mu.Unlock()

	for _, l := range s.listeners.snapshot() {
		if sl, ok := l.(StatusListener); ok {
			sl.StatusChanged(s, from)
		}
	}

	if to == Modified {
		s.mu.Lock()
		if s.status == Modified {
			s.status = Existing
		}
		s.mu.Unlock()
	}
	return nil
}

// Name returns this item's own name: its name as a child, for a node
// (the zero Name for a root), or its property name, for a property.
func (s *ItemState) Name() Name { return s.name }

// MarkExisting forces a freshly constructed workspace-layer item
// directly into EXISTING, bypassing the transition table. Factory
// implementations (see spi/fsrepo) use this when materializing a state
// loaded from storage: the state was never NEW from this process's
// point of view, so there is no legal "from" status for SetStatus to
// transition out of.
func (s *ItemState) MarkExisting() {
	s.mu.Lock()
	s.status = Existing
	s.mu.Unlock()
}

// MarkModified transitions a session state from EXISTING to
// EXISTING_MODIFIED. Calling it on a stale or removed state is a
// programmer error (IllegalStateError), distinct from the generic
// IllegalArgumentError SetStatus itself would raise for an arbitrary
// bad transition — spec.md §7 singles these cases out.
func (s *ItemState) MarkModified() error {
	if s.layer != Session {
		return illegalState("MarkModified", "MarkModified is only valid on session states")
	}
	switch s.Status() {
	case StaleModified, StaleDestroyed, Removed:
		return illegalState("MarkModified", fmt.Sprintf("cannot mark modified: status is %s", s.Status()))
	}
	return s.SetStatus(ExistingModified)
}

// Remove transitions a session state from EXISTING to EXISTING_REMOVED.
func (s *ItemState) Remove() error {
	if s.layer != Session {
		return illegalState("Remove", "Remove is only valid on session states")
	}
	return s.SetStatus(ExistingRemoved)
}

// Revert resyncs an EXISTING_MODIFIED session state from its workspace
// twin and settles it back at EXISTING, synchronously. Reverting a
// state that isn't EXISTING_MODIFIED is a no-op, matching spec.md §5's
// "revert walks dirty descendants" — a clean state has nothing to
// revert.
func (s *ItemState) Revert() error {
	if s.Status() != ExistingModified {
		return nil
	}
	if s.onResync != nil {
		s.onResync()
	}
	return s.SetStatus(Existing)
}

// StatusChanged implements the session-side reaction to its workspace
// twin's transitions (spec.md §8's commit-propagation property):
//
//   - workspace REMOVED while session is EXISTING_MODIFIED -> STALE_DESTROYED
//   - workspace MODIFIED while session is EXISTING_MODIFIED -> STALE_MODIFIED
//   - workspace MODIFIED while session is EXISTING or INVALIDATED ->
//     resync from the twin, pulse MODIFIED, settle at EXISTING
//   - workspace INVALIDATED while session is EXISTING -> INVALIDATED
//
// Any other (workspace-status, session-status) combination is left
// alone: spec.md's session transition table does not define an edge for
// it, and StatusChanged does not invent one.
func (s *ItemState) StatusChanged(workspaceState *ItemState, previous Status) {
	if s.layer != Session {
		return
	}
	switch workspaceState.Status() {
	case Removed:
		if s.Status() == ExistingModified {
			_ = s.SetStatus(StaleDestroyed)
		}
	case Invalidated:
		if s.Status() == Existing {
			_ = s.SetStatus(Invalidated)
		}
	case Modified:
		switch s.Status() {
		case ExistingModified:
			_ = s.SetStatus(StaleModified)
		case Existing, Invalidated:
			if s.onResync != nil {
				s.onResync()
			}
			_ = s.SetStatus(Modified)
		}
	}
}

// Path builds this item's qualified path bottom-up: recurse to the
// parent (the root yields Root()), then append a Step for this item —
// (name) for a property, (name, index) for a node, with index left at
// its zero "absent/default" value when this is the only (or first)
// same-name sibling.
func (s *ItemState) Path() (Path, error) {
	parent, ok := s.Parent()
	if !ok {
		if s.isRoot {
			return Root(), nil
		}
		return nil, &ItemNotFoundError{ID: s.selfID()}
	}

	parentPath, err := parent.Path()
	if err != nil {
		return nil, err
	}

	if !s.isNode {
		return parentPath.Child(Step{Name: s.name}), nil
	}

	entry := parent.Children().Get(s.nodeID)
	if entry == nil {
		return nil, &RepositoryError{Msg: "path composition: node state has no corresponding child entry in its parent"}
	}
	idx, ok := parent.Children().IndexOf(entry)
	if !ok {
		return nil, &RepositoryError{Msg: "path composition: child entry index could not be resolved"}
	}
	step := Step{Name: s.name}
	if idx != DefaultIndex {
		step.Index = idx
	}
	return parentPath.Child(step), nil
}

func (s *ItemState) selfID() any {
	if s.isNode {
		return s.nodeID
	}
	return s.propID
}
