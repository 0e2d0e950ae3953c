// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "sort"

// NodeState is the item-state half that owns structure: a type name
// pair (primary plus mixins), the set of property names it carries
// (values themselves live in PropertyState, keyed by PropertyID), and
// its ChildCollection. NodeState embeds ItemState for status, the
// listener protocol, and path construction; it adds its own
// nodeListeners set for structural (NodeAdded/NodeRemoved/NodesReplaced)
// notifications, since those have nothing to do with status and would
// otherwise force every StatusListener to filter out traffic it doesn't
// care about.
type NodeState struct {
	ItemState

	primaryType Name
	mixinTypes  []Name

	propertyNames map[Name]struct{}
	children      *ChildCollection

	nodeListeners listenerSet
}

// newNodeState constructs an empty NodeState at status NEW, on either
// layer; callers that need another initial status set it explicitly.
// name is this node's own name as a child (zero for a root).
func newNodeState(layer Layer, id NodeID, name Name, primaryType Name) *NodeState {
	n := &NodeState{
		primaryType:   primaryType,
		propertyNames: make(map[Name]struct{}),
		children:      &ChildCollection{},
	}
	n.ItemState = *newItemState(layer, true)
	n.ItemState.nodeID = id
	n.ItemState.name = name
	n.ItemState.onResync = n.pull
	n.ItemState.owner = n
	return n
}

// NewNodeState constructs a non-root NodeState for use by Factory
// implementations (see spi/fsrepo) materializing a node freshly loaded
// from storage. The result starts out NEW; callers loading existing
// data follow up with MarkExisting.
func NewNodeState(layer Layer, id NodeID, name Name, primaryType Name) *NodeState {
	return newNodeState(layer, id, name, primaryType)
}

// NewRootNodeState constructs the distinguished root node state for a
// layer: it has no parent and an empty name, and Path() resolves it
// directly to Root() rather than walking a (nonexistent) parent chain.
func NewRootNodeState(layer Layer, id NodeID, primaryType Name) *NodeState {
	n := newNodeState(layer, id, Name{}, primaryType)
	n.ItemState.isRoot = true
	return n
}

// ID returns this node's NodeID.
func (n *NodeState) ID() NodeID { return n.nodeID }

// PrimaryType and MixinTypes report this node's type name(s).
func (n *NodeState) PrimaryType() Name     { return n.primaryType }
func (n *NodeState) MixinTypes() []Name    { return append([]Name(nil), n.mixinTypes...) }
func (n *NodeState) SetMixinTypes(m []Name) { n.mixinTypes = append([]Name(nil), m...) }

// Children returns this node's live ChildCollection. Callers that only
// read need no further synchronization beyond what ChildCollection
// itself documents; callers that mutate must hold the node's monitor —
// in practice that means going through AddChild/RemoveChild/RenameChild
// below rather than calling ChildCollection's mutators directly.
func (n *NodeState) Children() *ChildCollection { return n.children }

// HasPropertyName reports whether name is among this node's property
// names.
func (n *NodeState) HasPropertyName(name Name) bool {
	_, ok := n.propertyNames[name]
	return ok
}

// PropertyNames returns this node's property names in an unspecified
// but stable-for-the-call order.
func (n *NodeState) PropertyNames() []Name {
	out := make([]Name, 0, len(n.propertyNames))
	for name := range n.propertyNames {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Local < out[j].Local
	})
	return out
}

// AddPropertyName records name as one of this node's properties. It
// reports whether name was newly added (false if already present).
func (n *NodeState) AddPropertyName(name Name) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.propertyNames[name]; ok {
		return false
	}
	n.propertyNames[name] = struct{}{}
	return true
}

// RemovePropertyName removes name from this node's properties. It
// reports whether name had been present.
func (n *NodeState) RemovePropertyName(name Name) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.propertyNames[name]; !ok {
		return false
	}
	delete(n.propertyNames, name)
	return true
}

// AddChild appends a new child entry under the node's monitor and fires
// NodeAdded once the mutation is visible.
func (n *NodeState) AddChild(name Name, id NodeID) *ChildEntry {
	n.mu.Lock()
	e := n.children.Add(name, id)
	idx, _ := n.children.IndexOf(e)
	n.mu.Unlock()

	n.fireNodeAdded(name, idx, id)
	return e
}

// RemoveChild detaches the child at (name, index) under the node's
// monitor and fires NodeRemoved.
func (n *NodeState) RemoveChild(name Name, index int) (*ChildEntry, bool) {
	n.mu.Lock()
	e, ok := n.children.Remove(name, index)
	n.mu.Unlock()
	if !ok {
		return nil, false
	}
	n.fireNodeRemoved(name, index, e.ID)
	return e, true
}

// ReorderChild moves the child identified by id to immediately precede
// the child identified by beforeID, under the node's monitor. The zero
// NodeID (or any id not currently a child) moves it to the end. It
// reports whether id was found.
func (n *NodeState) ReorderChild(id, beforeID NodeID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.children.MoveBefore(id, beforeID)
}

// RenameChild moves the child at (name, index) to newName, preserving
// its NodeID, and fires NodeRemoved under the old name immediately
// followed by NodeAdded under the new one — spec.md models a rename as
// that exact pair rather than as its own event kind, since every
// NodeListener already has to handle both.
func (n *NodeState) RenameChild(name Name, index int, newName Name) (*ChildEntry, error) {
	n.mu.Lock()
	e, ok := n.children.Remove(name, index)
	if !ok {
		n.mu.Unlock()
		return nil, illegalArgument("RenameChild", "no such child at the given name/index")
	}
	newEntry := n.children.Add(newName, e.ID)
	newIdx, _ := n.children.IndexOf(newEntry)
	n.mu.Unlock()

	n.fireNodeRemoved(name, index, e.ID)
	n.fireNodeAdded(newName, newIdx, e.ID)
	return newEntry, nil
}

func (n *NodeState) fireNodeAdded(name Name, index int, id NodeID) {
	for _, l := range n.nodeListeners.snapshot() {
		if nl, ok := l.(NodeListener); ok {
			nl.NodeAdded(n, name, index, id)
		}
	}
}

func (n *NodeState) fireNodeRemoved(name Name, index int, id NodeID) {
	for _, l := range n.nodeListeners.snapshot() {
		if nl, ok := l.(NodeListener); ok {
			nl.NodeRemoved(n, name, index, id)
		}
	}
}

func (n *NodeState) fireNodesReplaced() {
	for _, l := range n.nodeListeners.snapshot() {
		if nl, ok := l.(NodeListener); ok {
			nl.NodesReplaced(n)
		}
	}
}

// AddNodeListener registers l for structural notifications on n, weakly
// — see listener.go's AddListener for the identity-semantics contract
// this follows.
func AddNodeListener[T any](n *NodeState, l *T) {
	n.nodeListeners.add(newWeakEntry(l))
}

// RemoveNodeListener detaches l from n's structural listener set.
func RemoveNodeListener[T any](n *NodeState, l *T) {
	n.nodeListeners.removeKey(wpKey(l))
}

// copy returns a new session-layer NodeState holding an independent
// copy of n's data: the type names and property-name set are copied, and
// the ChildCollection is Cloned immediately, so that the session can
// mutate its own view without disturbing n (which is presumed to be the
// workspace twin). Nothing is shared between the two states afterwards;
// there is no shared flag and no deferred clone on first mutation.
// The returned state is left unconnected; the caller is responsible for
// Connect-ing it to n's ItemState.
func (n *NodeState) copy() *NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := newNodeState(Session, n.nodeID, n.name, n.primaryType)
	s.mixinTypes = append([]Name(nil), n.mixinTypes...)
	for name := range n.propertyNames {
		s.propertyNames[name] = struct{}{}
	}
	s.children = n.children.Clone()
	return s
}

// pull re-synchronizes this (session) NodeState's owned data from its
// overlayed workspace twin. It is installed as n.onResync and invoked
// by ItemState.StatusChanged's MODIFIED-pulse reaction; it always
// replaces the child collection wholesale (rather than diffing it in
// place) and fires NodesReplaced once, since a resync is defined as
// "this view is no longer trustworthy, rebuild it," not an incremental
// structural edit.
func (n *NodeState) pull() {
	overlayed, ok := n.Overlayed()
	if !ok {
		return
	}
	twin := overlayed.owner.(*NodeState)

	twin.mu.Lock()
	primaryType := twin.primaryType
	mixinTypes := append([]Name(nil), twin.mixinTypes...)
	propertyNames := make(map[Name]struct{}, len(twin.propertyNames))
	for name := range twin.propertyNames {
		propertyNames[name] = struct{}{}
	}
	children := twin.children.Clone()
	twin.mu.Unlock()

	n.mu.Lock()
	n.primaryType = primaryType
	n.mixinTypes = mixinTypes
	n.propertyNames = propertyNames
	n.children = children
	n.mu.Unlock()

	n.fireNodesReplaced()
}

// mergeFrom overwrites n's own type names, property-name set, and
// children from fresh, under n's monitor. Used by Manager.Apply to
// bring a cached workspace state back in sync with a freshly reloaded
// factory read before pulsing MODIFIED — the same fields pull() copies
// from an overlayed twin, here sourced from the factory instead.
func (n *NodeState) mergeFrom(fresh *NodeState) {
	n.mu.Lock()
	n.primaryType = fresh.primaryType
	n.mixinTypes = append([]Name(nil), fresh.mixinTypes...)
	n.propertyNames = make(map[Name]struct{}, len(fresh.propertyNames))
	for name := range fresh.propertyNames {
		n.propertyNames[name] = struct{}{}
	}
	n.children = fresh.children.Clone()
	n.mu.Unlock()
}

// AddedPropertyNames returns the property names present on this
// (session) state but absent from its overlayed workspace twin. If
// unconnected, every one of this state's own property names counts as
// added (spec.md §4.4: "If no overlayed state exists, 'added' = all
// own").
func (n *NodeState) AddedPropertyNames() []Name {
	twin, ok := n.overlayedNode()
	if !ok {
		return n.PropertyNames()
	}
	var out []Name
	for name := range n.propertyNames {
		if !twin.HasPropertyName(name) {
			out = append(out, name)
		}
	}
	return out
}

// RemovedPropertyNames returns the property names present on the
// overlayed workspace twin but absent from this (session) state.
func (n *NodeState) RemovedPropertyNames() []Name {
	twin, ok := n.overlayedNode()
	if !ok {
		return nil
	}
	var out []Name
	for name := range twin.propertyNames {
		if !n.HasPropertyName(name) {
			out = append(out, name)
		}
	}
	return out
}

// AddedChildNodeEntries returns the child entries present in this
// state's collection but not in the overlayed twin's, matching on
// (name, id). If unconnected, every one of this state's own child
// entries counts as added (spec.md §4.4).
func (n *NodeState) AddedChildNodeEntries() []*ChildEntry {
	twin, ok := n.overlayedNode()
	if !ok {
		return n.children.All()
	}
	return n.children.RemoveAll(twin.children)
}

// RemovedChildNodeEntries returns the child entries present in the
// overlayed twin's collection but not in this state's.
func (n *NodeState) RemovedChildNodeEntries() []*ChildEntry {
	twin, ok := n.overlayedNode()
	if !ok {
		return nil
	}
	return twin.children.RemoveAll(n.children)
}

// ReorderedChildNodeEntries returns the entries whose position relative
// to the overlayed twin's ordering changed, per reorderedByLCS. Only
// entries present on both sides (by (name, id)) are compared, so added
// and removed children are never reported as reordered.
func (n *NodeState) ReorderedChildNodeEntries() []*ChildEntry {
	twin, ok := n.overlayedNode()
	if !ok {
		return nil
	}
	return reorderedByLCS(n.children.RetainAll(twin.children), twin.children.RetainAll(n.children))
}

func (n *NodeState) overlayedNode() (*NodeState, bool) {
	overlayed, ok := n.Overlayed()
	if !ok {
		return nil, false
	}
	twin, ok := overlayed.owner.(*NodeState)
	return twin, ok
}
