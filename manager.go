// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "sync"

// EventKind classifies an Event fed into Manager.Apply: spec.md §6's
// six event-ingress kinds (node added, node removed, property added,
// property changed, property removed, child reordered), plus
// NodeChanged/PropertyChanged's wholesale-refresh cases for a
// file-granular watcher — spi/fsrepo.Watcher, for one — that can see
// "this node/property's on-disk JSON changed" but, lacking a shadow
// copy to diff against, cannot on its own say which field moved.
type EventKind int

const (
	NodeAdded EventKind = iota
	NodeChanged
	NodeRemoved
	PropertyAdded
	PropertyChanged
	PropertyRemoved
	ChildReordered
)

func (k EventKind) String() string {
	switch k {
	case NodeAdded:
		return "NodeAdded"
	case NodeChanged:
		return "NodeChanged"
	case NodeRemoved:
		return "NodeRemoved"
	case PropertyAdded:
		return "PropertyAdded"
	case PropertyChanged:
		return "PropertyChanged"
	case PropertyRemoved:
		return "PropertyRemoved"
	case ChildReordered:
		return "ChildReordered"
	default:
		return "Unknown"
	}
}

// Event reports a single external change, routed by Manager.Apply into
// the refresh of whichever cached workspace state(s) it concerns
// (spec.md §6: "the manager ... routes event streams into their
// refresh(event) entry"). Which fields are meaningful depends on Kind:
//
//   - NodeChanged, NodeRemoved: NodeID names the node itself.
//   - NodeAdded, ChildReordered: NodeID names the parent whose child
//     collection changed, and Name is the child's qualified name.
//     NodeAdded also sets ChildID to the new child's own id;
//     ChildReordered sets ChildID to the moved child's id and BeforeID
//     to the id it now precedes (the zero NodeID means "to the end").
//   - PropertyAdded: NodeID names the owning node, Name is the new
//     property's qualified name.
//   - PropertyChanged, PropertyRemoved: PropertyID names the property
//     itself.
type Event struct {
	Kind       EventKind
	NodeID     NodeID
	PropertyID PropertyID
	Name       Name
	ChildID    NodeID
	BeforeID   NodeID
}

// Apply reconciles a single external Event against this Manager's
// workspace-layer identity map, mutating the cached state's own data
// (per spec.md §6's refresh(event) contract) before transitioning its
// status: NodeRemoved/PropertyRemoved drive the corresponding state to
// REMOVED; NodeChanged/PropertyChanged re-fetch the current data from
// the factory, merge it in, and pulse MODIFIED; NodeAdded/
// ChildReordered/PropertyAdded mutate the parent node's child
// collection or property-name set directly and pulse MODIFIED. Every
// MODIFIED pulse propagates to every session connected to that state
// (see ItemState.StatusChanged). An event naming an id this Manager has
// never cached is silently ignored — there is nothing cached that needs
// to react, and the next WorkspaceNode/SessionNode call will simply
// load the current data fresh.
func (m *Manager) Apply(ev Event) error {
	switch ev.Kind {
	case NodeRemoved:
		n, err := m.cachedWorkspaceNode(ev.NodeID)
		if err != nil || n == nil {
			return err
		}
		return n.SetStatus(Removed)

	case NodeChanged:
		n, err := m.cachedWorkspaceNode(ev.NodeID)
		if err != nil || n == nil {
			return err
		}
		fresh, err := m.factory.GetNode(ev.NodeID)
		if err != nil {
			return &ItemStateError{Op: "Apply", Cause: err}
		}
		if fresh == nil {
			return n.SetStatus(Removed)
		}
		n.mergeFrom(fresh)
		return n.SetStatus(Modified)

	case NodeAdded:
		parent, err := m.cachedWorkspaceNode(ev.NodeID)
		if err != nil || parent == nil {
			return err
		}
		if parent.Children().Get(ev.ChildID) == nil {
			parent.AddChild(ev.Name, ev.ChildID)
		}
		return parent.SetStatus(Modified)

	case ChildReordered:
		parent, err := m.cachedWorkspaceNode(ev.NodeID)
		if err != nil || parent == nil {
			return err
		}
		parent.ReorderChild(ev.ChildID, ev.BeforeID)
		return parent.SetStatus(Modified)

	case PropertyRemoved:
		p, err := m.cachedWorkspaceProperty(ev.PropertyID)
		if err != nil || p == nil {
			return err
		}
		return p.SetStatus(Removed)

	case PropertyChanged:
		p, err := m.cachedWorkspaceProperty(ev.PropertyID)
		if err != nil || p == nil {
			return err
		}
		fresh, err := m.factory.GetProperty(ev.PropertyID)
		if err != nil {
			return &ItemStateError{Op: "Apply", Cause: err}
		}
		if fresh == nil {
			return p.SetStatus(Removed)
		}
		p.mergeFrom(fresh)
		return p.SetStatus(Modified)

	case PropertyAdded:
		owner, err := m.cachedWorkspaceNode(ev.NodeID)
		if err != nil || owner == nil {
			return err
		}
		owner.AddPropertyName(ev.Name)
		return owner.SetStatus(Modified)

	default:
		return illegalArgument("Apply", "unknown event kind")
	}
}

// cachedWorkspaceNode returns the workspace NodeState backing id if
// this Manager's workspace-layer identity map already holds one,
// without minting a new one as a side effect. (nil, nil) means
// "nothing to do."
func (m *Manager) cachedWorkspaceNode(id NodeID) (*NodeState, error) {
	m.mu.Lock()
	n, ok := m.workspaceNodes[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return n, nil
}

func (m *Manager) cachedWorkspaceProperty(id PropertyID) (*PropertyState, error) {
	m.mu.Lock()
	p, ok := m.workspaceProps[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return p, nil
}

// Factory is the storage-facing contract: load, persist, and delete the
// workspace-layer representation of nodes and properties. Get methods
// return (nil, nil) for "no such item" — Manager is the layer that
// turns an absent lookup into a *NoSuchItemError, since only it knows
// whether the caller was resolving a reference (where absence is an
// error) or probing for existence (where it isn't).
//
// Factory is deliberately storage-agnostic: spi/fsrepo implements it
// against a JSON-per-node filesystem tree, and InMemoryFactory (below)
// implements it against plain maps for tests and the reference Manager.
type Factory interface {
	GetNode(id NodeID) (*NodeState, error)
	GetProperty(id PropertyID) (*PropertyState, error)

	PutNode(n *NodeState) error
	PutProperty(p *PropertyState) error

	DeleteNode(id NodeID) error
	DeleteProperty(id PropertyID) error

	RootID() NodeID
}

// InMemoryFactory is the reference Factory: a pair of mutex-guarded
// maps. It is what the in-memory Manager runs against, and what tests
// across the module use as a Factory double. Grounded on
// gaissmai/bart.Table[V] as "the concrete, runnable instantiation
// behind the abstract node contracts" — here a flat map stands in for
// bart's popcount-compressed trie, since there is no prefix structure
// to exploit over opaque NodeIDs.
type InMemoryFactory struct {
	mu     sync.Mutex
	nodes  map[NodeID]*NodeState
	props  map[PropertyID]*PropertyState
	rootID NodeID
}

// NewInMemoryFactory creates a factory pre-seeded with a single root
// node of the given primary type.
func NewInMemoryFactory(rootType Name) *InMemoryFactory {
	rootID := NewNodeID()
	root := NewRootNodeState(Workspace, rootID, rootType)
	root.ItemState.status = Existing

	return &InMemoryFactory{
		nodes:  map[NodeID]*NodeState{rootID: root},
		props:  make(map[PropertyID]*PropertyState),
		rootID: rootID,
	}
}

func (f *InMemoryFactory) RootID() NodeID { return f.rootID }

func (f *InMemoryFactory) GetNode(id NodeID) (*NodeState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[id], nil
}

func (f *InMemoryFactory) GetProperty(id PropertyID) (*PropertyState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.props[id], nil
}

func (f *InMemoryFactory) PutNode(n *NodeState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[n.ID()] = n
	return nil
}

func (f *InMemoryFactory) PutProperty(p *PropertyState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[p.ID()] = p
	return nil
}

func (f *InMemoryFactory) DeleteNode(id NodeID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, id)
	return nil
}

func (f *InMemoryFactory) DeleteProperty(id PropertyID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.props, id)
	return nil
}

// Manager is the session-facing front door onto a Factory: it keeps the
// identity map of workspace states (so every caller resolving the same
// id within this Manager's lifetime observes the very same *NodeState,
// which is what makes Connect's one-shot semantics and the weak
// listener protocol meaningful) and materializes per-session
// copy-on-write views on demand.
//
// A Manager is scoped to one session over one workspace: concurrent
// sessions against the same workspace each get their own Manager, all
// sharing (and registering as listeners on) the same underlying
// Factory-backed workspace states if they resolve the same ids — in
// practice that means those Managers should be constructed from
// workspace states obtained via a single shared layer above Manager,
// which this reference implementation leaves to the caller.
type Manager struct {
	factory Factory

	mu             sync.Mutex
	workspaceNodes map[NodeID]*NodeState
	workspaceProps map[PropertyID]*PropertyState
	sessionNodes   map[NodeID]*NodeState
	sessionProps   map[PropertyID]*PropertyState
}

// NewManager builds a Manager over factory.
func NewManager(factory Factory) *Manager {
	return &Manager{
		factory:        factory,
		workspaceNodes: make(map[NodeID]*NodeState),
		workspaceProps: make(map[PropertyID]*PropertyState),
		sessionNodes:   make(map[NodeID]*NodeState),
		sessionProps:   make(map[PropertyID]*PropertyState),
	}
}

// Root returns the session view of the workspace root.
func (m *Manager) Root() (*NodeState, error) {
	return m.SessionNode(m.factory.RootID())
}

// WorkspaceNode resolves id against this Manager's workspace-layer
// identity map, populating it from the factory on first access and
// returning the cached *NodeState on every later call. This is what
// spec.md §3/§4.5 mean by "the manager caches" workspace states: a
// Factory is free to build a brand-new value on every GetNode (as
// spi/fsrepo.Repo does, decoding fresh from JSON each time), but two
// resolutions of the same id through one Manager must still observe
// the same pointer — that identity is what makes Connect's one-shot
// binding and the commit-propagation listener graph meaningful.
func (m *Manager) WorkspaceNode(id NodeID) (*NodeState, error) {
	m.mu.Lock()
	if n, ok := m.workspaceNodes[id]; ok {
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	n, err := m.factory.GetNode(id)
	if err != nil {
		return nil, &ItemStateError{Op: "WorkspaceNode", Cause: err}
	}
	if n == nil {
		return nil, &NoSuchItemError{ID: id}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.workspaceNodes[id]; ok {
		return cached, nil
	}
	m.workspaceNodes[id] = n
	return n, nil
}

// WorkspaceProperty resolves id against this Manager's workspace-layer
// identity map, analogous to WorkspaceNode.
func (m *Manager) WorkspaceProperty(id PropertyID) (*PropertyState, error) {
	m.mu.Lock()
	if p, ok := m.workspaceProps[id]; ok {
		m.mu.Unlock()
		return p, nil
	}
	m.mu.Unlock()

	p, err := m.factory.GetProperty(id)
	if err != nil {
		return nil, &ItemStateError{Op: "WorkspaceProperty", Cause: err}
	}
	if p == nil {
		return nil, &NoSuchItemError{ID: id}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.workspaceProps[id]; ok {
		return cached, nil
	}
	m.workspaceProps[id] = p
	return p, nil
}

// SessionNode returns this Manager's session-layer view of id, creating
// and Connect-ing it to the workspace state on first access and
// returning the cached view on every subsequent call.
func (m *Manager) SessionNode(id NodeID) (*NodeState, error) {
	m.mu.Lock()
	if s, ok := m.sessionNodes[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	workspace, err := m.WorkspaceNode(id)
	if err != nil {
		return nil, err
	}

	session := workspace.copy()
	session.ItemState.status = Existing
	if err := session.Connect(&workspace.ItemState); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if s, ok := m.sessionNodes[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.sessionNodes[id] = session
	m.mu.Unlock()
	return session, nil
}

// SessionProperty returns this Manager's session-layer view of id,
// analogous to SessionNode.
func (m *Manager) SessionProperty(id PropertyID) (*PropertyState, error) {
	m.mu.Lock()
	if s, ok := m.sessionProps[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	workspace, err := m.WorkspaceProperty(id)
	if err != nil {
		return nil, err
	}

	session := workspace.copy()
	session.ItemState.status = Existing
	if err := session.Connect(&workspace.ItemState); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if s, ok := m.sessionProps[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.sessionProps[id] = session
	m.mu.Unlock()
	return session, nil
}

// NewSessionNode creates a brand-new, NEW-status, unconnected session
// node under parent, mints it a NodeID, registers it as a child of
// parent, and tracks it in this Manager's identity map so a later
// commit can find it.
func (m *Manager) NewSessionNode(parent *NodeState, name Name, primaryType Name) *NodeState {
	id := NewNodeID()
	session := newNodeState(Session, id, name, primaryType)
	parent.AddChild(name, id)
	session.setParent(parent)

	m.mu.Lock()
	m.sessionNodes[id] = session
	m.mu.Unlock()
	return session
}

// Commit persists n's local edits to the workspace and propagates the
// resulting transition to every other session connected to the same
// workspace state, per spec.md §8's commit-propagation property:
//
//   - NEW session node: minted into the workspace at EXISTING, Connect-ed.
//   - EXISTING_MODIFIED: workspace data overwritten, workspace state
//     pulses MODIFIED (every *other* connected session that is EXISTING
//     or INVALIDATED resyncs; one that is EXISTING_MODIFIED goes
//     STALE_MODIFIED), this session settles at EXISTING.
//   - EXISTING_REMOVED: workspace state transitions to REMOVED (every
//     connected session that is EXISTING_MODIFIED goes STALE_DESTROYED;
//     sessions in other statuses are left as they are), deleted from the
//     factory, this session settles at REMOVED.
//
// Any other status is left untouched (nothing to commit).
func (m *Manager) Commit(n *NodeState) error {
	switch n.Status() {
	case New:
		workspace := newNodeState(Workspace, n.ID(), n.name, n.primaryType)
		workspace.ItemState.status = Existing
		workspace.mixinTypes = append([]Name(nil), n.mixinTypes...)
		for name := range n.propertyNames {
			workspace.propertyNames[name] = struct{}{}
		}
		workspace.children = n.children.Clone()

		if err := m.factory.PutNode(workspace); err != nil {
			return &ItemStateError{Op: "Commit", Cause: err}
		}
		if err := n.Connect(&workspace.ItemState); err != nil {
			return err
		}
		m.mu.Lock()
		m.workspaceNodes[workspace.ID()] = workspace
		m.mu.Unlock()
		return n.SetStatus(Existing)

	case ExistingModified:
		overlayed, ok := n.Overlayed()
		if !ok {
			return illegalState("Commit", "EXISTING_MODIFIED node has no overlayed workspace state")
		}
		workspace := overlayed.owner.(*NodeState)

		workspace.mu.Lock()
		workspace.primaryType = n.primaryType
		workspace.mixinTypes = append([]Name(nil), n.mixinTypes...)
		workspace.propertyNames = make(map[Name]struct{}, len(n.propertyNames))
		for name := range n.propertyNames {
			workspace.propertyNames[name] = struct{}{}
		}
		workspace.children = n.children.Clone()
		workspace.mu.Unlock()

		if err := m.factory.PutNode(workspace); err != nil {
			return &ItemStateError{Op: "Commit", Cause: err}
		}
		// n settles at EXISTING before the workspace pulse fires: n is
		// itself still registered as a listener on workspace (from its
		// own Connect), and firing the pulse first would have n react
		// to its own commit while still EXISTING_MODIFIED, driving it
		// to STALE_MODIFIED instead of EXISTING.
		if err := n.SetStatus(Existing); err != nil {
			return err
		}
		return workspace.SetStatus(Modified)

	case ExistingRemoved:
		overlayed, ok := n.Overlayed()
		if !ok {
			return illegalState("Commit", "EXISTING_REMOVED node has no overlayed workspace state")
		}
		workspace := overlayed.owner.(*NodeState)

		if err := m.factory.DeleteNode(n.ID()); err != nil {
			return &ItemStateError{Op: "Commit", Cause: err}
		}
		if err := workspace.SetStatus(Removed); err != nil {
			return err
		}
		return n.SetStatus(Removed)

	default:
		return nil
	}
}
