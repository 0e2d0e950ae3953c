// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "testing"

func TestManagerCommitNewNode(t *testing.T) {
	t.Parallel()

	factory := NewInMemoryFactory(typeUnstructured)
	mgr := NewManager(factory)

	root, err := mgr.Root()
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}

	child := mgr.NewSessionNode(root, nameOf("child"), typeUnstructured)
	if child.Status() != New {
		t.Fatalf("new session node status = %v, want NEW", child.Status())
	}

	if err := mgr.Commit(child); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if child.Status() != Existing {
		t.Fatalf("status after commit = %v, want EXISTING", child.Status())
	}

	stored, err := factory.GetNode(child.ID())
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if stored == nil {
		t.Fatal("committed node was not persisted to the factory")
	}
}

func TestManagerCommitPropagatesToOtherSession(t *testing.T) {
	t.Parallel()

	factory := NewInMemoryFactory(typeUnstructured)

	mgrA := NewManager(factory)
	rootA, err := mgrA.Root()
	if err != nil {
		t.Fatalf("mgrA.Root(): %v", err)
	}

	mgrB := NewManager(factory)
	rootB, err := mgrB.Root()
	if err != nil {
		t.Fatalf("mgrB.Root(): %v", err)
	}

	if err := rootA.MarkModified(); err != nil {
		t.Fatalf("rootA.MarkModified(): %v", err)
	}
	rootA.AddPropertyName(nameOf("touched"))

	if err := mgrA.Commit(rootA); err != nil {
		t.Fatalf("mgrA.Commit(rootA): %v", err)
	}
	if rootA.Status() != Existing {
		t.Fatalf("rootA.Status() after commit = %v, want EXISTING", rootA.Status())
	}

	// rootB was EXISTING (unmodified) and connected to the same
	// workspace root; the workspace's MODIFIED pulse must have resynced
	// it in place.
	if !rootB.HasPropertyName(nameOf("touched")) {
		t.Fatal("rootB did not observe rootA's committed change")
	}
	if rootB.Status() != Existing {
		t.Fatalf("rootB.Status() = %v, want EXISTING", rootB.Status())
	}
}

// TestManagerApplyNodeAddedAndChildReordered covers spec.md §6's
// structural refresh(event) kinds: Apply must mutate the cached
// workspace node's own child collection, not merely pulse its status.
func TestManagerApplyNodeAddedAndChildReordered(t *testing.T) {
	t.Parallel()

	factory := NewInMemoryFactory(typeUnstructured)
	mgr := NewManager(factory)

	root, err := mgr.Root()
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	workspaceRoot, err := mgr.WorkspaceNode(factory.RootID())
	if err != nil {
		t.Fatalf("WorkspaceNode: %v", err)
	}

	firstID := NewNodeID()
	if err := mgr.Apply(Event{Kind: NodeAdded, NodeID: factory.RootID(), Name: nameOf("first"), ChildID: firstID}); err != nil {
		t.Fatalf("Apply(NodeAdded first): %v", err)
	}
	secondID := NewNodeID()
	if err := mgr.Apply(Event{Kind: NodeAdded, NodeID: factory.RootID(), Name: nameOf("second"), ChildID: secondID}); err != nil {
		t.Fatalf("Apply(NodeAdded second): %v", err)
	}

	if got := workspaceRoot.Children().Len(); got != 2 {
		t.Fatalf("workspace root children = %d, want 2", got)
	}
	if root.Children().Len() != 2 {
		t.Fatal("session root did not resync after NodeAdded's MODIFIED pulse")
	}

	if err := mgr.Apply(Event{Kind: ChildReordered, NodeID: factory.RootID(), ChildID: secondID, BeforeID: firstID}); err != nil {
		t.Fatalf("Apply(ChildReordered): %v", err)
	}

	entries := workspaceRoot.Children().All()
	if len(entries) != 2 || entries[0].ID != secondID || entries[1].ID != firstID {
		t.Fatalf("workspace root order = %v, want [second first]", entryNames(entries))
	}
}

// TestManagerApplyNodeChangedMergesData covers spec.md §6's
// NodeChanged refresh: Apply must re-fetch from the factory and merge
// the fresh data into the existing cached *NodeState, not just pulse
// MODIFIED against stale data.
func TestManagerApplyNodeChangedMergesData(t *testing.T) {
	t.Parallel()

	factory := NewInMemoryFactory(typeUnstructured)
	mgr := NewManager(factory)

	root, err := mgr.Root()
	if err != nil {
		t.Fatalf("Root(): %v", err)
	}
	workspaceRoot, err := mgr.WorkspaceNode(factory.RootID())
	if err != nil {
		t.Fatalf("WorkspaceNode: %v", err)
	}

	// Simulate an external writer updating the factory's own copy
	// directly, bypassing this Manager entirely (as spi/fsrepo.Watcher
	// observes another process's writes).
	externalCopy, err := factory.GetNode(factory.RootID())
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	externalCopy.AddPropertyName(nameOf("external"))
	if err := factory.PutNode(externalCopy); err != nil {
		t.Fatalf("PutNode: %v", err)
	}

	if err := mgr.Apply(Event{Kind: NodeChanged, NodeID: factory.RootID()}); err != nil {
		t.Fatalf("Apply(NodeChanged): %v", err)
	}

	if !workspaceRoot.HasPropertyName(nameOf("external")) {
		t.Fatal("cached workspace node was not merged with the freshly reloaded data")
	}
	if !root.HasPropertyName(nameOf("external")) {
		t.Fatal("session root did not resync after NodeChanged's MODIFIED pulse")
	}
}

// TestManagerApplyUncachedEventIsNoop covers Apply's documented
// contract: an event naming an id this Manager has never resolved is
// silently ignored rather than erroring.
func TestManagerApplyUncachedEventIsNoop(t *testing.T) {
	t.Parallel()

	factory := NewInMemoryFactory(typeUnstructured)
	mgr := NewManager(factory)

	if err := mgr.Apply(Event{Kind: NodeChanged, NodeID: NewNodeID()}); err != nil {
		t.Fatalf("Apply on an uncached id: %v", err)
	}
}
