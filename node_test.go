// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "testing"

var typeUnstructured = NewName(NoNamespace, "unstructured")

// TestPathConstructionRootChildAndSNS covers spec.md §8's path
// reconstruction property across the root, a singleton child, and the
// second of two same-name siblings (which must carry an explicit index).
func TestPathConstructionRootChildAndSNS(t *testing.T) {
	t.Parallel()

	root := NewRootNodeState(Workspace, NewNodeID(), typeUnstructured)
	root.ItemState.status = Existing

	rootPath, err := root.Path()
	if err != nil {
		t.Fatalf("root.Path(): %v", err)
	}
	if !rootPath.IsRoot() {
		t.Fatalf("root.Path() = %v, want root", rootPath)
	}

	foo := newNodeState(Workspace, NewNodeID(), nameOf("foo"), typeUnstructured)
	foo.ItemState.status = Existing
	foo.setParent(root)
	root.AddChild(foo.name, foo.ID())

	fooPath, err := foo.Path()
	if err != nil {
		t.Fatalf("foo.Path(): %v", err)
	}
	if len(fooPath) != 1 || fooPath[0].Name != nameOf("foo") || fooPath[0].Index != 0 {
		t.Fatalf("foo.Path() = %+v, want [{foo 0}]", fooPath)
	}

	foo2 := newNodeState(Workspace, NewNodeID(), nameOf("foo"), typeUnstructured)
	foo2.ItemState.status = Existing
	foo2.setParent(root)
	root.AddChild(foo2.name, foo2.ID())

	foo2Path, err := foo2.Path()
	if err != nil {
		t.Fatalf("foo2.Path(): %v", err)
	}
	if len(foo2Path) != 1 || foo2Path[0].Name != nameOf("foo") || foo2Path[0].Index != 2 {
		t.Fatalf("foo2.Path() = %+v, want [{foo 2}]", foo2Path)
	}
}

func TestPathConstructionDetachedParentIsItemNotFound(t *testing.T) {
	t.Parallel()

	orphan := newNodeState(Workspace, NewNodeID(), nameOf("orphan"), typeUnstructured)
	orphan.ItemState.status = Existing
	// Never attached to a parent and not marked root: Path must fail.

	if _, err := orphan.Path(); err == nil {
		t.Fatal("expected an error resolving the path of a detached, non-root node")
	} else if _, ok := err.(*ItemNotFoundError); !ok {
		t.Fatalf("expected *ItemNotFoundError, got %T: %v", err, err)
	}
}

type recordingNodeListener struct {
	events []string
}

func (l *recordingNodeListener) NodeAdded(parent *NodeState, name Name, index int, id NodeID) {
	l.events = append(l.events, "added:"+name.Local)
}
func (l *recordingNodeListener) NodeRemoved(parent *NodeState, name Name, index int, id NodeID) {
	l.events = append(l.events, "removed:"+name.Local)
}
func (l *recordingNodeListener) NodesReplaced(parent *NodeState) {
	l.events = append(l.events, "replaced")
}

func TestRenameChildFiresRemovedThenAdded(t *testing.T) {
	t.Parallel()

	parent := NewRootNodeState(Session, NewNodeID(), typeUnstructured)
	parent.ItemState.status = Existing
	child := parent.AddChild(nameOf("old"), NewNodeID())

	l := &recordingNodeListener{}
	AddNodeListener(parent, l)

	if _, err := parent.RenameChild(nameOf("old"), DefaultIndex, nameOf("new")); err != nil {
		t.Fatalf("RenameChild: %v", err)
	}

	if len(l.events) != 2 || l.events[0] != "removed:old" || l.events[1] != "added:new" {
		t.Fatalf("events = %v, want [removed:old added:new]", l.events)
	}
	if got := parent.Children().GetByName(nameOf("new")); len(got) != 1 || got[0].ID != child.ID {
		t.Fatalf("child not found under new name after rename")
	}
	if got := parent.Children().GetByName(nameOf("old")); len(got) != 0 {
		t.Fatalf("old name still present after rename: %v", got)
	}
}

func TestNodeStateDiffOpsAgainstOverlayedTwin(t *testing.T) {
	t.Parallel()

	ws := newNodeState(Workspace, NewNodeID(), nameOf("n"), typeUnstructured)
	ws.ItemState.status = Existing
	ws.AddPropertyName(nameOf("kept"))
	ws.AddPropertyName(nameOf("toRemove"))
	keptChild := ws.AddChild(nameOf("keptChild"), NewNodeID())
	toRemoveChild := ws.AddChild(nameOf("toRemoveChild"), NewNodeID())

	sess := ws.copy()
	sess.ItemState.status = Existing
	if err := sess.Connect(&ws.ItemState); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sess.RemovePropertyName(nameOf("toRemove"))
	sess.AddPropertyName(nameOf("added"))
	sess.RemoveChild(nameOf("toRemoveChild"), DefaultIndex)
	addedChild := sess.AddChild(nameOf("addedChild"), NewNodeID())

	added := sess.AddedPropertyNames()
	if len(added) != 1 || added[0] != nameOf("added") {
		t.Fatalf("AddedPropertyNames() = %v, want [added]", added)
	}
	removed := sess.RemovedPropertyNames()
	if len(removed) != 1 || removed[0] != nameOf("toRemove") {
		t.Fatalf("RemovedPropertyNames() = %v, want [toRemove]", removed)
	}

	addedEntries := sess.AddedChildNodeEntries()
	if len(addedEntries) != 1 || addedEntries[0].ID != addedChild.ID {
		t.Fatalf("AddedChildNodeEntries() = %v, want [%v]", entryNames(addedEntries), addedChild.Name)
	}
	removedEntries := sess.RemovedChildNodeEntries()
	if len(removedEntries) != 1 || removedEntries[0].ID != toRemoveChild.ID {
		t.Fatalf("RemovedChildNodeEntries() = %v, want [%v]", entryNames(removedEntries), toRemoveChild.Name)
	}

	if !sess.HasPropertyName(nameOf("kept")) {
		t.Fatal("kept property name should still be present")
	}
	_ = keptChild
}

// TestNodeStateDiffOpsWithoutOverlayedTwin covers spec.md §4.4's
// unconnected case: a brand-new session node (e.g. from
// Manager.NewSessionNode, before Commit) has no overlayed workspace
// twin, so everything it owns counts as "added" and nothing counts as
// "removed" or "reordered".
func TestNodeStateDiffOpsWithoutOverlayedTwin(t *testing.T) {
	t.Parallel()

	n := newNodeState(Session, NewNodeID(), nameOf("fresh"), typeUnstructured)
	n.ItemState.status = New
	n.AddPropertyName(nameOf("a"))
	n.AddPropertyName(nameOf("b"))
	child := n.AddChild(nameOf("c"), NewNodeID())

	added := n.AddedPropertyNames()
	if len(added) != 2 {
		t.Fatalf("AddedPropertyNames() = %v, want all 2 own property names", added)
	}
	if removed := n.RemovedPropertyNames(); len(removed) != 0 {
		t.Fatalf("RemovedPropertyNames() = %v, want none", removed)
	}

	addedEntries := n.AddedChildNodeEntries()
	if len(addedEntries) != 1 || addedEntries[0].ID != child.ID {
		t.Fatalf("AddedChildNodeEntries() = %v, want [%v]", entryNames(addedEntries), child.Name)
	}
	if removedEntries := n.RemovedChildNodeEntries(); len(removedEntries) != 0 {
		t.Fatalf("RemovedChildNodeEntries() = %v, want none", removedEntries)
	}
	if reordered := n.ReorderedChildNodeEntries(); len(reordered) != 0 {
		t.Fatalf("ReorderedChildNodeEntries() = %v, want none", reordered)
	}
}
