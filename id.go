// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeID identifies a node either by a stable UUID minted by the remote
// store, or — for nodes that never get a stable identity of their own —
// by a relative Path from the nearest UUID-anchored ancestor. Two NodeID
// values are Equal iff they would resolve to the same node; for the
// anchored-relative-path variant that means the anchor and the relative
// path must both match, since resolution is the only authority on
// identity and the core has no independent oracle for it.
// NodeID must stay comparable with == (it is used as a map key by
// ChildCollection and by store implementations), so the relative-path
// variant holds its Path behind a pointer rather than inline — a Path is
// a slice, and a struct with a slice field cannot be a map key.
type NodeID struct {
	uuid     uuid.UUID
	hasUUID  bool
	anchor   *NodeID
	relative *Path
}

// NewUUIDNodeID wraps a stable remote-minted UUID.
func NewUUIDNodeID(id uuid.UUID) NodeID {
	return NodeID{uuid: id, hasUUID: true}
}

// NewRelativeNodeID identifies a node lacking stable identity of its own
// by an anchor NodeID (which must itself be UUID-based) plus a relative
// Path from that anchor.
func NewRelativeNodeID(anchor NodeID, relative Path) NodeID {
	a := anchor
	r := relative
	return NodeID{anchor: &a, relative: &r}
}

// IsUUID reports whether id carries a stable UUID, as opposed to being
// anchor+relative-path addressed.
func (id NodeID) IsUUID() bool { return id.hasUUID }

// UUID returns the underlying UUID and true if id.IsUUID(), else the
// zero UUID and false.
func (id NodeID) UUID() (uuid.UUID, bool) {
	if !id.hasUUID {
		return uuid.UUID{}, false
	}
	return id.uuid, true
}

// Anchor and RelativePath return the anchor NodeID and relative Path for
// the anchor-addressed variant; ok is false for UUID-addressed ids.
func (id NodeID) Anchor() (NodeID, bool) {
	if id.hasUUID || id.anchor == nil {
		return NodeID{}, false
	}
	return *id.anchor, true
}

func (id NodeID) RelativePath() (Path, bool) {
	if id.hasUUID || id.anchor == nil {
		return nil, false
	}
	return *id.relative, true
}

// Equal reports whether id and other denote the same node by structural
// equality of their representation. This is a value-equality fallback
// for NodeIDs constructed independently (e.g. read back from storage);
// ChildCollection and map keys rely on Go's built-in == instead, which
// is why NodeID's fields are kept comparable.
func (id NodeID) Equal(other NodeID) bool {
	if id.hasUUID != other.hasUUID {
		return false
	}
	if id.hasUUID {
		return id.uuid == other.uuid
	}
	if (id.anchor == nil) != (other.anchor == nil) {
		return false
	}
	if id.anchor != nil && !id.anchor.Equal(*other.anchor) {
		return false
	}
	return id.relative.Equal(*other.relative)
}

func (id NodeID) String() string {
	if id.hasUUID {
		return id.uuid.String()
	}
	if id.anchor == nil {
		return "<zero-node-id>"
	}
	return fmt.Sprintf("%s%v", id.anchor.String(), *id.relative)
}

// NewNodeID mints a fresh, random UUID-based NodeID. Grounded on
// edirooss/zmux-server's use of google/uuid for minting opaque entity
// identifiers throughout its DTOs and services.
func NewNodeID() NodeID {
	return NewUUIDNodeID(uuid.New())
}

// PropertyID identifies a property by its parent node and qualified
// name. It is unique per workspace, as spec.md requires.
type PropertyID struct {
	Parent NodeID
	Name   Name
}

func (id PropertyID) Equal(other PropertyID) bool {
	return id.Parent.Equal(other.Parent) && id.Name == other.Name
}

func (id PropertyID) String() string {
	return fmt.Sprintf("%s/%s", id.Parent, id.Name)
}

// IDFactory mints property ids from a parent node id and a qualified
// name. It exists as its own small interface (rather than a free
// function) so that test doubles can intercept minting, and so it can be
// handed to collaborators that must not otherwise depend on the full
// Manager contract.
type IDFactory interface {
	NewPropertyID(parent NodeID, name Name) PropertyID
}

// DefaultIDFactory is the straightforward IDFactory: it builds the
// PropertyID directly from its arguments, with no side effects.
type DefaultIDFactory struct{}

func (DefaultIDFactory) NewPropertyID(parent NodeID, name Name) PropertyID {
	return PropertyID{Parent: parent, Name: name}
}
