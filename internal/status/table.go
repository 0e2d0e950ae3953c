// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

// Package status precomputes the legal item-state transition graph as a
// small set of bitsets, one per (layer, from-status) pair. The approach is
// lifted from gaissmai/bart's internal/lpm lookup tables: instead of a
// branchy switch over every (from, to) pair in the hot setStatus path, the
// legal "to" set for a given "from" is a single word and membership is a
// single Test call.
package status

import "github.com/bits-and-blooms/bitset"

// Status is an item state's lifecycle position. The zero value is New.
type Status uint8

const (
	New Status = iota
	Existing
	ExistingModified
	ExistingRemoved
	StaleModified
	StaleDestroyed
	Removed
	Invalidated

	// Modified is a transient pulse: a status is never observed at rest
	// here. setStatus collapses it back to Existing immediately after
	// listeners have been notified of the transition into it.
	Modified

	numStatus
)

func (s Status) String() string {
	switch s {
	case New:
		return "NEW"
	case Existing:
		return "EXISTING"
	case ExistingModified:
		return "EXISTING_MODIFIED"
	case ExistingRemoved:
		return "EXISTING_REMOVED"
	case StaleModified:
		return "STALE_MODIFIED"
	case StaleDestroyed:
		return "STALE_DESTROYED"
	case Removed:
		return "REMOVED"
	case Invalidated:
		return "INVALIDATED"
	case Modified:
		return "MODIFIED"
	default:
		return "UNKNOWN"
	}
}

// Layer distinguishes the workspace state machine from the session state
// machine; the two share the Status enum but allow different edges.
type Layer uint8

const (
	Workspace Layer = iota
	Session

	numLayer
)

func (l Layer) String() string {
	if l == Workspace {
		return "workspace"
	}
	return "session"
}

// table[layer][from] holds the bitset of statuses legally reachable from
// "from" on that layer.
var table [numLayer][numStatus]*bitset.BitSet

func init() {
	for l := Layer(0); l < numLayer; l++ {
		for s := Status(0); s < numStatus; s++ {
			table[l][s] = bitset.New(uint(numStatus))
		}
	}

	allow := func(layer Layer, from, to Status) {
		table[layer][from].Set(uint(to))
	}

	// Workspace-state transitions (driven by external events).
	allow(Workspace, Existing, Modified)
	allow(Workspace, Modified, Existing)
	allow(Workspace, Existing, Removed)
	allow(Workspace, Existing, Invalidated)
	allow(Workspace, Invalidated, Existing)

	// Session-state transitions (driven by user edits and propagation).
	allow(Session, New, Existing)
	allow(Session, New, Removed)
	allow(Session, Existing, ExistingModified)
	allow(Session, Existing, ExistingRemoved)
	allow(Session, ExistingModified, Existing)
	allow(Session, ExistingModified, StaleModified)
	allow(Session, ExistingModified, StaleDestroyed)
	allow(Session, ExistingRemoved, Removed)
	allow(Session, Existing, Invalidated)
	// Resync pulse: EXISTING or INVALIDATED -> MODIFIED -> EXISTING.
	allow(Session, Existing, Modified)
	allow(Session, Invalidated, Modified)
	allow(Session, Modified, Existing)
}

// IsTerminal reports whether s admits no further transitions.
func IsTerminal(s Status) bool {
	return s == Removed || s == StaleDestroyed
}

// IsLegal reports whether the (layer)-specific state machine permits a
// transition from "from" to "to". A no-op (from == to) is always legal;
// callers that want setStatus's "no-op short-circuits without touching the
// listener protocol" behavior should check that case separately, since
// IsLegal alone cannot distinguish "accept silently" from "accept and
// still notify."
func IsLegal(layer Layer, from, to Status) bool {
	if from == to {
		return true
	}
	if IsTerminal(from) {
		return false
	}
	return table[layer][from].Test(uint(to))
}
