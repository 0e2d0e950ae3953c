// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "container/list"

// ChildEntry is one entry in a ChildCollection: a child's name, its id,
// and a back-reference to the owning collection (needed to re-derive its
// current same-name-sibling index on demand — see ChildCollection.IndexOf).
// Entries are value-like once constructed: their Name and ID never
// change. Because of the back-reference, an entry belongs to exactly one
// collection; ChildCollection.Clone gives the clone its own entries.
type ChildEntry struct {
	Name   Name
	ID     NodeID
	parent *ChildCollection
}

// ChildCollection is an insertion-ordered multimap of ChildEntry values,
// keyed by child id, with a secondary by-name index supporting same-name
// siblings (SNS) addressed by 1-based index.
//
// ChildCollection has no lock of its own: like gaissmai/bart's Table,
// mutation must be serialized by the caller — here, that's the owning
// NodeState's monitor (see ItemState's concurrency doc). Concurrent reads
// without that monitor must tolerate a racing copy-on-write view.
//
// The zero value is an empty, ready-to-use collection.
type ChildCollection struct {
	order  list.List // Value: *ChildEntry, insertion order
	byID   map[NodeID]*list.Element
	byName map[Name][]*list.Element // insertion order within each name
}

func (c *ChildCollection) init() {
	if c.byID == nil {
		c.byID = make(map[NodeID]*list.Element)
		c.byName = make(map[Name][]*list.Element)
	}
}

// Len returns the number of entries in the collection.
func (c *ChildCollection) Len() int {
	return c.order.Len()
}

// Get returns the entry for id, or nil if absent.
func (c *ChildCollection) Get(id NodeID) *ChildEntry {
	c.init()
	if el, ok := c.byID[id]; ok {
		return el.Value.(*ChildEntry)
	}
	return nil
}

// GetByName returns the same-name-sibling list for name, in insertion
// order. The returned slice is a copy; mutating it does not affect the
// collection (spec.md's "unmodifiable" requirement, satisfied here by
// copying rather than by a wrapper view — see SPEC_FULL.md's open-question
// decision on sub-range views).
func (c *ChildCollection) GetByName(name Name) []*ChildEntry {
	c.init()
	els := c.byName[name]
	if len(els) == 0 {
		return nil
	}
	out := make([]*ChildEntry, len(els))
	for i, el := range els {
		out[i] = el.Value.(*ChildEntry)
	}
	return out
}

// GetSNS returns the entry at the 1-based same-name-sibling position
// index within name's sibling group, or nil if index is out of range.
// index must be >= 1.
func (c *ChildCollection) GetSNS(name Name, index int) *ChildEntry {
	if index < 1 {
		return nil
	}
	c.init()
	els := c.byName[name]
	if index > len(els) {
		return nil
	}
	return els[index-1].Value.(*ChildEntry)
}

// IndexOf returns e's current 1-based position within its same-name-
// sibling group, re-derived from the live collection rather than cached
// on the entry (spec.md's SNS-index semantics). ok is false if e is not
// (or no longer) a member of this collection.
func (c *ChildCollection) IndexOf(e *ChildEntry) (index int, ok bool) {
	if e == nil || e.parent != c {
		return 0, false
	}
	c.init()
	els := c.byName[e.Name]
	for i, el := range els {
		if el.Value.(*ChildEntry) == e {
			return i + 1, true
		}
	}
	return 0, false
}

// Add appends a new entry (name, id) to the end of the collection. If an
// entry with this name already exists it joins that name's SNS list;
// otherwise the new entry starts a singleton group. Add never fails.
func (c *ChildCollection) Add(name Name, id NodeID) *ChildEntry {
	c.init()
	e := &ChildEntry{Name: name, ID: id, parent: c}
	el := c.order.PushBack(e)
	c.byID[id] = el
	c.byName[name] = append(c.byName[name], el)
	return e
}

// RemoveByID detaches and returns the entry for id, or (nil, false) if
// absent.
func (c *ChildCollection) RemoveByID(id NodeID) (*ChildEntry, bool) {
	c.init()
	el, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*ChildEntry)
	c.removeElement(e, el)
	return e, true
}

// Remove detaches and returns the entry at the 1-based SNS position
// within name's group, or (nil, false) if index is out of range or <1.
func (c *ChildCollection) Remove(name Name, index int) (*ChildEntry, bool) {
	e := c.GetSNS(name, index)
	if e == nil {
		return nil, false
	}
	el := c.byID[e.ID]
	c.removeElement(e, el)
	return e, true
}

// RemoveEntry detaches e if it is a live member of this collection.
func (c *ChildCollection) RemoveEntry(e *ChildEntry) bool {
	if e == nil || e.parent != c {
		return false
	}
	c.init()
	el, ok := c.byID[e.ID]
	if !ok {
		return false
	}
	c.removeElement(e, el)
	return true
}

func (c *ChildCollection) removeElement(e *ChildEntry, el *list.Element) {
	c.order.Remove(el)
	delete(c.byID, e.ID)

	group := c.byName[e.Name]
	for i, cand := range group {
		if cand == el {
			group = append(group[:i], group[i+1:]...)
			break
		}
	}
	if len(group) == 0 {
		delete(c.byName, e.Name)
	} else {
		c.byName[e.Name] = group
	}
}

// MoveBefore relocates the entry for id to immediately precede the
// entry for beforeID, preserving its name and id, and reports whether
// id was found. If beforeID is the zero NodeID, or names no entry in
// this collection (or id itself), the entry moves to the end. The
// by-name SNS index is rebuilt afterward so GetSNS/IndexOf continue to
// agree with the new overall order.
func (c *ChildCollection) MoveBefore(id, beforeID NodeID) bool {
	c.init()
	el, ok := c.byID[id]
	if !ok {
		return false
	}
	if mark, ok := c.byID[beforeID]; ok && mark != el {
		c.order.MoveBefore(el, mark)
	} else {
		c.order.MoveToBack(el)
	}
	c.reindexByName()
	return true
}

func (c *ChildCollection) reindexByName() {
	byName := make(map[Name][]*list.Element, len(c.byName))
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*ChildEntry)
		byName[e.Name] = append(byName[e.Name], el)
	}
	c.byName = byName
}

// All iterates the collection in insertion order.
func (c *ChildCollection) All() []*ChildEntry {
	out := make([]*ChildEntry, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*ChildEntry))
	}
	return out
}

// matches reports whether two entries refer to the same (name, id) pair,
// ignoring index — the equivalence RemoveAll/RetainAll use, per
// spec.md's "present" definition.
func matches(a, b *ChildEntry) bool {
	return a.Name == b.Name && a.ID.Equal(b.ID)
}

// RemoveAll returns the entries present in c but not in other, matching
// on (name, id) and ignoring index, preserving c's order. c and other
// are not mutated.
func (c *ChildCollection) RemoveAll(other *ChildCollection) []*ChildEntry {
	var out []*ChildEntry
	for _, e := range c.All() {
		found := false
		if other != nil {
			for _, oe := range other.All() {
				if matches(e, oe) {
					found = true
					break
				}
			}
		}
		if !found {
			out = append(out, e)
		}
	}
	return out
}

// RetainAll returns the entries present in both c and other, matching on
// (name, id) and ignoring index, preserving c's order. c and other are
// not mutated.
func (c *ChildCollection) RetainAll(other *ChildCollection) []*ChildEntry {
	var out []*ChildEntry
	for _, e := range c.All() {
		if other == nil {
			continue
		}
		for _, oe := range other.All() {
			if matches(e, oe) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Clone returns a copy with new outer order/index structures and new
// entries: entries are not shared by pointer between the original and
// the clone. NodeState uses Clone to give a session state and its
// overlayed workspace twin separate child collections.
//
// Each cloned entry carries the same Name and ID as its original, with
// its parent back-reference pointing at the clone, so that IndexOf
// resolves correctly against whichever collection is actually asking;
// the original collection's entries are left pointing at the original.
// Since both collections start
// out holding the identical entry set in the identical order, this does
// not change any index answers until one side mutates and its entries
// diverge.
func (c *ChildCollection) Clone() *ChildCollection {
	clone := &ChildCollection{}
	clone.init()
	for _, e := range c.All() {
		ce := &ChildEntry{Name: e.Name, ID: e.ID, parent: clone}
		el := clone.order.PushBack(ce)
		clone.byID[ce.ID] = el
		clone.byName[ce.Name] = append(clone.byName[ce.Name], el)
	}
	return clone
}

// reorderedByLCS returns the entries of current that are not part of a
// longest common subsequence (by id) of current and overlayed, in
// current's order. Entries outside the LCS are exactly the ones that
// changed position relative to every entry that did not move — the
// smallest set of "movers" that explains the difference between the two
// orderings. Grounded on spec.md §8's worked examples: for
// current=[B,C,A], overlayed=[A,B,C], only A is reported (the LCS is
// [B,C]); a simpler "walk in lockstep, evict on any mismatch" heuristic
// over-reports both B and C on this exact input, so LCS is what's
// implemented here even though spec.md's prose describes the lockstep
// heuristic as an acceptable (non-minimal) alternative.
func reorderedByLCS(current, overlayed []*ChildEntry) []*ChildEntry {
	n, m := len(overlayed), len(current)
	if n == 0 || m == 0 {
		return append([]*ChildEntry(nil), current...)
	}

	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if overlayed[i].ID.Equal(current[j].ID) {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	inLCS := make([]bool, m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case overlayed[i].ID.Equal(current[j].ID):
			inLCS[j] = true
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}

	var out []*ChildEntry
	for j, e := range current {
		if !inLCS[j] {
			out = append(out, e)
		}
	}
	return out
}
