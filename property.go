// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "reflect"

// PropertyState is the item-state half that owns a value (or, for
// multi-valued properties, an ordered list of values). Values are
// opaque to the core: spec.md's item-state layer tracks identity and
// status, not type-checking or coercion, so a value is carried as `any`
// and it is the reference SPI's job (see spi/fsrepo) to know what it
// actually holds. ValuesEqual therefore compares with reflect.DeepEqual
// rather than ==, since a binary property's value may be a []byte,
// which isn't comparable with ==.
type PropertyState struct {
	ItemState

	id       PropertyID
	multiple bool
	values   []any
}

// NewPropertyState constructs a PropertyState for use by Factory
// implementations (see spi/fsrepo) materializing a property freshly
// loaded from storage. The result starts out NEW; callers loading
// existing data follow up with MarkExisting.
func NewPropertyState(layer Layer, id PropertyID, multiple bool) *PropertyState {
	return newPropertyState(layer, id, multiple)
}

func newPropertyState(layer Layer, id PropertyID, multiple bool) *PropertyState {
	p := &PropertyState{id: id, multiple: multiple}
	p.ItemState = *newItemState(layer, false)
	p.ItemState.propID = id
	p.ItemState.name = id.Name
	p.ItemState.onResync = p.pull
	p.ItemState.owner = p
	return p
}

// ID returns this property's PropertyID.
func (p *PropertyState) ID() PropertyID { return p.id }

// Multiple reports whether this property holds more than one value.
func (p *PropertyState) Multiple() bool { return p.multiple }

// Values returns a copy of this property's current values.
func (p *PropertyState) Values() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.values...)
}

// SetValues replaces this property's values wholesale. A single-valued
// property is expected to be called with exactly one element; SetValues
// itself does not enforce that — cardinality validation belongs to the
// reference SPI's node-type layer, which is out of item-state's scope.
func (p *PropertyState) SetValues(values []any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append([]any(nil), values...)
}

// mergeFrom overwrites p's values from fresh. Used by Manager.Apply,
// analogous to NodeState.mergeFrom.
func (p *PropertyState) mergeFrom(fresh *PropertyState) {
	p.SetValues(fresh.Values())
}

// copy returns a new session-layer PropertyState holding an independent
// copy of p's values: the value slice is copied immediately so the
// session can mutate its own view without disturbing p (the workspace
// twin). The returned state is left unconnected.
func (p *PropertyState) copy() *PropertyState {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := newPropertyState(Session, p.id, p.multiple)
	s.values = append([]any(nil), p.values...)
	return s
}

// pull re-synchronizes this (session) PropertyState's values from its
// overlayed workspace twin. Installed as p.onResync.
func (p *PropertyState) pull() {
	overlayed, ok := p.Overlayed()
	if !ok {
		return
	}
	twin := overlayed.owner.(*PropertyState)

	twin.mu.Lock()
	values := append([]any(nil), twin.values...)
	twin.mu.Unlock()

	p.mu.Lock()
	p.values = values
	p.mu.Unlock()
}

// ValuesEqual reports whether this (session) state's values equal those
// of its overlayed workspace twin — the property-level analogue of
// NodeState's Added/RemovedChildNodeEntries, used by the commit path to
// decide whether a property actually changed. It returns true
// (conservatively: "no difference observed") if unconnected.
func (p *PropertyState) ValuesEqual() bool {
	overlayed, ok := p.Overlayed()
	if !ok {
		return true
	}
	twin := overlayed.owner.(*PropertyState)

	a, b := p.Values(), twin.Values()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
