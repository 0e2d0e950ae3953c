// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import (
	"runtime"
	"testing"
)

type toggleListener struct {
	target *ItemState
	fired  int
}

func (l *toggleListener) StatusChanged(state *ItemState, previous Status) {
	l.fired++
	RemoveListener(l.target, l)
}

// TestListenerCanRemoveItselfDuringNotify covers spec.md §8's listener
// snapshot-safety property: a listener callback that removes itself
// (or others) from the set it is currently being notified from must
// neither deadlock nor corrupt the set for the next transition.
func TestListenerCanRemoveItselfDuringNotify(t *testing.T) {
	t.Parallel()

	ws := newItemState(Workspace, true)
	ws.status = Existing
	l := &toggleListener{target: ws}
	AddListener(ws, l)

	if err := ws.SetStatus(Modified); err != nil {
		t.Fatalf("SetStatus(Modified): %v", err)
	}
	if l.fired != 1 {
		t.Fatalf("fired = %d, want 1", l.fired)
	}

	if err := ws.SetStatus(Removed); err != nil {
		t.Fatalf("SetStatus(Removed): %v", err)
	}
	if l.fired != 1 {
		t.Fatalf("fired = %d after second transition, want still 1 (listener removed itself)", l.fired)
	}
}

type countingListener struct{ calls int }

func (l *countingListener) StatusChanged(state *ItemState, previous Status) { l.calls++ }

// TestListenerSetDropsCollectedEntries covers spec.md §8's weak-listener
// property: a listener with no other strong reference is eligible for
// collection, and the next notification silently drops its entry
// instead of panicking or leaking it forever.
func TestListenerSetDropsCollectedEntries(t *testing.T) {
	ws := newItemState(Workspace, true)
	ws.status = Existing

	func() {
		l := &countingListener{}
		AddListener(ws, l)
		runtime.KeepAlive(l)
	}()

	runtime.GC()
	runtime.GC()

	live := ws.listeners.snapshot()
	if len(live) != 0 {
		t.Fatalf("snapshot returned %d live listeners, want 0 (entry should have been collected)", len(live))
	}
}
