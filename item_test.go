// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package arbor

import "testing"

func TestConnectIsOneShot(t *testing.T) {
	t.Parallel()

	ws := newItemState(Workspace, true)
	ws.status = Existing
	other := newItemState(Workspace, true)
	other.status = Existing

	sess := newItemState(Session, true)
	sess.status = Existing

	if err := sess.Connect(ws); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := sess.Connect(ws); err != nil {
		t.Fatalf("reconnecting to the same workspace state should be a no-op, got: %v", err)
	}
	if err := sess.Connect(other); err == nil {
		t.Fatal("reconnecting to a different workspace state should fail")
	} else if _, ok := err.(*IllegalStateError); !ok {
		t.Fatalf("expected *IllegalStateError, got %T: %v", err, err)
	}
}

func TestSetStatusTerminalRejection(t *testing.T) {
	t.Parallel()

	ws := newItemState(Workspace, true)
	ws.status = Existing
	if err := ws.SetStatus(Removed); err != nil {
		t.Fatalf("Existing -> Removed should be legal: %v", err)
	}
	if err := ws.SetStatus(Existing); err == nil {
		t.Fatal("transitioning out of a terminal status should fail")
	} else if _, ok := err.(*IllegalStateError); !ok {
		t.Fatalf("expected *IllegalStateError, got %T: %v", err, err)
	}
}

func TestMarkModifiedGuardsStaleAndRemoved(t *testing.T) {
	t.Parallel()

	ws := newItemState(Workspace, true)
	ws.status = Existing
	sess := newItemState(Session, true)
	sess.status = Existing
	if err := sess.Connect(ws); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := sess.MarkModified(); err != nil {
		t.Fatalf("MarkModified on EXISTING: %v", err)
	}
	if err := ws.SetStatus(Removed); err != nil {
		t.Fatalf("ws.SetStatus(Removed): %v", err)
	}
	if sess.Status() != StaleDestroyed {
		t.Fatalf("sess.Status() = %v, want STALE_DESTROYED", sess.Status())
	}
	if err := sess.MarkModified(); err == nil {
		t.Fatal("MarkModified on a STALE_DESTROYED state should fail")
	} else if _, ok := err.(*IllegalStateError); !ok {
		t.Fatalf("expected *IllegalStateError, got %T: %v", err, err)
	}
}

// TestCommitPropagation reproduces the three workspace -> session
// reactions spec.md's commit-propagation property names: a modified
// twin going stale-destroyed on removal, going stale-modified on a
// concurrent modification, and a clean twin silently resyncing.
func TestCommitPropagation(t *testing.T) {
	t.Parallel()

	t.Run("existing_modified sees workspace removal as stale_destroyed", func(t *testing.T) {
		t.Parallel()
		ws := newItemState(Workspace, true)
		ws.status = Existing
		sess := newItemState(Session, true)
		sess.status = Existing
		if err := sess.Connect(ws); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := sess.MarkModified(); err != nil {
			t.Fatalf("MarkModified: %v", err)
		}
		if err := ws.SetStatus(Removed); err != nil {
			t.Fatalf("ws.SetStatus(Removed): %v", err)
		}
		if sess.Status() != StaleDestroyed {
			t.Fatalf("sess.Status() = %v, want STALE_DESTROYED", sess.Status())
		}
	})

	t.Run("existing_modified sees workspace modification as stale_modified", func(t *testing.T) {
		t.Parallel()
		ws := newItemState(Workspace, true)
		ws.status = Existing
		sess := newItemState(Session, true)
		sess.status = Existing
		if err := sess.Connect(ws); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := sess.MarkModified(); err != nil {
			t.Fatalf("MarkModified: %v", err)
		}
		if err := ws.SetStatus(Modified); err != nil {
			t.Fatalf("ws.SetStatus(Modified): %v", err)
		}
		if sess.Status() != StaleModified {
			t.Fatalf("sess.Status() = %v, want STALE_MODIFIED", sess.Status())
		}
	})

	t.Run("existing resyncs and settles back at existing", func(t *testing.T) {
		t.Parallel()
		ws := newItemState(Workspace, true)
		ws.status = Existing
		sess := newItemState(Session, true)
		sess.status = Existing

		resynced := false
		sess.onResync = func() { resynced = true }

		if err := sess.Connect(ws); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := ws.SetStatus(Modified); err != nil {
			t.Fatalf("ws.SetStatus(Modified): %v", err)
		}
		if !resynced {
			t.Fatal("expected onResync to be invoked")
		}
		if sess.Status() != Existing {
			t.Fatalf("sess.Status() = %v, want EXISTING (pulse collapsed)", sess.Status())
		}
	})

	t.Run("existing tracks workspace invalidation", func(t *testing.T) {
		t.Parallel()
		ws := newItemState(Workspace, true)
		ws.status = Existing
		sess := newItemState(Session, true)
		sess.status = Existing
		if err := sess.Connect(ws); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := ws.SetStatus(Invalidated); err != nil {
			t.Fatalf("ws.SetStatus(Invalidated): %v", err)
		}
		if sess.Status() != Invalidated {
			t.Fatalf("sess.Status() = %v, want INVALIDATED", sess.Status())
		}
	})
}
