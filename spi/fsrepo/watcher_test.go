// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package fsrepo

import (
	"context"
	"testing"
	"time"

	"github.com/arbortree/arbor"
)

func TestWatcherEmitsNodeChangedOnPutNode(t *testing.T) {
	repo, err := Open(t.TempDir(), typeUnstructured)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	w, err := NewWatcher(repo, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	id := arbor.NewNodeID()
	n := arbor.NewNodeState(arbor.Workspace, id, arbor.NewName(arbor.NoNamespace, "watched"), typeUnstructured)
	n.MarkExisting()
	if err := repo.PutNode(n); err != nil {
		t.Fatalf("PutNode: %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Kind != arbor.NodeChanged {
			t.Fatalf("event kind = %v, want NodeChanged", ev.Kind)
		}
		if !ev.NodeID.Equal(id) {
			t.Fatalf("event NodeID = %v, want %v", ev.NodeID, id)
		}
	case err := <-w.Errors():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for NodeChanged event")
	}
}

func TestWatcherDebouncesRapidWrites(t *testing.T) {
	repo, err := Open(t.TempDir(), typeUnstructured)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	w, err := NewWatcher(repo, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	id := arbor.NewNodeID()
	n := arbor.NewNodeState(arbor.Workspace, id, arbor.NewName(arbor.NoNamespace, "bursty"), typeUnstructured)
	n.MarkExisting()

	for i := 0; i < 5; i++ {
		if err := repo.PutNode(n); err != nil {
			t.Fatalf("PutNode: %v", err)
		}
	}

	received := 0
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-w.Events():
			received++
		case <-time.After(300 * time.Millisecond):
			if received == 0 {
				t.Fatal("expected at least one event after debounce window")
			}
			if received > 1 {
				t.Fatalf("debounce failed: got %d events for one burst of writes", received)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for debounced event")
		}
	}
}
