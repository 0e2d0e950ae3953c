// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package status

import "testing"

func TestIsLegalNoOp(t *testing.T) {
	t.Parallel()

	for l := Layer(0); l < numLayer; l++ {
		for s := Status(0); s < numStatus; s++ {
			if !IsLegal(l, s, s) {
				t.Errorf("IsLegal(%s, %s, %s) = false, want true (no-op)", l, s, s)
			}
		}
	}
}

func TestTerminalStatusesRejectEverything(t *testing.T) {
	t.Parallel()

	for _, term := range []Status{Removed, StaleDestroyed} {
		if !IsTerminal(term) {
			t.Fatalf("%s expected terminal", term)
		}
		for l := Layer(0); l < numLayer; l++ {
			for to := Status(0); to < numStatus; to++ {
				if to == term {
					continue
				}
				if IsLegal(l, term, to) {
					t.Errorf("IsLegal(%s, %s, %s) = true, want false (terminal)", l, term, to)
				}
			}
		}
	}
}

func TestWorkspaceTransitionClosure(t *testing.T) {
	t.Parallel()

	allowed := map[[2]Status]bool{
		{Existing, Modified}:     true,
		{Modified, Existing}:     true,
		{Existing, Removed}:      true,
		{Existing, Invalidated}:  true,
		{Invalidated, Existing}:  true,
	}

	for from := Status(0); from < numStatus; from++ {
		for to := Status(0); to < numStatus; to++ {
			want := from == to || allowed[[2]Status{from, to}]
			got := IsLegal(Workspace, from, to)
			if got != want {
				t.Errorf("IsLegal(workspace, %s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestSessionTransitionClosure(t *testing.T) {
	t.Parallel()

	allowed := map[[2]Status]bool{
		{New, Existing}:                    true,
		{New, Removed}:                     true,
		{Existing, ExistingModified}:       true,
		{Existing, ExistingRemoved}:        true,
		{ExistingModified, Existing}:       true,
		{ExistingModified, StaleModified}:  true,
		{ExistingModified, StaleDestroyed}: true,
		{ExistingRemoved, Removed}:         true,
		{Existing, Invalidated}:            true,
		{Existing, Modified}:               true,
		{Invalidated, Modified}:            true,
		{Modified, Existing}:               true,
	}

	for from := Status(0); from < numStatus; from++ {
		for to := Status(0); to < numStatus; to++ {
			want := from == to || allowed[[2]Status{from, to}]
			got := IsLegal(Session, from, to)
			if got != want {
				t.Errorf("IsLegal(session, %s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}
