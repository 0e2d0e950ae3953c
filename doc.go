// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

// Package arbor implements the item-state overlay and lifecycle engine of
// a hierarchical content repository client.
//
// A remote, tree-structured store is mirrored in memory as two linked
// layers. The workspace layer is the client's cache of what the server
// last reported; it is the source of truth for reads and is mutated by
// external events (see Event and Manager.Apply) and by Manager.Commit.
// The session layer is an editable, transient overlay of the workspace:
// callers mutate session NodeState and PropertyState values freely, and
// Manager.Commit reconciles one session node at a time with its
// workspace twin. There is no batched change log.
//
// The two layers are linked by a small, strict listener protocol
// (StatusListener, NodeListener): a session state connects to its
// workspace twin once, observes its status transitions, and either
// resynchronizes or goes stale according to the rules in
// ItemState.StatusChanged.
//
// Remote transport, query evaluation, indexing, access control and XML
// import are out of scope; they are external collaborators specified only
// at the Factory/Manager interfaces. Package spi/fsrepo ships a minimal,
// filesystem-backed reference implementation of those interfaces for
// testing and for the cmd/arborctl demo CLI.
package arbor
