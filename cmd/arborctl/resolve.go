// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/arbortree/arbor"
)

// resolveSessionNode walks path (slash-separated child names, relative
// to the workspace root) and returns the session-layer view of the
// node it names. Same-name siblings are not addressable here — the
// first child matching each name wins — since the CLI has no syntax
// for an explicit SNS index; that's a demo limitation, not a
// limitation of ChildCollection itself (see GetSNS).
func resolveSessionNode(mgr *arbor.Manager, path string) (*arbor.NodeState, error) {
	n, err := mgr.Root()
	if err != nil {
		return nil, err
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return n, nil
	}

	for _, part := range strings.Split(path, "/") {
		name := arbor.NewName(arbor.NoNamespace, part)
		matches := n.Children().GetByName(name)
		if len(matches) == 0 {
			return nil, fmt.Errorf("no such child %q under %v", part, mustPath(n))
		}
		next, err := mgr.SessionNode(matches[0].ID)
		if err != nil {
			return nil, err
		}
		n = next
	}
	return n, nil
}

func mustPath(n *arbor.NodeState) arbor.Path {
	p, err := n.Path()
	if err != nil {
		return arbor.Root()
	}
	return p
}
