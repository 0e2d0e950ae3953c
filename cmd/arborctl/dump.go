// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbortree/arbor"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the workspace tree, depth-indented",
	Long: `Print every node reachable from the workspace root, one block per
node: its status, name and primary type, its mixin types, its property
names, and its child count, followed by each child's own block — in the
indented, depth-prefixed style
gaissmai/bart's Table.dump uses for its trie nodes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, _, err := openManager()
		if err != nil {
			return err
		}
		root, err := mgr.Root()
		if err != nil {
			return err
		}
		return dumpRec(cmd.OutOrStdout(), mgr, root, 0)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func dumpRec(w io.Writer, mgr *arbor.Manager, n *arbor.NodeState, depth int) error {
	indent := strings.Repeat(".", depth)

	label := n.Name().String()
	if depth == 0 {
		label = "/"
	}
	if _, err := fmt.Fprintf(w, "%s[%s] %s (%s)\n", indent, n.Status(), label, n.PrimaryType()); err != nil {
		return err
	}

	if mixins := n.MixinTypes(); len(mixins) > 0 {
		if _, err := fmt.Fprintf(w, "%smixins(#%d): %v\n", indent, len(mixins), mixins); err != nil {
			return err
		}
	}
	if props := n.PropertyNames(); len(props) > 0 {
		if _, err := fmt.Fprintf(w, "%sprops(#%d): %v\n", indent, len(props), props); err != nil {
			return err
		}
	}

	children := n.Children().All()
	if len(children) > 0 {
		if _, err := fmt.Fprintf(w, "%schilds(#%d):\n", indent, len(children)); err != nil {
			return err
		}
	}

	for _, c := range children {
		child, err := mgr.WorkspaceNode(c.ID)
		if err != nil {
			return fmt.Errorf("resolving child %s: %w", c.Name, err)
		}
		if err := dumpRec(w, mgr, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
