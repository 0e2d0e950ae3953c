// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbortree/arbor"
)

var diffAddProps []string
var diffRemoveProps []string

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Show a session node's pending changes against its workspace twin",
	Long: `Resolve <path> (slash-separated child names from the workspace
root) to a session node, optionally apply --add-prop/--remove-prop
edits to it, and print the resulting added/removed property names and
added/removed/reordered child entries relative to its workspace twin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, _, err := openManager()
		if err != nil {
			return err
		}
		n, err := resolveSessionNode(mgr, args[0])
		if err != nil {
			return err
		}

		if err := applyEdits(n, diffAddProps, diffRemoveProps); err != nil {
			return err
		}

		return printDiff(cmd, n)
	},
}

func init() {
	diffCmd.Flags().StringArrayVar(&diffAddProps, "add-prop", nil, "property name to add before diffing (repeatable)")
	diffCmd.Flags().StringArrayVar(&diffRemoveProps, "remove-prop", nil, "property name to remove before diffing (repeatable)")
	rootCmd.AddCommand(diffCmd)
}

// applyEdits adds/removes property names and marks n modified if either
// list is non-empty. It is shared by diff (preview) and commit (apply
// then persist).
func applyEdits(n *arbor.NodeState, add, remove []string) error {
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	for _, name := range add {
		n.AddPropertyName(arbor.NewName(arbor.NoNamespace, name))
	}
	for _, name := range remove {
		n.RemovePropertyName(arbor.NewName(arbor.NoNamespace, name))
	}
	return n.MarkModified()
}

func printDiff(cmd *cobra.Command, n *arbor.NodeState) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "status: %s\n", n.Status())

	if added := n.AddedPropertyNames(); len(added) > 0 {
		fmt.Fprintf(w, "added props(#%d): %v\n", len(added), added)
	}
	if removed := n.RemovedPropertyNames(); len(removed) > 0 {
		fmt.Fprintf(w, "removed props(#%d): %v\n", len(removed), removed)
	}
	if added := n.AddedChildNodeEntries(); len(added) > 0 {
		fmt.Fprintf(w, "added children(#%d): %v\n", len(added), childNames(added))
	}
	if removed := n.RemovedChildNodeEntries(); len(removed) > 0 {
		fmt.Fprintf(w, "removed children(#%d): %v\n", len(removed), childNames(removed))
	}
	if reordered := n.ReorderedChildNodeEntries(); len(reordered) > 0 {
		fmt.Fprintf(w, "reordered children(#%d): %v\n", len(reordered), childNames(reordered))
	}
	return nil
}

func childNames(entries []*arbor.ChildEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name.String()
	}
	return out
}
