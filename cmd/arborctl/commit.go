// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commitAddProps []string
var commitRemoveProps []string
var commitRemoveNode bool

var commitCmd = &cobra.Command{
	Use:   "commit <path>",
	Short: "Apply pending edits to a session node and commit it to the workspace",
	Long: `Resolve <path> to a session node, apply --add-prop/--remove-prop
edits (or mark it EXISTING_REMOVED with --remove), then commit: the
workspace twin is updated (or deleted) and, per the commit-propagation
property, every other session connected to that workspace state
observes the change on its next status check.`,
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

		if commitRemoveNode {
			if err := n.Remove(); err != nil {
				return err
			}
		} else if err := applyEdits(n, commitAddProps, commitRemoveProps); err != nil {
			return err
		}

		if err := mgr.Commit(n); err != nil {
			return fmt.Errorf("commit %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], n.Status())
		return nil
	},
}

func init() {
	commitCmd.Flags().StringArrayVar(&commitAddProps, "add-prop", nil, "property name to add before committing (repeatable)")
	commitCmd.Flags().StringArrayVar(&commitRemoveProps, "remove-prop", nil, "property name to remove before committing (repeatable)")
	commitCmd.Flags().BoolVar(&commitRemoveNode, "remove", false, "commit this node's removal instead of a property edit")
	rootCmd.AddCommand(commitCmd)
}
