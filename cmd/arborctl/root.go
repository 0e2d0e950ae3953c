// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

// Command arborctl is a small demo CLI over the reference spi/fsrepo
// Factory: dump the workspace tree, diff or commit property edits (or a
// removal) on an existing session node, or watch a repository directory
// for external changes. It exists to
// exercise arbor's Manager/Factory contracts end to end, the way
// untoldecay/BeadsLog's cmd/bd exercises its own storage layer — one
// cobra.Command per file, registered from init, against a shared root
// command built here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arbortree/arbor"
	"github.com/arbortree/arbor/config"
	"github.com/arbortree/arbor/log"
	"github.com/arbortree/arbor/spi/fsrepo"
)

var rootCmd = &cobra.Command{
	Use:           "arborctl",
	Short:         "Inspect and drive an arbor-backed filesystem repository",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var workspaceFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "", "workspace root directory (overrides arbor.yaml / ARBOR_WORKSPACE_ROOT)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// rootNodeType is the primary type name minted for a fresh repository's
// root node. arbor's item-state layer treats type names as opaque, so
// any qualified name will do; this one is merely descriptive.
var rootNodeType = arbor.NewName(arbor.NoNamespace, "arbor:root")

// openRepo resolves the effective workspace root (flag overrides
// config) and opens the fsrepo.Repo there, creating it if necessary. It
// also returns the loaded Config, so callers that need other settings
// (e.g. watch's WatchDebounce) don't have to reload it themselves.
func openRepo() (*fsrepo.Repo, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	if cfg.LogProduction {
		if err := log.SetProduction(); err != nil {
			return nil, config.Config{}, fmt.Errorf("configuring logger: %w", err)
		}
	}

	root := cfg.WorkspaceRoot
	if workspaceFlag != "" {
		root = workspaceFlag
	}
	if root == "" {
		root = "."
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, config.Config{}, fmt.Errorf("creating workspace root %s: %w", root, err)
	}
	repo, err := fsrepo.Open(root, rootNodeType)
	return repo, cfg, err
}

// openManager opens the repo at the effective workspace root and wraps
// it in a fresh Manager.
func openManager() (*arbor.Manager, *fsrepo.Repo, config.Config, error) {
	repo, cfg, err := openRepo()
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	return arbor.NewManager(repo), repo, cfg, nil
}
