// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arbortree/arbor"
	"github.com/arbortree/arbor/log"
	"github.com/arbortree/arbor/spi/fsrepo"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Apply external filesystem changes to the workspace until interrupted",
	Long: `Start an fsrepo.Watcher over the configured repository and feed
every translated Event into the Manager, logging each one. Exits on
SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, repo, cfg, err := openManager()
		if err != nil {
			return err
		}

		watcher, err := fsrepo.NewWatcher(repo, cfg.WatchDebounce)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer watcher.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		watcher.Start(ctx)
		return runWatchLoop(ctx, mgr, watcher)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchLoop(ctx context.Context, mgr *arbor.Manager, watcher *fsrepo.Watcher) error {
	logger := log.Named("arborctl.watch")
	for {
		select {
		case ev := <-watcher.Events():
			if err := mgr.Apply(ev); err != nil {
				logger.Warn("failed to apply event", zap.Stringer("kind", ev.Kind), zap.Error(err))
				continue
			}
			logger.Info("applied event", zap.Stringer("kind", ev.Kind))
		case err := <-watcher.Errors():
			logger.Warn("watcher error", zap.Error(err))
		case <-ctx.Done():
			return nil
		}
	}
}
