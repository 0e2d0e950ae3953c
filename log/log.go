// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

// Package log provides arbor's package-level logger: a thin wrapper
// around go.uber.org/zap, built the way edirooss/zmux-server's
// cmd/zmux-server/main.go builds its own — a development config by
// default, swapped for a production one outside of local work — and
// handed out pre-Named per subsystem so log lines are attributable at a
// glance.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.RWMutex
	std *zap.Logger
)

func init() {
	std = zap.Must(zap.NewDevelopmentConfig().Build())
}

// SetProduction swaps the package logger for a production-configured
// one (JSON encoding, info level, sampling). Call it once at process
// startup before any subsystem has taken a Named logger.
func SetProduction() error {
	l, err := zap.NewProductionConfig().Build()
	if err != nil {
		return err
	}
	mu.Lock()
	std = l
	mu.Unlock()
	return nil
}

// Named returns a logger scoped to the given subsystem name, e.g.
// log.Named("manager") or log.Named("fsrepo.watcher").
func Named(name string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std.Named(name)
}

// L returns the current package-level logger, unnamed.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// Sync flushes any buffered log entries. Callers should defer it from
// main; the error it returns is routinely non-nil on stderr-backed
// loggers when the process exits (a known zap/os.Stderr quirk) and is
// safe to ignore at that callsite.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return std.Sync()
}
