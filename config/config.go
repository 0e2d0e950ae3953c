// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

// Package config layers arbor's runtime configuration with
// github.com/spf13/viper, the same way untoldecay/BeadsLog's
// internal/config does: an env-prefix binding over a YAML file located
// by walking up from the working directory, with SetDefault calls
// giving every key a sane fallback so a bare process start never fails
// for lack of a config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is arbor's resolved runtime configuration.
type Config struct {
	// WorkspaceRoot is the filesystem directory spi/fsrepo treats as the
	// repository root.
	WorkspaceRoot string
	// WatchDebounce coalesces bursts of filesystem events from
	// spi/fsrepo's Watcher into a single Event.
	WatchDebounce time.Duration
	// LogProduction selects the production zap config (JSON, info
	// level) over the development one.
	LogProduction bool
}

// Load builds a Config from (in ascending precedence) built-in
// defaults, an arbor.yaml found by walking up from the working
// directory, and ARBOR_-prefixed environment variables.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("arbor")
	v.SetConfigType("yaml")

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; ; {
			v.AddConfigPath(dir)
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	v.SetEnvPrefix("ARBOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("workspace-root", ".")
	v.SetDefault("watch-debounce", "200ms")
	v.SetDefault("log-production", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	debounce, err := time.ParseDuration(v.GetString("watch-debounce"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		WorkspaceRoot: v.GetString("workspace-root"),
		WatchDebounce: debounce,
		LogProduction: v.GetBool("log-production"),
	}, nil
}
