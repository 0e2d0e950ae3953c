// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/arbortree/arbor/log"
)

func main() {
	defer func() { _ = log.Sync() }()

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "arborctl:", err)
		os.Exit(1)
	}
}
