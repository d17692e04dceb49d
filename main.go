// helios - A terminal client for the Helios transformation engine.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/helios-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	cli.Version = Version
	if GitCommit != "unknown" {
		cli.Version += " (" + GitCommit + ")"
	}
	os.Exit(cli.Execute())
}
