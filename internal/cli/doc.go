// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the helios command line.

Running helios without a subcommand opens the interactive chat screen.
The subcommands cover headless use and housekeeping:

	helios                       interactive TUI
	helios ask "<message>"       one turn, stage progress on stderr, reply on stdout
	helios chat                  line-based REPL with input history
	helios sessions [--limit N]  recent sessions from the local journal
	helios config show|path|init|get|set

Global flags override the configuration file for a single run:

	--config <path>      use a specific config file
	--server <url>       backend base URL
	--transport <name>   sse or websocket
	-v, --verbose        debug logging

Failed turns exit with a code that names the failure class; see errors.go.
*/
package cli
