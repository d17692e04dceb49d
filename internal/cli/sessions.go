// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/helios-tui/internal/journal"
	"github.com/jeranaias/helios-tui/internal/util"
)

func (a *app) sessionsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent sessions from the local journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			path, err := cfg.JournalPath()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(w, "No sessions recorded yet.")
				return nil
			}

			j, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "No sessions recorded yet.")
				return nil
			}

			total, err := j.Count(cmd.Context())
			if err != nil {
				return err
			}
			printSessions(w, entries, total)
			if !cfg.Journal.Enabled {
				fmt.Fprintln(w, dimStyle.Render("Journal recording is disabled; set journal.enabled = true to record new sessions."))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultRecentLimit, "number of sessions to show")
	return cmd
}

func printSessions(w io.Writer, entries []journal.Entry, total int) {
	header := fmt.Sprintf("%s %s %s %s %s",
		util.PadRight("STARTED", 16),
		util.PadRight("STATUS", 9),
		util.PadRight("TIME", 7),
		util.PadRight("CHARACTER", 20),
		"MESSAGE")
	fmt.Fprintln(w, titleStyle.Render(header))

	for _, e := range entries {
		status := successStyle.Render(util.PadRight(e.Status, 9))
		if e.Failed() {
			status = errorStyle.Render(util.PadRight(e.Status, 9))
		}
		character := e.Character
		if character == "" {
			character = "-"
		}
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			util.PadRight(e.StartedAt.Format("2006-01-02 15:04"), 16),
			status,
			util.PadRight(fmt.Sprintf("%.1fs", e.Duration.Seconds()), 7),
			util.PadRight(character, 20),
			util.Preview(e.Message, 48))
		if e.Failed() && e.Error != "" {
			fmt.Fprintln(w, strings.Repeat(" ", 17)+dimStyle.Render(util.Preview(e.Error, 80)))
		}
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d of %d session(s)", len(entries), total)))
}
