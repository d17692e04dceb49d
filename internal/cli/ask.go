// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) askCommand() *cobra.Command {
	var quiet, raw bool

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Run one transformation and print the reply",
		Long: `Send a single message, print stage progress to stderr and the final
reply to stdout. The exit code is non-zero when the turn fails.`,
		Example: `  helios ask "I keep comparing myself to my classmates"
  helios ask --quiet --raw "I feel stuck" > reply.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := a.newClient(cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			defer client.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			runner := newTurnRunner(cfg, client, a.openJournal(cfg), a.log(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			runner.quiet = quiet
			runner.raw = raw

			out := runner.run(ctx, strings.Join(args, " "))
			if out.Failed() {
				return &ExitError{Code: turnExitCode(out.Err), Err: out.Err, Reported: true}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the reply")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}
